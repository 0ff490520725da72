package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cobranza-bot/internal/app"
	"cobranza-bot/internal/config"
	apihttp "cobranza-bot/internal/http"
	"cobranza-bot/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer a.Close()

	dispatcher := queue.NewDispatcher(cfg.WebhookWorkers, cfg.WebhookQueueSize, 60*time.Second, a.Conversations.ProcessInbound, logger)
	dispatcher.Start(context.Background())

	webhook := apihttp.NewWebhookHandler(logger, dispatcher, cfg.VerifyToken)
	if cfg.TwilioValidateSignature {
		if cfg.TwilioAuthToken == "" {
			logger.Fatal("TWILIO_VALIDATE_SIGNATURE requires TWILIO_AUTH_TOKEN")
		}
		webhook.RequireTwilioSignature(cfg.TwilioAuthToken, cfg.TwilioWebhookURL)
	}

	handlers := apihttp.Handlers{
		User:     apihttp.NewUserHandler(logger, a.Users, a.JWT, cfg.CookieSecure),
		Debtor:   apihttp.NewDebtorHandler(logger, a.Debtors),
		Dataset:  apihttp.NewDatasetHandler(logger, a.Datasets, a.Fields, cfg.UploadMaxBytes),
		Strategy: apihttp.NewStrategyHandler(logger, a.Strategies),
		Bot:      apihttp.NewBotHandler(logger, a.Bots),
		Campaign: apihttp.NewCampaignHandler(logger, a.Campaigns),
		Webhook:  webhook,
	}
	router := apihttp.NewRouter(logger, a.JWT, handlers, apihttp.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		IPLimiter:      a.IPLimiter(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("dispatcher stop", zap.Error(err))
	}
}
