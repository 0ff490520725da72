// Package app arma las dependencias compartidas por los binarios de cmd/.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cobranza-bot/internal/config"
	"cobranza-bot/internal/db"
	"cobranza-bot/internal/email"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/repository"
	"cobranza-bot/internal/service"
	"cobranza-bot/internal/whatsapp"
)

type Repositories struct {
	Users         *repository.PgUserRepository
	Debtors       *repository.PgDebtorRepository
	Datasets      *repository.PgDatasetRepository
	Fields        *repository.PgCustomFieldRepository
	Strategies    *repository.PgStrategyRepository
	Bots          *repository.PgBotRepository
	Campaigns     *repository.PgCampaignRepository
	Conversations *repository.PgConversationRepository
}

// App contiene pool, clientes externos y servicios ya conectados.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client // nil sin REDIS_ADDR o si no respondió

	Repos  Repositories
	LLM    llm.LLMClient
	Sender whatsapp.Sender
	Mailer email.Sender

	JWT           *service.JWTService
	Users         *service.UserService
	Debtors       *service.DebtorService
	Datasets      *service.DatasetService
	Fields        *service.CustomFieldService
	Strategies    *service.StrategyService
	Bots          *service.BotService
	Campaigns     *service.CampaignService
	Payments      *service.PaymentLinkService
	Classifier    *service.StateClassifier
	Conversations *service.ConversationService
}

// New conecta la base y construye todos los servicios. El caller debe llamar Close.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Pool: pool}
	a.Repos = Repositories{
		Users:         repository.NewPgUserRepository(pool),
		Debtors:       repository.NewPgDebtorRepository(pool),
		Datasets:      repository.NewPgDatasetRepository(pool),
		Fields:        repository.NewPgCustomFieldRepository(pool),
		Strategies:    repository.NewPgStrategyRepository(pool),
		Bots:          repository.NewPgBotRepository(pool),
		Campaigns:     repository.NewPgCampaignRepository(pool),
		Conversations: repository.NewPgConversationRepository(pool),
	}

	a.Redis = connectRedis(ctx, cfg, logger)

	a.LLM = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	if cfg.LLMAPIKey == "" {
		logger.Warn("llm api key not configured")
	}

	a.Sender, err = whatsapp.NewSenderFromConfig(cfg, logger)
	if err != nil {
		logger.Warn("whatsapp sender disabled", zap.Error(err))
		a.Sender = whatsapp.NewDisabledSender(err.Error())
	}

	a.Mailer = email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.Config{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			ImplicitTLS: cfg.SMTPUseTLS,
		}, logger.Named("email"))
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			a.Mailer = sender
		}
	}

	var (
		tokenStore   service.RefreshTokenStore
		loginLimiter service.RateLimiter
	)
	if a.Redis != nil {
		tokenStore = service.NewRedisRefreshTokenStore(a.Redis)
		loginLimiter = service.NewRedisRateLimiter(a.Redis, "rl:login:", time.Minute, cfg.LoginRateLimit)
	} else {
		loginLimiter = service.NewRateLimiter(time.Minute, cfg.LoginRateLimit)
	}
	a.JWT = service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	r := a.Repos
	a.Users = service.NewUserService(logger, r.Users, loginLimiter)
	a.Debtors = service.NewDebtorService(logger, r.Debtors, r.Datasets)
	a.Datasets = service.NewDatasetService(logger, r.Datasets)
	a.Fields = service.NewCustomFieldService(r.Datasets, r.Fields)
	a.Strategies = service.NewStrategyService(r.Strategies)
	a.Bots = service.NewBotService(r.Bots)
	a.Campaigns = service.NewCampaignService(service.CampaignDeps{
		Logger:        logger,
		Campaigns:     r.Campaigns,
		Strategies:    r.Strategies,
		Bots:          r.Bots,
		Datasets:      r.Datasets,
		Debtors:       r.Debtors,
		Conversations: r.Conversations,
		Users:         r.Users,
		LLM:           a.LLM,
		Sender:        a.Sender,
		Mailer:        a.Mailer,
		Concurrency:   cfg.CampaignSendConcurrency,
		LaunchTimeout: cfg.CampaignLaunchTimeout,
	})
	a.Payments = service.NewPaymentLinkService(cfg.PaymentLinkBaseURL, cfg.PaymentLinkTTL, logger)
	a.Classifier = service.NewStateClassifier(a.LLM, cfg.LLMClassifierModel, logger)
	a.Conversations = service.NewConversationService(service.ConversationDeps{
		Logger:        logger,
		Debtors:       r.Debtors,
		Conversations: r.Conversations,
		Campaigns:     r.Campaigns,
		Strategies:    r.Strategies,
		Classifier:    a.Classifier,
		Payments:      a.Payments,
		LLM:           a.LLM,
		Model:         cfg.LLMModel,
		Sender:        a.Sender,
	})
	return a, nil
}

// IPLimiter devuelve el limitador por IP del router, compartido vía redis si hay.
func (a *App) IPLimiter() service.RateLimiter {
	if a.Config.APIRateLimit <= 0 {
		return nil
	}
	if a.Redis != nil {
		return service.NewRedisRateLimiter(a.Redis, "rl:ip:", a.Config.APIRateLimitWindow, a.Config.APIRateLimit)
	}
	return service.NewRateLimiter(a.Config.APIRateLimitWindow, a.Config.APIRateLimit)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}

func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed; using in-memory stores", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
