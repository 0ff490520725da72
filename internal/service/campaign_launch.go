package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/metrics"
)

const (
	launchStatus = "launched"

	openingInstruction = "Redactá el primer mensaje de WhatsApp para el deudor siguiendo las instrucciones. " +
		"Podés usar marcadores entre corchetes como [Name] o [Monto Deuda] para los datos del deudor. " +
		"Respondé solo con el texto del mensaje."
)

// Launch genera el mensaje inicial una sola vez, lo personaliza por deudor,
// reinicia cada conversación y envía por WhatsApp con concurrencia acotada.
// Un envío fallido queda en el reporte y no corta el resto.
func (s *CampaignService) Launch(ctx context.Context, userID, id int64) (domain.LaunchReport, error) {
	c, err := s.campaigns.GetByID(ctx, userID, id)
	if err != nil {
		return domain.LaunchReport{}, notFound(err, ErrCampaignNotFound)
	}
	if c.StrategyID == nil {
		return domain.LaunchReport{}, errInvalidStrategy
	}
	strategy, err := s.strategies.GetByID(ctx, userID, *c.StrategyID)
	if err != nil {
		return domain.LaunchReport{}, ownership(err, errInvalidStrategy)
	}
	if strings.TrimSpace(strategy.InitialPrompt) == "" {
		return domain.LaunchReport{}, invalid("La estrategia no tiene prompt inicial")
	}
	if c.DebtorDatasetID == nil {
		return domain.LaunchReport{}, errInvalidDataset
	}

	debtors, err := s.debtors.ListByDataset(ctx, userID, *c.DebtorDatasetID)
	if err != nil {
		return domain.LaunchReport{}, fmt.Errorf("list campaign debtors: %w", err)
	}

	opening, err := s.llm.Chat(ctx, []llm.Message{
		{Role: domain.RoleSystem, Content: strategy.InitialPrompt},
		{Role: domain.RoleUser, Content: openingInstruction},
	}, llm.ChatOptions{})
	if err != nil {
		s.logger.Error("campaign opening generation failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
		return domain.LaunchReport{}, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	// A partir de acá se reinician historiales y se envían mensajes: el
	// lanzamiento termina aunque el cliente se desconecte.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.launchTimeout)
	defer cancel()

	report := domain.LaunchReport{CampaignID: c.ID, Total: len(debtors), Errors: []string{}}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, d := range debtors {
		g.Go(func() error {
			err := s.sendOpening(runCtx, c.ID, strategy, d, opening)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("deudor %d (%s): %v", d.ID, d.Phone, err))
				return nil
			}
			report.Sent++
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(report.Errors)

	if _, err := s.campaigns.MarkLaunched(runCtx, userID, c.ID); err != nil {
		return domain.LaunchReport{}, notFound(err, ErrCampaignNotFound)
	}
	report.Status = launchStatus

	s.logger.Info("campaign_launched",
		zap.Int64("campaign_id", c.ID),
		zap.Int("total", report.Total),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
	s.notifyLaunch(runCtx, userID, c, report)
	return report, nil
}

func (s *CampaignService) sendOpening(ctx context.Context, campaignID int64, strategy domain.Strategy, d domain.Debtor, opening string) error {
	message := Personalize(opening, d.Attributes())
	history := []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: strategy.InitialPrompt},
		{Role: domain.RoleAssistant, Content: message},
	}
	if err := s.conversations.StartCampaign(ctx, d.ID, campaignID, history); err != nil {
		return fmt.Errorf("guardar conversación: %w", err)
	}
	if _, err := s.sender.Send(ctx, d.Phone, message); err != nil {
		metrics.MessagesSent.WithLabelValues("campaign", "error").Inc()
		return err
	}
	metrics.MessagesSent.WithLabelValues("campaign", "ok").Inc()
	return nil
}

func (s *CampaignService) notifyLaunch(ctx context.Context, userID int64, c domain.Campaign, report domain.LaunchReport) {
	if s.mailer == nil || s.users == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("launch report: load user", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if err := s.mailer.SendLaunchReport(ctx, user.Email, c.Name, report); err != nil {
		s.logger.Warn("launch report email failed", zap.Int64("campaign_id", c.ID), zap.Error(err))
	}
}
