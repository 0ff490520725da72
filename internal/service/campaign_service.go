package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/email"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/repository"
	"cobranza-bot/internal/whatsapp"
)

var (
	errInvalidStrategy = &ValidationError{Err: errors.New("Invalid strategy")}
	errInvalidBot      = &ValidationError{Err: errors.New("Invalid bot")}
	errInvalidDataset  = &ValidationError{Err: errors.New("Invalid debtor dataset")}
)

// Date acepta fechas RFC3339, "2006-01-02T15:04:05" o "2006-01-02".
type Date struct {
	time.Time
}

var dateInputLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("fecha inválida: %q", raw)
}

type CampaignInput struct {
	Name            *string `json:"name"`
	BotID           *int64  `json:"bot_id"`
	StrategyID      *int64  `json:"strategy_id"`
	DebtorDatasetID *int64  `json:"debtor_dataset_id"`
	Status          *string `json:"status"`
	StartDate       *Date   `json:"start_date"`
	EndDate         *Date   `json:"end_date"`
}

// CampaignDeps agrupa lo que necesita el servicio de campañas, lanzamiento incluido.
type CampaignDeps struct {
	Logger        *zap.Logger
	Campaigns     repository.CampaignRepository
	Strategies    repository.StrategyRepository
	Bots          repository.BotRepository
	Datasets      repository.DatasetRepository
	Debtors       repository.DebtorRepository
	Conversations repository.ConversationRepository
	Users         repository.UserRepository
	LLM           llm.LLMClient
	Sender        whatsapp.Sender
	Mailer        email.Sender // opcional
	Concurrency   int
	// LaunchTimeout acota los envíos de un lanzamiento, que no dependen del
	// contexto del request.
	LaunchTimeout time.Duration
}

type CampaignService struct {
	logger        *zap.Logger
	campaigns     repository.CampaignRepository
	strategies    repository.StrategyRepository
	bots          repository.BotRepository
	datasets      repository.DatasetRepository
	debtors       repository.DebtorRepository
	conversations repository.ConversationRepository
	users         repository.UserRepository
	llm           llm.LLMClient
	sender        whatsapp.Sender
	mailer        email.Sender
	concurrency   int
	launchTimeout time.Duration
}

func NewCampaignService(deps CampaignDeps) *CampaignService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 5
	}
	if deps.LaunchTimeout <= 0 {
		deps.LaunchTimeout = 15 * time.Minute
	}
	return &CampaignService{
		logger:        deps.Logger,
		campaigns:     deps.Campaigns,
		strategies:    deps.Strategies,
		bots:          deps.Bots,
		datasets:      deps.Datasets,
		debtors:       deps.Debtors,
		conversations: deps.Conversations,
		users:         deps.Users,
		llm:           deps.LLM,
		sender:        deps.Sender,
		mailer:        deps.Mailer,
		concurrency:   deps.Concurrency,
		launchTimeout: deps.LaunchTimeout,
	}
}

func (s *CampaignService) List(ctx context.Context, userID int64, skip, limit int) ([]domain.Campaign, error) {
	skip, limit, err := normalizePage(skip, limit)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.campaigns.List(ctx, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	cache := newEmbedCache()
	for i := range campaigns {
		if err := s.embed(ctx, userID, &campaigns[i], cache); err != nil {
			return nil, err
		}
	}
	return campaigns, nil
}

func (s *CampaignService) Get(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Campaign{}, notFound(err, ErrCampaignNotFound)
	}
	if err := s.embed(ctx, userID, &c, newEmbedCache()); err != nil {
		return domain.Campaign{}, err
	}
	return c, nil
}

func (s *CampaignService) Create(ctx context.Context, userID int64, in CampaignInput) (domain.Campaign, error) {
	c := domain.Campaign{UserID: userID, Status: domain.CampaignInactive}
	if in.StrategyID == nil {
		return domain.Campaign{}, errInvalidStrategy
	}
	if in.BotID == nil {
		return domain.Campaign{}, errInvalidBot
	}
	if in.DebtorDatasetID == nil {
		return domain.Campaign{}, errInvalidDataset
	}
	if err := s.apply(ctx, userID, &c, in); err != nil {
		return domain.Campaign{}, err
	}
	if c.Name == "" {
		return domain.Campaign{}, invalid("name es obligatorio")
	}

	created, err := s.campaigns.Create(ctx, c)
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	if err := s.embed(ctx, userID, &created, newEmbedCache()); err != nil {
		return domain.Campaign{}, err
	}
	s.logger.Info("campaign_created", zap.Int64("user_id", userID), zap.Int64("campaign_id", created.ID))
	return created, nil
}

func (s *CampaignService) Update(ctx context.Context, userID, id int64, in CampaignInput) (domain.Campaign, error) {
	c, err := s.campaigns.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Campaign{}, notFound(err, ErrCampaignNotFound)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.Campaign{}, invalid("name no puede quedar vacío")
	}
	if err := s.apply(ctx, userID, &c, in); err != nil {
		return domain.Campaign{}, err
	}
	updated, err := s.campaigns.Update(ctx, c)
	if err != nil {
		return domain.Campaign{}, notFound(err, ErrCampaignNotFound)
	}
	if err := s.embed(ctx, userID, &updated, newEmbedCache()); err != nil {
		return domain.Campaign{}, err
	}
	return updated, nil
}

func (s *CampaignService) Delete(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	c, err := s.campaigns.Delete(ctx, userID, id)
	if err != nil {
		return domain.Campaign{}, notFound(err, ErrCampaignNotFound)
	}
	return c, nil
}

func (s *CampaignService) apply(ctx context.Context, userID int64, c *domain.Campaign, in CampaignInput) error {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.StrategyID != nil {
		if _, err := s.strategies.GetByID(ctx, userID, *in.StrategyID); err != nil {
			return ownership(err, errInvalidStrategy)
		}
		c.StrategyID = in.StrategyID
	}
	if in.BotID != nil {
		if _, err := s.bots.GetByID(ctx, userID, *in.BotID); err != nil {
			return ownership(err, errInvalidBot)
		}
		c.BotID = in.BotID
	}
	if in.DebtorDatasetID != nil {
		if _, err := s.datasets.GetByID(ctx, userID, *in.DebtorDatasetID); err != nil {
			return ownership(err, errInvalidDataset)
		}
		c.DebtorDatasetID = in.DebtorDatasetID
	}
	if in.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*in.Status))
		if !domain.ValidCampaignStatus(status) {
			return invalid("Estado de campaña inválido: %s", *in.Status)
		}
		c.Status = status
	}
	if in.StartDate != nil {
		t := in.StartDate.Time
		c.StartDate = &t
	}
	if in.EndDate != nil {
		t := in.EndDate.Time
		c.EndDate = &t
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return invalid("end_date no puede ser anterior a start_date")
	}
	return nil
}

func ownership(err, invalidRef error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return invalidRef
	}
	return err
}

type embedCache struct {
	strategies map[int64]*domain.Strategy
	bots       map[int64]*domain.Bot
	datasets   map[int64]*domain.DebtorDataset
}

func newEmbedCache() *embedCache {
	return &embedCache{
		strategies: map[int64]*domain.Strategy{},
		bots:       map[int64]*domain.Bot{},
		datasets:   map[int64]*domain.DebtorDataset{},
	}
}

// embed completa strategy, bot y debtor_dataset. Una referencia que ya no
// existe queda en nil.
func (s *CampaignService) embed(ctx context.Context, userID int64, c *domain.Campaign, cache *embedCache) error {
	if c.StrategyID != nil {
		st, ok := cache.strategies[*c.StrategyID]
		if !ok {
			v, err := s.strategies.GetByID(ctx, userID, *c.StrategyID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("embed strategy: %w", err)
			}
			if err == nil {
				st = &v
			}
			cache.strategies[*c.StrategyID] = st
		}
		c.Strategy = st
	}
	if c.BotID != nil {
		b, ok := cache.bots[*c.BotID]
		if !ok {
			v, err := s.bots.GetByID(ctx, userID, *c.BotID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("embed bot: %w", err)
			}
			if err == nil {
				b = &v
			}
			cache.bots[*c.BotID] = b
		}
		c.Bot = b
	}
	if c.DebtorDatasetID != nil {
		ds, ok := cache.datasets[*c.DebtorDatasetID]
		if !ok {
			v, err := s.datasets.GetByID(ctx, userID, *c.DebtorDatasetID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("embed dataset: %w", err)
			}
			if err == nil {
				ds = &v
			}
			cache.datasets[*c.DebtorDatasetID] = ds
		}
		c.DebtorDataset = ds
	}
	return nil
}
