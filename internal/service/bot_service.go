package service

import (
	"context"
	"fmt"
	"strings"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/repository"
)

type BotInput struct {
	Name   *string        `json:"name"`
	Config map[string]any `json:"config"`
}

type BotService struct {
	bots repository.BotRepository
}

func NewBotService(bots repository.BotRepository) *BotService {
	return &BotService{bots: bots}
}

func (s *BotService) List(ctx context.Context, userID int64, skip, limit int) ([]domain.Bot, error) {
	skip, limit, err := normalizePage(skip, limit)
	if err != nil {
		return nil, err
	}
	return s.bots.List(ctx, userID, skip, limit)
}

func (s *BotService) Get(ctx context.Context, userID, id int64) (domain.Bot, error) {
	b, err := s.bots.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Bot{}, notFound(err, ErrBotNotFound)
	}
	return b, nil
}

func (s *BotService) Create(ctx context.Context, userID int64, in BotInput) (domain.Bot, error) {
	b := domain.Bot{UserID: userID, Config: map[string]any{}}
	if in.Name != nil {
		b.Name = strings.TrimSpace(*in.Name)
	}
	if b.Name == "" {
		return domain.Bot{}, invalid("name es obligatorio")
	}
	if in.Config != nil {
		b.Config = in.Config
	}
	created, err := s.bots.Create(ctx, b)
	if err != nil {
		return domain.Bot{}, fmt.Errorf("create bot: %w", err)
	}
	return created, nil
}

func (s *BotService) Update(ctx context.Context, userID, id int64, in BotInput) (domain.Bot, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Bot{}, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return domain.Bot{}, invalid("name no puede quedar vacío")
		}
		b.Name = name
	}
	if in.Config != nil {
		b.Config = in.Config
	}
	updated, err := s.bots.Update(ctx, b)
	if err != nil {
		return domain.Bot{}, notFound(err, ErrBotNotFound)
	}
	return updated, nil
}

func (s *BotService) Delete(ctx context.Context, userID, id int64) (domain.Bot, error) {
	b, err := s.bots.Delete(ctx, userID, id)
	if err != nil {
		return domain.Bot{}, notFound(err, ErrBotNotFound)
	}
	return b, nil
}
