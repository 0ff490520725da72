package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

// ConversationRepository persiste el historial de chat y el estado de un deudor.
type ConversationRepository interface {
	GetHistory(ctx context.Context, debtorID int64) ([]domain.ChatMessage, error)
	SaveTurn(ctx context.Context, debtorID int64, history []domain.ChatMessage, state domain.State) error
	StartCampaign(ctx context.Context, debtorID, campaignID int64, history []domain.ChatMessage) error
}

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) GetHistory(ctx context.Context, debtorID int64) ([]domain.ChatMessage, error) {
	const query = `
		SELECT conversation_history
		FROM debtors
		WHERE id = $1
	`
	var history []domain.ChatMessage
	if err := r.pool.QueryRow(ctx, query, debtorID).Scan(&history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.ChatMessage{}
	}
	return history, nil
}

func (r *PgConversationRepository) SaveTurn(ctx context.Context, debtorID int64, history []domain.ChatMessage, state domain.State) error {
	const query = `
		UPDATE debtors SET
			conversation_history = $2,
			state_updated_at = CASE WHEN state <> $3 THEN now() ELSE state_updated_at END,
			state = $3,
			updated_at = now()
		WHERE id = $1
	`
	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, debtorID, raw, string(state))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// StartCampaign vincula el deudor a la campaña y reemplaza su historial.
func (r *PgConversationRepository) StartCampaign(ctx context.Context, debtorID, campaignID int64, history []domain.ChatMessage) error {
	const query = `
		UPDATE debtors SET
			campaign_id = $2,
			conversation_history = $3,
			updated_at = now()
		WHERE id = $1
	`
	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, debtorID, campaignID, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
