package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

type BotRepository interface {
	Create(ctx context.Context, bot domain.Bot) (domain.Bot, error)
	List(ctx context.Context, userID int64, skip, limit int) ([]domain.Bot, error)
	GetByID(ctx context.Context, userID, id int64) (domain.Bot, error)
	Update(ctx context.Context, bot domain.Bot) (domain.Bot, error)
	Delete(ctx context.Context, userID, id int64) (domain.Bot, error)
}

type PgBotRepository struct {
	pool *pgxpool.Pool
}

func NewPgBotRepository(pool *pgxpool.Pool) *PgBotRepository {
	return &PgBotRepository{pool: pool}
}

const botColumns = `id, user_id, name, config, created_at, updated_at`

func (r *PgBotRepository) Create(ctx context.Context, bot domain.Bot) (domain.Bot, error) {
	cfg, err := json.Marshal(bot.Config)
	if err != nil {
		return domain.Bot{}, err
	}
	const query = `INSERT INTO bots (user_id, name, config) VALUES ($1, $2, $3) RETURNING ` + botColumns
	return scanBot(r.pool.QueryRow(ctx, query, bot.UserID, bot.Name, cfg))
}

func (r *PgBotRepository) List(ctx context.Context, userID int64, skip, limit int) ([]domain.Bot, error) {
	const query = `
		SELECT ` + botColumns + `
		FROM bots
		WHERE user_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bots := []domain.Bot{}
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

func (r *PgBotRepository) GetByID(ctx context.Context, userID, id int64) (domain.Bot, error) {
	const query = `SELECT ` + botColumns + ` FROM bots WHERE id = $1 AND user_id = $2`
	return scanBot(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgBotRepository) Update(ctx context.Context, bot domain.Bot) (domain.Bot, error) {
	cfg, err := json.Marshal(bot.Config)
	if err != nil {
		return domain.Bot{}, err
	}
	const query = `
		UPDATE bots SET name = $3, config = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + botColumns
	return scanBot(r.pool.QueryRow(ctx, query, bot.ID, bot.UserID, bot.Name, cfg))
}

func (r *PgBotRepository) Delete(ctx context.Context, userID, id int64) (domain.Bot, error) {
	const query = `DELETE FROM bots WHERE id = $1 AND user_id = $2 RETURNING ` + botColumns
	return scanBot(r.pool.QueryRow(ctx, query, id, userID))
}

func scanBot(row pgx.Row) (domain.Bot, error) {
	var b domain.Bot
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Config, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return domain.Bot{}, err
	}
	return b, nil
}
