package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	List(ctx context.Context, userID int64, skip, limit int) ([]domain.Campaign, error)
	GetByID(ctx context.Context, userID, id int64) (domain.Campaign, error)
	Update(ctx context.Context, campaign domain.Campaign) (domain.Campaign, error)
	Delete(ctx context.Context, userID, id int64) (domain.Campaign, error)
	MarkLaunched(ctx context.Context, userID, id int64) (domain.Campaign, error)
}

type PgCampaignRepository struct {
	pool *pgxpool.Pool
}

func NewPgCampaignRepository(pool *pgxpool.Pool) *PgCampaignRepository {
	return &PgCampaignRepository{pool: pool}
}

const campaignColumns = `
	id, user_id, name, bot_id, strategy_id, debtor_dataset_id,
	status, start_date, end_date, created_at, updated_at
`

func (r *PgCampaignRepository) Create(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	const query = `
		INSERT INTO campaigns (user_id, name, bot_id, strategy_id, debtor_dataset_id, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + campaignColumns
	return scanCampaign(r.pool.QueryRow(ctx, query,
		c.UserID,
		c.Name,
		c.BotID,
		c.StrategyID,
		c.DebtorDatasetID,
		c.Status,
		c.StartDate,
		c.EndDate,
	))
}

func (r *PgCampaignRepository) List(ctx context.Context, userID int64, skip, limit int) ([]domain.Campaign, error) {
	const query = `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE user_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PgCampaignRepository) GetByID(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	const query = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND user_id = $2`
	return scanCampaign(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgCampaignRepository) Update(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	const query = `
		UPDATE campaigns SET
			name = $3,
			bot_id = $4,
			strategy_id = $5,
			debtor_dataset_id = $6,
			status = $7,
			start_date = $8,
			end_date = $9,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + campaignColumns
	return scanCampaign(r.pool.QueryRow(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		c.BotID,
		c.StrategyID,
		c.DebtorDatasetID,
		c.Status,
		c.StartDate,
		c.EndDate,
	))
}

func (r *PgCampaignRepository) Delete(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	const query = `DELETE FROM campaigns WHERE id = $1 AND user_id = $2 RETURNING ` + campaignColumns
	return scanCampaign(r.pool.QueryRow(ctx, query, id, userID))
}

// MarkLaunched deja la campaña activa y fija start_date si estaba vacía.
func (r *PgCampaignRepository) MarkLaunched(ctx context.Context, userID, id int64) (domain.Campaign, error) {
	const query = `
		UPDATE campaigns SET
			status = 'active',
			start_date = COALESCE(start_date, now()),
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + campaignColumns
	return scanCampaign(r.pool.QueryRow(ctx, query, id, userID))
}

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.BotID,
		&c.StrategyID,
		&c.DebtorDatasetID,
		&c.Status,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.Campaign{}, err
	}
	return c, nil
}
