package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

type StrategyRepository interface {
	Create(ctx context.Context, strategy domain.Strategy) (domain.Strategy, error)
	List(ctx context.Context, userID int64, skip, limit int) ([]domain.Strategy, error)
	GetByID(ctx context.Context, userID, id int64) (domain.Strategy, error)
	Update(ctx context.Context, strategy domain.Strategy) (domain.Strategy, error)
	Delete(ctx context.Context, userID, id int64) (domain.Strategy, error)
}

type PgStrategyRepository struct {
	pool *pgxpool.Pool
}

func NewPgStrategyRepository(pool *pgxpool.Pool) *PgStrategyRepository {
	return &PgStrategyRepository{pool: pool}
}

const strategyColumns = `id, user_id, name, initial_prompt, rules_by_state, created_at, updated_at`

func (r *PgStrategyRepository) Create(ctx context.Context, strategy domain.Strategy) (domain.Strategy, error) {
	rules, err := marshalRules(strategy.RulesByState)
	if err != nil {
		return domain.Strategy{}, err
	}
	const query = `
		INSERT INTO strategies (user_id, name, initial_prompt, rules_by_state)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + strategyColumns
	return scanStrategy(r.pool.QueryRow(ctx, query,
		strategy.UserID,
		strategy.Name,
		strategy.InitialPrompt,
		rules,
	))
}

func (r *PgStrategyRepository) List(ctx context.Context, userID int64, skip, limit int) ([]domain.Strategy, error) {
	const query = `
		SELECT ` + strategyColumns + `
		FROM strategies
		WHERE user_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	strategies := []domain.Strategy{}
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, rows.Err()
}

func (r *PgStrategyRepository) GetByID(ctx context.Context, userID, id int64) (domain.Strategy, error) {
	const query = `SELECT ` + strategyColumns + ` FROM strategies WHERE id = $1 AND user_id = $2`
	return scanStrategy(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgStrategyRepository) Update(ctx context.Context, strategy domain.Strategy) (domain.Strategy, error) {
	rules, err := marshalRules(strategy.RulesByState)
	if err != nil {
		return domain.Strategy{}, err
	}
	const query = `
		UPDATE strategies SET
			name = $3,
			initial_prompt = $4,
			rules_by_state = $5,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + strategyColumns
	return scanStrategy(r.pool.QueryRow(ctx, query,
		strategy.ID,
		strategy.UserID,
		strategy.Name,
		strategy.InitialPrompt,
		rules,
	))
}

func (r *PgStrategyRepository) Delete(ctx context.Context, userID, id int64) (domain.Strategy, error) {
	const query = `DELETE FROM strategies WHERE id = $1 AND user_id = $2 RETURNING ` + strategyColumns
	return scanStrategy(r.pool.QueryRow(ctx, query, id, userID))
}

func scanStrategy(row pgx.Row) (domain.Strategy, error) {
	var s domain.Strategy
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.InitialPrompt,
		&s.RulesByState,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return domain.Strategy{}, err
	}
	if s.RulesByState == nil {
		s.RulesByState = map[domain.State]domain.StateRules{}
	}
	return s, nil
}

func marshalRules(rules map[domain.State]domain.StateRules) ([]byte, error) {
	if rules == nil {
		rules = map[domain.State]domain.StateRules{}
	}
	return json.Marshal(rules)
}
