package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// NewPool abre el pool y verifica la conexión antes de devolverlo.
// MaxConns no baja de la concurrencia de envío más los workers del webhook.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}

	poolCfg.MaxConns = max(cfg.DBMaxConns, int32(cfg.CampaignSendConcurrency+cfg.WebhookWorkers), 2)
	poolCfg.MinConns = min(max(cfg.DBMinConns, 0), poolCfg.MaxConns)
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "cobranza-bot"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}

// Migrate aplica el esquema completo. Todas las sentencias son idempotentes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("db: apply schema: %w", err)
	}
	return nil
}

// Schema devuelve el SQL embebido, útil para imprimirlo desde la CLI.
func Schema() string {
	return schemaSQL
}
