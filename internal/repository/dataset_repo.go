package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

// DatasetRepository define la persistencia de datasets de deudores.
type DatasetRepository interface {
	Create(ctx context.Context, dataset domain.DebtorDataset) (domain.DebtorDataset, error)
	List(ctx context.Context, userID int64, skip, limit int) ([]domain.DebtorDataset, error)
	GetByID(ctx context.Context, userID, id int64) (domain.DebtorDataset, error)
	Rename(ctx context.Context, userID, id int64, name string) (domain.DebtorDataset, error)
	Delete(ctx context.Context, userID, id int64) (domain.DebtorDataset, error)
	Import(ctx context.Context, dataset domain.DebtorDataset, fields []domain.CustomField, debtors []domain.Debtor) (domain.DebtorDataset, int, error)
}

type PgDatasetRepository struct {
	pool *pgxpool.Pool
}

func NewPgDatasetRepository(pool *pgxpool.Pool) *PgDatasetRepository {
	return &PgDatasetRepository{pool: pool}
}

const datasetColumns = `id, user_id, name, created_at, updated_at`

func (r *PgDatasetRepository) Create(ctx context.Context, dataset domain.DebtorDataset) (domain.DebtorDataset, error) {
	query := `INSERT INTO debtor_datasets (user_id, name) VALUES ($1, $2) RETURNING ` + datasetColumns
	return scanDataset(r.pool.QueryRow(ctx, query, dataset.UserID, dataset.Name))
}

func (r *PgDatasetRepository) List(ctx context.Context, userID int64, skip, limit int) ([]domain.DebtorDataset, error) {
	query := `
		SELECT ` + datasetColumns + `
		FROM debtor_datasets
		WHERE user_id = $1
		ORDER BY id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := []domain.DebtorDataset{}
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

func (r *PgDatasetRepository) GetByID(ctx context.Context, userID, id int64) (domain.DebtorDataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM debtor_datasets WHERE id = $1 AND user_id = $2`
	return scanDataset(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgDatasetRepository) Rename(ctx context.Context, userID, id int64, name string) (domain.DebtorDataset, error) {
	query := `
		UPDATE debtor_datasets SET name = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + datasetColumns
	return scanDataset(r.pool.QueryRow(ctx, query, id, userID, name))
}

// Delete borra el dataset; campos y deudores caen por ON DELETE CASCADE.
func (r *PgDatasetRepository) Delete(ctx context.Context, userID, id int64) (domain.DebtorDataset, error) {
	query := `DELETE FROM debtor_datasets WHERE id = $1 AND user_id = $2 RETURNING ` + datasetColumns
	return scanDataset(r.pool.QueryRow(ctx, query, id, userID))
}

// Import crea el dataset, sus campos y sus deudores en una sola transacción.
// Los deudores se insertan con COPY.
func (r *PgDatasetRepository) Import(ctx context.Context, dataset domain.DebtorDataset, fields []domain.CustomField, debtors []domain.Debtor) (domain.DebtorDataset, int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.DebtorDataset{}, 0, fmt.Errorf("import: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := scanDataset(tx.QueryRow(ctx,
		`INSERT INTO debtor_datasets (user_id, name) VALUES ($1, $2) RETURNING `+datasetColumns,
		dataset.UserID, dataset.Name,
	))
	if err != nil {
		return domain.DebtorDataset{}, 0, fmt.Errorf("import: insert dataset: %w", err)
	}

	if len(fields) > 0 {
		batch := &pgx.Batch{}
		for _, f := range fields {
			batch.Queue(
				`INSERT INTO debtor_custom_fields (debtor_dataset_id, name, field_type) VALUES ($1, $2, $3)`,
				created.ID, f.Name, f.FieldType,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return domain.DebtorDataset{}, 0, fmt.Errorf("import: insert fields: %w", err)
		}
	}

	rows := make([][]any, 0, len(debtors))
	for _, d := range debtors {
		customData := d.CustomData
		if customData == nil {
			customData = map[string]any{}
		}
		raw, err := json.Marshal(customData)
		if err != nil {
			return domain.DebtorDataset{}, 0, fmt.Errorf("import: marshal custom_data: %w", err)
		}
		rows = append(rows, []any{
			dataset.UserID,
			created.ID,
			d.Phone,
			nullable(d.DNI),
			nullable(d.Name),
			nullable(d.Email),
			string(d.State),
			raw,
		})
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"debtors"},
		[]string{"user_id", "debtor_dataset_id", "phone", "dni", "name", "email", "state", "custom_data"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return domain.DebtorDataset{}, 0, fmt.Errorf("import: copy debtors: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.DebtorDataset{}, 0, fmt.Errorf("import: commit tx: %w", err)
	}
	return created, int(copied), nil
}

func scanDataset(row pgx.Row) (domain.DebtorDataset, error) {
	var ds domain.DebtorDataset
	err := row.Scan(&ds.ID, &ds.UserID, &ds.Name, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		return domain.DebtorDataset{}, err
	}
	return ds, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
