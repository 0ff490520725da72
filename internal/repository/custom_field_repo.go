package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

// CustomFieldRepository opera sobre campos de un dataset. La propiedad del
// dataset se verifica con un JOIN a debtor_datasets.
type CustomFieldRepository interface {
	Create(ctx context.Context, field domain.CustomField) (domain.CustomField, error)
	ListByDataset(ctx context.Context, datasetID int64) ([]domain.CustomField, error)
	GetByID(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error)
	Update(ctx context.Context, userID int64, field domain.CustomField) (domain.CustomField, error)
	Delete(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error)
}

type PgCustomFieldRepository struct {
	pool *pgxpool.Pool
}

func NewPgCustomFieldRepository(pool *pgxpool.Pool) *PgCustomFieldRepository {
	return &PgCustomFieldRepository{pool: pool}
}

const customFieldColumns = `f.id, f.debtor_dataset_id, f.name, f.field_type, f.created_at, f.updated_at`

func (r *PgCustomFieldRepository) Create(ctx context.Context, field domain.CustomField) (domain.CustomField, error) {
	const query = `
		INSERT INTO debtor_custom_fields AS f (debtor_dataset_id, name, field_type)
		VALUES ($1, $2, $3)
		RETURNING ` + customFieldColumns
	return scanCustomField(r.pool.QueryRow(ctx, query, field.DebtorDatasetID, field.Name, field.FieldType))
}

func (r *PgCustomFieldRepository) ListByDataset(ctx context.Context, datasetID int64) ([]domain.CustomField, error) {
	const query = `
		SELECT ` + customFieldColumns + `
		FROM debtor_custom_fields f
		WHERE f.debtor_dataset_id = $1
		ORDER BY f.id ASC
	`
	rows, err := r.pool.Query(ctx, query, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := []domain.CustomField{}
	for rows.Next() {
		f, err := scanCustomField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

func (r *PgCustomFieldRepository) GetByID(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error) {
	const query = `
		SELECT ` + customFieldColumns + `
		FROM debtor_custom_fields f
		JOIN debtor_datasets d ON d.id = f.debtor_dataset_id
		WHERE f.id = $1 AND f.debtor_dataset_id = $2 AND d.user_id = $3
	`
	return scanCustomField(r.pool.QueryRow(ctx, query, id, datasetID, userID))
}

func (r *PgCustomFieldRepository) Update(ctx context.Context, userID int64, field domain.CustomField) (domain.CustomField, error) {
	const query = `
		UPDATE debtor_custom_fields AS f SET
			name = $4,
			field_type = $5,
			updated_at = now()
		FROM debtor_datasets d
		WHERE f.id = $1 AND f.debtor_dataset_id = $2
		  AND d.id = f.debtor_dataset_id AND d.user_id = $3
		RETURNING ` + customFieldColumns
	return scanCustomField(r.pool.QueryRow(ctx, query,
		field.ID, field.DebtorDatasetID, userID, field.Name, field.FieldType,
	))
}

func (r *PgCustomFieldRepository) Delete(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error) {
	const query = `
		DELETE FROM debtor_custom_fields AS f
		USING debtor_datasets d
		WHERE f.id = $1 AND f.debtor_dataset_id = $2
		  AND d.id = f.debtor_dataset_id AND d.user_id = $3
		RETURNING ` + customFieldColumns
	return scanCustomField(r.pool.QueryRow(ctx, query, id, datasetID, userID))
}

func scanCustomField(row pgx.Row) (domain.CustomField, error) {
	var f domain.CustomField
	err := row.Scan(&f.ID, &f.DebtorDatasetID, &f.Name, &f.FieldType, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return domain.CustomField{}, err
	}
	return f, nil
}
