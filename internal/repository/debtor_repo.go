package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobranza-bot/internal/domain"
)

// DebtorRepository define el contrato de persistencia para deudores.
type DebtorRepository interface {
	List(ctx context.Context, userID int64, filter domain.DebtorFilter) ([]domain.Debtor, error)
	GetByID(ctx context.Context, userID, id int64) (domain.Debtor, error)
	Create(ctx context.Context, debtor domain.Debtor) (domain.Debtor, error)
	Update(ctx context.Context, debtor domain.Debtor) (domain.Debtor, error)
	Delete(ctx context.Context, userID, id int64) (domain.Debtor, error)
	ExistsDNI(ctx context.Context, userID int64, dni string, excludeID int64) (bool, error)
	ListByDataset(ctx context.Context, userID, datasetID int64) ([]domain.Debtor, error)
	FindLatestByPhone(ctx context.Context, phones []string) (domain.Debtor, error)
}

type PgDebtorRepository struct {
	pool *pgxpool.Pool
}

func NewPgDebtorRepository(pool *pgxpool.Pool) *PgDebtorRepository {
	return &PgDebtorRepository{pool: pool}
}

const debtorColumns = `
	id, user_id, debtor_dataset_id, campaign_id, phone,
	COALESCE(dni, ''), COALESCE(name, ''), COALESCE(email, ''),
	state, state_updated_at, custom_data, conversation_history,
	created_at, updated_at
`

func (r *PgDebtorRepository) List(ctx context.Context, userID int64, filter domain.DebtorFilter) ([]domain.Debtor, error) {
	where, args := debtorListWhere(userID, filter)

	column, ok := domain.DebtorSortColumns[filter.SortBy]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Skip)
	query := fmt.Sprintf(`
		SELECT %s
		FROM debtors
		WHERE %s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, debtorColumns, where, column, direction, len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

func debtorListWhere(userID int64, filter domain.DebtorFilter) (string, []any) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	if filter.State != "" {
		args = append(args, string(filter.State))
		where = append(where, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.DatasetID > 0 {
		args = append(args, filter.DatasetID)
		where = append(where, fmt.Sprintf("debtor_dataset_id = $%d", len(args)))
	}
	if filter.CampaignID > 0 {
		args = append(args, filter.CampaignID)
		where = append(where, fmt.Sprintf("campaign_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(name ILIKE $%[1]d ESCAPE '\' OR dni ILIKE $%[1]d ESCAPE '\' OR phone ILIKE $%[1]d ESCAPE '\' OR email ILIKE $%[1]d ESCAPE '\')`, n))
	}
	return strings.Join(where, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutraliza los comodines de LIKE para buscar el texto literal.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PgDebtorRepository) GetByID(ctx context.Context, userID, id int64) (domain.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE id = $1 AND user_id = $2`
	return scanDebtor(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgDebtorRepository) Create(ctx context.Context, debtor domain.Debtor) (domain.Debtor, error) {
	customData, history, err := debtorJSON(debtor)
	if err != nil {
		return domain.Debtor{}, err
	}
	query := `
		INSERT INTO debtors (
			user_id, debtor_dataset_id, campaign_id, phone, dni, name, email,
			state, custom_data, conversation_history
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
		RETURNING ` + debtorColumns
	return scanDebtor(r.pool.QueryRow(ctx, query,
		debtor.UserID,
		debtor.DebtorDatasetID,
		debtor.CampaignID,
		debtor.Phone,
		debtor.DNI,
		debtor.Name,
		debtor.Email,
		string(debtor.State),
		customData,
		history,
	))
}

// Update reescribe la fila completa. state_updated_at solo avanza si cambió el estado.
func (r *PgDebtorRepository) Update(ctx context.Context, debtor domain.Debtor) (domain.Debtor, error) {
	customData, history, err := debtorJSON(debtor)
	if err != nil {
		return domain.Debtor{}, err
	}
	query := `
		UPDATE debtors SET
			debtor_dataset_id = $3,
			campaign_id = $4,
			phone = $5,
			dni = NULLIF($6, ''),
			name = NULLIF($7, ''),
			email = NULLIF($8, ''),
			state_updated_at = CASE WHEN state <> $9 THEN now() ELSE state_updated_at END,
			state = $9,
			custom_data = $10,
			conversation_history = $11,
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + debtorColumns
	return scanDebtor(r.pool.QueryRow(ctx, query,
		debtor.ID,
		debtor.UserID,
		debtor.DebtorDatasetID,
		debtor.CampaignID,
		debtor.Phone,
		debtor.DNI,
		debtor.Name,
		debtor.Email,
		string(debtor.State),
		customData,
		history,
	))
}

func (r *PgDebtorRepository) Delete(ctx context.Context, userID, id int64) (domain.Debtor, error) {
	query := `DELETE FROM debtors WHERE id = $1 AND user_id = $2 RETURNING ` + debtorColumns
	return scanDebtor(r.pool.QueryRow(ctx, query, id, userID))
}

func (r *PgDebtorRepository) ExistsDNI(ctx context.Context, userID int64, dni string, excludeID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM debtors WHERE user_id = $1 AND dni = $2 AND id <> $3
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, dni, excludeID).Scan(&exists)
	return exists, err
}

func (r *PgDebtorRepository) ListByDataset(ctx context.Context, userID, datasetID int64) ([]domain.Debtor, error) {
	query := `
		SELECT ` + debtorColumns + `
		FROM debtors
		WHERE user_id = $1 AND debtor_dataset_id = $2
		ORDER BY id ASC
	`
	return r.query(ctx, query, userID, datasetID)
}

// FindLatestByPhone busca entre todas las cuentas el deudor más recientemente
// actualizado con alguno de los formatos de teléfono dados.
func (r *PgDebtorRepository) FindLatestByPhone(ctx context.Context, phones []string) (domain.Debtor, error) {
	query := `
		SELECT ` + debtorColumns + `
		FROM debtors
		WHERE phone = ANY($1)
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`
	return scanDebtor(r.pool.QueryRow(ctx, query, phones))
}

func (r *PgDebtorRepository) query(ctx context.Context, query string, args ...any) ([]domain.Debtor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debtors := []domain.Debtor{}
	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, err
		}
		debtors = append(debtors, d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return debtors, nil
}

func scanDebtor(row pgx.Row) (domain.Debtor, error) {
	var (
		d     domain.Debtor
		state string
	)
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.DebtorDatasetID,
		&d.CampaignID,
		&d.Phone,
		&d.DNI,
		&d.Name,
		&d.Email,
		&state,
		&d.StateUpdatedAt,
		&d.CustomData,
		&d.ConversationHistory,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return domain.Debtor{}, err
	}
	d.State = domain.State(state)
	if d.CustomData == nil {
		d.CustomData = map[string]any{}
	}
	return d, nil
}

func debtorJSON(d domain.Debtor) ([]byte, []byte, error) {
	customData := d.CustomData
	if customData == nil {
		customData = map[string]any{}
	}
	history := d.ConversationHistory
	if history == nil {
		history = []domain.ChatMessage{}
	}
	rawData, err := json.Marshal(customData)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal custom_data: %w", err)
	}
	rawHistory, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal conversation_history: %w", err)
	}
	return rawData, rawHistory, nil
}
