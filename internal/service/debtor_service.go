package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/repository"
)

var ErrDuplicateDNI = &ValidationError{Err: errors.New("Ya existe un deudor con ese DNI para este usuario")}

// DebtorInput es el cuerpo de alta y edición. En edición los nil no se tocan.
type DebtorInput struct {
	DebtorDatasetID *int64         `json:"debtor_dataset_id"`
	Phone           *string        `json:"phone"`
	DNI             *string        `json:"dni"`
	Name            *string        `json:"name"`
	Email           *string        `json:"email"`
	State           *string        `json:"state"`
	CustomData      map[string]any `json:"custom_data"`
}

type DebtorService struct {
	logger   *zap.Logger
	debtors  repository.DebtorRepository
	datasets repository.DatasetRepository
}

func NewDebtorService(logger *zap.Logger, debtors repository.DebtorRepository, datasets repository.DatasetRepository) *DebtorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebtorService{logger: logger, debtors: debtors, datasets: datasets}
}

func (s *DebtorService) List(ctx context.Context, userID int64, filter domain.DebtorFilter) ([]domain.Debtor, error) {
	skip, limit, err := normalizePage(filter.Skip, filter.Limit)
	if err != nil {
		return nil, err
	}
	filter.Skip, filter.Limit = skip, limit

	if filter.State != "" {
		state, ok := domain.ParseState(string(filter.State))
		if !ok {
			return nil, invalid("Estado inválido: %s", filter.State)
		}
		filter.State = state
	}
	if filter.SortBy != "" {
		if _, ok := domain.DebtorSortColumns[filter.SortBy]; !ok {
			return nil, invalid("No se puede ordenar por %q", filter.SortBy)
		}
	}

	debtors, err := s.debtors.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list debtors: %w", err)
	}
	return debtors, nil
}

func (s *DebtorService) Get(ctx context.Context, userID, id int64) (domain.Debtor, error) {
	d, err := s.debtors.GetByID(ctx, userID, id)
	if err != nil {
		return domain.Debtor{}, notFound(err, ErrDebtorNotFound)
	}
	return d, nil
}

func (s *DebtorService) Create(ctx context.Context, userID int64, in DebtorInput) (domain.Debtor, error) {
	if in.DebtorDatasetID == nil || *in.DebtorDatasetID <= 0 {
		return domain.Debtor{}, invalid("debtor_dataset_id es obligatorio")
	}
	d := domain.Debtor{
		UserID:     userID,
		State:      domain.StateGris,
		CustomData: map[string]any{},
	}
	if err := s.apply(ctx, userID, &d, in); err != nil {
		return domain.Debtor{}, err
	}
	if d.Phone == "" {
		return domain.Debtor{}, invalid("phone es obligatorio")
	}

	created, err := s.debtors.Create(ctx, d)
	if err != nil {
		return domain.Debtor{}, fmt.Errorf("create debtor: %w", err)
	}
	s.logger.Info("debtor_created", zap.Int64("user_id", userID), zap.Int64("debtor_id", created.ID))
	return created, nil
}

// Update aplica una edición parcial.
func (s *DebtorService) Update(ctx context.Context, userID, id int64, in DebtorInput) (domain.Debtor, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Debtor{}, err
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) == "" {
		return domain.Debtor{}, invalid("phone no puede quedar vacío")
	}
	if err := s.apply(ctx, userID, &d, in); err != nil {
		return domain.Debtor{}, err
	}

	updated, err := s.debtors.Update(ctx, d)
	if err != nil {
		return domain.Debtor{}, notFound(err, ErrDebtorNotFound)
	}
	return updated, nil
}

func (s *DebtorService) Delete(ctx context.Context, userID, id int64) (domain.Debtor, error) {
	d, err := s.debtors.Delete(ctx, userID, id)
	if err != nil {
		return domain.Debtor{}, notFound(err, ErrDebtorNotFound)
	}
	return d, nil
}

// Conversation devuelve el historial guardado del deudor.
func (s *DebtorService) Conversation(ctx context.Context, userID, id int64) ([]domain.ChatMessage, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if d.ConversationHistory == nil {
		return []domain.ChatMessage{}, nil
	}
	return d.ConversationHistory, nil
}

func (s *DebtorService) apply(ctx context.Context, userID int64, d *domain.Debtor, in DebtorInput) error {
	if in.DebtorDatasetID != nil && *in.DebtorDatasetID != d.DebtorDatasetID {
		if _, err := s.datasets.GetByID(ctx, userID, *in.DebtorDatasetID); err != nil {
			return notFound(err, ErrDatasetNotFound)
		}
		d.DebtorDatasetID = *in.DebtorDatasetID
	}
	if in.Phone != nil {
		d.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Name != nil {
		d.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != "" && !validEmail(email) {
			return invalid("Email inválido")
		}
		d.Email = email
	}
	if in.State != nil {
		state, ok := domain.ParseState(*in.State)
		if !ok {
			return invalid("Estado inválido: %s", *in.State)
		}
		d.State = state
	}
	if in.CustomData != nil {
		d.CustomData = in.CustomData
	}
	if in.DNI != nil {
		dni := strings.TrimSpace(*in.DNI)
		if dni != "" && dni != d.DNI {
			exists, err := s.debtors.ExistsDNI(ctx, userID, dni, d.ID)
			if err != nil {
				return fmt.Errorf("check dni: %w", err)
			}
			if exists {
				return ErrDuplicateDNI
			}
		}
		d.DNI = dni
	}
	return nil
}
