package service

import (
	"context"
	"fmt"
	"strings"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/repository"
)

// CustomFieldInput es el cuerpo de alta y edición de un campo.
type CustomFieldInput struct {
	Name      *string `json:"name"`
	FieldType *string `json:"field_type"`
}

type CustomFieldService struct {
	datasets repository.DatasetRepository
	fields   repository.CustomFieldRepository
}

func NewCustomFieldService(datasets repository.DatasetRepository, fields repository.CustomFieldRepository) *CustomFieldService {
	return &CustomFieldService{datasets: datasets, fields: fields}
}

func (s *CustomFieldService) List(ctx context.Context, userID, datasetID int64) ([]domain.CustomField, error) {
	if err := s.ownDataset(ctx, userID, datasetID); err != nil {
		return nil, err
	}
	return s.fields.ListByDataset(ctx, datasetID)
}

func (s *CustomFieldService) Create(ctx context.Context, userID, datasetID int64, in CustomFieldInput) (domain.CustomField, error) {
	if err := s.ownDataset(ctx, userID, datasetID); err != nil {
		return domain.CustomField{}, err
	}
	f := domain.CustomField{DebtorDatasetID: datasetID, FieldType: domain.FieldTypeString}
	if err := applyField(&f, in); err != nil {
		return domain.CustomField{}, err
	}
	if f.Name == "" {
		return domain.CustomField{}, invalid("name es obligatorio")
	}
	created, err := s.fields.Create(ctx, f)
	if err != nil {
		return domain.CustomField{}, fmt.Errorf("create custom field: %w", err)
	}
	return created, nil
}

func (s *CustomFieldService) Get(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error) {
	f, err := s.fields.GetByID(ctx, userID, datasetID, id)
	if err != nil {
		return domain.CustomField{}, notFound(err, ErrCustomFieldNotFound)
	}
	return f, nil
}

func (s *CustomFieldService) Update(ctx context.Context, userID, datasetID, id int64, in CustomFieldInput) (domain.CustomField, error) {
	f, err := s.Get(ctx, userID, datasetID, id)
	if err != nil {
		return domain.CustomField{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.CustomField{}, invalid("name no puede quedar vacío")
	}
	if err := applyField(&f, in); err != nil {
		return domain.CustomField{}, err
	}
	updated, err := s.fields.Update(ctx, userID, f)
	if err != nil {
		return domain.CustomField{}, notFound(err, ErrCustomFieldNotFound)
	}
	return updated, nil
}

func (s *CustomFieldService) Delete(ctx context.Context, userID, datasetID, id int64) (domain.CustomField, error) {
	f, err := s.fields.Delete(ctx, userID, datasetID, id)
	if err != nil {
		return domain.CustomField{}, notFound(err, ErrCustomFieldNotFound)
	}
	return f, nil
}

func (s *CustomFieldService) ownDataset(ctx context.Context, userID, datasetID int64) error {
	if _, err := s.datasets.GetByID(ctx, userID, datasetID); err != nil {
		return notFound(err, ErrDatasetNotFound)
	}
	return nil
}

func applyField(f *domain.CustomField, in CustomFieldInput) error {
	if in.Name != nil {
		f.Name = strings.TrimSpace(*in.Name)
	}
	if in.FieldType != nil {
		t := strings.ToLower(strings.TrimSpace(*in.FieldType))
		if !domain.ValidFieldType(t) {
			return invalid("field_type inválido: %s", *in.FieldType)
		}
		f.FieldType = t
	}
	return nil
}
