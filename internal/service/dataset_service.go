package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"cobranza-bot/internal/dataset"
	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/repository"
)

const uploadSuccessMessage = "Dataset creado con éxito"

type DatasetService struct {
	logger   *zap.Logger
	datasets repository.DatasetRepository
}

func NewDatasetService(logger *zap.Logger, datasets repository.DatasetRepository) *DatasetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetService{logger: logger, datasets: datasets}
}

func (s *DatasetService) Create(ctx context.Context, userID int64, name string) (domain.DebtorDataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DebtorDataset{}, invalid("name es obligatorio")
	}
	ds, err := s.datasets.Create(ctx, domain.DebtorDataset{UserID: userID, Name: name})
	if err != nil {
		return domain.DebtorDataset{}, fmt.Errorf("create dataset: %w", err)
	}
	return ds, nil
}

func (s *DatasetService) List(ctx context.Context, userID int64, skip, limit int) ([]domain.DebtorDataset, error) {
	skip, limit, err := normalizePage(skip, limit)
	if err != nil {
		return nil, err
	}
	return s.datasets.List(ctx, userID, skip, limit)
}

func (s *DatasetService) Get(ctx context.Context, userID, id int64) (domain.DebtorDataset, error) {
	ds, err := s.datasets.GetByID(ctx, userID, id)
	if err != nil {
		return domain.DebtorDataset{}, notFound(err, ErrDatasetNotFound)
	}
	return ds, nil
}

func (s *DatasetService) Rename(ctx context.Context, userID, id int64, name string) (domain.DebtorDataset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DebtorDataset{}, invalid("name es obligatorio")
	}
	ds, err := s.datasets.Rename(ctx, userID, id, name)
	if err != nil {
		return domain.DebtorDataset{}, notFound(err, ErrDatasetNotFound)
	}
	return ds, nil
}

// Delete borra el dataset junto con sus campos y deudores.
func (s *DatasetService) Delete(ctx context.Context, userID, id int64) (domain.DebtorDataset, error) {
	ds, err := s.datasets.Delete(ctx, userID, id)
	if err != nil {
		return domain.DebtorDataset{}, notFound(err, ErrDatasetNotFound)
	}
	s.logger.Info("dataset_deleted", zap.Int64("user_id", userID), zap.Int64("dataset_id", id))
	return ds, nil
}

// Upload interpreta un .xlsx/.csv/.txt y crea dataset, campos y deudores de una vez.
func (s *DatasetService) Upload(ctx context.Context, userID int64, name, filename string, r io.Reader) (domain.UploadResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.UploadResult{}, invalid("dataset_name es obligatorio")
	}

	table, err := dataset.Parse(filename, r)
	if err != nil {
		return domain.UploadResult{}, invalidErr(err)
	}
	imp, err := dataset.Build(table)
	if err != nil {
		return domain.UploadResult{}, invalidErr(err)
	}
	for i := range imp.Debtors {
		imp.Debtors[i].UserID = userID
	}

	ds, count, err := s.datasets.Import(ctx, domain.DebtorDataset{UserID: userID, Name: name}, imp.Fields, imp.Debtors)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("import dataset: %w", err)
	}
	s.logger.Info("dataset_uploaded",
		zap.Int64("user_id", userID),
		zap.Int64("dataset_id", ds.ID),
		zap.String("file", filename),
		zap.Int("fields", len(imp.Fields)),
		zap.Int("debtors", count),
	)
	return domain.UploadResult{Message: uploadSuccessMessage, DatasetID: ds.ID, DebtorsCount: count}, nil
}
