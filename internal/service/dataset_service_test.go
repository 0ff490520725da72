package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cobranza-bot/internal/dataset"
	"cobranza-bot/internal/domain"
)

func TestDatasetService_Upload(t *testing.T) {
	repo := newMemDatasetRepo()
	svc := NewDatasetService(nil, repo)

	csv := "phone;dni;Name;state;Monto Deuda;Vencimiento\n" +
		"+5491100000001;30111222;Ana;verde;40000;2024-05-01\n" +
		"+5491100000002;;Luis;;;\n"

	res, err := svc.Upload(context.Background(), 7, " Mora 30 ", "deudores.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "Dataset creado con éxito", res.Message)
	assert.Equal(t, 2, res.DebtorsCount)
	assert.Equal(t, int64(7), repo.datasets[res.DatasetID].UserID)
	assert.Equal(t, "Mora 30", repo.datasets[res.DatasetID].Name)

	require.Len(t, repo.imported, 2)
	for _, d := range repo.imported {
		assert.Equal(t, int64(7), d.UserID)
	}
	assert.Equal(t, domain.StateVerde, repo.imported[0].State)
	assert.Equal(t, domain.StateGris, repo.imported[1].State)
	assert.Empty(t, repo.imported[1].CustomData)

	types := map[string]string{}
	for _, f := range repo.fields {
		types[f.Name] = f.FieldType
	}
	assert.Equal(t, map[string]string{"Monto Deuda": domain.FieldTypeFloat, "Vencimiento": domain.FieldTypeDate}, types)
}

func TestDatasetService_UploadErrors(t *testing.T) {
	svc := NewDatasetService(nil, newMemDatasetRepo())
	ctx := context.Background()
	var ve *ValidationError

	_, err := svc.Upload(ctx, 1, "x", "deudores.pdf", strings.NewReader("phone\n1\n"))
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, dataset.ErrUnsupportedFormat)

	_, err = svc.Upload(ctx, 1, "x", "deudores.csv", strings.NewReader("dni,name\n1,Ana\n"))
	assert.ErrorIs(t, err, dataset.ErrMissingPhone)

	_, err = svc.Upload(ctx, 1, "", "deudores.csv", strings.NewReader("phone\n1\n"))
	assert.True(t, errors.As(err, &ve))
}

func TestDatasetService_CRUD(t *testing.T) {
	repo := newMemDatasetRepo(domain.DebtorDataset{ID: 3, UserID: 2, Name: "ajeno"})
	svc := NewDatasetService(nil, repo)
	ctx := context.Background()

	ds, err := svc.Create(ctx, 1, "Mora 30")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, 1, ds.ID, "Mora 45")
	require.NoError(t, err)
	assert.Equal(t, "Mora 45", renamed.Name)

	_, err = svc.Get(ctx, 1, 3)
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	list, err := svc.List(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.List(ctx, 1, -1, 10)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = svc.Delete(ctx, 1, ds.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, 1, ds.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestCustomFieldService(t *testing.T) {
	datasets := newMemDatasetRepo(
		domain.DebtorDataset{ID: 10, UserID: 1, Name: "propio"},
		domain.DebtorDataset{ID: 20, UserID: 2, Name: "ajeno"},
	)
	fields := newMemFieldRepo(map[int64]int64{10: 1, 20: 2})
	svc := NewCustomFieldService(datasets, fields)
	ctx := context.Background()

	f, err := svc.Create(ctx, 1, 10, CustomFieldInput{Name: strPtr("Monto Deuda"), FieldType: strPtr("FLOAT")})
	require.NoError(t, err)
	assert.Equal(t, domain.FieldTypeFloat, f.FieldType)

	def, err := svc.Create(ctx, 1, 10, CustomFieldInput{Name: strPtr("Producto")})
	require.NoError(t, err)
	assert.Equal(t, domain.FieldTypeString, def.FieldType)

	_, err = svc.Create(ctx, 1, 20, CustomFieldInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	_, err = svc.List(ctx, 1, 20)
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = svc.Create(ctx, 1, 10, CustomFieldInput{Name: strPtr("x"), FieldType: strPtr("money")})
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	updated, err := svc.Update(ctx, 1, 10, f.ID, CustomFieldInput{FieldType: strPtr("int")})
	require.NoError(t, err)
	assert.Equal(t, "Monto Deuda", updated.Name)
	assert.Equal(t, domain.FieldTypeInt, updated.FieldType)

	_, err = svc.Get(ctx, 2, 10, f.ID)
	assert.ErrorIs(t, err, ErrCustomFieldNotFound)

	list, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.Delete(ctx, 1, 10, f.ID)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, 1, 10, f.ID)
	assert.ErrorIs(t, err, ErrCustomFieldNotFound)
}
