package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cobranza-bot/internal/domain"
)

func TestBuildRequiresPhone(t *testing.T) {
	_, err := Build(Table{Header: []string{"dni", "monto"}})
	assert.ErrorIs(t, err, ErrMissingPhone)
}

func TestBuildSplitsStandardAndCustomColumns(t *testing.T) {
	table := Table{
		Header: []string{"phone", "DNI", "state", "Monto Deuda", "vencimiento", "producto"},
		Rows: [][]string{
			{"5491100", "30111222", "verde", "1500.50", "2024-01-15", "tarjeta"},
			{"5491101", "", "AZUL", "", "2024-02-01", "prestamo"},
		},
	}

	got, err := Build(table)
	require.NoError(t, err)

	wantFields := []domain.CustomField{
		{Name: "Monto Deuda", FieldType: domain.FieldTypeFloat},
		{Name: "vencimiento", FieldType: domain.FieldTypeDate},
		{Name: "producto", FieldType: domain.FieldTypeString},
	}
	if diff := cmp.Diff(wantFields, got.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, got.Debtors, 2)
	first := got.Debtors[0]
	assert.Equal(t, "5491100", first.Phone)
	assert.Equal(t, "30111222", first.DNI)
	assert.Equal(t, domain.StateVerde, first.State)
	assert.Equal(t, 1500.5, first.CustomData["Monto Deuda"])
	assert.Equal(t, "2024-01-15T00:00:00", first.CustomData["vencimiento"])

	second := got.Debtors[1]
	assert.Equal(t, domain.StateGris, second.State)
	_, hasAmount := second.CustomData["Monto Deuda"]
	assert.False(t, hasAmount)
}

func TestInferFieldType(t *testing.T) {
	assert.Equal(t, domain.FieldTypeFloat, InferFieldType([]string{"", "12"}))
	assert.Equal(t, domain.FieldTypeDate, InferFieldType([]string{"15/01/2024"}))
	assert.Equal(t, domain.FieldTypeString, InferFieldType([]string{"abc", "12"}))
	assert.Equal(t, domain.FieldTypeString, InferFieldType([]string{"NaN"}))
	assert.Equal(t, domain.FieldTypeString, InferFieldType(nil))
}

func TestConvertValueKeepsIntegers(t *testing.T) {
	assert.Equal(t, int64(20), ConvertValue("20", domain.FieldTypeFloat))
	assert.Equal(t, "n/a", ConvertValue("n/a", domain.FieldTypeFloat))
}
