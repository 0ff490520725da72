package domain

import "time"

const (
	FieldTypeString = "string"
	FieldTypeFloat  = "float"
	FieldTypeInt    = "int"
	FieldTypeDate   = "date"
)

func ValidFieldType(t string) bool {
	switch t {
	case FieldTypeString, FieldTypeFloat, FieldTypeInt, FieldTypeDate:
		return true
	}
	return false
}

type DebtorDataset struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomField struct {
	ID              int64     `json:"id"`
	DebtorDatasetID int64     `json:"debtor_dataset_id"`
	Name            string    `json:"name"`
	FieldType       string    `json:"field_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UploadResult es la respuesta de una carga de archivo de deudores.
type UploadResult struct {
	Message      string `json:"message"`
	DatasetID    int64  `json:"dataset_id"`
	DebtorsCount int    `json:"deudores_cargados"`
}
