package domain

import "time"

type Debtor struct {
	ID                  int64          `json:"id"`
	UserID              int64          `json:"-"`
	DebtorDatasetID     int64          `json:"debtor_dataset_id"`
	CampaignID          *int64         `json:"campaign_id,omitempty"`
	Phone               string         `json:"phone"`
	DNI                 string         `json:"dni,omitempty"`
	Name                string         `json:"name,omitempty"`
	Email               string         `json:"email,omitempty"`
	State               State          `json:"state"`
	StateUpdatedAt      time.Time      `json:"state_updated_at"`
	CustomData          map[string]any `json:"custom_data"`
	ConversationHistory []ChatMessage  `json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// Attributes expone los datos del deudor como mapa plano. Los campos
// estándar pisan a custom_data si comparten nombre.
func (d Debtor) Attributes() map[string]any {
	attrs := make(map[string]any, len(d.CustomData)+6)
	for k, v := range d.CustomData {
		attrs[k] = v
	}
	attrs["phone"] = d.Phone
	attrs["state"] = string(d.State)
	if d.DNI != "" {
		attrs["dni"] = d.DNI
	}
	if d.Name != "" {
		attrs["name"] = d.Name
	}
	if d.Email != "" {
		attrs["email"] = d.Email
	}
	return attrs
}

// DebtorFilter agrupa los filtros y el orden del listado de deudores.
type DebtorFilter struct {
	State      State
	DatasetID  int64
	CampaignID int64
	Search     string
	SortBy     string
	SortDesc   bool
	Skip       int
	Limit      int
}

// Columnas permitidas para ordenar; el valor es la columna SQL.
var DebtorSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"state":      "state",
	"created_at": "created_at",
	"updated_at": "updated_at",
}
