package domain

import "time"

const (
	CampaignInactive = "inactive"
	CampaignActive   = "active"
	CampaignPaused   = "paused"
	CampaignFinished = "finished"
)

func ValidCampaignStatus(s string) bool {
	switch s {
	case CampaignInactive, CampaignActive, CampaignPaused, CampaignFinished:
		return true
	}
	return false
}

type Campaign struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"-"`
	Name            string         `json:"name"`
	BotID           *int64         `json:"bot_id"`
	StrategyID      *int64         `json:"strategy_id"`
	DebtorDatasetID *int64         `json:"debtor_dataset_id"`
	Status          string         `json:"status"`
	StartDate       *time.Time     `json:"start_date"`
	EndDate         *time.Time     `json:"end_date"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Strategy        *Strategy      `json:"strategy,omitempty"`
	Bot             *Bot           `json:"bot,omitempty"`
	DebtorDataset   *DebtorDataset `json:"debtor_dataset,omitempty"`
}

// LaunchReport resume el resultado de lanzar una campaña.
type LaunchReport struct {
	CampaignID int64    `json:"campaign_id"`
	Status     string   `json:"status"`
	Total      int      `json:"total"`
	Sent       int      `json:"sent"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}
