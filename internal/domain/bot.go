package domain

import "time"

type Bot struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"-"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
