package model

import "time"

// BalanceRecord is the persisted credit count for one email.
type BalanceRecord struct {
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Posts is one generation: a post per platform. All fields are required.
type Posts struct {
	Instagram string `json:"instagram"`
	LinkedIn  string `json:"linkedin"`
	Facebook  string `json:"facebook"`
	X         string `json:"x"`
	TikTok    string `json:"tiktok"`
}
