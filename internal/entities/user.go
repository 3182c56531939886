package entities

import "time"

// User represents a Telegram user who has interacted with the bot
type User struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastActive time.Time `json:"last_active"`
}
