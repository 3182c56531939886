package entities

import "time"

// ProtectedLink represents a protected destination reachable through a bot deep link.
type ProtectedLink struct {
	Token       string    `json:"token"`       // Random URL-safe token, primary key
	Destination string    `json:"destination"` // The t.me link being protected
	CreatedBy   int64     `json:"created_by"`  // Telegram user ID of the creator
	CreatedAt   time.Time `json:"created_at"`
	Active      bool      `json:"active"` // False once revoked
	Clicks      int       `json:"clicks"` // Stored but not incremented on redemption
}

// Channel caches the invite link generated for a support channel.
type Channel struct {
	ChannelID  string `json:"channel_id"` // As configured: numeric ID or @handle
	InviteLink string `json:"invite_link"`
}
