package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"linkguard/internal/entities"
)

// ChannelRepository stores invite links generated for support channels
type ChannelRepository interface {
	Find(ctx context.Context, channelID string) (*entities.Channel, error)
	Upsert(ctx context.Context, channel *entities.Channel) error
}

type channelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *sql.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// Find returns the cached entry for a channel
func (r *channelRepository) Find(ctx context.Context, channelID string) (*entities.Channel, error) {
	var channel entities.Channel
	var invite sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT channel_id, invite_link FROM channels WHERE channel_id = $1`,
		channelID,
	).Scan(&channel.ChannelID, &invite)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find channel: %w", err)
	}

	channel.InviteLink = invite.String
	return &channel, nil
}

// Upsert stores the invite link for a channel
func (r *channelRepository) Upsert(ctx context.Context, channel *entities.Channel) error {
	query := `
		INSERT INTO channels (channel_id, invite_link)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET invite_link = EXCLUDED.invite_link
	`

	if _, err := r.db.ExecContext(ctx, query, channel.ChannelID, channel.InviteLink); err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}

	return nil
}
