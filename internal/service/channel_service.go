package service

import (
	"context"
	"errors"
	"strings"

	"linkguard/internal/cache"
	"linkguard/internal/entities"
	"linkguard/internal/logger"
	"linkguard/internal/repository"
	"linkguard/internal/telegram"
)

const inviteLinkName = "Bot Access"

// InviteLinkCreator creates join links for a chat.
type InviteLinkCreator interface {
	CreateInviteLink(ctx context.Context, chat telegram.ChatRef, joinRequest bool, name string) (string, error)
}

// ChannelService resolves invite links for support channels. Links are cached
// in Redis (optional) and Postgres and never expire.
type ChannelService struct {
	repo    repository.ChannelRepository
	cache   cache.Cache
	creator InviteLinkCreator
	log     logger.Logger
}

// NewChannelService creates a channel directory. cacheClient may be nil.
func NewChannelService(repo repository.ChannelRepository, cacheClient cache.Cache, creator InviteLinkCreator, log logger.Logger) *ChannelService {
	return &ChannelService{
		repo:    repo,
		cache:   cacheClient,
		creator: creator,
		log:     log,
	}
}

func inviteCacheKey(channelID string) string {
	return "channel:invite:" + channelID
}

// ResolveInviteLink returns a join URL for the channel. It never fails: when
// Telegram refuses to create a link the public t.me URL is returned uncached.
func (s *ChannelService) ResolveInviteLink(ctx context.Context, channelID string) string {
	if link := s.cached(ctx, channelID); link != "" {
		return link
	}

	link, err := s.creator.CreateInviteLink(ctx, telegram.ParseChatRef(channelID), true, inviteLinkName)
	if err != nil {
		s.log.Warn("Invite link creation failed, using public URL",
			logger.String("channel", channelID),
			logger.Error(err),
		)
		return "https://t.me/" + strings.TrimPrefix(channelID, "@")
	}

	channel := &entities.Channel{ChannelID: channelID, InviteLink: link}
	if err := s.repo.Upsert(ctx, channel); err != nil {
		s.log.Error("Failed to store invite link", logger.String("channel", channelID), logger.Error(err))
	}
	s.remember(ctx, channel)

	return link
}

func (s *ChannelService) cached(ctx context.Context, channelID string) string {
	if s.cache != nil {
		var channel entities.Channel
		err := s.cache.GetJSON(ctx, inviteCacheKey(channelID), &channel)
		if err == nil && channel.InviteLink != "" {
			return channel.InviteLink
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("Invite cache read failed", logger.String("channel", channelID), logger.Error(err))
		}
	}

	channel, err := s.repo.Find(ctx, channelID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Invite link lookup failed", logger.String("channel", channelID), logger.Error(err))
		}
		return ""
	}
	if channel.InviteLink == "" {
		return ""
	}

	s.remember(ctx, channel)
	return channel.InviteLink
}

func (s *ChannelService) remember(ctx context.Context, channel *entities.Channel) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, inviteCacheKey(channel.ChannelID), channel, 0); err != nil {
		s.log.Warn("Invite cache write failed", logger.String("channel", channel.ChannelID), logger.Error(err))
	}
}
