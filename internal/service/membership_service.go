package service

import (
	"context"

	"linkguard/internal/logger"
	"linkguard/internal/telegram"
)

// MembershipStatus is the outcome of a membership check.
type MembershipStatus int

const (
	// MembershipNotRequired means no support channels are configured.
	MembershipNotRequired MembershipStatus = iota
	// MembershipVerified means the user belongs to every channel.
	MembershipVerified
	// MembershipNotMember means a channel reported a non-member status.
	MembershipNotMember
	// MembershipQueryFailed means Telegram could not answer for a channel.
	MembershipQueryFailed
)

func (s MembershipStatus) String() string {
	switch s {
	case MembershipNotRequired:
		return "not_required"
	case MembershipVerified:
		return "verified"
	case MembershipNotMember:
		return "not_member"
	case MembershipQueryFailed:
		return "query_failed"
	}
	return "unknown"
}

// MembershipResult describes a gate decision. Channel, MemberStatus and Err
// are set for the first channel that failed.
type MembershipResult struct {
	Status       MembershipStatus
	Channel      string
	MemberStatus telegram.MemberStatus
	Err          error
}

// Passed reports whether the user may continue.
func (r MembershipResult) Passed() bool {
	return r.Status == MembershipNotRequired || r.Status == MembershipVerified
}

// MemberChecker queries a user's status in a chat.
type MemberChecker interface {
	GetChatMember(ctx context.Context, chat telegram.ChatRef, userID int64) (telegram.MemberStatus, error)
}

// MembershipGate requires membership in every configured support channel.
type MembershipGate struct {
	channels []string
	checker  MemberChecker
	log      logger.Logger
}

// NewMembershipGate creates a gate over the given channels. An empty list
// disables the gate.
func NewMembershipGate(channels []string, checker MemberChecker, log logger.Logger) *MembershipGate {
	return &MembershipGate{
		channels: channels,
		checker:  checker,
		log:      log,
	}
}

// Channels returns the configured channel identifiers.
func (g *MembershipGate) Channels() []string {
	return g.channels
}

// Check evaluates the gate for a user. It fails closed and stops at the first
// channel that does not pass.
func (g *MembershipGate) Check(ctx context.Context, userID int64) MembershipResult {
	if len(g.channels) == 0 {
		return MembershipResult{Status: MembershipNotRequired}
	}

	for _, ch := range g.channels {
		status, err := g.checker.GetChatMember(ctx, telegram.ParseChatRef(ch), userID)
		if err != nil {
			g.log.Debug("Membership query failed",
				logger.String("channel", ch),
				logger.Int64("user_id", userID),
				logger.Error(err),
			)
			return MembershipResult{Status: MembershipQueryFailed, Channel: ch, Err: err}
		}
		if !status.Joined() {
			return MembershipResult{Status: MembershipNotMember, Channel: ch, MemberStatus: status}
		}
	}

	return MembershipResult{Status: MembershipVerified}
}
