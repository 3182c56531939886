package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"linkguard/internal/logger"
	"linkguard/internal/telegram"
)

var (
	ErrNotAdmin           = errors.New("admin only")
	ErrNoPendingBroadcast = errors.New("no pending broadcast")
)

const (
	textAdminOnly      = "❌ Admin only"
	textBroadcastUsage = "Reply to a message with /broadcast"
	textConfirm        = "⚠️ Confirm broadcast?"
)

// MessageCopier copies an existing message into another chat.
type MessageCopier interface {
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

// PendingBroadcast is a message waiting for the admin's confirmation.
type PendingBroadcast struct {
	FromChatID int64
	MessageID  int
	CreatedAt  time.Time
}

// BroadcastResult summarizes one delivery run.
type BroadcastResult struct {
	Total     int
	Succeeded int
	Failed    int
}

// BroadcastService replicates a message to every known user after the admin
// confirms it. Pending broadcasts live in memory, one per admin; a new request
// replaces the previous one.
type BroadcastService struct {
	adminID int64
	users   *UserService
	copier  MessageCopier
	limiter *rate.Limiter
	workers int
	log     logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[int64]PendingBroadcast
}

// NewBroadcastService creates the broadcast workflow. perSecond caps outbound
// copies; workers bounds how many are in flight at once.
func NewBroadcastService(adminID int64, users *UserService, copier MessageCopier, perSecond float64, workers int, log logger.Logger) *BroadcastService {
	if workers < 1 {
		workers = 1
	}
	return &BroadcastService{
		adminID: adminID,
		users:   users,
		copier:  copier,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		workers: workers,
		log:     log,
		now:     time.Now,
		pending: make(map[int64]PendingBroadcast),
	}
}

// IsAdmin reports whether userID is the configured admin.
func (s *BroadcastService) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

// Request stages source for broadcast and asks for confirmation.
func (s *BroadcastService) Request(userID int64, source *telegram.Message) Reply {
	if !s.IsAdmin(userID) {
		return Reply{Text: textAdminOnly}
	}
	if source == nil {
		return Reply{Text: textBroadcastUsage}
	}

	s.mu.Lock()
	if prev, ok := s.pending[userID]; ok {
		s.log.Info("Replacing pending broadcast", logger.Int("previous_message_id", prev.MessageID))
	}
	s.pending[userID] = PendingBroadcast{
		FromChatID: source.Chat.ID,
		MessageID:  source.MessageID,
		CreatedAt:  s.now(),
	}
	s.mu.Unlock()

	return Reply{
		Text: textConfirm,
		Keyboard: telegram.Keyboard{
			{{Text: "✅ Confirm", CallbackData: CallbackConfirmBroadcast}},
			{{Text: "❌ Cancel", CallbackData: CallbackCancelBroadcast}},
		},
	}
}

// Pending returns the staged broadcast for userID, if any.
func (s *BroadcastService) Pending(userID int64) (PendingBroadcast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	return p, ok
}

// Cancel drops the staged broadcast.
func (s *BroadcastService) Cancel(userID int64) error {
	if !s.IsAdmin(userID) {
		return ErrNotAdmin
	}
	s.mu.Lock()
	delete(s.pending, userID)
	s.mu.Unlock()
	return nil
}

// Confirm delivers the staged broadcast to every user. Individual delivery
// failures are counted, never returned.
func (s *BroadcastService) Confirm(ctx context.Context, userID int64) (BroadcastResult, error) {
	if !s.IsAdmin(userID) {
		return BroadcastResult{}, ErrNotAdmin
	}

	p, ok := s.take(userID)
	if !ok {
		return BroadcastResult{}, ErrNoPendingBroadcast
	}

	recipients, err := s.users.RecipientIDs(ctx)
	if err != nil {
		s.restore(userID, p)
		return BroadcastResult{}, fmt.Errorf("load recipients: %w", err)
	}

	started := time.Now()
	var succeeded, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for _, id := range recipients {
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				failed.Add(1)
				return nil
			}
			if err := s.copier.CopyMessage(ctx, id, p.FromChatID, p.MessageID); err != nil {
				failed.Add(1)
				s.log.Debug("Broadcast delivery failed", logger.Int64("user_id", id), logger.Error(err))
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	result := BroadcastResult{
		Total:     len(recipients),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}

	s.log.Info("Broadcast finished",
		logger.Int("total", result.Total),
		logger.Int("succeeded", result.Succeeded),
		logger.Int("failed", result.Failed),
		logger.Duration("elapsed", time.Since(started)),
	)

	return result, nil
}

// take removes and returns the pending broadcast so it is delivered once.
func (s *BroadcastService) take(userID int64) (PendingBroadcast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if ok {
		delete(s.pending, userID)
	}
	return p, ok
}

func (s *BroadcastService) restore(userID int64, p PendingBroadcast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[userID]; !ok {
		s.pending[userID] = p
	}
}

// FormatResult renders a result for the admin.
func FormatResult(r BroadcastResult) string {
	return fmt.Sprintf("✅ Broadcast done: %d/%d users", r.Succeeded, r.Total)
}
