// Package bot routes Telegram updates to the protection and broadcast workflows.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"linkguard/internal/logger"
	"linkguard/internal/service"
	"linkguard/internal/telegram"
)

const (
	textSomethingWrong = "⚠️ Something went wrong, please try again later."
	textNothingPending = "❌ Nothing to broadcast"
	textCancelled      = "❌ Broadcast cancelled"
	textBroadcasting   = "⏳ Broadcasting…"
	textAdminOnly      = "❌ Admin only"
)

// Dispatcher handles one update at a time. It is safe for concurrent use.
type Dispatcher struct {
	client     telegram.Client
	protection *service.ProtectionService
	broadcast  *service.BroadcastService
	users      *service.UserService
	log        logger.Logger
}

func NewDispatcher(
	client telegram.Client,
	protection *service.ProtectionService,
	broadcast *service.BroadcastService,
	users *service.UserService,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		client:     client,
		protection: protection,
		broadcast:  broadcast,
		users:      users,
		log:        log,
	}
}

// Handle processes one update. Errors and panics are logged, never returned.
func (d *Dispatcher) Handle(ctx context.Context, update telegram.Update) {
	log := d.log.With(logger.Int64("update_id", update.UpdateID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while handling update",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
		}
	}()

	var err error
	switch {
	case update.Message != nil:
		err = d.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = d.handleCallback(ctx, update.CallbackQuery)
	}

	if err != nil {
		log.Error("Failed to handle update", logger.Error(err))
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *telegram.Message) error {
	if msg.From == nil {
		return nil
	}
	cmd, args, ok := parseCommand(msg.Text)
	if !ok {
		return nil
	}

	user := *msg.From
	chatID := msg.Chat.ID

	var (
		reply service.Reply
		err   error
	)
	switch cmd {
	case "start":
		reply, err = d.protection.Start(ctx, user, args)
	case "protect":
		reply, err = d.protection.Protect(ctx, user, args)
	case "revoke":
		reply, err = d.protection.Revoke(ctx, user, args)
	case "mylinks":
		reply, err = d.protection.MyLinks(ctx, user)
	case "help":
		reply = d.protection.Help()
	case "broadcast":
		reply = d.broadcast.Request(user.ID, msg.ReplyToMessage)
	case "stats":
		reply, err = d.stats(ctx, user.ID)
	default:
		return nil
	}

	if err != nil {
		d.reply(ctx, chatID, service.Reply{Text: textSomethingWrong})
		return fmt.Errorf("/%s: %w", cmd, err)
	}
	return d.reply(ctx, chatID, reply)
}

func (d *Dispatcher) handleCallback(ctx context.Context, q *telegram.CallbackQuery) error {
	if token, ok := service.ParseCheckCallback(q.Data); ok {
		return d.recheck(ctx, q, token)
	}

	switch q.Data {
	case service.CallbackConfirmBroadcast:
		return d.confirmBroadcast(ctx, q)
	case service.CallbackCancelBroadcast:
		if err := d.broadcast.Cancel(q.From.ID); errors.Is(err, service.ErrNotAdmin) {
			return d.client.AnswerCallback(ctx, q.ID, textAdminOnly, true)
		}
		d.answer(ctx, q.ID)
		return d.edit(ctx, q, service.Reply{Text: textCancelled})
	}

	d.answer(ctx, q.ID)
	return nil
}

func (d *Dispatcher) recheck(ctx context.Context, q *telegram.CallbackQuery, token string) error {
	reply, err := d.protection.Recheck(ctx, q.From, token)
	if err != nil {
		d.answer(ctx, q.ID)
		return fmt.Errorf("check_join: %w", err)
	}
	if reply.Gated {
		return d.client.AnswerCallback(ctx, q.ID, reply.Text, true)
	}

	d.answer(ctx, q.ID)
	return d.edit(ctx, q, reply)
}

func (d *Dispatcher) confirmBroadcast(ctx context.Context, q *telegram.CallbackQuery) error {
	if !d.broadcast.IsAdmin(q.From.ID) {
		return d.client.AnswerCallback(ctx, q.ID, textAdminOnly, true)
	}
	d.answer(ctx, q.ID)

	if _, ok := d.broadcast.Pending(q.From.ID); !ok {
		return d.edit(ctx, q, service.Reply{Text: textNothingPending})
	}
	if err := d.edit(ctx, q, service.Reply{Text: textBroadcasting}); err != nil {
		d.log.Warn("Failed to update broadcast prompt", logger.Error(err))
	}

	// The run finishes even if the webhook request that triggered it goes away.
	result, err := d.broadcast.Confirm(context.WithoutCancel(ctx), q.From.ID)
	if errors.Is(err, service.ErrNoPendingBroadcast) {
		return d.edit(ctx, q, service.Reply{Text: textNothingPending})
	}
	if err != nil {
		_ = d.edit(ctx, q, service.Reply{Text: textSomethingWrong})
		return fmt.Errorf("broadcast: %w", err)
	}

	return d.edit(ctx, q, service.Reply{Text: service.FormatResult(result)})
}

func (d *Dispatcher) stats(ctx context.Context, userID int64) (service.Reply, error) {
	if !d.broadcast.IsAdmin(userID) {
		return service.Reply{Text: textAdminOnly}, nil
	}
	n, err := d.users.Count(ctx)
	if err != nil {
		return service.Reply{}, err
	}
	return service.Reply{Text: fmt.Sprintf("📊 Users: %d", n)}, nil
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, r service.Reply) error {
	return d.client.SendMessage(ctx, chatID, r.Text, r.Keyboard)
}

func (d *Dispatcher) edit(ctx context.Context, q *telegram.CallbackQuery, r service.Reply) error {
	if q.Message == nil {
		return d.client.SendMessage(ctx, q.From.ID, r.Text, r.Keyboard)
	}
	return d.client.EditMessage(ctx, q.Message.Chat.ID, q.Message.MessageID, r.Text, r.Keyboard)
}

func (d *Dispatcher) answer(ctx context.Context, callbackID string) {
	if err := d.client.AnswerCallback(ctx, callbackID, "", false); err != nil {
		d.log.Debug("Failed to answer callback", logger.Error(err))
	}
}

// parseCommand splits "/cmd@bot arg1 arg2" into its command and arguments.
func parseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd, _, _ = strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return strings.ToLower(cmd), fields[1:], cmd != ""
}
