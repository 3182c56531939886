package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Client is the capability surface the bot needs from Telegram.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	CreateInviteLink(ctx context.Context, chat ChatRef, joinRequest bool, name string) (string, error)
	GetChatMember(ctx context.Context, chat ChatRef, userID int64) (MemberStatus, error)
	BotUsername(ctx context.Context) (string, error)
	SetWebhook(ctx context.Context, url string) error
}

type botClient struct {
	api *bot.Bot

	mu       sync.Mutex
	username string
}

// NewClient creates a Bot API client. serverURL overrides the API endpoint and
// may be empty.
func NewClient(token, serverURL string) (Client, error) {
	opts := []bot.Option{bot.WithSkipGetMe()}
	if serverURL != "" {
		opts = append(opts, bot.WithServerURL(serverURL))
	}

	api, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	return &botClient{api: api}, nil
}

func (c *botClient) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	_, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup(kb),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *botClient) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	_, err := c.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup(kb),
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (c *botClient) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	_, err := c.api.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:     toChatID,
		FromChatID: fromChatID,
		MessageID:  messageID,
	})
	if err != nil {
		return fmt.Errorf("copy message: %w", err)
	}
	return nil
}

func (c *botClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (c *botClient) CreateInviteLink(ctx context.Context, chat ChatRef, joinRequest bool, name string) (string, error) {
	link, err := c.api.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:             chat.Value(),
		Name:               name,
		CreatesJoinRequest: joinRequest,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link for %s: %w", chat, err)
	}
	return link.InviteLink, nil
}

func (c *botClient) GetChatMember(ctx context.Context, chat ChatRef, userID int64) (MemberStatus, error) {
	member, err := c.api.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chat.Value(),
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("get chat member in %s: %w", chat, err)
	}
	return MemberStatus(member.Type), nil
}

// BotUsername returns the bot's @username without the @, fetched once.
func (c *botClient) BotUsername(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.username != "" {
		return c.username, nil
	}

	me, err := c.api.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("get me: %w", err)
	}
	c.username = me.Username
	return c.username, nil
}

func (c *botClient) SetWebhook(ctx context.Context, url string) error {
	if _, err := c.api.SetWebhook(ctx, &bot.SetWebhookParams{URL: url}); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

func markup(kb Keyboard) models.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btn := models.InlineKeyboardButton{
				Text:         b.Text,
				URL:          b.URL,
				CallbackData: b.CallbackData,
			}
			if b.WebAppURL != "" {
				btn.WebApp = &models.WebAppInfo{URL: b.WebAppURL}
			}
			buttons = append(buttons, btn)
		}
		rows = append(rows, buttons)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
