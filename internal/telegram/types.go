// Package telegram is the boundary between the bot workflows and the Telegram Bot API.
package telegram

import (
	"strconv"
	"strings"
)

// ChatRef addresses a chat either by numeric ID or by public @username.
type ChatRef struct {
	ID       int64
	Username string // includes the leading @
}

// ParseChatRef normalizes a configured channel identifier. Numeric strings
// become chat IDs, anything else is a handle and gets an @ prefix if missing.
func ParseChatRef(raw string) ChatRef {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ChatRef{ID: id}
	}
	if !strings.HasPrefix(raw, "@") {
		raw = "@" + raw
	}
	return ChatRef{Username: raw}
}

// Value returns the representation the Bot API accepts as chat_id.
func (c ChatRef) Value() any {
	if c.Username != "" {
		return c.Username
	}
	return c.ID
}

func (c ChatRef) String() string {
	if c.Username != "" {
		return c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// MemberStatus is a chat member status as reported by getChatMember.
type MemberStatus string

const (
	StatusOwner         MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Joined reports whether the status counts as belonging to the chat.
func (s MemberStatus) Joined() bool {
	switch s {
	case StatusOwner, StatusAdministrator, StatusMember:
		return true
	}
	return false
}

// Button is an inline keyboard button. Exactly one of URL, CallbackData or
// WebAppURL is set.
type Button struct {
	Text         string
	URL          string
	CallbackData string
	WebAppURL    string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// Buttons flattens the keyboard.
func (k Keyboard) Buttons() []Button {
	var out []Button
	for _, row := range k {
		out = append(out, row...)
	}
	return out
}

// User is the sender of an update.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Chat is the chat an update belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Message is the subset of a Bot API message the bot reads.
type Message struct {
	MessageID      int      `json:"message_id"`
	From           *User    `json:"from"`
	Chat           Chat     `json:"chat"`
	Text           string   `json:"text"`
	ReplyToMessage *Message `json:"reply_to_message"`
}

// CallbackQuery is a press on an inline keyboard callback button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Update is one inbound webhook event.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}
