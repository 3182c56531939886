package service

import "linkguard/internal/telegram"

// Reply is what a workflow wants shown to the user.
type Reply struct {
	Text     string
	Keyboard telegram.Keyboard
	// Gated is set when the user still has to join support channels.
	Gated bool
}

// Callback data understood by the dispatcher.
const (
	CallbackCheckJoin        = "check_join"
	CallbackConfirmBroadcast = "confirm_broadcast"
	CallbackCancelBroadcast  = "cancel_broadcast"
)

// maxCallbackData is the Bot API limit on callback_data length.
const maxCallbackData = 64
