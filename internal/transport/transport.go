package transport

import (
	"context"
	"io"
)

// ChatAction is the liveness signal kind shown to the user while the bot
// works. The transport expects a fresh signal at least every five seconds.
type ChatAction string

const (
	ActionTyping      ChatAction = "typing"
	ActionUploadPhoto ChatAction = "upload_photo"
	ActionUploadVideo ChatAction = "upload_video"
	ActionUploadAudio ChatAction = "upload_audio"
)

// SentMessage references a message the bot delivered to a chat.
type SentMessage struct {
	ChatID    int64
	MessageID int
}

// Message is an inbound user message.
type Message struct {
	ChatID    int64
	MessageID int
	UserID    int64
	FirstName string
	IsBot     bool
	Text      string
}

// Callback is an inline-button selection.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	UserID    int64
	Data      string
}

// Update is one inbound transport event. Exactly one field is set.
type Update struct {
	Message  *Message
	Callback *Callback
}

// Button is one inline choice button.
type Button struct {
	Text string
	Data string
}

// Client is the messaging capability surface the core depends on. All calls
// report success or failure; the core never inspects transport payloads
// beyond chat and message identifiers.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string) (SentMessage, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	SendPhotoURL(ctx context.Context, chatID int64, url string) (SentMessage, error)
	SendVideoURL(ctx context.Context, chatID int64, url string) (SentMessage, error)
	SendVideoFile(ctx context.Context, chatID int64, name string, r io.Reader) (SentMessage, error)
	SendAudioFile(ctx context.Context, chatID int64, name string, r io.Reader) (SentMessage, error)

	// SendButtons presents inline choice buttons, optionally on top of a
	// photo with a caption when photoURL is non-empty.
	SendButtons(ctx context.Context, chatID int64, text, photoURL string, buttons [][]Button) (SentMessage, error)

	// CopyMessage re-delivers an existing message's content to a chat,
	// allowing a fresh caption. ForwardMessage preserves attribution.
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) (SentMessage, error)
	ForwardMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (SentMessage, error)

	SendChatAction(ctx context.Context, chatID int64, action ChatAction) error
	React(ctx context.Context, chatID int64, messageID int, emoji string) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// UpdateSource yields inbound updates until the context is cancelled.
type UpdateSource interface {
	Updates(ctx context.Context) <-chan Update
}
