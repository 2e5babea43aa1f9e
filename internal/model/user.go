package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is one account the bot has talked to, with lightweight usage
// statistics. Rows are upserted from activity events; plain-message writes
// are throttled, so counters are best-effort rather than exact.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	TelegramID int64              `bson:"telegram_id"`
	FirstName  string             `bson:"first_name,omitempty"`
	ChatID     int64              `bson:"chat_id"`
	IsActive   bool               `bson:"is_active"`

	MessageCount int64  `bson:"message_count"`
	CommandCount int64  `bson:"command_count"`
	LastCommand  string `bson:"last_command,omitempty"`

	LastActiveAt time.Time `bson:"last_active_at"`
	FirstSeenAt  time.Time `bson:"first_seen_at"`
}

// UserActivity is one observed interaction, the unit the user store
// consumes. Command is empty for plain messages.
type UserActivity struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Command   string
	At        time.Time
}

// IsCommand reports whether the activity was a slash command.
func (a UserActivity) IsCommand() bool {
	return a.Command != ""
}
