package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DownloadRecord is one artifact previously delivered to a chat. The tuple
// (user, url, platform, media type, height) is the dedup key: a lookup that
// finds a record proves the artifact already exists in the chat history and
// can be replayed by (ChatID, MessageID) without re-downloading.
//
// Records are created exactly once per successful delivery and never mutated
// afterwards except timestamps.
type DownloadRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    int64              `bson:"user_id"`
	ChatID    int64              `bson:"chat_id"`
	MessageID int                `bson:"message_id"`
	URL       string             `bson:"url"`
	Platform  Platform           `bson:"platform"`
	MediaType MediaType          `bson:"media_type"`

	// Height is the vertical resolution for video records. Quality-less
	// variants (audio, image, post) omit the field so they cannot collide
	// with a real 0-height video.
	Height int `bson:"height,omitempty"`

	FileName string `bson:"file_name"`
	FileSize int64  `bson:"file_size"`

	// Carousel is set only for multi-item posts, in delivery order.
	Carousel []CarouselItem `bson:"carousel,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// CarouselItem is one delivered item of a multi-item post.
type CarouselItem struct {
	MessageID int       `bson:"message_id"`
	ItemID    string    `bson:"item_id"`
	MediaType MediaType `bson:"media_type"`
}

// HasCarousel reports whether the record holds a non-empty carousel.
func (r *DownloadRecord) HasCarousel() bool {
	return len(r.Carousel) > 0
}

// ForwardRecord is an audit row written every time a cached artifact is
// replayed (copied) to a chat. It is never mutated.
type ForwardRecord struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     int64              `bson:"user_id"`
	ChatID     int64              `bson:"chat_id"`
	MessageID  int                `bson:"message_id"`
	DownloadID primitive.ObjectID `bson:"download_id"`
	CreatedAt  time.Time          `bson:"created_at"`
}
