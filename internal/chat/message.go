package chat

import (
	"errors"
	"time"

	"github.com/scrimlol/scrim-backend/internal/rank"
)

var ErrNotPermitted = errors.New("not permitted to post in this room")
var ErrEmptyMessage = errors.New("empty message")
var ErrMessageTooLong = errors.New("message too long")

// MaxMessageLen bounds the text of a single chat message, in characters.
const MaxMessageLen = 500

type MessageType string

const (
	TypeText   MessageType = "text"
	TypeSystem MessageType = "system"
)

// Message is immutable once appended to a room log. IDs are per-room and
// strictly increasing, which is what the live-feed cursor contract rides on.
// Author fields are a snapshot taken at send time, never a live lookup.
type Message struct {
	ID             int64       `json:"id"`
	RoomTier       rank.Tier   `json:"room_tier"`
	AuthorID       string      `json:"author_id,omitempty"`
	AuthorName     string      `json:"author_name,omitempty"`
	AuthorRank     rank.Tier   `json:"author_rank,omitempty"`
	AuthorVerified bool        `json:"author_verified,omitempty"`
	Text           string      `json:"text"`
	Type           MessageType `json:"type"`
	SentAt         time.Time   `json:"sent_at"`
}

// MessageSink receives every accepted message, e.g. for archival. Archive
// must not block: the room actor calls it inline.
type MessageSink interface {
	Archive(Message)
}

type NopSink struct{}

func (NopSink) Archive(Message) {}
