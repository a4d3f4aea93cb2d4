package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/access"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/rank"
)

// Registry owns the fixed set of tier rooms and is the sole mutation entry
// point for chat. One room per tier exists for the process lifetime; the map
// is read-only after construction, so the registry itself needs no lock —
// each room actor serializes its own operations.
type Registry struct {
	rooms  map[rank.Tier]*Room
	logger *zap.Logger
}

func NewRegistry(ctx context.Context, sink MessageSink, logger *zap.Logger) *Registry {
	if sink == nil {
		sink = NopSink{}
	}
	rooms := make(map[rank.Tier]*Room, len(rank.TierOrder))
	for _, t := range rank.TierOrder {
		rooms[t] = newRoom(ctx, t, string(t)+" room", sink, logger)
	}
	return &Registry{rooms: rooms, logger: logger}
}

func (g *Registry) room(tier rank.Tier) (*Room, error) {
	r, ok := g.rooms[tier]
	if !ok {
		// The tier set is fixed at construction; hitting this means the
		// caller skipped ParseTier.
		return nil, rank.ErrUnknownTier
	}
	return r, nil
}

// SendMessage validates the text, checks write access against the author's
// snapshotted rank and verification, and appends on success. Read access is
// deliberately not checked anywhere: browsing is open, posting is gated.
func (g *Registry) SendMessage(tier rank.Tier, author identity.Profile, text string) (Message, error) {
	r, err := g.room(tier)
	if err != nil {
		return Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	// Characters, not bytes: Hangul text is 3 bytes per character.
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return Message{}, ErrMessageTooLong
	}
	if !access.CanWrite(author.Rank, tier, author.Verified) {
		g.logger.Info("chat write rejected",
			zap.String("tier", string(tier)),
			zap.String("user_id", author.UserID),
			zap.String("user_rank", string(author.Rank)),
			zap.Bool("verified", author.Verified))
		return Message{}, ErrNotPermitted
	}

	reply := make(chan Message, 1)
	r.inbox <- publish{
		Msg: Message{
			AuthorID:       author.UserID,
			AuthorName:     author.Username,
			AuthorRank:     author.Rank,
			AuthorVerified: author.Verified,
			Text:           text,
			Type:           TypeText,
		},
		Reply: reply,
	}
	return <-reply, nil
}

// Announce appends a system message, bypassing the author permission check.
// Used for operator notices; delivered through the same feed as user text.
func (g *Registry) Announce(tier rank.Tier, text string) (Message, error) {
	r, err := g.room(tier)
	if err != nil {
		return Message{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return Message{}, ErrMessageTooLong
	}
	reply := make(chan Message, 1)
	r.inbox <- publish{
		Msg:   Message{Text: text, Type: TypeSystem},
		Reply: reply,
	}
	return <-reply, nil
}

// ListMessages returns one page of the room's log, oldest-first (natural
// chat scrollback order). Pages are 1-based.
func (g *Registry) ListMessages(tier rank.Tier, page, size int) ([]Message, error) {
	r, err := g.room(tier)
	if err != nil {
		return nil, err
	}
	reply := make(chan []Message, 1)
	r.inbox <- listMessages{Page: page, Size: size, Reply: reply}
	return <-reply, nil
}

// Subscribe registers outbox for live delivery and returns the backfill:
// every already-logged message with id > fromID. The registration and the
// backfill cut happen in one room operation, so a reconnecting client that
// passes its last processed id sees no gap and no duplicate. The room closes
// outbox on unsubscribe, shutdown, or when the subscriber is too slow.
func (g *Registry) Subscribe(tier rank.Tier, clientID string, fromID int64, outbox chan Message) ([]Message, error) {
	r, err := g.room(tier)
	if err != nil {
		return nil, err
	}
	reply := make(chan []Message, 1)
	r.inbox <- subscribe{ClientID: clientID, FromID: fromID, Outbox: outbox, Reply: reply}
	return <-reply, nil
}

// Unsubscribe is idempotent; unknown client ids are a no-op.
func (g *Registry) Unsubscribe(tier rank.Tier, clientID string) {
	if r, err := g.room(tier); err == nil {
		r.inbox <- unsubscribe{ClientID: clientID}
	}
}

// Summaries returns the room directory in ladder order.
func (g *Registry) Summaries() []RoomSummary {
	out := make([]RoomSummary, 0, len(rank.TierOrder))
	for _, t := range rank.TierOrder {
		reply := make(chan RoomSummary, 1)
		g.rooms[t].inbox <- getSummary{Reply: reply}
		out = append(out, <-reply)
	}
	return out
}

// Close shuts down every room actor and closes all subscriber channels.
func (g *Registry) Close() {
	for _, r := range g.rooms {
		r.inbox <- shutdownRoom{}
	}
}
