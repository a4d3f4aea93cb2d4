package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/rank"
)

type roomMsg interface{ isRoomMsg() }

type publish struct {
	Msg   Message // ID and SentAt filled in by the room
	Reply chan Message
}

type listMessages struct {
	Page  int
	Size  int
	Reply chan []Message
}

type subscribe struct {
	ClientID string
	FromID   int64
	Outbox   chan Message
	Reply    chan []Message // backfill, cut at the current log end
}

type unsubscribe struct{ ClientID string }

type getSummary struct{ Reply chan RoomSummary }

type shutdownRoom struct{}

func (publish) isRoomMsg()      {}
func (listMessages) isRoomMsg() {}
func (subscribe) isRoomMsg()    {}
func (unsubscribe) isRoomMsg()  {}
func (getSummary) isRoomMsg()   {}
func (shutdownRoom) isRoomMsg() {}

// RoomSummary is the directory view of a room: tier, display name, live
// subscriber count (informational, never access-gating) and the last message.
type RoomSummary struct {
	Tier        rank.Tier `json:"tier"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	LastMessage *Message  `json:"last_message,omitempty"`
}

// Room is the actor owning one tier's message log and its subscribers.
// Everything goes through the inbox, so appends are serialized and every
// subscriber observes the same order.
type Room struct {
	tier   rank.Tier
	name   string
	inbox  chan roomMsg
	log    []Message
	nextID int64
	subs   map[string]chan Message
	sink   MessageSink
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func newRoom(parent context.Context, tier rank.Tier, name string, sink MessageSink, logger *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		tier:   tier,
		name:   name,
		inbox:  make(chan roomMsg, 64),
		nextID: 1,
		subs:   make(map[string]chan Message),
		sink:   sink,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case publish:
				out := msg.Msg
				out.ID = r.nextID
				out.RoomTier = r.tier
				out.SentAt = time.Now()
				r.nextID++
				r.log = append(r.log, out)
				r.sink.Archive(out)
				r.broadcast(out)
				msg.Reply <- out

			case listMessages:
				msg.Reply <- r.page(msg.Page, msg.Size)

			case subscribe:
				// Register and hand back the backfill in one step: the cut
				// between replayed and live messages is exact, so a
				// reconnect with the right cursor neither drops nor
				// duplicates.
				r.subs[msg.ClientID] = msg.Outbox
				msg.Reply <- r.after(msg.FromID)

			case unsubscribe:
				if ch, ok := r.subs[msg.ClientID]; ok {
					close(ch)
					delete(r.subs, msg.ClientID)
				}

			case getSummary:
				s := RoomSummary{Tier: r.tier, Name: r.name, MemberCount: len(r.subs)}
				if n := len(r.log); n > 0 {
					last := r.log[n-1]
					s.LastMessage = &last
				}
				msg.Reply <- s

			case shutdownRoom:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	r.cancel()
}

func (r *Room) broadcast(m Message) {
	for id, ch := range r.subs {
		select {
		case ch <- m:
		default:
			// Slow subscriber: drop it. The client reconnects with its
			// last-seen id and the backfill bridges the gap.
			close(ch)
			delete(r.subs, id)
			r.logger.Warn("dropped slow chat subscriber",
				zap.String("tier", string(r.tier)),
				zap.String("client_id", id))
		}
	}
}

// page returns one page of the log, oldest-first. Pages are 1-based.
func (r *Room) page(page, size int) []Message {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}
	start := (page - 1) * size
	if start >= len(r.log) {
		return []Message{}
	}
	end := start + size
	if end > len(r.log) {
		end = len(r.log)
	}
	out := make([]Message, end-start)
	copy(out, r.log[start:end])
	return out
}

// after returns a copy of every logged message with id > fromID.
func (r *Room) after(fromID int64) []Message {
	// IDs are dense from 1, so the cursor is an index.
	start := int(fromID)
	if start < 0 {
		start = 0
	}
	if start >= len(r.log) {
		return []Message{}
	}
	out := make([]Message, len(r.log)-start)
	copy(out, r.log[start:])
	return out
}
