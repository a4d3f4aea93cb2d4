package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/match"
	"github.com/scrimlol/scrim-backend/internal/rank"
)

var ErrAlreadyQueued = errors.New("already in queue")
var ErrRoomNotFound = errors.New("room not found")

// LocationKind enumerates where a user can be. Exactly one location holds at
// any time; every join atomically vacates the prior one.
type LocationKind int

const (
	LocNowhere LocationKind = iota
	LocQueue
	LocWaiting
	LocSlot
)

type Location struct {
	Kind   LocationKind
	RoomID string     // set for LocWaiting and LocSlot
	Role   match.Role // set for LocSlot
}

// RoomView is a deep copy of a room handed across the actor boundary.
type RoomView struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	MinTier        rank.Tier                  `json:"min_tier"`
	MaxTier        rank.Tier                  `json:"max_tier"`
	Slots          map[match.Role]*match.User `json:"slots"`
	Waiting        []match.User               `json:"waiting"`
	Ready          bool                       `json:"ready"`
	CreatedAt      time.Time                  `json:"created_at"`
	EstimatedStart *time.Time                 `json:"estimated_start,omitempty"`
}

type Msg interface{ isCoordMsg() }

type EnterQueue struct {
	User  match.User
	Reply chan error
}

type LeaveQueue struct{ UserID string }

type CreateRoom struct {
	Name    string
	MinTier rank.Tier
	MaxTier rank.Tier
	Reply   chan RoomView
}

type GetRoom struct {
	RoomID string
	Reply  chan *RoomView // nil when unknown
}

type ListRooms struct{ Reply chan []RoomView }

type JoinRoom struct {
	User   match.User
	RoomID string
	Role   match.Role
	Reply  chan JoinResult
}

type JoinResult struct {
	Room RoomView
	Err  error
}

type LeaveRoom struct{ UserID string }

type JoinWaiting struct {
	User   match.User
	RoomID string
	Reply  chan error
}

type LeaveWaiting struct {
	UserID string
	RoomID string
}

type WhereIs struct {
	UserID string
	Reply  chan Location
}

type QueueLen struct{ Reply chan int }

// ListQueue replies with a copy of the global queue in FIFO order.
type ListQueue struct{ Reply chan []match.User }

type Tick struct{}

type Shutdown struct{}

func (EnterQueue) isCoordMsg()   {}
func (LeaveQueue) isCoordMsg()   {}
func (CreateRoom) isCoordMsg()   {}
func (GetRoom) isCoordMsg()      {}
func (ListRooms) isCoordMsg()    {}
func (JoinRoom) isCoordMsg()     {}
func (LeaveRoom) isCoordMsg()    {}
func (JoinWaiting) isCoordMsg()  {}
func (LeaveWaiting) isCoordMsg() {}
func (WhereIs) isCoordMsg()      {}
func (QueueLen) isCoordMsg()     {}
func (ListQueue) isCoordMsg()    {}
func (Tick) isCoordMsg()         {}
func (Shutdown) isCoordMsg()     {}

// Coordinator owns the global queue, every match room, and the authoritative
// user-id -> location map. A single loop serializes all mutation, so two
// racing claims for the same empty slot resolve to exactly one winner and
// one conflict.
type Coordinator struct {
	inbox     chan Msg
	rooms     map[string]*match.Room
	queue     []*match.User
	locations map[string]Location
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, logger *zap.Logger) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		inbox:     make(chan Msg, 64),
		rooms:     make(map[string]*match.Room),
		locations: make(map[string]Location),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	go c.loop()
	return c
}

func (c *Coordinator) Inbox() chan<- Msg { return c.inbox }

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case EnterQueue:
				msg.Reply <- c.enterQueue(msg.User)

			case LeaveQueue:
				c.removeFromQueue(msg.UserID)

			case CreateRoom:
				room := match.NewRoom(uuid.NewString(), msg.Name, msg.MinTier, msg.MaxTier)
				c.rooms[room.ID] = room
				c.logger.Info("match room created",
					zap.String("room_id", room.ID),
					zap.String("name", room.Name))
				msg.Reply <- snapshotRoom(room)

			case GetRoom:
				if room, ok := c.rooms[msg.RoomID]; ok {
					v := snapshotRoom(room)
					msg.Reply <- &v
				} else {
					msg.Reply <- nil
				}

			case ListRooms:
				out := make([]RoomView, 0, len(c.rooms))
				for _, room := range c.rooms {
					out = append(out, snapshotRoom(room))
				}
				msg.Reply <- out

			case JoinRoom:
				msg.Reply <- c.joinRoom(msg.User, msg.RoomID, msg.Role)

			case LeaveRoom:
				c.leaveRoom(msg.UserID)

			case JoinWaiting:
				msg.Reply <- c.joinWaiting(msg.User, msg.RoomID)

			case LeaveWaiting:
				if room, ok := c.rooms[msg.RoomID]; ok {
					room.LeaveWaiting(msg.UserID)
					if loc := c.locations[msg.UserID]; loc.Kind == LocWaiting && loc.RoomID == msg.RoomID {
						delete(c.locations, msg.UserID)
					}
				}

			case WhereIs:
				msg.Reply <- c.locations[msg.UserID]

			case QueueLen:
				msg.Reply <- len(c.queue)

			case ListQueue:
				out := make([]match.User, len(c.queue))
				for i, u := range c.queue {
					out[i] = *u
				}
				msg.Reply <- out

			case Tick:
				c.tick()

			case Shutdown:
				c.cancel()
				return
			}
		}
	}
}

func (c *Coordinator) enterQueue(u match.User) error {
	if c.locations[u.ID].Kind == LocQueue {
		return ErrAlreadyQueued
	}
	// Queueing is a new location: any room placement is vacated first.
	c.vacate(u.ID)
	queued := u
	c.queue = append(c.queue, &queued)
	c.locations[u.ID] = Location{Kind: LocQueue}
	return nil
}

func (c *Coordinator) joinRoom(u match.User, roomID string, role match.Role) JoinResult {
	room, ok := c.rooms[roomID]
	if !ok {
		return JoinResult{Err: ErrRoomNotFound}
	}
	joined := u
	if err := room.JoinSlot(&joined, role); err != nil {
		return JoinResult{Room: snapshotRoom(room), Err: err}
	}
	// The room handled any prior placement within itself; clear the rest of
	// the system (global queue, other rooms) so exactly one location holds.
	prior := c.locations[u.ID]
	if prior.RoomID != "" && prior.RoomID != roomID {
		c.vacateRoom(u.ID, prior.RoomID)
	}
	c.removeFromQueue(u.ID)
	c.locations[u.ID] = Location{Kind: LocSlot, RoomID: roomID, Role: role}
	if room.Ready {
		c.logger.Info("match room ready",
			zap.String("room_id", roomID),
			zap.Timep("estimated_start", room.EstimatedStart))
	}
	return JoinResult{Room: snapshotRoom(room)}
}

func (c *Coordinator) joinWaiting(u match.User, roomID string) error {
	room, ok := c.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if loc := c.locations[u.ID]; loc.Kind == LocWaiting && loc.RoomID == roomID {
		return nil // idempotent, keeps FIFO position
	}
	if !room.Eligible(u.Tier) {
		return match.ErrTierIneligible
	}
	c.vacate(u.ID)
	waiting := u
	if err := room.JoinWaiting(&waiting); err != nil {
		return err
	}
	c.locations[u.ID] = Location{Kind: LocWaiting, RoomID: roomID}
	return nil
}

// leaveRoom vacates the user's slot or waiting entry, found through the
// location map rather than a room scan. Idempotent.
func (c *Coordinator) leaveRoom(userID string) {
	loc := c.locations[userID]
	if loc.Kind != LocSlot && loc.Kind != LocWaiting {
		return
	}
	c.vacateRoom(userID, loc.RoomID)
	delete(c.locations, userID)
}

func (c *Coordinator) vacateRoom(userID, roomID string) {
	room, ok := c.rooms[roomID]
	if !ok {
		return
	}
	room.LeaveSlot(userID)
	room.LeaveWaiting(userID)
}

// vacate clears the user from wherever they currently are.
func (c *Coordinator) vacate(userID string) {
	loc := c.locations[userID]
	switch loc.Kind {
	case LocQueue:
		c.removeFromQueue(userID)
	case LocSlot, LocWaiting:
		c.vacateRoom(userID, loc.RoomID)
	}
	delete(c.locations, userID)
}

func (c *Coordinator) removeFromQueue(userID string) {
	for i, u := range c.queue {
		if u.ID == userID {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			if c.locations[userID].Kind == LocQueue {
				delete(c.locations, userID)
			}
			return
		}
	}
}

// tick is pure bookkeeping: one second of waiting for everyone queued,
// seated, or waiting. No state-machine transitions happen here.
func (c *Coordinator) tick() {
	for _, u := range c.queue {
		u.WaitingSeconds++
	}
	for _, room := range c.rooms {
		for _, occ := range room.Slots {
			if occ != nil {
				occ.WaitingSeconds++
			}
		}
		for _, w := range room.Waiting {
			w.WaitingSeconds++
		}
	}
}

func snapshotRoom(r *match.Room) RoomView {
	v := RoomView{
		ID:        r.ID,
		Name:      r.Name,
		MinTier:   r.MinTier,
		MaxTier:   r.MaxTier,
		Slots:     make(map[match.Role]*match.User, len(match.Roles)),
		Waiting:   make([]match.User, len(r.Waiting)),
		Ready:     r.Ready,
		CreatedAt: r.CreatedAt,
	}
	for role, occ := range r.Slots {
		if occ == nil {
			v.Slots[role] = nil
			continue
		}
		cp := *occ
		v.Slots[role] = &cp
	}
	for i, w := range r.Waiting {
		v.Waiting[i] = *w
	}
	if r.EstimatedStart != nil {
		t := *r.EstimatedStart
		v.EstimatedStart = &t
	}
	return v
}
