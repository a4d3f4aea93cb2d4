package match

import (
	"errors"
	"time"

	"github.com/scrimlol/scrim-backend/internal/rank"
)

var ErrSlotTaken = errors.New("slot already occupied")
var ErrUnknownRole = errors.New("unknown role")
var ErrTierIneligible = errors.New("tier outside room range")

type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMid     Role = "MID"
	RoleADC     Role = "ADC"
	RoleSupport Role = "SUPPORT"
)

// Roles is the fixed slot layout of every room.
var Roles = []Role{RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleTop, RoleJungle, RoleMid, RoleADC, RoleSupport:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

// ReadyLeadTime is how far ahead of "now" the start estimate is stamped when
// the fifth slot fills.
const ReadyLeadTime = 5 * time.Minute

// stubbed in tests
var timeNow = time.Now

type User struct {
	ID             string
	Username       string
	Tier           rank.Tier
	PreferredRoles []Role
	WaitingSeconds int
}

// Room is one quick-match room: five role slots, a FIFO waiting list, and a
// derived ready flag. All mutation goes through the methods below; the
// coordinator serializes calls, so none of them lock.
type Room struct {
	ID             string
	Name           string
	MinTier        rank.Tier
	MaxTier        rank.Tier
	Slots          map[Role]*User
	Waiting        []*User
	Ready          bool
	CreatedAt      time.Time
	EstimatedStart *time.Time
}

func NewRoom(id, name string, minTier, maxTier rank.Tier) *Room {
	slots := make(map[Role]*User, len(Roles))
	for _, r := range Roles {
		slots[r] = nil
	}
	return &Room{
		ID:        id,
		Name:      name,
		MinTier:   minTier,
		MaxTier:   maxTier,
		Slots:     slots,
		CreatedAt: timeNow(),
	}
}

// Eligible checks the room's two-sided tier range. Unlike chat's one-sided
// dominance rule, a room admits only tiers within [MinTier, MaxTier].
func (r *Room) Eligible(t rank.Tier) bool {
	return rank.Dominates(t, r.MinTier) && rank.Dominates(r.MaxTier, t)
}

// JoinSlot claims a role slot for the user. An occupied slot is a conflict,
// never an override. On success any prior placement the user held in this
// room (another slot, or the waiting list) is vacated as part of the same
// call, then readiness is recomputed.
func (r *Room) JoinSlot(u *User, role Role) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if !r.Eligible(u.Tier) {
		return ErrTierIneligible
	}
	if occ := r.Slots[role]; occ != nil {
		if occ.ID == u.ID {
			return nil // already holding this exact slot
		}
		return ErrSlotTaken
	}
	r.vacate(u.ID)
	r.Slots[role] = u
	r.recomputeReady()
	return nil
}

// LeaveSlot vacates whichever slot the user occupies. No-op if they hold none.
func (r *Room) LeaveSlot(userID string) {
	for role, occ := range r.Slots {
		if occ != nil && occ.ID == userID {
			r.Slots[role] = nil
			r.recomputeReady()
			return
		}
	}
}

// JoinWaiting appends to the FIFO waiting list. Idempotent: a user already on
// the list keeps their original position. Slots and readiness are untouched.
func (r *Room) JoinWaiting(u *User) error {
	if !r.Eligible(u.Tier) {
		return ErrTierIneligible
	}
	for _, w := range r.Waiting {
		if w.ID == u.ID {
			return nil
		}
	}
	r.Waiting = append(r.Waiting, u)
	return nil
}

// LeaveWaiting removes the user from the waiting list if present.
func (r *Room) LeaveWaiting(userID string) {
	for i, w := range r.Waiting {
		if w.ID == userID {
			r.Waiting = append(r.Waiting[:i], r.Waiting[i+1:]...)
			return
		}
	}
}

// SlotOf reports which role the user occupies, if any.
func (r *Room) SlotOf(userID string) (Role, bool) {
	for role, occ := range r.Slots {
		if occ != nil && occ.ID == userID {
			return role, true
		}
	}
	return "", false
}

func (r *Room) Occupied() int {
	n := 0
	for _, occ := range r.Slots {
		if occ != nil {
			n++
		}
	}
	return n
}

func (r *Room) IsWaiting(userID string) bool {
	for _, w := range r.Waiting {
		if w.ID == userID {
			return true
		}
	}
	return false
}

// vacate removes any placement the user holds in this room, slot or waiting
// list, without recomputing readiness (callers do that once at the end).
func (r *Room) vacate(userID string) {
	for role, occ := range r.Slots {
		if occ != nil && occ.ID == userID {
			r.Slots[role] = nil
		}
	}
	r.LeaveWaiting(userID)
}

// recomputeReady derives Ready from the slot map. The start estimate is
// stamped exactly once per false->true transition; a later full cycle stamps
// a fresh one. Any vacancy clears both.
func (r *Room) recomputeReady() {
	full := r.Occupied() == len(Roles)
	switch {
	case full && !r.Ready:
		r.Ready = true
		t := timeNow().Add(ReadyLeadTime)
		r.EstimatedStart = &t
	case !full && r.Ready:
		r.Ready = false
		r.EstimatedStart = nil
	}
}
