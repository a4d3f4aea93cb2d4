package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/coordinator"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/match"
	"github.com/scrimlol/scrim-backend/internal/rank"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// requireProfile resolves the caller through the identity provider. The
// X-User-ID header stands in for whatever auth the gateway does; this core
// only needs the snapshot.
func requireProfile(ids identity.Provider, w http.ResponseWriter, r *http.Request) (identity.Profile, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "missing X-User-ID", http.StatusUnauthorized)
		return identity.Profile{}, false
	}
	p, err := ids.Lookup(r.Context(), userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return identity.Profile{}, false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the core's sentinel errors onto HTTP statuses per the error
// taxonomy: permission 403, validation 400, conflict 409, not-found 404.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrNotPermitted):
		status = http.StatusForbidden
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, match.ErrUnknownRole),
		errors.Is(err, match.ErrTierIneligible):
		status = http.StatusBadRequest
	case errors.Is(err, match.ErrSlotTaken),
		errors.Is(err, coordinator.ErrAlreadyQueued):
		status = http.StatusConflict
	case errors.Is(err, rank.ErrUnknownTier),
		errors.Is(err, coordinator.ErrRoomNotFound),
		errors.Is(err, identity.ErrUnknownUser):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func tierParam(w http.ResponseWriter, r *http.Request) (rank.Tier, bool) {
	tier, err := rank.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeErr(w, err)
		return "", false
	}
	return tier, true
}

// --- chat ---

func ListChatRooms(reg *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.Summaries())
	}
}

func ListMessages(reg *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tier, ok := tierParam(w, r)
		if !ok {
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		msgs, err := reg.ListMessages(tier, page, size)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func SendMessage(reg *chat.Registry, ids identity.Provider) http.HandlerFunc {
	type req struct {
		Text string `json:"text"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tier, ok := tierParam(w, r)
		if !ok {
			return
		}
		author, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		msg, err := reg.SendMessage(tier, author, body.Text)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func Announce(reg *chat.Registry) http.HandlerFunc {
	type req struct {
		Text string `json:"text"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tier, ok := tierParam(w, r)
		if !ok {
			return
		}
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		msg, err := reg.Announce(tier, body.Text)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// --- identity (dev stand-in for the external profile service) ---

func PutProfile(ids *identity.Static) http.HandlerFunc {
	type req struct {
		Username string   `json:"username"`
		Tier     string   `json:"tier"`
		Verified bool     `json:"verified"`
		Roles    []string `json:"preferred_roles"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		tier, err := rank.ParseTier(body.Tier)
		if err != nil {
			writeErr(w, err)
			return
		}
		p := identity.Profile{
			UserID:   chi.URLParam(r, "userID"),
			Username: body.Username,
			Rank:     tier,
			Verified: body.Verified,
		}
		ids.Put(p)
		writeJSON(w, http.StatusOK, p)
	}
}

// --- matching ---

func matchUser(p identity.Profile, roles []string) (match.User, error) {
	u := match.User{ID: p.UserID, Username: p.Username, Tier: p.Rank}
	for _, r := range roles {
		role, err := match.ParseRole(r)
		if err != nil {
			return match.User{}, err
		}
		u.PreferredRoles = append(u.PreferredRoles, role)
	}
	return u, nil
}

func EnterQueue(coord *coordinator.Coordinator, ids identity.Provider) http.HandlerFunc {
	type req struct {
		Roles []string `json:"preferred_roles"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		var body req
		_ = json.NewDecoder(r.Body).Decode(&body)
		u, err := matchUser(p, body.Roles)
		if err != nil {
			writeErr(w, err)
			return
		}
		reply := make(chan error, 1)
		coord.Inbox() <- coordinator.EnterQueue{User: u, Reply: reply}
		if err := <-reply; err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func LeaveQueue(coord *coordinator.Coordinator, ids identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		coord.Inbox() <- coordinator.LeaveQueue{UserID: p.UserID}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateRoom(coord *coordinator.Coordinator) http.HandlerFunc {
	type req struct {
		Name    string `json:"name"`
		MinTier string `json:"min_tier"`
		MaxTier string `json:"max_tier"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		minTier, err := rank.ParseTier(body.MinTier)
		if err != nil {
			writeErr(w, err)
			return
		}
		maxTier, err := rank.ParseTier(body.MaxTier)
		if err != nil {
			writeErr(w, err)
			return
		}
		reply := make(chan coordinator.RoomView, 1)
		coord.Inbox() <- coordinator.CreateRoom{Name: body.Name, MinTier: minTier, MaxTier: maxTier, Reply: reply}
		writeJSON(w, http.StatusCreated, <-reply)
	}
}

func ListRooms(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []coordinator.RoomView, 1)
		coord.Inbox() <- coordinator.ListRooms{Reply: reply}
		writeJSON(w, http.StatusOK, <-reply)
	}
}

func GetRoom(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan *coordinator.RoomView, 1)
		coord.Inbox() <- coordinator.GetRoom{RoomID: chi.URLParam(r, "roomID"), Reply: reply}
		view := <-reply
		if view == nil {
			writeErr(w, coordinator.ErrRoomNotFound)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func JoinSlot(coord *coordinator.Coordinator, ids identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		role, err := match.ParseRole(chi.URLParam(r, "role"))
		if err != nil {
			writeErr(w, err)
			return
		}
		u, _ := matchUser(p, nil)
		reply := make(chan coordinator.JoinResult, 1)
		coord.Inbox() <- coordinator.JoinRoom{
			User:   u,
			RoomID: chi.URLParam(r, "roomID"),
			Role:   role,
			Reply:  reply,
		}
		res := <-reply
		if res.Err != nil {
			writeErr(w, res.Err)
			return
		}
		writeJSON(w, http.StatusOK, res.Room)
	}
}

func JoinWaiting(coord *coordinator.Coordinator, ids identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		u, _ := matchUser(p, nil)
		reply := make(chan error, 1)
		coord.Inbox() <- coordinator.JoinWaiting{User: u, RoomID: chi.URLParam(r, "roomID"), Reply: reply}
		if err := <-reply; err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func LeaveWaiting(coord *coordinator.Coordinator, ids identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		coord.Inbox() <- coordinator.LeaveWaiting{UserID: p.UserID, RoomID: chi.URLParam(r, "roomID")}
		w.WriteHeader(http.StatusNoContent)
	}
}

// LeavePlacement backs "leave my room": the coordinator finds the user's
// slot or waiting entry through its own location map.
func LeavePlacement(coord *coordinator.Coordinator, ids identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := requireProfile(ids, w, r)
		if !ok {
			return
		}
		coord.Inbox() <- coordinator.LeaveRoom{UserID: p.UserID}
		w.WriteHeader(http.StatusNoContent)
	}
}
