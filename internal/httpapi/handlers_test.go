package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/coordinator"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/rank"
)

func newTestServer(t *testing.T) (http.Handler, *identity.Static) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := zap.NewNop()
	ids := identity.NewStatic(
		identity.Profile{UserID: "gold-v", Username: "goldie", Rank: rank.Gold, Verified: true},
		identity.Profile{UserID: "silver-u", Username: "silv", Rank: rank.Silver, Verified: false},
		identity.Profile{UserID: "plat-v", Username: "platy", Rank: rank.Platinum, Verified: true},
	)
	reg := chat.NewRegistry(ctx, chat.NopSink{}, logger)
	coord := coordinator.New(ctx, logger)
	return SetupRoutes(reg, coord, ids, logger), ids
}

func doJSON(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSendAndListMessages(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/chat/GOLD/messages", "gold-v", `{"text":"anyone up for a scrim?"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("send: want 201, got %d (%s)", w.Code, w.Body.String())
	}
	var sent chat.Message
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sent.ID != 1 || sent.AuthorName != "goldie" {
		t.Fatalf("bad message: %+v", sent)
	}

	w = doJSON(t, h, http.MethodGet, "/chat/GOLD/messages", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: want 200, got %d", w.Code)
	}
	var msgs []chat.Message
	if err := json.Unmarshal(w.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "anyone up for a scrim?" {
		t.Fatalf("bad list: %+v", msgs)
	}
}

func TestSendMessageStatusMapping(t *testing.T) {
	h, _ := newTestServer(t)

	cases := []struct {
		name   string
		path   string
		userID string
		body   string
		want   int
	}{
		{"permission denied", "/chat/GOLD/messages", "silver-u", `{"text":"hi"}`, http.StatusForbidden},
		{"empty message", "/chat/GOLD/messages", "gold-v", `{"text":""}`, http.StatusBadRequest},
		{"unknown tier", "/chat/WOOD/messages", "gold-v", `{"text":"hi"}`, http.StatusNotFound},
		{"missing identity", "/chat/GOLD/messages", "", `{"text":"hi"}`, http.StatusUnauthorized},
		{"unknown user", "/chat/GOLD/messages", "ghost", `{"text":"hi"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, tc.path, tc.userID, tc.body)
			if w.Code != tc.want {
				t.Fatalf("want %d, got %d (%s)", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestChatRoomDirectory(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodGet, "/chat/rooms", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var rooms []chat.RoomSummary
	if err := json.Unmarshal(w.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rooms) != 10 || rooms[0].Tier != rank.Iron || rooms[9].Tier != rank.Challenger {
		t.Fatalf("bad directory: %+v", rooms)
	}
}

func TestMatchRoomFlow(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/match/rooms", "",
		`{"name":"gold scrim","min_tier":"GOLD","max_tier":"DIAMOND"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: want 201, got %d (%s)", w.Code, w.Body.String())
	}
	var room coordinator.RoomView
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil {
		t.Fatalf("decode room: %v", err)
	}

	w = doJSON(t, h, http.MethodPost, "/match/rooms/"+room.ID+"/slots/MID", "gold-v", "")
	if w.Code != http.StatusOK {
		t.Fatalf("join slot: want 200, got %d (%s)", w.Code, w.Body.String())
	}

	// Same slot from another eligible user: conflict.
	w = doJSON(t, h, http.MethodPost, "/match/rooms/"+room.ID+"/slots/MID", "plat-v", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("second claim: want 409, got %d (%s)", w.Code, w.Body.String())
	}

	// A tier outside the room's [min,max] range is rejected outright.
	w = doJSON(t, h, http.MethodPost, "/match/rooms/"+room.ID+"/slots/TOP", "silver-u", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("ineligible tier: want 400, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodDelete, "/match/placement", "gold-v", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("leave: want 204, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/match/rooms/"+room.ID, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get room: want 200, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if room.Slots["MID"] != nil {
		t.Fatalf("slot should be vacated: %+v", room.Slots["MID"])
	}
}

func TestQueueEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/match/queue", "gold-v", `{"preferred_roles":["MID","TOP"]}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("enter: want 204, got %d (%s)", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodPost, "/match/queue", "gold-v", `{}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("re-enter: want 409, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/match/queue", "gold-v", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("leave: want 204, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/match/queue", "gold-v", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("second leave should still be 204, got %d", w.Code)
	}
}

func TestPutProfile(t *testing.T) {
	h, _ := newTestServer(t)

	w := doJSON(t, h, http.MethodPut, "/users/new-user", "",
		`{"username":"newbie","tier":"EMERALD","verified":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put profile: want 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/chat/EMERALD/messages", "new-user", `{"text":"hello"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("send as new user: want 201, got %d (%s)", w.Code, w.Body.String())
	}
}
