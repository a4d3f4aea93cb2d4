package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/rank"
	"github.com/scrimlol/scrim-backend/internal/types"
)

func newFeedServer(t *testing.T) (*httptest.Server, *chat.Registry) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ids := identity.NewStatic(
		identity.Profile{UserID: "u1", Username: "u1", Rank: rank.Gold, Verified: true},
	)
	reg := chat.NewRegistry(ctx, chat.NopSink{}, zap.NewNop())
	srv := httptest.NewServer(Handler(reg, ids, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, reg
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "?" + query
}

// helper: read one server frame with a timeout so tests never hang
func readFrame(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var msg types.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return msg
}

func writeFrame(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(payload)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestHandlerBackfillLiveAndErrorFrames(t *testing.T) {
	srv, reg := newFeedServer(t)
	author := identity.Profile{UserID: "u1", Username: "u1", Rank: rank.Gold, Verified: true}

	if _, err := reg.SendMessage(rank.Gold, author, "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.SendMessage(rank.Gold, author, "two"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv, "tier=GOLD&user=u1&from=1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// Cursor after id 1: exactly message 2 is replayed.
	frame := readFrame(t, conn)
	if frame.Type != "Message" || frame.Message == nil || frame.Message.ID != 2 {
		t.Fatalf("bad backfill frame: %+v", frame)
	}

	// Malformed input gets an error reply on the same connection, and the
	// reader loop keeps going.
	writeFrame(t, conn, `{bad json`)
	frame = readFrame(t, conn)
	if frame.Type != "Error" || frame.Error != "bad json" {
		t.Fatalf("want bad json error frame, got %+v", frame)
	}

	writeFrame(t, conn, `{"type":"Ping"}`)
	frame = readFrame(t, conn)
	if frame.Type != "Error" || frame.Error != "unknown type" {
		t.Fatalf("want unknown type error frame, got %+v", frame)
	}

	// An accepted send comes back through the feed itself.
	writeFrame(t, conn, `{"type":"SendMessage","text":"three"}`)
	frame = readFrame(t, conn)
	if frame.Type != "Message" || frame.Message == nil || frame.Message.ID != 3 || frame.Message.Text != "three" {
		t.Fatalf("bad live frame: %+v", frame)
	}
}

func TestHandlerRejectsBadSubscriptions(t *testing.T) {
	srv, _ := newFeedServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, query := range []string{
		"tier=WOOD&user=u1",
		"user=u1",
		"tier=GOLD",
		"tier=GOLD&user=u1&from=-1",
	} {
		if _, _, err := websocket.Dial(ctx, wsURL(srv, query), nil); err == nil {
			t.Fatalf("dial with %q should fail", query)
		}
	}
}
