package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/rank"
	"github.com/scrimlol/scrim-backend/internal/types"
)

// Handler upgrades GET /ws?tier=GOLD&user=u1&from=42 into a live feed
// subscription. `from` is the last message id the client processed; the
// backfill replays everything after it, then live messages follow in append
// order. The client may also push SendMessage frames on the same connection.
func Handler(reg *chat.Registry, ids identity.Provider, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tier, err := rank.ParseTier(r.URL.Query().Get("tier"))
		if err != nil {
			http.Error(w, "unknown tier", http.StatusBadRequest)
			return
		}
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}
		var fromID int64
		if raw := r.URL.Query().Get("from"); raw != "" {
			fromID, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || fromID < 0 {
				http.Error(w, "bad cursor", http.StatusBadRequest)
				return
			}
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan chat.Message, 32)
		clientID := uuid.NewString()

		backfill, err := reg.Subscribe(tier, clientID, fromID, out)
		if err != nil {
			return
		}
		defer reg.Unsubscribe(tier, clientID)

		logger.Info("feed subscribed",
			zap.String("tier", string(tier)),
			zap.String("user_id", userID),
			zap.Int64("from", fromID))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for _, m := range backfill {
				if !writeMessage(writeCtx, conn, types.ServerMessage{Type: "Message", Message: &m}) {
					return
				}
			}
			for m := range out {
				if !writeMessage(writeCtx, conn, types.ServerMessage{Type: "Message", Message: &m}) {
					return
				}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}
			if cm.Type != "SendMessage" {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			author, err := ids.Lookup(r.Context(), userID)
			if err != nil {
				writeError(r.Context(), conn, "unknown user")
				continue
			}
			// The accepted message comes back through the feed; only
			// rejections are answered directly.
			if _, err := reg.SendMessage(tier, author, cm.Text); err != nil {
				writeError(r.Context(), conn, sendErrText(err))
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) bool {
	payload, _ := json.Marshal(msg)
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := conn.Write(wctx, websocket.MessageText, payload)
	cancel()
	return err == nil
}

func writeError(ctx context.Context, conn *websocket.Conn, text string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: text})
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	_ = conn.Write(wctx, websocket.MessageText, payload)
	cancel()
}

func sendErrText(err error) string {
	switch {
	case errors.Is(err, chat.ErrNotPermitted):
		return "permission denied"
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty message"
	case errors.Is(err, chat.ErrMessageTooLong):
		return "message too long"
	default:
		return "send failed"
	}
}
