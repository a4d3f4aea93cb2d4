package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/coordinator"
	"github.com/scrimlol/scrim-backend/internal/identity"
	"github.com/scrimlol/scrim-backend/internal/ws"
)

func SetupRoutes(reg *chat.Registry, coord *coordinator.Coordinator, ids *identity.Static, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Put("/users/{userID}", PutProfile(ids))

	r.Route("/chat", func(r chi.Router) {
		r.Get("/rooms", ListChatRooms(reg))
		r.Get("/{tier}/messages", ListMessages(reg))
		r.Post("/{tier}/messages", SendMessage(reg, ids))
		r.Post("/{tier}/announcements", Announce(reg))
	})

	r.Get("/ws", ws.Handler(reg, ids, logger))

	r.Route("/match", func(r chi.Router) {
		r.Post("/queue", EnterQueue(coord, ids))
		r.Delete("/queue", LeaveQueue(coord, ids))
		r.Get("/rooms", ListRooms(coord))
		r.Post("/rooms", CreateRoom(coord))
		r.Get("/rooms/{roomID}", GetRoom(coord))
		r.Post("/rooms/{roomID}/slots/{role}", JoinSlot(coord, ids))
		r.Post("/rooms/{roomID}/waiting", JoinWaiting(coord, ids))
		r.Delete("/rooms/{roomID}/waiting", LeaveWaiting(coord, ids))
		r.Delete("/placement", LeavePlacement(coord, ids))
	})

	return r
}
