package types

import "github.com/scrimlol/scrim-backend/internal/chat"

// ClientMessage is what a websocket client may send after subscribing.
type ClientMessage struct {
	Type string `json:"type"` // "SendMessage"
	Text string `json:"text,omitempty"`
}

// ServerMessage frames everything the feed pushes to a client.
type ServerMessage struct {
	Type    string        `json:"type"` // "Message" | "Error"
	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}
