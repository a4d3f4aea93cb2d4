package store

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/scrimlol/scrim-backend/internal/chat"
	"github.com/scrimlol/scrim-backend/internal/rank"
)

// newIdleArchive builds an archive without a database connection. The drain
// worker only touches the db when a message reaches it, so shutdown-path
// tests can run against an empty queue.
func newIdleArchive() *Archive {
	a := &Archive{
		queue:  make(chan chat.Message, 4),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: zap.NewNop(),
	}
	go a.drain()
	return a
}

func TestArchiveAfterCloseIsDropped(t *testing.T) {
	a := newIdleArchive()
	a.Close()

	// A room actor finishing its inbox during shutdown may still archive;
	// the late message must be dropped, never panic.
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Archive(chat.Message{ID: 1, RoomTier: rank.Gold, Text: "late", SentAt: time.Now()})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Archive blocked after Close")
	}

	select {
	case m := <-a.queue:
		t.Fatalf("late message was enqueued: %+v", m)
	default:
	}
}

func TestCloseStopsWorker(t *testing.T) {
	a := newIdleArchive()
	a.Close()

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain worker did not exit")
	}
}
