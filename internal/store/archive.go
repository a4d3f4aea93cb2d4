package store

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/scrimlol/scrim-backend/internal/chat"
)

// ArchivedMessage is the persisted shape of a chat message. The core stays
// the source of truth for the live log; this table is write-behind history.
type ArchivedMessage struct {
	ID             uint   `gorm:"primaryKey"`
	MessageID      int64  `gorm:"index:idx_room_message,priority:2"`
	RoomTier       string `gorm:"index:idx_room_message,priority:1"`
	AuthorID       string
	AuthorName     string
	AuthorRank     string
	AuthorVerified bool
	Text           string
	Type           string
	SentAt         time.Time
}

// Archive drains accepted messages into postgres on a background worker.
// Enqueueing never blocks the room actor: when the buffer is full the
// message is dropped from the archive (the in-memory log keeps it).
type Archive struct {
	db     *gorm.DB
	queue  chan chat.Message
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger
}

func NewArchive(dsn string, logger *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ArchivedMessage{}); err != nil {
		return nil, err
	}
	a := &Archive{
		db:     db,
		queue:  make(chan chat.Message, 256),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.drain()
	return a, nil
}

// Archive enqueues for the background worker. The queue channel is never
// closed, so a room actor still draining its inbox during shutdown may call
// this after Close without panicking; such stragglers are simply dropped.
func (a *Archive) Archive(m chat.Message) {
	select {
	case <-a.stop:
		return
	default:
	}
	select {
	case a.queue <- m:
	default:
		a.logger.Warn("archive queue full, message not persisted",
			zap.String("tier", string(m.RoomTier)),
			zap.Int64("message_id", m.ID))
	}
}

func (a *Archive) drain() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			// Flush whatever is already buffered, then exit.
			for {
				select {
				case m := <-a.queue:
					a.insert(m)
				default:
					return
				}
			}
		case m := <-a.queue:
			a.insert(m)
		}
	}
}

func (a *Archive) insert(m chat.Message) {
	row := ArchivedMessage{
		MessageID:      m.ID,
		RoomTier:       string(m.RoomTier),
		AuthorID:       m.AuthorID,
		AuthorName:     m.AuthorName,
		AuthorRank:     string(m.AuthorRank),
		AuthorVerified: m.AuthorVerified,
		Text:           m.Text,
		Type:           string(m.Type),
		SentAt:         m.SentAt,
	}
	if err := a.db.Create(&row).Error; err != nil {
		a.logger.Error("archive insert failed", zap.Error(err))
	}
}

// Close flushes the buffered queue and stops the worker.
func (a *Archive) Close() {
	close(a.stop)
	<-a.done
}
