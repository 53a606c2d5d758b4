// Package events publishes asset lifecycle notifications to Kafka. Publishing
// is strictly best-effort and asynchronous: the ingestion pipeline itself is
// synchronous and never waits on, or fails because of, the broker.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"snapboard/internal/models"
)

const (
	EventImageCreated = "image.created"
	EventImageDeleted = "image.deleted"
)

type Event struct {
	Type           string    `json:"type"`
	ImageID        uuid.UUID `json:"imageId"`
	StoredFilename string    `json:"storedFilename"`
	UserID         uuid.UUID `json:"userId"`
	At             time.Time `json:"at"`
}

// Publisher wraps a kafka writer. A nil Publisher (no broker configured) is
// valid and drops every event.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(broker, topic string) *Publisher {
	if broker == "" {
		return nil
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   topic,
		Async:   true, // fire-and-forget; delivery errors are logged below
	})
	w.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			slog.Warn("lifecycle event delivery failed", "error", err, "count", len(messages))
		}
	}
	return &Publisher{writer: w}
}

func (p *Publisher) ImageCreated(img *models.Image) {
	p.publish(Event{
		Type:           EventImageCreated,
		ImageID:        img.ID,
		StoredFilename: img.StoredFilename,
		UserID:         img.UserID,
		At:             time.Now(),
	})
}

func (p *Publisher) ImageDeleted(img *models.Image) {
	p.publish(Event{
		Type:           EventImageDeleted,
		ImageID:        img.ID,
		StoredFilename: img.StoredFilename,
		UserID:         img.UserID,
		At:             time.Now(),
	})
}

func (p *Publisher) publish(ev Event) {
	if p == nil {
		return
	}
	value, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal lifecycle event failed", "error", err)
		return
	}
	// With Async set WriteMessages only enqueues; it cannot block a request.
	if err := p.writer.WriteMessages(context.Background(), kafka.Message{Value: value}); err != nil {
		slog.Warn("enqueue lifecycle event failed", "type", ev.Type, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.writer.Close(); err != nil {
		slog.Warn("closing event writer failed", "error", err)
	}
}
