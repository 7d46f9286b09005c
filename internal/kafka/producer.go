// Package kafka publishes reservation lifecycle events.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
)

const TopicLifecycle = "reservation-lifecycle"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers events and writes them from one goroutine. Publish never
// blocks the caller; when the buffer is full the event is dropped and logged.
type Producer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
	once    sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	if topic == "" {
		topic = TopicLifecycle
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newProducer(w, buf)
}

func newProducer(w messageWriter, buf int) *Producer {
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				logger.Error("Failed to publish lifecycle event", "key", string(m.Key), "error", err)
			}
		}
		if err := p.w.Close(); err != nil {
			logger.Error("Failed to close kafka writer", "error", err)
		}
	}()
}

func (p *Producer) Publish(ctx context.Context, ev domain.LifecycleEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Failed to encode lifecycle event", "type", ev.Type, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(int(ev.ReservationID))),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	select {
	case p.inbox <- msg:
	default:
		logger.WarnContext(ctx, "Lifecycle event buffer full, dropping event", "type", ev.Type, "reservationID", ev.ReservationID)
	}
}

// Close stops accepting events and flushes what is buffered.
func (p *Producer) Close() {
	p.once.Do(func() { close(p.inbox) })
}

func (p *Producer) WaitClosed() { <-p.closeCh }

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev domain.LifecycleEvent) {
	logger.Debug("Lifecycle event not published, no brokers configured", "type", ev.Type, "reservationID", ev.ReservationID)
}
