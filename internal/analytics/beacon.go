// Package analytics ships storefront events to Kafka. Tracking never blocks
// and never fails the caller: events are queued, flushed in batches by Run,
// and dropped when the queue is full or the write fails.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is one analytics record.
type Event struct {
	Name       string         `json:"event"`
	SessionID  string         `json:"session_id"`
	Properties map[string]any `json:"properties,omitempty"`
	At         time.Time      `json:"at"`
}

// Tracker is what flows call to record an event.
type Tracker interface {
	Track(ctx context.Context, sessionID, name string, props map[string]any)
}

// Writer is the part of *kafka.Writer the beacon uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Beacon struct {
	writer    Writer
	log       *slog.Logger
	queue     chan Event
	flushTick time.Duration
	batchSize int
	now       func() time.Time
}

func NewBeacon(w Writer, log *slog.Logger) *Beacon {
	return &Beacon{
		writer:    w,
		log:       log,
		queue:     make(chan Event, 1024),
		flushTick: time.Second,
		batchSize: 100,
		now:       time.Now,
	}
}

func NewKafkaBeacon(topic string, log *slog.Logger, brokers ...string) *Beacon {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return NewBeacon(w, log)
}

// Track enqueues an event. It drops the event rather than wait.
func (b *Beacon) Track(ctx context.Context, sessionID, name string, props map[string]any) {
	ev := Event{Name: name, SessionID: sessionID, Properties: props, At: b.now().UTC()}
	select {
	case b.queue <- ev:
	default:
		b.log.DebugContext(ctx, "analytics queue full, event dropped", "event", name)
	}
}

// Run flushes queued events until ctx ends, then flushes what is left and
// closes the writer.
func (b *Beacon) Run(ctx context.Context) {
	ticker := time.NewTicker(b.flushTick)
	defer ticker.Stop()
	batch := make([]Event, 0, b.batchSize)
	for {
		select {
		case ev := <-b.queue:
			batch = append(batch, ev)
			if len(batch) >= b.batchSize {
				batch = b.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = b.flush(ctx, batch)
		case <-ctx.Done():
			b.drain(batch)
			return
		}
	}
}

func (b *Beacon) drain(batch []Event) {
	for {
		select {
		case ev := <-b.queue:
			batch = append(batch, ev)
		default:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			b.flush(ctx, batch)
			cancel()
			if err := b.writer.Close(); err != nil {
				b.log.Warn("close analytics writer failed", "error", err)
			}
			return
		}
	}
}

func (b *Beacon) flush(ctx context.Context, batch []Event) []Event {
	if len(batch) == 0 {
		return batch
	}
	msgs := make([]kafka.Message, 0, len(batch))
	for _, ev := range batch {
		payload, err := json.Marshal(ev)
		if err != nil {
			b.log.Warn("marshal analytics event failed", "event", ev.Name, "error", err)
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.SessionID),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.Name)},
			},
		})
	}
	if err := b.writer.WriteMessages(ctx, msgs...); err != nil {
		b.log.Warn("publish analytics events failed", "count", len(msgs), "error", err)
	}
	return batch[:0]
}

// Noop discards every event.
type Noop struct{}

func (Noop) Track(context.Context, string, string, map[string]any) {}
