// Package events streams counter advances to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Event is published once per request number handed out.
type Event struct {
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes Events to a Kafka topic without blocking the caller.
type Publisher struct {
	w      messageWriter
	logger *log.Logger
	now    func() time.Time
}

// NewPublisher configures an async writer for topic on brokers. Delivery
// failures are logged, never returned.
func NewPublisher(brokers []string, topic string, logger *log.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.WithFields(log.Fields{"topic": topic, "messages": len(msgs), "err": err}).
					Error("failed to deliver counter events")
			}
		},
	}
	return &Publisher{w: w, logger: logger, now: time.Now}
}

// Notify publishes the request number seq.
func (p *Publisher) Notify(ctx context.Context, seq int64) {
	msg, err := encode(Event{Sequence: seq, Timestamp: p.now()})
	if err != nil {
		p.logger.WithFields(log.Fields{"sequence": seq, "err": err}).Error("encoding counter event")
		return
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.WithFields(log.Fields{"sequence": seq, "err": err}).Warn("queueing counter event")
	}
}

// Close flushes pending events and releases the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func encode(e Event) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(e.Sequence, 10)),
		Value: b,
		Time:  e.Timestamp,
	}, nil
}
