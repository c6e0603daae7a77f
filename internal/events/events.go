// Package events publishes vote notifications over NATS so other processes
// can recheck the affected record.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/safeprotest/factcheck/internal/model"
)

// handlerTimeout bounds one message handler run
const handlerTimeout = 30 * time.Second

// VoteRecorded is published after a vote is stored
type VoteRecorded struct {
	RecordID  string          `json:"record_id"`
	VoterID   string          `json:"voter_id"`
	Vote      model.VoteValue `json:"vote"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher announces recorded votes
type Publisher interface {
	PublishVote(ctx context.Context, ev VoteRecorded) error
}

// Nop discards events
type Nop struct{}

// PublishVote does nothing
func (Nop) PublishVote(ctx context.Context, ev VoteRecorded) error {
	return nil
}

// Connect dials NATS with reconnects enabled
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON events on a subject
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher creates a publisher on an open connection
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// PublishVote publishes ev. NATS Publish does not take a context, so
// cancellation is only checked up front.
func (p *NATSPublisher) PublishVote(ctx context.Context, ev VoteRecorded) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish vote event: %w", err)
	}
	return nil
}

// Encode marshals an event
func Encode(ev VoteRecorded) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal vote event: %w", err)
	}
	return data, nil
}

// Decode unmarshals and validates an event
func Decode(data []byte) (VoteRecorded, error) {
	var ev VoteRecorded
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal vote event: %w", err)
	}
	if ev.RecordID == "" {
		return ev, errors.New("vote event without record id")
	}
	return ev, nil
}

// Handler processes one vote event
type Handler func(ctx context.Context, ev VoteRecorded) error

// Subscribe delivers vote events to h. With a non-empty queue, each event is
// handled by one member of the queue group.
func Subscribe(nc *nats.Conn, subject, queue string, h Handler, logger *slog.Logger) (*nats.Subscription, error) {
	cb := func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		Dispatch(ctx, msg.Data, h, logger)
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = nc.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = nc.Subscribe(subject, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	return sub, nil
}

// Dispatch decodes one message and runs h, logging failures. It reports
// whether the handler ran successfully.
func Dispatch(ctx context.Context, data []byte, h Handler, logger *slog.Logger) bool {
	ev, err := Decode(data)
	if err != nil {
		logger.Warn("dropping malformed vote event", "error", err)
		return false
	}
	if err := h(ctx, ev); err != nil {
		logger.Error("vote event handler failed", "record_id", ev.RecordID, "error", err)
		return false
	}
	return true
}
