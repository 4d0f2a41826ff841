package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fyrsmithlabs/guidectl/internal/model"
)

// natsConn is the slice of *nats.Conn the sink depends on, narrowed so
// tests can substitute a fake without a live broker.
type natsConn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSSink publishes finalized RunEvents to a NATS subject. It is an
// additive, fire-and-forget EventSink: a publish failure is returned
// to the caller of FinalizeEvent but never blocks or retries, keeping
// the Ledger's hot path free of network waits.
type NATSSink struct {
	conn    natsConn
	subject string
}

// NewNATSSink connects to url and returns a sink publishing to subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: connecting to NATS at %s: %w", url, err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

// Publish marshals event as JSON and publishes it to the sink's subject.
func (s *NATSSink) Publish(event model.RunEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ledger: marshaling event for publish: %w", err)
	}
	return s.conn.Publish(s.subject, data)
}

// Close drains and closes the underlying NATS connection.
func (s *NATSSink) Close() {
	s.conn.Close()
}
