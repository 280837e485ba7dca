package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/model"
)

type (
	// NatsPublisher publishes snapshots as JSON to a per race subject.
	// Snapshots go through encoding/json so model.Metric serializes
	// undefined values as null.
	NatsPublisher struct {
		conn *nats.Conn
		l    *log.Logger
	}
	NatsOption func(*NatsPublisher)
)

func WithNatsLogger(l *log.Logger) NatsOption {
	return func(p *NatsPublisher) {
		p.l = l
	}
}

func NewNatsPublisher(conn *nats.Conn, opts ...NatsOption) *NatsPublisher {
	ret := &NatsPublisher{
		conn: conn,
		l:    log.Default().Named("publish.nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SubjectForRace returns the NATS subject snapshots of a race go to.
func SubjectForRace(raceID string) string {
	return fmt.Sprintf("raceiq.live.%s", raceID)
}

func (p *NatsPublisher) PublishSnapshot(_ context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	subject := SubjectForRace(snap.RaceID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	p.l.Debug("snapshot published",
		log.String("subject", subject),
		log.String("snapshot", snap.ID),
		log.Int("bytes", len(data)))
	return nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}
