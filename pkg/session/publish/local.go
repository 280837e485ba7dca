package publish

import (
	"context"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/utils/broadcast"
)

type (
	// LocalPublisher fans snapshots out to in-process subscribers
	// through the generic broadcaster. Slow subscribers are skipped,
	// the ticker is never blocked by a stuck SSE connection.
	LocalPublisher struct {
		source chan *model.Snapshot
		server broadcast.BroadcastServer[*model.Snapshot]
		l      *log.Logger
	}
	LocalOption func(*LocalPublisher)
)

func WithLocalLogger(l *log.Logger) LocalOption {
	return func(p *LocalPublisher) {
		p.l = l
	}
}

// NewLocalPublisher starts the fan-out. scope labels the broadcaster
// metrics, typically the race id.
func NewLocalPublisher(scope string, opts ...LocalOption) *LocalPublisher {
	ret := &LocalPublisher{
		source: make(chan *model.Snapshot),
		l:      log.Default().Named("publish.local"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.server = broadcast.NewBroadcastServer(scope, "live.snapshots",
		ret.source, broadcast.WithLogger[*model.Snapshot](ret.l))
	return ret
}

func (p *LocalPublisher) PublishSnapshot(ctx context.Context, snap *model.Snapshot) error {
	select {
	case p.source <- snap:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe attaches one consumer. The channel closes when the
// subscription is cancelled or the publisher shuts down.
func (p *LocalPublisher) Subscribe() <-chan *model.Snapshot {
	return p.server.Subscribe()
}

func (p *LocalPublisher) CancelSubscription(ch <-chan *model.Snapshot) {
	p.server.CancelSubscription(ch)
}

func (p *LocalPublisher) Close() {
	p.server.Close()
}
