// Package publish fans live snapshots out to consumers: in-process
// subscribers (the SSE handlers) and optionally a NATS subject per
// race for external dashboards.
package publish

import (
	"context"
	"errors"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

// Publisher delivers one snapshot per live tick. Implementations must
// tolerate publishes with no consumers attached.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *model.Snapshot) error
	Close()
}

// Multi forwards every snapshot to all publishers. Errors are joined,
// a failing sink never stops the others.
type Multi struct {
	pubs []Publisher
}

func NewMulti(pubs ...Publisher) *Multi {
	return &Multi{pubs: pubs}
}

func (m *Multi) PublishSnapshot(ctx context.Context, snap *model.Snapshot) error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.PublishSnapshot(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() {
	for _, p := range m.pubs {
		p.Close()
	}
}
