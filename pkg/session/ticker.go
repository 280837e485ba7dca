package session

import (
	"context"
	"sync"
	"time"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/session/publish"
)

// DefaultTickInterval is the lap advance period of live mode.
const DefaultTickInterval = 5 * time.Second

type (
	// SnapshotFunc recomputes the derived data for a selection.
	// processing.Processor.Recompute satisfies it.
	SnapshotFunc func(ctx context.Context, sel model.SelectionState) (*model.Snapshot, error)

	// Ticker simulates a live race: while running it advances the lap
	// filter by one per interval, capped at the max known lap, and
	// publishes a fresh snapshot. One goroutine, cancelled via context,
	// joined on Stop.
	Ticker struct {
		manager   *Manager
		snapshot  SnapshotFunc
		publisher publish.Publisher
		interval  time.Duration
		policy    LivePolicy
		l         *log.Logger

		mu      sync.Mutex
		cursor  int
		running bool
		cancel  context.CancelFunc
		wg      sync.WaitGroup
	}
	TickerOption func(*Ticker)
)

func WithInterval(d time.Duration) TickerOption {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithPolicy(p LivePolicy) TickerOption {
	return func(t *Ticker) {
		t.policy = p
	}
}

func WithTickerLogger(l *log.Logger) TickerOption {
	return func(t *Ticker) {
		t.l = l
	}
}

//nolint:whitespace // false positive
func NewTicker(
	manager *Manager,
	snapshot SnapshotFunc,
	publisher publish.Publisher,
	opts ...TickerOption,
) *Ticker {
	ret := &Ticker{
		manager:   manager,
		snapshot:  snapshot,
		publisher: publisher,
		interval:  DefaultTickInterval,
		policy:    TickOverrides,
		l:         log.Default().Named("session.ticker"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Start begins ticking from the currently selected lap. Starting a
// running ticker is a no-op.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.l.Debug("ticker already running")
		return
	}
	t.cursor = t.manager.Current().LapFilter
	ctx, t.cancel = context.WithCancel(ctx)
	t.running = true
	t.wg.Add(1)
	go t.run(ctx)
	t.l.Info("live mode started",
		log.Duration("interval", t.interval),
		log.String("policy", t.policy.String()),
		log.Int("lap", t.cursor))
}

// Stop cancels the tick goroutine and waits for it to finish. Stopping
// a stopped ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()
	t.l.Info("live mode stopped")
}

func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) run(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.l.Debug("context done, stopping ticks")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick advances the lap and publishes one snapshot. With TickOverrides
// the ticker's own cursor decides the next lap, so manual edits last
// only until the next tick; with ManualReseeds the current selection
// does, so manual edits reseed the progression.
func (t *Ticker) tick(ctx context.Context) {
	base := t.cursor
	if t.policy == ManualReseeds {
		base = t.manager.Current().LapFilter
	}

	sel, err := t.manager.SelectLap(ctx, base+1)
	if err != nil {
		t.l.Warn("tick could not advance lap", log.ErrorField(err))
		return
	}
	t.cursor = sel.LapFilter

	snap, err := t.snapshot(ctx, sel)
	if err != nil {
		t.l.Warn("tick could not recompute", log.ErrorField(err))
		return
	}
	if err := t.publisher.PublishSnapshot(ctx, snap); err != nil {
		t.l.Warn("tick could not publish", log.ErrorField(err))
		return
	}
	t.l.Debug("tick published",
		log.String("race", sel.RaceID),
		log.Int("lap", sel.LapFilter),
		log.String("snapshot", snap.ID))
}
