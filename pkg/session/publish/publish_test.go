//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

func TestLocalPublisher_fanOut(t *testing.T) {
	p := NewLocalPublisher("race1")
	defer p.Close()

	first := p.Subscribe()
	second := p.Subscribe()

	snap := &model.Snapshot{ID: "snap-1", RaceID: "race1"}
	go func() {
		_ = p.PublishSnapshot(context.Background(), snap)
	}()

	for _, ch := range []<-chan *model.Snapshot{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "snap-1", got.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestLocalPublisher_publishHonorsContext(t *testing.T) {
	p := NewLocalPublisher("race1")
	sub := p.Subscribe()
	p.Close()

	// the fan-out is down once the listener closes
	select {
	case _, ok := <-sub:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not shut down")
	}

	// with the server gone nothing drains source; the context bounds
	// the publish
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.PublishSnapshot(ctx, &model.Snapshot{ID: "snap-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubjectForRace(t *testing.T) {
	assert.Equal(t, "raceiq.live.race1", SubjectForRace("race1"))
}

type stubPublisher struct {
	published []*model.Snapshot
	err       error
	closed    bool
}

func (s *stubPublisher) PublishSnapshot(_ context.Context, snap *model.Snapshot) error {
	s.published = append(s.published, snap)
	return s.err
}

func (s *stubPublisher) Close() { s.closed = true }

func TestMulti_publishesToAllSinks(t *testing.T) {
	ok := &stubPublisher{}
	failing := &stubPublisher{err: errors.New("broker gone")}
	m := NewMulti(failing, ok)

	err := m.PublishSnapshot(context.Background(), &model.Snapshot{ID: "snap-1"})

	require.Error(t, err)
	// the failing sink does not stop the healthy one
	assert.Len(t, ok.published, 1)
	assert.Len(t, failing.published, 1)

	m.Close()
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}
