// Package session owns the selection state: which race, vehicle and
// lap the consumer is looking at, and whether simulated live mode is
// running. All transitions go through the Manager; the Ticker drives
// the lap forward while live mode is on.
package session

import (
	"context"
	"sync"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/model"
)

type (
	// MaxLapFunc resolves the highest selectable lap for a race and
	// vehicle filter. It doubles as the race validation: an unknown
	// race surfaces its error here. The dataset cache provides this in
	// production.
	MaxLapFunc func(ctx context.Context, raceID, vehicle string) (int, error)

	// Manager guards the SelectionState. HTTP handlers and the live
	// ticker mutate it concurrently; reads return a copy, writes are
	// last writer wins.
	Manager struct {
		mu       sync.Mutex
		sel      model.SelectionState
		startLap int
		maxLap   MaxLapFunc
		l        *log.Logger
	}
	ManagerOption func(*Manager)
)

// WithStartLap sets the lap a race selection resets to.
func WithStartLap(lap int) ManagerOption {
	return func(m *Manager) {
		if lap >= 1 {
			m.startLap = lap
		}
	}
}

// WithInitialRace seeds the selection so the server starts usable
// without a prior PUT.
func WithInitialRace(raceID string) ManagerOption {
	return func(m *Manager) {
		m.sel.RaceID = raceID
	}
}

func WithManagerLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) {
		m.l = l
	}
}

func NewManager(maxLap MaxLapFunc, opts ...ManagerOption) *Manager {
	ret := &Manager{
		maxLap:   maxLap,
		startLap: 1,
		l:        log.Default().Named("session"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.sel.VehicleFilter = model.AllVehicles
	ret.sel.LapFilter = ret.startLap
	return ret
}

// Current returns a snapshot of the selection.
func (m *Manager) Current() model.SelectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sel
}

// SelectRace switches the race and resets the dependent filters:
// vehicle back to all vehicles, lap back to the start lap. The race is
// validated through the MaxLapFunc, so an unknown id never lands in
// the state.
func (m *Manager) SelectRace(ctx context.Context, raceID string) (model.SelectionState, error) {
	if _, err := m.maxLap(ctx, raceID, model.AllVehicles); err != nil {
		return m.Current(), err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel.RaceID = raceID
	m.sel.VehicleFilter = model.AllVehicles
	m.sel.LapFilter = m.startLap
	m.l.Info("race selected", log.String("race", raceID))
	return m.sel, nil
}

// SelectVehicle narrows (or with AllVehicles widens) the vehicle
// filter. The lap filter stays put; an unknown vehicle simply yields
// empty derived views, vehicles are never validated away.
func (m *Manager) SelectVehicle(vehicle string) model.SelectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel.VehicleFilter = vehicle
	return m.sel
}

// SelectLap moves the lap filter, clamped to [1, max known lap] of the
// current race and vehicle filter.
func (m *Manager) SelectLap(ctx context.Context, lap int) (model.SelectionState, error) {
	cur := m.Current()
	maxLap, err := m.maxLap(ctx, cur.RaceID, cur.VehicleFilter)
	if err != nil {
		return cur, err
	}
	if lap < 1 {
		lap = 1
	}
	if maxLap > 0 && lap > maxLap {
		lap = maxLap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel.LapFilter = lap
	return m.sel, nil
}

// SetLive flips the live flag. The ticker lifecycle is driven by the
// caller; the flag only reports the mode to consumers.
func (m *Manager) SetLive(on bool) model.SelectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sel.LiveEnabled = on
	return m.sel
}

// Apply performs a combined update: a race change first (with its
// resets), then the vehicle filter, then the lap. A zero lap means
// "leave the lap alone". The live flag is not touched here, the
// live start/stop transitions own it.
func (m *Manager) Apply(ctx context.Context, next model.SelectionState) (model.SelectionState, error) {
	cur := m.Current()
	if next.RaceID != "" && next.RaceID != cur.RaceID {
		if _, err := m.SelectRace(ctx, next.RaceID); err != nil {
			return cur, err
		}
	}
	m.SelectVehicle(next.VehicleFilter)
	if next.LapFilter != 0 {
		return m.SelectLap(ctx, next.LapFilter)
	}
	return m.Current(), nil
}
