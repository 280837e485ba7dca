package session

import "fmt"

// LivePolicy decides how live ticks and manual lap edits interact.
type LivePolicy int

const (
	// TickOverrides keeps the ticker on its own lap cursor: a manual
	// lap edit shows until the next tick, then the cursor wins again.
	TickOverrides LivePolicy = iota
	// ManualReseeds makes each tick continue from whatever lap is
	// currently selected, so a manual edit reseeds the progression.
	ManualReseeds
)

func (p LivePolicy) String() string {
	switch p {
	case TickOverrides:
		return "tick-overrides"
	case ManualReseeds:
		return "manual-reseeds"
	}
	return fmt.Sprintf("LivePolicy(%d)", int(p))
}

// ParseLivePolicy converts the flag value to a policy. The empty
// string yields the default.
func ParseLivePolicy(s string) (LivePolicy, error) {
	switch s {
	case "", "tick-overrides":
		return TickOverrides, nil
	case "manual-reseeds":
		return ManualReseeds, nil
	}
	return TickOverrides, fmt.Errorf("unknown live policy %q", s)
}
