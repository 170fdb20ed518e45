package position

import (
	"fmt"
	"time"
)

// Mode is the direction of the single open position.
//
// LongQuote means the last completed trade converted base into quote
// ("sold strength" above the band, expecting the mid to keep rising
// before reverting). LongBase is the symmetric opposite.
type Mode int

const (
	ModeNone Mode = iota
	ModeLongBase
	ModeLongQuote
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeLongBase:
		return "LONG_BASE"
	case ModeLongQuote:
		return "LONG_QUOTE"
	default:
		return "UNKNOWN"
	}
}

// State tracks at most one open directional position, its entry price
// and the favorable/adverse extremes reached while it was open. All
// mutation happens on the single decision loop; no locking here.
type State struct {
	mode     Mode
	entry    float64
	peak     float64
	trough   float64
	openedAt time.Time
}

// Snapshot is the persistable form of a State. An open cycle keeps its
// stop-loss protection across a process restart through this.
type Snapshot struct {
	Mode     string    `json:"mode"`
	Entry    float64   `json:"entry_price"`
	Peak     float64   `json:"peak_price"`
	Trough   float64   `json:"trough_price"`
	OpenedAt time.Time `json:"opened_at"`
}

// NewState returns an empty (NONE) position.
func NewState() *State {
	return &State{}
}

// Mode returns the current position direction.
func (s *State) Mode() Mode {
	return s.mode
}

// Entry returns the entry price, zero when no position is open.
func (s *State) Entry() float64 {
	return s.entry
}

// OpenedAt returns when the current cycle opened.
func (s *State) OpenedAt() time.Time {
	return s.openedAt
}

// Open starts a new cycle. The single-position policy makes an open on
// top of an existing position an invariant violation, not a merge.
func (s *State) Open(mode Mode, price float64, now time.Time) error {
	if mode == ModeNone {
		return fmt.Errorf("cannot open position with mode NONE")
	}
	if s.mode != ModeNone {
		return fmt.Errorf("position already open (%s), refusing to open %s", s.mode, mode)
	}
	s.mode = mode
	s.entry = price
	s.peak = price
	s.trough = price
	s.openedAt = now
	return nil
}

// Update advances the excursion extremes. Idempotent; called every tick
// regardless of the decision outcome so trailing stops see every print.
func (s *State) Update(price float64) {
	if s.mode == ModeNone {
		return
	}
	if price > s.peak {
		s.peak = price
	}
	if price < s.trough {
		s.trough = price
	}
}

// Close ends the cycle and resets all excursion state.
func (s *State) Close() {
	s.mode = ModeNone
	s.entry = 0
	s.peak = 0
	s.trough = 0
	s.openedAt = time.Time{}
}

// FavorableMoveBps is the signed distance from entry, in basis points of
// the entry price, in the direction that profits the current mode:
// upward for LONG_QUOTE, downward for LONG_BASE. Zero when NONE.
func (s *State) FavorableMoveBps(price float64) float64 {
	if s.mode == ModeNone || s.entry == 0 {
		return 0
	}
	move := (price - s.entry) / s.entry * 10000
	if s.mode == ModeLongBase {
		move = -move
	}
	return move
}

// TrailingDrawdownBps is the giveback since the best point reached during
// the position: retracement from peak for LONG_QUOTE, rise from trough
// for LONG_BASE. Never negative.
func (s *State) TrailingDrawdownBps(price float64) float64 {
	if s.mode == ModeNone {
		return 0
	}
	var dd float64
	switch s.mode {
	case ModeLongQuote:
		if s.peak > 0 {
			dd = (s.peak - price) / s.peak * 10000
		}
	case ModeLongBase:
		if s.trough > 0 {
			dd = (price - s.trough) / s.trough * 10000
		}
	}
	if dd < 0 {
		return 0
	}
	return dd
}

// HardStopBps is the adverse distance from entry, in basis points of the
// entry price, independent of how favorable the move ever got. Never
// negative; zero when the position is in profit or NONE.
func (s *State) HardStopBps(price float64) float64 {
	if s.mode == ModeNone || s.entry == 0 {
		return 0
	}
	adverse := -s.FavorableMoveBps(price)
	if adverse < 0 {
		return 0
	}
	return adverse
}

// Snapshot captures the state for persistence.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Mode:     s.mode.String(),
		Entry:    s.entry,
		Peak:     s.peak,
		Trough:   s.trough,
		OpenedAt: s.openedAt,
	}
}

// Restore loads a persisted snapshot. Unknown modes and non-positive
// entries are treated as no position.
func (s *State) Restore(snap Snapshot) {
	mode := ModeNone
	switch snap.Mode {
	case "LONG_BASE":
		mode = ModeLongBase
	case "LONG_QUOTE":
		mode = ModeLongQuote
	}
	if mode == ModeNone || snap.Entry <= 0 {
		s.Close()
		return
	}
	s.mode = mode
	s.entry = snap.Entry
	s.peak = snap.Peak
	s.trough = snap.Trough
	s.openedAt = snap.OpenedAt
	if s.peak < s.entry {
		s.peak = s.entry
	}
	if s.trough <= 0 || s.trough > s.entry {
		s.trough = s.entry
	}
}
