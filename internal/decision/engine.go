package decision

import (
	"fmt"
	"time"

	"github.com/haidang-fin/dex-band-bot/internal/band"
	"github.com/haidang-fin/dex-band-bot/internal/position"
)

// Action is the qualitative outcome of one tick.
//
// ActionSellBase trades base for quote when the mid is rich (sell
// strength, opening LONG_QUOTE); ActionSellQuote trades quote for base
// when the mid is cheap (buy weakness, opening LONG_BASE). Each is also
// the closing trade of the opposite cycle.
type Action int

const (
	ActionHold Action = iota
	ActionSellBase
	ActionSellQuote
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionSellBase:
		return "SELL_BASE"
	case ActionSellQuote:
		return "SELL_QUOTE"
	default:
		return "UNKNOWN"
	}
}

// Stop reasons recorded on forced closes.
const (
	StopReasonTrailing = "trailing_stop"
	StopReasonHard     = "hard_stop"
)

// Config holds the strategy parameters the engine evaluates each tick.
type Config struct {
	BandBps float64 // band half-width, basis points of the center
	EdgeBps float64 // extra margin beyond the band before acting

	Cooldown      time.Duration // minimum gap after any fill
	DecisionEvery time.Duration // cadence bucket size, 0 disables

	ProfitFilterEnabled bool
	MinCyclePnlBps      float64
	RoundTripFeeBps     float64

	TrailStopBps float64 // 0 disables
	HardStopBps  float64 // 0 disables
}

// Validate enforces the configuration-error class of spec §7 at startup.
func (c Config) Validate() error {
	if c.BandBps < 0 {
		return fmt.Errorf("band bps must be >= 0, got %v", c.BandBps)
	}
	if c.EdgeBps < 0 {
		return fmt.Errorf("edge bps must be >= 0, got %v", c.EdgeBps)
	}
	if c.Cooldown < 0 || c.DecisionEvery < 0 {
		return fmt.Errorf("cooldown and decision cadence must be >= 0")
	}
	if c.TrailStopBps < 0 || c.HardStopBps < 0 {
		return fmt.Errorf("stop thresholds must be >= 0")
	}
	return nil
}

// Outcome is the fully-qualified result of one tick: the action, why it
// was (or was not) taken, and the band snapshot for logging.
type Outcome struct {
	Action    Action
	Reason    string
	ExcessBps float64 // bps beyond the breached bound, 0 for HOLD

	Forced     bool   // stop override; pre-empts cooldown and profit filter
	StopReason string // set when Forced

	ClosesCycle bool // the action closes the open position

	Center float64
	Lower  float64
	Upper  float64
}

// Engine combines the band tracker, position state and the cooldown and
// cadence clocks into the per-tick state machine of the strategy. One
// engine owns one pair; all state is confined to the caller's loop.
type Engine struct {
	cfg     Config
	tracker *band.Tracker
	pos     *position.State

	lastFillAt time.Time
	hasFill    bool

	lastBucket int64
	hasBucket  bool
}

// NewEngine wires a validated config to its band and position state.
func NewEngine(cfg Config, tracker *band.Tracker, pos *position.State) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tracker == nil || pos == nil {
		return nil, fmt.Errorf("tracker and position state are required")
	}
	return &Engine{cfg: cfg, tracker: tracker, pos: pos}, nil
}

// Position exposes the engine's position state for logging and persistence.
func (e *Engine) Position() *position.State {
	return e.pos
}

// Tracker exposes the engine's band tracker for persistence.
func (e *Engine) Tracker() *band.Tracker {
	return e.tracker
}

// RestoreLastFill seeds the cooldown clock from persisted state so a
// restart does not grant a free trade inside the cooldown window.
func (e *Engine) RestoreLastFill(t time.Time) {
	if t.IsZero() {
		return
	}
	e.lastFillAt = t
	e.hasFill = true
}

// LastFillAt returns the time of the most recent fill and whether one occurred.
func (e *Engine) LastFillAt() (time.Time, bool) {
	return e.lastFillAt, e.hasFill
}

// Tick runs one pass of the decision algorithm against a mid price.
// The EMA center and trailing extremes are always advanced, including on
// ticks that the cadence gate or any later gate downgrades to HOLD.
func (e *Engine) Tick(now time.Time, mid float64) Outcome {
	center := e.tracker.Update(mid, now)
	e.pos.Update(mid)

	bounds := band.BoundsFor(center, e.cfg.BandBps)
	out := Outcome{
		Action: ActionHold,
		Center: center,
		Lower:  bounds.Lower,
		Upper:  bounds.Upper,
	}

	// Raw band signal with the edge threshold. The edge margin keeps the
	// engine from chattering when the mid sits exactly on a bound.
	overUpper := band.Bps(bounds.Upper, mid)
	underLower := band.Bps(mid, bounds.Lower)
	planned := ActionHold
	excess := 0.0
	switch {
	case mid > bounds.Upper && overUpper >= e.cfg.EdgeBps:
		planned = ActionSellBase
		excess = overUpper
	case mid < bounds.Lower && underLower >= e.cfg.EdgeBps:
		planned = ActionSellQuote
		excess = underLower
	}

	// Cadence gate: only the first tick of each fixed-size bucket
	// evaluates further. Extremes above are already updated.
	if e.cfg.DecisionEvery > 0 {
		bucket := now.UnixMilli() / e.cfg.DecisionEvery.Milliseconds()
		if e.hasBucket && bucket == e.lastBucket {
			out.Reason = "cadence window not elapsed"
			return out
		}
		e.lastBucket = bucket
		e.hasBucket = true
	}

	// Forced close strictly precedes every remaining gate so stops are
	// never suppressed by the cooldown or the profit filter.
	if forced, stopReason := e.stopBreached(mid); forced {
		out.Action = e.closingAction()
		out.Forced = true
		out.StopReason = stopReason
		out.ClosesCycle = true
		out.ExcessBps = excess
		out.Reason = fmt.Sprintf("%s breached, forcing close of %s", stopReason, e.pos.Mode())
		return out
	}

	if planned == ActionHold {
		out.Reason = "mid inside band"
		return out
	}

	// Single-position policy: never average into the open side.
	if e.opensSameSide(planned) {
		out.Reason = fmt.Sprintf("%s already open, not adding", e.pos.Mode())
		return out
	}

	// Cooldown since the last fill.
	if e.hasFill && now.Sub(e.lastFillAt) < e.cfg.Cooldown {
		out.Reason = fmt.Sprintf("cooldown active (%.0fs remaining)",
			(e.cfg.Cooldown - now.Sub(e.lastFillAt)).Seconds())
		return out
	}

	closes := e.closesOpenCycle(planned)

	// Cycle profit filter on ordinary closes. A forced close never gets
	// here; it returned above.
	if closes && e.cfg.ProfitFilterEnabled {
		need := e.cfg.MinCyclePnlBps + e.cfg.RoundTripFeeBps
		got := e.pos.FavorableMoveBps(mid)
		if got < need {
			out.Reason = fmt.Sprintf("cycle pnl %.1f bps below filter %.1f bps", got, need)
			return out
		}
	}

	out.Action = planned
	out.ExcessBps = excess
	out.ClosesCycle = closes
	if planned == ActionSellBase {
		out.Reason = fmt.Sprintf("mid %.1f bps above upper band", excess)
	} else {
		out.Reason = fmt.Sprintf("mid %.1f bps below lower band", excess)
	}
	return out
}

// RecordFill advances position state and the cooldown clock after an
// executed trade. The caller reports the actual fill, so simulated and
// live drivers share the same transition rules.
func (e *Engine) RecordFill(action Action, price float64, now time.Time) error {
	switch action {
	case ActionSellBase:
		if e.pos.Mode() == position.ModeLongBase {
			e.pos.Close()
		} else if e.pos.Mode() == position.ModeNone {
			if err := e.pos.Open(position.ModeLongQuote, price, now); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("sell-base fill while %s open violates single-position policy", e.pos.Mode())
		}
	case ActionSellQuote:
		if e.pos.Mode() == position.ModeLongQuote {
			e.pos.Close()
		} else if e.pos.Mode() == position.ModeNone {
			if err := e.pos.Open(position.ModeLongBase, price, now); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("sell-quote fill while %s open violates single-position policy", e.pos.Mode())
		}
	default:
		return fmt.Errorf("cannot record fill for action %s", action)
	}
	e.lastFillAt = now
	e.hasFill = true
	return nil
}

// stopBreached checks the trailing and hard stop thresholds against the
// open position. Hard stop wins when both trip on the same tick.
func (e *Engine) stopBreached(mid float64) (bool, string) {
	if e.pos.Mode() == position.ModeNone {
		return false, ""
	}
	if e.cfg.HardStopBps > 0 && e.pos.HardStopBps(mid) >= e.cfg.HardStopBps {
		return true, StopReasonHard
	}
	if e.cfg.TrailStopBps > 0 && e.pos.TrailingDrawdownBps(mid) >= e.cfg.TrailStopBps {
		return true, StopReasonTrailing
	}
	return false, ""
}

// closingAction is the trade direction that closes the open position.
func (e *Engine) closingAction() Action {
	switch e.pos.Mode() {
	case position.ModeLongQuote:
		return ActionSellQuote
	case position.ModeLongBase:
		return ActionSellBase
	default:
		return ActionHold
	}
}

// opensSameSide reports whether the planned trade would add to the
// currently open directional bet.
func (e *Engine) opensSameSide(planned Action) bool {
	switch e.pos.Mode() {
	case position.ModeLongQuote:
		return planned == ActionSellBase
	case position.ModeLongBase:
		return planned == ActionSellQuote
	default:
		return false
	}
}

// closesOpenCycle reports whether the planned trade is the opposing-side
// trade of the open position.
func (e *Engine) closesOpenCycle(planned Action) bool {
	switch e.pos.Mode() {
	case position.ModeLongQuote:
		return planned == ActionSellQuote
	case position.ModeLongBase:
		return planned == ActionSellBase
	default:
		return false
	}
}
