package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/haidang-fin/dex-band-bot/internal/band"
	"github.com/haidang-fin/dex-band-bot/internal/config"
	"github.com/haidang-fin/dex-band-bot/internal/decision"
	boterrors "github.com/haidang-fin/dex-band-bot/internal/errors"
	"github.com/haidang-fin/dex-band-bot/internal/exchange"
	"github.com/haidang-fin/dex-band-bot/internal/ledger"
	"github.com/haidang-fin/dex-band-bot/internal/logger"
	"github.com/haidang-fin/dex-band-bot/internal/monitoring"
	"github.com/haidang-fin/dex-band-bot/internal/position"
	"github.com/haidang-fin/dex-band-bot/internal/risk"
	"github.com/haidang-fin/dex-band-bot/internal/sizing"
	"github.com/haidang-fin/dex-band-bot/internal/state"
	"github.com/haidang-fin/dex-band-bot/pkg/types"
)

// Deps are the session's external collaborators. The live driver wires
// the aggregator implementations; tests substitute stubs.
type Deps struct {
	Price    exchange.PriceSource
	Balances exchange.BalanceService
	Adapter  exchange.ExecutionAdapter
	Logger   *logger.Logger
	Store    *state.Store
	Ledger   *ledger.Ledger
	Health   *monitoring.HealthChecker
}

// Session is one live trading run of one pair. All trading state is
// confined to the Run goroutine; shutdown flushes the band center and
// position snapshot before returning.
type Session struct {
	cfg  *config.BotConfig
	pair types.Pair
	deps Deps

	engine *decision.Engine
	sizer  *sizing.Engine
	guard  *risk.Guard

	// Net asset flow over the open cycle, for realized PnL at close.
	cycleBaseDelta  float64
	cycleQuoteDelta float64
}

// NewSession validates the config, restores persisted warm state and
// returns a ready session.
func NewSession(cfg *config.BotConfig, deps Deps) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot configuration is required")
	}
	if deps.Price == nil || deps.Balances == nil || deps.Adapter == nil {
		return nil, fmt.Errorf("price source, balance service and execution adapter are required")
	}

	tracker, err := band.NewTracker(cfg.Strategy.EmaAlpha)
	if err != nil {
		return nil, err
	}
	pos := position.NewState()

	engine, err := decision.NewEngine(cfg.DecisionConfig(), tracker, pos)
	if err != nil {
		return nil, err
	}
	sizer, err := sizing.NewEngine(cfg.SizingConfig())
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		pair:   cfg.TradingPair(),
		deps:   deps,
		engine: engine,
		sizer:  sizer,
		guard:  risk.NewGuard(cfg.RiskConfig()),
	}
	s.restore()
	return s, nil
}

// restore seeds the tracker, position and cooldown clock from disk.
func (s *Session) restore() {
	if s.deps.Store == nil {
		return
	}
	now := time.Now()

	if rec, ok := s.deps.Store.LoadCenter(); ok {
		s.engine.Tracker().Seed(rec.Center, rec.UpdatedAt)
		s.logInfo("restored band center %.6f from %s", rec.Center, rec.UpdatedAt.Format(time.RFC3339))
	}
	if snap, flows, ok := s.deps.Store.LoadPosition(now); ok {
		s.engine.Position().Restore(snap)
		if mode := s.engine.Position().Mode(); mode != position.ModeNone {
			s.cycleBaseDelta = flows.BaseDelta
			s.cycleQuoteDelta = flows.QuoteDelta
			s.logInfo("resumed open %s position from entry %.6f", mode, s.engine.Position().Entry())
		}
	}
	if t, ok := s.deps.Store.LoadLastFill(); ok {
		s.engine.RestoreLastFill(t)
	}
}

// Run polls until the context is cancelled, then flushes state.
func (s *Session) Run(ctx context.Context) error {
	s.logInfo("session started: pair=%s poll=%s dry_run=%v config=%s",
		s.pair, s.cfg.PollInterval(), s.cfg.Execution.DryRun, s.cfg.ConfigID)

	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case now := <-ticker.C:
			if err := s.tick(ctx, now); err != nil {
				s.handleTickError(err)
			}
		}
	}
}

// tick runs one pass of the trading pipeline.
func (s *Session) tick(ctx context.Context, now time.Time) error {
	mid, err := s.deps.Price.Mid(ctx, s.pair)
	if err != nil {
		return err
	}
	if mid <= 0 {
		return boterrors.New(boterrors.ErrorCategoryInvariant, "bot", "non-positive mid %v", mid)
	}

	out := s.engine.Tick(now, mid)

	monitoring.RecordTick(s.pair.String(), mid, out.Center, out.Lower, out.Upper)
	if s.deps.Health != nil {
		s.deps.Health.Tick(mid)
	}
	if s.deps.Logger != nil {
		s.deps.Logger.LogTickStatus(mid, out.Center, out.Lower, out.Upper, out.Action.String(), out.Reason)
	}
	s.persistCenter(now, false)

	// Balances are read every tick so the equity gauge stays live
	// through long hold stretches, not just around fills.
	balances, err := s.deps.Balances.Balances(ctx, s.pair)
	if err != nil {
		return err
	}
	monitoring.UpdateEquity(s.pair.String(), ledger.Equity(balances.Base, balances.Quote, mid))

	if out.Action == decision.ActionHold {
		return nil
	}

	amount, ok := s.sizer.Size(out.Action, balances)
	if !ok {
		s.logInfo("%s signal with no viable size (base=%.6f quote=%.6f), holding",
			out.Action, balances.Base, balances.Quote)
		return nil
	}

	dir := exchange.DirSellBase
	if out.Action == decision.ActionSellQuote {
		dir = exchange.DirSellQuote
	}

	quote, err := s.deps.Adapter.GetQuote(ctx, s.pair, dir, amount)
	if err != nil {
		return err
	}
	if err := s.guard.Check(quote); err != nil {
		return err
	}

	result, err := s.deps.Adapter.ExecuteSwap(ctx, s.pair, quote, s.guard.MaxSlippageBps())
	if err != nil {
		return err
	}

	return s.recordFill(out, result, mid, now)
}

// recordFill advances engine state, the ledger and persistence after an
// executed swap.
func (s *Session) recordFill(out decision.Outcome, result *exchange.SwapResult, mid float64, now time.Time) error {
	wasOpen := s.engine.Position().Mode() != position.ModeNone

	var baseDelta, quoteDelta float64
	if result.Direction == exchange.DirSellBase {
		baseDelta = -result.AmountIn
		quoteDelta = result.AmountOut
	} else {
		quoteDelta = -result.AmountIn
		baseDelta = result.AmountOut
	}

	if err := s.engine.RecordFill(out.Action, mid, now); err != nil {
		return err
	}

	realized := 0.0
	if !wasOpen {
		s.cycleBaseDelta = baseDelta
		s.cycleQuoteDelta = quoteDelta
	} else {
		s.cycleBaseDelta += baseDelta
		s.cycleQuoteDelta += quoteDelta
		realized = ledger.CyclePnlBase(s.cycleBaseDelta, s.cycleQuoteDelta, mid)
		s.cycleBaseDelta, s.cycleQuoteDelta = 0, 0
	}

	monitoring.RecordTrade(s.pair.String(), out.Action.String())
	if s.deps.Logger != nil {
		s.deps.Logger.Trade("%s in=%.6f out=%.6f fill=%.6f forced=%v txid=%s realized=%.6f",
			out.Action, result.AmountIn, result.AmountOut, result.FillPrice, out.Forced, result.TxID, realized)
	}

	if s.deps.Ledger != nil {
		rec := ledger.FillRecord{
			Timestamp:   now,
			Side:        out.Action.String(),
			Price:       mid,
			AmountIn:    result.AmountIn,
			AmountOut:   result.AmountOut,
			Center:      out.Center,
			BandLower:   out.Lower,
			BandUpper:   out.Upper,
			RealizedPnl: realized,
			StopReason:  out.StopReason,
			ConfigID:    s.cfg.ConfigID,
		}
		if err := s.deps.Ledger.Append(rec); err != nil {
			return boterrors.Wrap(err, boterrors.ErrorCategoryInvariant, "bot", "failed to append fill")
		}
	}

	s.persistAfterFill(now)
	return nil
}

func (s *Session) persistAfterFill(now time.Time) {
	if s.deps.Store == nil {
		return
	}
	flows := state.CycleFlows{BaseDelta: s.cycleBaseDelta, QuoteDelta: s.cycleQuoteDelta}
	if err := s.deps.Store.SavePosition(s.engine.Position().Snapshot(), flows, now); err != nil {
		s.logError("failed to persist position: %v", err)
	}
	if t, ok := s.engine.LastFillAt(); ok {
		if err := s.deps.Store.SaveLastFill(t); err != nil {
			s.logError("failed to persist cooldown clock: %v", err)
		}
	}
}

func (s *Session) persistCenter(now time.Time, force bool) {
	if s.deps.Store == nil {
		return
	}
	if center, ok := s.engine.Tracker().Center(); ok {
		if err := s.deps.Store.SaveCenter(center, now, force); err != nil {
			s.logError("failed to persist band center: %v", err)
		}
	}
}

// shutdown flushes warm state on the way out.
func (s *Session) shutdown() {
	now := time.Now()
	s.persistCenter(now, true)
	s.persistAfterFill(now)
	s.logInfo("session stopped, state flushed")
	if s.deps.Logger != nil {
		s.deps.Logger.Close()
	}
}

// handleTickError classifies a tick failure per the error taxonomy.
// Nothing here stops the loop; configuration problems were rejected at
// startup and everything else is a hold of one flavor or another.
func (s *Session) handleTickError(err error) {
	cat := boterrors.CategoryOf(err)
	monitoring.RecordError(string(cat))
	if s.deps.Health != nil {
		s.deps.Health.Fail(err)
	}

	switch {
	case boterrors.IsGuard(err):
		monitoring.RecordGuardRejection(s.pair.String(), "risk_guard")
		s.logWarn("trade vetoed: %v", err)
	case cat == boterrors.ErrorCategoryInvariant:
		s.logError("INVARIANT VIOLATION, holding: %v", err)
	case boterrors.IsTransient(err):
		s.logWarn("transient failure, retrying next tick: %v", err)
	default:
		s.logError("tick failed: %v", err)
	}
}

func (s *Session) logInfo(format string, args ...interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Info(format, args...)
	}
}

func (s *Session) logWarn(format string, args ...interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Warning(format, args...)
	}
}

func (s *Session) logError(format string, args ...interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Error(format, args...)
	}
}
