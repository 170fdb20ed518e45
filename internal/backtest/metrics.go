package backtest

import (
	"math"
)

// TotalReturn is the overall equity change as a percentage.
func (r *Results) TotalReturn() float64 {
	if r.InitialEquity <= 0 {
		return 0
	}
	return (r.FinalEquity - r.InitialEquity) / r.InitialEquity * 100
}

// AnnualizedReturn extrapolates the total return to a 365-day year.
func (r *Results) AnnualizedReturn() float64 {
	if r.InitialEquity <= 0 || r.FinalEquity <= 0 {
		return 0
	}
	days := r.EndTime.Sub(r.StartTime).Hours() / 24
	if days <= 0 {
		return 0
	}
	growth := r.FinalEquity / r.InitialEquity
	return (math.Pow(growth, 365/days) - 1) * 100
}

// MaxDrawdown is the deepest peak-to-trough equity decline, as a
// percentage of the peak.
func (r *Results) MaxDrawdown() float64 {
	peak := 0.0
	maxDD := 0.0
	for _, p := range r.EquityCurve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// CalculateSharpeRatio computes the Sharpe ratio over per-cycle returns,
// with a zero risk-free rate.
func (r *Results) CalculateSharpeRatio() float64 {
	if len(r.Trades) == 0 || r.InitialEquity <= 0 {
		return 0
	}

	returns := make([]float64, 0, len(r.Trades))
	for _, t := range r.Trades {
		returns = append(returns, t.PnLBase/r.InitialEquity)
	}

	avg := 0.0
	for _, ret := range returns {
		avg += ret
	}
	avg /= float64(len(returns))

	variance := 0.0
	for _, ret := range returns {
		variance += math.Pow(ret-avg, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-10 {
		return 0
	}
	return avg / stdDev
}

// CalculateProfitFactor is gross profit over gross loss across cycles.
func (r *Results) CalculateProfitFactor() float64 {
	totalProfit := 0.0
	totalLoss := 0.0
	for _, t := range r.Trades {
		if t.PnLBase > 0 {
			totalProfit += t.PnLBase
		} else {
			totalLoss += math.Abs(t.PnLBase)
		}
	}

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return totalProfit / totalLoss
}

// CalculateWinRate is the percentage of profitable cycles.
func (r *Results) CalculateWinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range r.Trades {
		if t.PnLBase > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(r.Trades)) * 100
}
