package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tick and trade counters
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "band_bot_ticks_total",
			Help: "Total number of decision ticks evaluated",
		},
		[]string{"pair"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "band_bot_trades_total",
			Help: "Total number of trades executed",
		},
		[]string{"pair", "side"},
	)

	guardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "band_bot_guard_rejections_total",
			Help: "Trades vetoed by the risk guard",
		},
		[]string{"pair", "reason"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "band_bot_errors_total",
			Help: "Errors by category",
		},
		[]string{"category"},
	)

	// Band and market gauges
	midPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "band_bot_mid_price",
			Help: "Current mid price in quote per base",
		},
		[]string{"pair"},
	)

	bandCenter = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "band_bot_band_center",
			Help: "Current EMA band center",
		},
		[]string{"pair"},
	)

	bandLower = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "band_bot_band_lower",
			Help: "Current lower band bound",
		},
		[]string{"pair"},
	)

	bandUpper = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "band_bot_band_upper",
			Help: "Current upper band bound",
		},
		[]string{"pair"},
	)

	equityBase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "band_bot_equity_base",
			Help: "Portfolio value in base units at the current mid",
		},
		[]string{"pair"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(guardRejectionsTotal)
	prometheus.MustRegister(errorsTotal)
	prometheus.MustRegister(midPrice)
	prometheus.MustRegister(bandCenter)
	prometheus.MustRegister(bandLower)
	prometheus.MustRegister(bandUpper)
	prometheus.MustRegister(equityBase)
}

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTick counts one evaluated decision tick and updates the band view.
func RecordTick(pair string, mid, center, lower, upper float64) {
	ticksTotal.WithLabelValues(pair).Inc()
	midPrice.WithLabelValues(pair).Set(mid)
	bandCenter.WithLabelValues(pair).Set(center)
	bandLower.WithLabelValues(pair).Set(lower)
	bandUpper.WithLabelValues(pair).Set(upper)
}

// RecordTrade counts one executed trade.
func RecordTrade(pair, side string) {
	tradesTotal.WithLabelValues(pair, side).Inc()
}

// RecordGuardRejection counts one risk-guard veto.
func RecordGuardRejection(pair, reason string) {
	guardRejectionsTotal.WithLabelValues(pair, reason).Inc()
}

// RecordError counts one classified error.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}

// UpdateEquity updates the base-denominated equity gauge.
func UpdateEquity(pair string, equity float64) {
	equityBase.WithLabelValues(pair).Set(equity)
}
