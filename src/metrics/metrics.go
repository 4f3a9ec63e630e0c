package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"exchange/src/engine"
)

// Metrics holds the exchange collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	OrdersSubmitted  prometheus.Counter
	OrdersRejected   *prometheus.CounterVec
	OrdersFilled     prometheus.Counter
	TradesExecuted   *prometheus.CounterVec
	VolumeTraded     *prometheus.CounterVec
	PriceImprovement prometheus.Counter
	RestingOrders    prometheus.Gauge
	SubmitLatencyMs  prometheus.Histogram
}

func New(logger zerolog.Logger) *Metrics {
	m := &Metrics{
		registry:         prometheus.NewRegistry(),
		OrdersSubmitted:  prometheus.NewCounter(prometheus.CounterOpts{Name: "exchange_orders_submitted_total", Help: "Orders taken in by the matcher"}),
		OrdersRejected:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "exchange_orders_rejected_total", Help: "Orders refused at intake by reason"}, []string{"reason"}),
		OrdersFilled:     prometheus.NewCounter(prometheus.CounterOpts{Name: "exchange_orders_filled_total", Help: "Incoming orders fully filled on submit"}),
		TradesExecuted:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "exchange_trades_total", Help: "Fills by asset"}, []string{"asset"}),
		VolumeTraded:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "exchange_volume_total", Help: "Units traded by asset"}, []string{"asset"}),
		PriceImprovement: prometheus.NewCounter(prometheus.CounterOpts{Name: "exchange_price_improvement_total", Help: "Cash value of price improvement given to takers"}),
		RestingOrders:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "exchange_resting_orders", Help: "Orders in the active-order index"}),
		SubmitLatencyMs:  prometheus.NewHistogram(prometheus.HistogramOpts{Name: "exchange_submit_latency_ms", Help: "Submit latency", Buckets: prometheus.ExponentialBuckets(0.001, 4, 10)}),
	}

	toRegister := []prometheus.Collector{
		m.OrdersSubmitted, m.OrdersRejected, m.OrdersFilled, m.TradesExecuted, m.VolumeTraded,
		m.PriceImprovement, m.RestingOrders, m.SubmitLatencyMs,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	m.registry.MustRegister(toRegister...)
	logger.Debug().Msg("Prometheus metrics initialized")
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTrade is shaped to plug into engine.Options.OnTrade.
func (m *Metrics) ObserveTrade(t *engine.Trade) {
	asset := t.Asset.String()
	m.TradesExecuted.WithLabelValues(asset).Inc()
	m.VolumeTraded.WithLabelValues(asset).Add(float64(t.Quantity))
	m.PriceImprovement.Add(float64(t.PriceImprovement))
}

// ObserveReject is shaped to plug into engine.Options.OnReject.
func (m *Metrics) ObserveReject(rej *engine.RejectionError) {
	m.OrdersRejected.WithLabelValues(RejectReason(rej)).Inc()
}

// ObserveSubmit records one Submit call.
func (m *Metrics) ObserveSubmit(result *engine.MatchResult, latency time.Duration, resting int) {
	m.OrdersSubmitted.Inc()
	m.SubmitLatencyMs.Observe(float64(latency.Nanoseconds()) / 1e6)
	m.RestingOrders.Set(float64(resting))
	if result != nil && result.Status == engine.StatusFilled {
		m.OrdersFilled.Inc()
	}
}

// RejectReason maps a rejection to a short label value.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, engine.ErrInsufficientHoldings):
		return "insufficient_holdings"
	case errors.Is(err, engine.ErrUnknownTrader):
		return "unknown_trader"
	case errors.Is(err, engine.ErrInvalidQuantity), errors.Is(err, engine.ErrInvalidPrice), errors.Is(err, engine.ErrInvalidAsset), errors.Is(err, engine.ErrInvalidSide):
		return "invalid_order"
	}
	return "other"
}
