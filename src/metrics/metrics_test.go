package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange/src/engine"
)

func TestObserversTrackMatcherCallbacks(t *testing.T) {
	m := New(zerolog.Nop())

	ledger := engine.NewLedger()
	_, err := ledger.Add("C1", 1000, [engine.NumAssets]uint64{10, 0, 0, 0})
	require.NoError(t, err)
	_, err = ledger.Add("C2", 1000, [engine.NumAssets]uint64{0, 0, 0, 0})
	require.NoError(t, err)

	matcher := engine.NewMatcher(ledger, &engine.Options{
		OnTrade:  m.ObserveTrade,
		OnReject: m.ObserveReject,
	})

	submit := func(req engine.OrderRequest) {
		start := time.Now()
		res, _ := matcher.Submit(req)
		m.ObserveSubmit(res, time.Since(start), matcher.ActiveOrders())
	}

	submit(engine.OrderRequest{TraderName: "C1", Side: engine.SideSell, Asset: engine.AssetA, Price: 5, Quantity: 4})
	submit(engine.OrderRequest{TraderName: "C2", Side: engine.SideBuy, Asset: engine.AssetA, Price: 7, Quantity: 4})
	submit(engine.OrderRequest{TraderName: "C2", Side: engine.SideSell, Asset: engine.AssetB, Price: 1, Quantity: 1})
	submit(engine.OrderRequest{TraderName: "nobody", Side: engine.SideBuy, Asset: engine.AssetB, Price: 1, Quantity: 1})

	assert.Equal(t, 4.0, testutil.ToFloat64(m.OrdersSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersFilled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesExecuted.WithLabelValues("A")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.VolumeTraded.WithLabelValues("A")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.PriceImprovement))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersRejected.WithLabelValues("insufficient_holdings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersRejected.WithLabelValues("unknown_trader")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RestingOrders))
}

func TestRejectReason(t *testing.T) {
	cases := map[error]string{
		engine.ErrInsufficientFunds:    "insufficient_funds",
		engine.ErrInsufficientHoldings: "insufficient_holdings",
		engine.ErrUnknownTrader:        "unknown_trader",
		engine.ErrInvalidQuantity:      "invalid_order",
		engine.ErrInvalidPrice:         "invalid_order",
		engine.ErrInvalidAsset:         "invalid_order",
		engine.ErrInvalidSide:          "invalid_order",
		engine.ErrInvariantViolation:   "other",
	}
	for err, want := range cases {
		wrapped := &engine.RejectionError{OrderID: 1, TraderName: "C1", Reason: err}
		assert.Equal(t, want, RejectReason(wrapped), fmt.Sprint(err))
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() { m = New(zerolog.Nop()) }, "every collector registers cleanly")
	require.NotPanics(t, func() { New(zerolog.Nop()) }, "registries are private per instance")
	m.OrdersSubmitted.Inc()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "exchange_orders_submitted_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
