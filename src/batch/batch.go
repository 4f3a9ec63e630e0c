// Package batch runs the exchange once over a trader file and an order file
// and writes the resulting balances back out.
package batch

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"exchange/src/config"
	"exchange/src/engine"
	"exchange/src/journal"
	"exchange/src/metrics"
	"exchange/src/records"
)

// Deps are the optional collaborators of a run. Nil fields are skipped.
type Deps struct {
	Logger  zerolog.Logger
	Journal *journal.Store
	Metrics *metrics.Metrics
	// Options seeds the matcher options; OnTrade and OnReject are chained.
	Options *engine.Options
}

type Report struct {
	Submitted int
	Rejected  int
	Filled    int
	Resting   int
	Trades    int
	Volume    uint64
	Duration  time.Duration
}

// Run loads traders and orders, submits every order in file order and writes
// the balances to cfg.OutputPath(). Rejected orders are logged and counted;
// an invariant violation aborts the run without writing balances.
func Run(ctx context.Context, cfg config.Config, deps Deps) (Report, error) {
	log := deps.Logger
	start := time.Now()

	traders, err := records.LoadTradersFile(cfg.Resources.Traders)
	if err != nil {
		return Report{}, err
	}
	orders, err := records.LoadOrdersFile(cfg.Resources.Orders)
	if err != nil {
		return Report{}, err
	}

	ledger := engine.NewLedger()
	for _, t := range traders {
		if _, err := ledger.Add(t.Name, t.Cash, t.Holdings); err != nil {
			return Report{}, pkgerrors.Wrapf(err, "trader %s", t.Name)
		}
	}
	log.Info().
		Int("traders", len(traders)).
		Int("orders", len(orders)).
		Str("traders_file", cfg.Resources.Traders).
		Str("orders_file", cfg.Resources.Orders).
		Msg("Batch loaded")

	matcher := engine.NewMatcher(ledger, matcherOptions(cfg, deps))

	var report Report
	for _, req := range orders {
		if err := ctx.Err(); err != nil {
			return report, pkgerrors.Wrapf(err, "batch stopped after %d orders", report.Submitted)
		}

		submitStart := time.Now()
		result, err := matcher.Submit(req)
		report.Submitted++
		if deps.Metrics != nil {
			deps.Metrics.ObserveSubmit(result, time.Since(submitStart), matcher.ActiveOrders())
		}

		var rej *engine.RejectionError
		switch {
		case errors.As(err, &rej):
			report.Rejected++
			log.Warn().
				Uint64("order_id", rej.OrderID).
				Str("trader", rej.TraderName).
				Str("side", req.Side.String()).
				Str("asset", req.Asset.String()).
				Uint64("price", req.Price).
				Uint64("quantity", req.Quantity).
				Err(rej.Reason).
				Msg("Order rejected")
			if deps.Journal != nil {
				if err := deps.Journal.RecordRejection(ctx, rej); err != nil {
					return report, err
				}
			}
			continue
		case err != nil:
			log.Error().Err(err).Int("order_index", report.Submitted-1).Msg("Matcher state corrupted")
			return report, err
		}

		report.Trades += len(result.Trades)
		if result.Status == engine.StatusFilled {
			report.Filled++
		}
		for _, trade := range result.Trades {
			report.Volume += trade.Quantity
			log.Debug().
				Str("trade_id", trade.TradeID).
				Str("asset", trade.Asset.String()).
				Uint64("price", trade.Price).
				Uint64("quantity", trade.Quantity).
				Uint64("maker_order_id", trade.MakerOrderID).
				Uint64("taker_order_id", trade.TakerOrderID).
				Msg("Trade executed")
			if deps.Journal != nil {
				if err := deps.Journal.RecordTrade(ctx, trade); err != nil {
					return report, err
				}
			}
		}
	}

	if err := matcher.CheckInvariants(); err != nil {
		log.Error().Err(err).Msg("Final book check failed")
		return report, err
	}
	report.Resting = matcher.ActiveOrders()

	out := cfg.OutputPath()
	if err := records.WriteBalancesFile(out, matcher.Balances()); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)

	log.Info().
		Int("submitted", report.Submitted).
		Int("rejected", report.Rejected).
		Int("filled", report.Filled).
		Int("resting", report.Resting).
		Int("trades", report.Trades).
		Uint64("volume", report.Volume).
		Dur("duration", report.Duration).
		Str("output", out).
		Msg("Batch complete")
	return report, nil
}

func matcherOptions(cfg config.Config, deps Deps) *engine.Options {
	opts := engine.DefaultOptions()
	if deps.Options != nil {
		*opts = *deps.Options
	}
	opts.VerifyInvariants = opts.VerifyInvariants || cfg.Engine.VerifyInvariants

	if m := deps.Metrics; m != nil {
		onTrade, onReject := opts.OnTrade, opts.OnReject
		opts.OnTrade = func(t *engine.Trade) {
			m.ObserveTrade(t)
			if onTrade != nil {
				onTrade(t)
			}
		}
		opts.OnReject = func(r *engine.RejectionError) {
			m.ObserveReject(r)
			if onReject != nil {
				onReject(r)
			}
		}
	}
	return opts
}
