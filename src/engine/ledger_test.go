package engine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange/src/engine"
)

func TestLedgerAddAssignsLoadOrderIDs(t *testing.T) {
	ledger := engine.NewLedger()

	id, err := ledger.Add("C1", 1000, [engine.NumAssets]uint64{10, 5, 15, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	id, err = ledger.Add("C2", 500, [engine.NumAssets]uint64{})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	_, err = ledger.Add("C1", 1, [engine.NumAssets]uint64{})
	assert.ErrorIs(t, err, engine.ErrDuplicateTrader)

	got, ok := ledger.Lookup("C2")
	require.True(t, ok)
	assert.Equal(t, 1, got)

	trader, ok := ledger.Trader(0)
	require.True(t, ok)
	assert.Equal(t, "C1", trader.Name)
	assert.Equal(t, uint64(15), trader.Holdings[engine.AssetC])
}

func TestLedgerReserve(t *testing.T) {
	t.Run("buy deducts price times quantity", func(t *testing.T) {
		ledger := engine.NewLedger()
		id, _ := ledger.Add("C1", 1000, [engine.NumAssets]uint64{})

		require.NoError(t, ledger.Reserve(id, engine.SideBuy, engine.AssetA, 7, 12))

		trader, _ := ledger.Trader(id)
		assert.Equal(t, uint64(1000-84), trader.Cash)
	})

	t.Run("sell deducts holdings", func(t *testing.T) {
		ledger := engine.NewLedger()
		id, _ := ledger.Add("S1", 0, [engine.NumAssets]uint64{10})

		require.NoError(t, ledger.Reserve(id, engine.SideSell, engine.AssetA, 7, 10))

		trader, _ := ledger.Trader(id)
		assert.Equal(t, uint64(0), trader.Holdings[engine.AssetA])
	})

	t.Run("insufficient funds leaves balance alone", func(t *testing.T) {
		ledger := engine.NewLedger()
		id, _ := ledger.Add("C1", 50, [engine.NumAssets]uint64{})

		err := ledger.Reserve(id, engine.SideBuy, engine.AssetA, 7, 10)
		assert.ErrorIs(t, err, engine.ErrInsufficientFunds)
		assert.ErrorIs(t, err, engine.ErrRejected)

		trader, _ := ledger.Trader(id)
		assert.Equal(t, uint64(50), trader.Cash)
	})

	t.Run("insufficient holdings leaves holdings alone", func(t *testing.T) {
		ledger := engine.NewLedger()
		id, _ := ledger.Add("S1", 0, [engine.NumAssets]uint64{0, 3})

		err := ledger.Reserve(id, engine.SideSell, engine.AssetB, 1, 4)
		assert.ErrorIs(t, err, engine.ErrInsufficientHoldings)

		trader, _ := ledger.Trader(id)
		assert.Equal(t, uint64(3), trader.Holdings[engine.AssetB])
	})

	t.Run("overflowing notional is insufficient funds", func(t *testing.T) {
		ledger := engine.NewLedger()
		id, _ := ledger.Add("C1", math.MaxUint64, [engine.NumAssets]uint64{})

		err := ledger.Reserve(id, engine.SideBuy, engine.AssetA, math.MaxUint64, 2)
		assert.ErrorIs(t, err, engine.ErrInsufficientFunds)
	})
}

func TestLedgerSettleFill(t *testing.T) {
	ledger := engine.NewLedger()
	buyer, _ := ledger.Add("B", 0, [engine.NumAssets]uint64{})
	seller, _ := ledger.Add("S", 0, [engine.NumAssets]uint64{})

	maker := &engine.Order{ID: 0, TraderID: seller, Side: engine.SideSell, Asset: engine.AssetD, Price: 7, Remaining: 10}
	taker := &engine.Order{ID: 1, TraderID: buyer, Side: engine.SideBuy, Asset: engine.AssetD, Price: 8, Remaining: 4}

	require.NoError(t, ledger.SettleFill(maker, taker, 4))

	b, _ := ledger.Trader(buyer)
	s, _ := ledger.Trader(seller)
	assert.Equal(t, uint64(4), b.Holdings[engine.AssetD])
	assert.Equal(t, uint64(28), s.Cash, "seller is paid at the maker price")

	require.NoError(t, ledger.RefundPriceImprovement(buyer, 4))
	b, _ = ledger.Trader(buyer)
	assert.Equal(t, uint64(4), b.Cash)
}

func TestLedgerExportKeepsLoadOrder(t *testing.T) {
	ledger := engine.NewLedger()
	_, _ = ledger.Add("Z", 1, [engine.NumAssets]uint64{1, 2, 3, 4})
	_, _ = ledger.Add("A", 2, [engine.NumAssets]uint64{})

	balances := ledger.Export()
	require.Len(t, balances, 2)
	assert.Equal(t, engine.Balance{Name: "Z", Cash: 1, Holdings: [engine.NumAssets]uint64{1, 2, 3, 4}}, balances[0])
	assert.Equal(t, "A", balances[1].Name)
}
