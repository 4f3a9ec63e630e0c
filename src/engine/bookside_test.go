package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restingOrder(index orderIndex, id uint64, side Side, price, qty uint64) *Order {
	o := &Order{ID: id, Side: side, Asset: AssetA, Price: price, Quantity: qty, Remaining: qty, Status: StatusAccepted}
	index[id] = o
	return o
}

func TestBookSideBestPriceFollowsDirection(t *testing.T) {
	index := make(orderIndex)
	bids := newBookSide(SideBuy, index)
	asks := newBookSide(SideSell, index)

	_, ok := bids.BestPrice()
	assert.False(t, ok)

	for i, price := range []uint64{5, 9, 7} {
		bids.Insert(restingOrder(index, uint64(i), SideBuy, price, 1))
		asks.Insert(restingOrder(index, uint64(10+i), SideSell, price, 1))
	}

	best, ok := bids.BestPrice()
	require.True(t, ok)
	assert.Equal(t, uint64(9), best, "best bid is the highest price")

	best, ok = asks.BestPrice()
	require.True(t, ok)
	assert.Equal(t, uint64(5), best, "best ask is the lowest price")
}

func TestBookSideInsertAggregatesLevel(t *testing.T) {
	index := make(orderIndex)
	bids := newBookSide(SideBuy, index)

	bids.Insert(restingOrder(index, 1, SideBuy, 5, 3))
	bids.Insert(restingOrder(index, 2, SideBuy, 5, 4))
	bids.Insert(restingOrder(index, 3, SideBuy, 4, 10))

	assert.Equal(t, 2, bids.Len())

	level, ok := bids.Level(5)
	require.True(t, ok)
	assert.Equal(t, uint64(7), level.TotalVolume)
	assert.Equal(t, []uint64{1, 2}, level.OrderIDs())

	head, ok := bids.PeekFront(5)
	require.True(t, ok)
	assert.Equal(t, uint64(1), head)

	_, ok = bids.PeekFront(6)
	assert.False(t, ok)
}

func TestBookSideReduceOrRemoveHead(t *testing.T) {
	t.Run("partial fill keeps head", func(t *testing.T) {
		index := make(orderIndex)
		asks := newBookSide(SideSell, index)
		asks.Insert(restingOrder(index, 1, SideSell, 7, 10))

		head, err := asks.ReduceOrRemoveHead(7, 4)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), head.Remaining)
		assert.Equal(t, StatusPartialFill, head.Status)

		level, ok := asks.Level(7)
		require.True(t, ok)
		assert.Equal(t, uint64(6), level.TotalVolume)
		assert.Contains(t, index, uint64(1))
	})

	t.Run("exhausted head leaves queue and index", func(t *testing.T) {
		index := make(orderIndex)
		asks := newBookSide(SideSell, index)
		asks.Insert(restingOrder(index, 1, SideSell, 7, 3))
		asks.Insert(restingOrder(index, 2, SideSell, 7, 5))

		head, err := asks.ReduceOrRemoveHead(7, 3)
		require.NoError(t, err)
		assert.True(t, head.IsFilled())
		assert.NotContains(t, index, uint64(1))

		next, ok := asks.PeekFront(7)
		require.True(t, ok)
		assert.Equal(t, uint64(2), next)

		level, _ := asks.Level(7)
		assert.Equal(t, uint64(5), level.TotalVolume)
	})

	t.Run("last order removes level", func(t *testing.T) {
		index := make(orderIndex)
		asks := newBookSide(SideSell, index)
		asks.Insert(restingOrder(index, 1, SideSell, 7, 3))
		asks.Insert(restingOrder(index, 2, SideSell, 8, 3))

		_, err := asks.ReduceOrRemoveHead(7, 3)
		require.NoError(t, err)

		_, ok := asks.Level(7)
		assert.False(t, ok)
		best, _ := asks.BestPrice()
		assert.Equal(t, uint64(8), best)
	})

	t.Run("missing level is an invariant violation", func(t *testing.T) {
		asks := newBookSide(SideSell, make(orderIndex))
		_, err := asks.ReduceOrRemoveHead(7, 1)
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("unindexed head is an invariant violation", func(t *testing.T) {
		index := make(orderIndex)
		asks := newBookSide(SideSell, index)
		asks.Insert(restingOrder(index, 1, SideSell, 7, 3))
		delete(index, 1)

		_, err := asks.ReduceOrRemoveHead(7, 1)
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("overfill is an invariant violation", func(t *testing.T) {
		index := make(orderIndex)
		asks := newBookSide(SideSell, index)
		asks.Insert(restingOrder(index, 1, SideSell, 7, 3))

		_, err := asks.ReduceOrRemoveHead(7, 4)
		assert.ErrorIs(t, err, ErrInvariantViolation)
		assert.Equal(t, uint64(3), index[1].Remaining)
	})
}

func TestBookSideDepth(t *testing.T) {
	index := make(orderIndex)
	bids := newBookSide(SideBuy, index)
	bids.Insert(restingOrder(index, 1, SideBuy, 10, 1))
	bids.Insert(restingOrder(index, 2, SideBuy, 12, 2))
	bids.Insert(restingOrder(index, 3, SideBuy, 12, 3))
	bids.Insert(restingOrder(index, 4, SideBuy, 8, 4))

	depth := bids.Depth(2)
	require.Len(t, depth, 2)
	assert.Equal(t, LevelSnapshot{Price: 12, Quantity: 5, Orders: 2}, depth[0])
	assert.Equal(t, LevelSnapshot{Price: 10, Quantity: 1, Orders: 1}, depth[1])

	assert.Equal(t, uint64(10), bids.Volume())
}

func TestCrosses(t *testing.T) {
	assert.True(t, crosses(SideBuy, 20, 10))
	assert.True(t, crosses(SideBuy, 10, 10))
	assert.False(t, crosses(SideBuy, 10, 20))
	assert.True(t, crosses(SideSell, 10, 20))
	assert.True(t, crosses(SideSell, 10, 10))
	assert.False(t, crosses(SideSell, 20, 10))
}
