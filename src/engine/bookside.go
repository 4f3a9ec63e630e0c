package engine

import (
	"github.com/google/btree"
)

// orderIndex is the active-order index: every order with Remaining > 0,
// resting or still being matched.
type orderIndex map[uint64]*Order

// PriceLevel aggregates the resting orders at one price. The queue holds ids
// in arrival order; TotalVolume is kept in step with every change.
type PriceLevel struct {
	Price       uint64
	TotalVolume uint64
	queue       []uint64
}

func (pl *PriceLevel) Len() int {
	return len(pl.queue)
}

// OrderIDs returns the queue in FIFO order.
func (pl *PriceLevel) OrderIDs() []uint64 {
	ids := make([]uint64, len(pl.queue))
	copy(ids, pl.queue)
	return ids
}

type LevelSnapshot struct {
	Price    uint64
	Quantity uint64
	Orders   int
}

// BookSide is the price-level index for one direction. Levels are ordered so
// that Min() is the most aggressive price: highest bid, lowest ask.
type BookSide struct {
	side   Side
	levels *btree.BTreeG[*PriceLevel]
	index  orderIndex
}

func newBookSide(side Side, index orderIndex) *BookSide {
	less := func(a, b *PriceLevel) bool { return a.Price < b.Price }
	if side == SideBuy {
		less = func(a, b *PriceLevel) bool { return a.Price > b.Price }
	}
	return &BookSide{
		side:   side,
		levels: btree.NewG[*PriceLevel](32, less),
		index:  index,
	}
}

func (bs *BookSide) Side() Side {
	return bs.side
}

// Len is the number of distinct price levels.
func (bs *BookSide) Len() int {
	return bs.levels.Len()
}

func (bs *BookSide) Empty() bool {
	return bs.levels.Len() == 0
}

func (bs *BookSide) BestPrice() (uint64, bool) {
	best, ok := bs.levels.Min()
	if !ok {
		return 0, false
	}
	return best.Price, true
}

func (bs *BookSide) Level(price uint64) (*PriceLevel, bool) {
	return bs.levels.Get(&PriceLevel{Price: price})
}

// Insert appends the order to the back of its price level, creating the level
// if needed. The order must already be in the active-order index.
func (bs *BookSide) Insert(order *Order) {
	level, ok := bs.Level(order.Price)
	if !ok {
		level = &PriceLevel{Price: order.Price}
		bs.levels.ReplaceOrInsert(level)
	}
	level.queue = append(level.queue, order.ID)
	level.TotalVolume += order.Remaining
}

// PeekFront returns the id at the head of the queue at price without
// removing it: the next order eligible to match there.
func (bs *BookSide) PeekFront(price uint64) (uint64, bool) {
	level, ok := bs.Level(price)
	if !ok || len(level.queue) == 0 {
		return 0, false
	}
	return level.queue[0], true
}

// ReduceOrRemoveHead fills qty from the head order at price. A head that
// reaches zero leaves the queue and the active-order index; a level that
// empties is deleted. It returns the head order after the reduction.
func (bs *BookSide) ReduceOrRemoveHead(price, qty uint64) (*Order, error) {
	level, ok := bs.Level(price)
	if !ok {
		return nil, invariantf("%s level %d missing", bs.side, price)
	}
	if len(level.queue) == 0 {
		return nil, invariantf("%s level %d has an empty queue", bs.side, price)
	}

	id := level.queue[0]
	head, ok := bs.index[id]
	if !ok {
		return nil, invariantf("order %d queued at %s %d but not indexed", id, bs.side, price)
	}
	if head.Remaining < qty || level.TotalVolume < qty {
		return nil, invariantf("fill of %d exceeds order %d remaining %d", qty, id, head.Remaining)
	}

	head.Fill(qty)
	level.TotalVolume -= qty

	if head.Remaining == 0 {
		level.queue = level.queue[1:]
		delete(bs.index, id)
	}
	if len(level.queue) == 0 {
		bs.levels.Delete(level)
	}
	return head, nil
}

// Depth returns up to n levels starting from the best price.
func (bs *BookSide) Depth(n int) []LevelSnapshot {
	n = max(n, 0)
	out := make([]LevelSnapshot, 0, min(n, bs.levels.Len()))
	bs.levels.Ascend(func(level *PriceLevel) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, LevelSnapshot{
			Price:    level.Price,
			Quantity: level.TotalVolume,
			Orders:   len(level.queue),
		})
		return true
	})
	return out
}

// Volume is the total resting quantity on this side.
func (bs *BookSide) Volume() uint64 {
	var total uint64
	bs.levels.Ascend(func(level *PriceLevel) bool {
		total += level.TotalVolume
		return true
	})
	return total
}

// Ascend visits levels from the best price outward.
func (bs *BookSide) Ascend(fn func(level *PriceLevel) bool) {
	bs.levels.Ascend(fn)
}
