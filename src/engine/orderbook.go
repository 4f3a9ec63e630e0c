package engine

// OrderBook is the two-sided book for one asset.
type OrderBook struct {
	Asset Asset
	Bids  *BookSide
	Asks  *BookSide
}

func newOrderBook(asset Asset, index orderIndex) *OrderBook {
	return &OrderBook{
		Asset: asset,
		Bids:  newBookSide(SideBuy, index),
		Asks:  newBookSide(SideSell, index),
	}
}

func (ob *OrderBook) side(s Side) *BookSide {
	if s == SideBuy {
		return ob.Bids
	}
	return ob.Asks
}

func (ob *OrderBook) BestBid() (price uint64, quantity uint64, ok bool) {
	return best(ob.Bids)
}

func (ob *OrderBook) BestAsk() (price uint64, quantity uint64, ok bool) {
	return best(ob.Asks)
}

func best(bs *BookSide) (uint64, uint64, bool) {
	price, ok := bs.BestPrice()
	if !ok {
		return 0, 0, false
	}
	level, _ := bs.Level(price)
	return price, level.TotalVolume, true
}

// Snapshot returns up to depth levels per side, best price first.
func (ob *OrderBook) Snapshot(depth int) (bids []LevelSnapshot, asks []LevelSnapshot) {
	return ob.Bids.Depth(depth), ob.Asks.Depth(depth)
}

// crosses reports whether an incoming order at limit on side can trade
// against opposite-side price.
func crosses(side Side, limit, opposite uint64) bool {
	if side == SideBuy {
		return limit >= opposite
	}
	return limit <= opposite
}
