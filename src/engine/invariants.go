package engine

// CheckInvariants walks every book and the active-order index and returns an
// error wrapping ErrInvariantViolation on the first inconsistency found.
// Between Submit calls every indexed order must be resting in exactly one
// level, levels must be non-empty with exact volume totals, and no book may
// be crossed.
func (m *Matcher) CheckInvariants() error {
	seen := make(map[uint64]struct{}, len(m.orders))

	for _, book := range m.books {
		for _, bs := range []*BookSide{book.Bids, book.Asks} {
			var err error
			bs.Ascend(func(level *PriceLevel) bool {
				err = m.checkLevel(book.Asset, bs.Side(), level, seen)
				return err == nil
			})
			if err != nil {
				return err
			}
		}

		bid, hasBid := book.Bids.BestPrice()
		ask, hasAsk := book.Asks.BestPrice()
		if hasBid && hasAsk && bid >= ask {
			return invariantf("asset %s book crossed: bid %d >= ask %d", book.Asset, bid, ask)
		}
	}

	if len(seen) != len(m.orders) {
		return invariantf("%d indexed orders but %d resting", len(m.orders), len(seen))
	}
	return nil
}

func (m *Matcher) checkLevel(asset Asset, side Side, level *PriceLevel, seen map[uint64]struct{}) error {
	if len(level.queue) == 0 {
		return invariantf("asset %s %s level %d is empty", asset, side, level.Price)
	}

	var volume uint64
	for _, id := range level.queue {
		order, ok := m.orders[id]
		if !ok {
			return invariantf("order %d queued at %s %s %d but not indexed", id, asset, side, level.Price)
		}
		if _, dup := seen[id]; dup {
			return invariantf("order %d queued twice", id)
		}
		seen[id] = struct{}{}

		if order.Asset != asset || order.Side != side || order.Price != level.Price {
			return invariantf("order %d (%s %s %d) filed under %s %s %d",
				id, order.Asset, order.Side, order.Price, asset, side, level.Price)
		}
		if order.Remaining == 0 {
			return invariantf("order %d resting with zero quantity", id)
		}
		volume += order.Remaining
	}

	if volume != level.TotalVolume {
		return invariantf("asset %s %s level %d volume %d, orders sum to %d",
			asset, side, level.Price, level.TotalVolume, volume)
	}
	return nil
}
