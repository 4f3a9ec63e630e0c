package engine

import (
	"fmt"
	"math/bits"
)

type Trader struct {
	ID       int
	Name     string
	Cash     uint64
	Holdings [NumAssets]uint64
}

// Balance is the exported view of a trader, in the same field order as the
// trader record.
type Balance struct {
	Name     string
	Cash     uint64
	Holdings [NumAssets]uint64
}

// Ledger holds cash and asset balances. Funds for an order are taken out at
// intake (Reserve) and paid to the counterparty on each fill (SettleFill).
type Ledger struct {
	traders []*Trader
	byName  map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{byName: make(map[string]int)}
}

// Add registers a trader and assigns the next id in load order.
func (l *Ledger) Add(name string, cash uint64, holdings [NumAssets]uint64) (int, error) {
	if _, exists := l.byName[name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateTrader, name)
	}
	id := len(l.traders)
	l.traders = append(l.traders, &Trader{
		ID:       id,
		Name:     name,
		Cash:     cash,
		Holdings: holdings,
	})
	l.byName[name] = id
	return id, nil
}

func (l *Ledger) Lookup(name string) (int, bool) {
	id, ok := l.byName[name]
	return id, ok
}

// Trader returns a copy; balances only change through the ledger.
func (l *Ledger) Trader(id int) (Trader, bool) {
	if id < 0 || id >= len(l.traders) {
		return Trader{}, false
	}
	return *l.traders[id], true
}

func (l *Ledger) Len() int {
	return len(l.traders)
}

// Reserve locks what the order could spend at its own limit price: cash for a
// buy, asset units for a sell. On error nothing is changed.
func (l *Ledger) Reserve(traderID int, side Side, asset Asset, price, qty uint64) error {
	t := l.traders[traderID]
	if side == SideSell {
		if t.Holdings[asset] < qty {
			return ErrInsufficientHoldings
		}
		t.Holdings[asset] -= qty
		return nil
	}

	cost, ok := notional(price, qty)
	if !ok || t.Cash < cost {
		return ErrInsufficientFunds
	}
	t.Cash -= cost
	return nil
}

// SettleFill pays out one fill of qty at the maker's price. The buyer gets the
// asset and the seller gets the cash; both were already reserved at intake.
func (l *Ledger) SettleFill(maker, taker *Order, qty uint64) error {
	buy, sell := taker, maker
	if taker.Side == SideSell {
		buy, sell = maker, taker
	}

	proceeds, ok := notional(maker.Price, qty)
	if !ok {
		return invariantf("fill notional overflows: price %d qty %d", maker.Price, qty)
	}

	buyer, seller := l.traders[buy.TraderID], l.traders[sell.TraderID]
	holdings, carry := bits.Add64(buyer.Holdings[maker.Asset], qty, 0)
	if carry != 0 {
		return invariantf("holdings overflow for trader %s", buyer.Name)
	}
	cash, carry := bits.Add64(seller.Cash, proceeds, 0)
	if carry != 0 {
		return invariantf("cash overflow for trader %s", seller.Name)
	}

	buyer.Holdings[maker.Asset] = holdings
	seller.Cash = cash
	return nil
}

// RefundPriceImprovement returns reserved cash a buyer no longer needs because
// the fill executed below its limit.
func (l *Ledger) RefundPriceImprovement(traderID int, amount uint64) error {
	if amount == 0 {
		return nil
	}
	t := l.traders[traderID]
	cash, carry := bits.Add64(t.Cash, amount, 0)
	if carry != 0 {
		return invariantf("cash overflow for trader %s", t.Name)
	}
	t.Cash = cash
	return nil
}

func (l *Ledger) Export() []Balance {
	out := make([]Balance, 0, len(l.traders))
	for _, t := range l.traders {
		out = append(out, Balance{Name: t.Name, Cash: t.Cash, Holdings: t.Holdings})
	}
	return out
}

func notional(price, qty uint64) (uint64, bool) {
	hi, lo := bits.Mul64(price, qty)
	return lo, hi == 0
}
