package engine

// Matcher is the order book for the whole asset set: it owns the ledger, the
// per-asset books and the active-order index. Submit is its only mutator and
// the type is not safe for concurrent use; callers serialize access.
type Matcher struct {
	ledger *Ledger
	books  [NumAssets]*OrderBook
	orders orderIndex
	nextID uint64
	opts   Options
	stats  Stats
}

type Stats struct {
	OrdersReceived uint64
	OrdersRejected uint64
	OrdersFilled   uint64
	TradesExecuted uint64
	VolumeTraded   uint64
}

type MatchResult struct {
	OrderID           uint64
	Status            OrderStatus
	FilledQuantity    uint64
	RemainingQuantity uint64
	Refunded          uint64
	Trades            []*Trade
}

func NewMatcher(ledger *Ledger, opts *Options) *Matcher {
	m := &Matcher{
		ledger: ledger,
		orders: make(orderIndex),
		opts:   opts.withDefaults(),
	}
	for _, asset := range Assets() {
		m.books[asset] = newOrderBook(asset, m.orders)
	}
	return m
}

// Submit takes one order through intake, matching and settlement. Rejections
// come back as *RejectionError (errors.Is ErrRejected) and leave all state
// untouched; an error wrapping ErrInvariantViolation means the book is corrupt.
func (m *Matcher) Submit(req OrderRequest) (*MatchResult, error) {
	id := m.nextID
	m.nextID++
	m.stats.OrdersReceived++

	traderID, err := m.admit(req)
	if err != nil {
		return nil, m.reject(id, req, err)
	}
	if err := m.ledger.Reserve(traderID, req.Side, req.Asset, req.Price, req.Quantity); err != nil {
		return nil, m.reject(id, req, err)
	}

	order := newOrder(id, traderID, req, m.opts.Clock().UnixMilli())
	m.orders[id] = order

	result, err := m.match(order)
	if err != nil {
		return nil, err
	}
	if order.IsFilled() {
		m.stats.OrdersFilled++
	}

	if m.opts.VerifyInvariants {
		if err := m.CheckInvariants(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m *Matcher) admit(req OrderRequest) (int, error) {
	if req.Quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	if req.Price == 0 {
		return 0, ErrInvalidPrice
	}
	if !req.Asset.Valid() {
		return 0, ErrInvalidAsset
	}
	if !req.Side.Valid() {
		return 0, ErrInvalidSide
	}
	traderID, ok := m.ledger.Lookup(req.TraderName)
	if !ok {
		return 0, ErrUnknownTrader
	}
	return traderID, nil
}

func (m *Matcher) reject(id uint64, req OrderRequest, reason error) error {
	m.stats.OrdersRejected++
	rej := &RejectionError{OrderID: id, TraderName: req.TraderName, Reason: reason}
	if m.opts.OnReject != nil {
		m.opts.OnReject(rej)
	}
	return rej
}

func (m *Matcher) match(order *Order) (*MatchResult, error) {
	book := m.books[order.Asset]
	opposite := book.side(order.Side.Opposite())
	result := &MatchResult{OrderID: order.ID, Trades: make([]*Trade, 0)}

	for order.Remaining > 0 {
		bestPrice, ok := opposite.BestPrice()
		if !ok || !crosses(order.Side, order.Price, bestPrice) {
			break
		}

		makerID, ok := opposite.PeekFront(bestPrice)
		if !ok {
			return nil, invariantf("%s level %d has an empty queue", opposite.Side(), bestPrice)
		}
		maker, ok := m.orders[makerID]
		if !ok {
			return nil, invariantf("order %d queued at %s %d but not indexed", makerID, opposite.Side(), bestPrice)
		}

		qty := min(order.Remaining, maker.Remaining)
		if err := m.ledger.SettleFill(maker, order, qty); err != nil {
			return nil, err
		}

		// Trades print at the maker's price. A buyer reserved at its own
		// limit and gets the difference back; a seller's better price is
		// already in the proceeds.
		var improvement uint64
		if order.Side == SideBuy {
			improvement = (order.Price - maker.Price) * qty
			if err := m.ledger.RefundPriceImprovement(order.TraderID, improvement); err != nil {
				return nil, err
			}
			result.Refunded += improvement
		} else {
			improvement = (maker.Price - order.Price) * qty
		}

		if _, err := opposite.ReduceOrRemoveHead(bestPrice, qty); err != nil {
			return nil, err
		}
		if maker.IsFilled() {
			m.stats.OrdersFilled++
		}
		order.Fill(qty)

		trade := m.newTrade(maker, order, qty, improvement)
		result.Trades = append(result.Trades, trade)
		m.stats.TradesExecuted++
		m.stats.VolumeTraded += qty
		if m.opts.OnTrade != nil {
			m.opts.OnTrade(trade)
		}
	}

	if order.Remaining > 0 {
		book.side(order.Side).Insert(order)
	} else {
		delete(m.orders, order.ID)
	}

	result.Status = order.Status
	result.FilledQuantity = order.FilledQuantity()
	result.RemainingQuantity = order.Remaining
	return result, nil
}

func (m *Matcher) newTrade(maker, taker *Order, qty, improvement uint64) *Trade {
	trade := &Trade{
		TradeID:          m.opts.NewTradeID(),
		Asset:            maker.Asset,
		Price:            maker.Price,
		Quantity:         qty,
		MakerOrderID:     maker.ID,
		TakerOrderID:     taker.ID,
		TakerSide:        taker.Side,
		PriceImprovement: improvement,
		Timestamp:        m.opts.Clock().UnixMilli(),
	}
	if taker.Side == SideBuy {
		trade.BuyOrderID, trade.SellOrderID = taker.ID, maker.ID
	} else {
		trade.BuyOrderID, trade.SellOrderID = maker.ID, taker.ID
	}
	return trade
}

// Order returns a copy of an active (resting) order.
func (m *Matcher) Order(id uint64) (Order, bool) {
	o, ok := m.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

func (m *Matcher) Book(asset Asset) *OrderBook {
	if !asset.Valid() {
		return nil
	}
	return m.books[asset]
}

func (m *Matcher) Ledger() *Ledger {
	return m.ledger
}

func (m *Matcher) Balances() []Balance {
	return m.ledger.Export()
}

// ActiveOrders is the size of the active-order index.
func (m *Matcher) ActiveOrders() int {
	return len(m.orders)
}

func (m *Matcher) Stats() Stats {
	return m.stats
}
