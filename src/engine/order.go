package engine

type OrderStatus string

const (
	StatusAccepted    OrderStatus = "ACCEPTED"
	StatusPartialFill OrderStatus = "PARTIAL_FILL"
	StatusFilled      OrderStatus = "FILLED"
	StatusRejected    OrderStatus = "REJECTED"
)

// OrderRequest is an intake record before the engine assigns it an id.
type OrderRequest struct {
	TraderName string
	Side       Side
	Asset      Asset
	Price      uint64
	Quantity   uint64
}

// Order is the engine's single mutable copy of an order. Price levels refer
// to it by ID only; every change goes through the active-order index.
type Order struct {
	ID         uint64
	TraderID   int
	TraderName string
	Side       Side
	Asset      Asset
	Price      uint64 // limit price
	Quantity   uint64 // original quantity
	Remaining  uint64
	Status     OrderStatus
	Timestamp  int64
}

func newOrder(id uint64, traderID int, req OrderRequest, ts int64) *Order {
	return &Order{
		ID:         id,
		TraderID:   traderID,
		TraderName: req.TraderName,
		Side:       req.Side,
		Asset:      req.Asset,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Remaining:  req.Quantity,
		Status:     StatusAccepted,
		Timestamp:  ts,
	}
}

func (o *Order) FilledQuantity() uint64 {
	return o.Quantity - o.Remaining
}

func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// Fill takes qty off the remaining quantity. The caller guarantees
// qty <= Remaining.
func (o *Order) Fill(qty uint64) {
	o.Remaining -= qty
	if o.Remaining == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartialFill
	}
}

// Trade is one fill between a resting maker and an incoming taker. Price is
// always the maker's limit price.
type Trade struct {
	TradeID          string
	Asset            Asset
	Price            uint64
	Quantity         uint64
	BuyOrderID       uint64
	SellOrderID      uint64
	MakerOrderID     uint64
	TakerOrderID     uint64
	TakerSide        Side
	PriceImprovement uint64
	Timestamp        int64
}
