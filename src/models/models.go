package models

type SubmitOrderRequest struct {
	Trader   string `json:"trader"`
	Side     string `json:"side"`  // BUY, SELL, b or s
	Asset    string `json:"asset"` // A, B, C or D
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID           uint64      `json:"order_id"`
	Status            string      `json:"status"`
	Message           string      `json:"message,omitempty"`
	FilledQuantity    uint64      `json:"filled_quantity"`
	RemainingQuantity uint64      `json:"remaining_quantity"`
	Refunded          uint64      `json:"refunded,omitempty"` // price improvement returned to a buyer
	Trades            []TradeInfo `json:"trades,omitempty"`
}

type TradeInfo struct {
	TradeID          string `json:"trade_id"`
	Asset            string `json:"asset"`
	Price            uint64 `json:"price"`
	Quantity         uint64 `json:"quantity"`
	BuyOrderID       uint64 `json:"buy_order_id"`
	SellOrderID      uint64 `json:"sell_order_id"`
	MakerOrderID     uint64 `json:"maker_order_id"`
	TakerOrderID     uint64 `json:"taker_order_id"`
	TakerSide        string `json:"taker_side"` // BUY or SELL
	PriceImprovement uint64 `json:"price_improvement"`
	Timestamp        int64  `json:"timestamp"` // unix timestamp in milliseconds
}

type ErrorResponse struct {
	Error   string  `json:"error"`
	OrderID *uint64 `json:"order_id,omitempty"`
	Status  string  `json:"status,omitempty"` // REJECTED when the matcher refused the order
}

type OrderBookResponse struct {
	Asset     string           `json:"asset"`
	Timestamp int64            `json:"timestamp"` // unix timestamp in milliseconds
	Bids      []PriceLevelInfo `json:"bids"`      // sorted descending (highest first)
	Asks      []PriceLevelInfo `json:"asks"`      // sorted ascending (lowest first)
}

type PriceLevelInfo struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"` // aggregated quantity at this price
	Orders   int    `json:"orders"`
}

type OrderStatusResponse struct {
	OrderID        uint64 `json:"order_id"`
	Trader         string `json:"trader"`
	Asset          string `json:"asset"`
	Side           string `json:"side"`
	Price          uint64 `json:"price"`
	Quantity       uint64 `json:"quantity"`
	FilledQuantity uint64 `json:"filled_quantity"`
	Status         string `json:"status"`
	Timestamp      int64  `json:"timestamp"` // unix timestamp in milliseconds
}

type TraderResponse struct {
	Name     string            `json:"name"`
	Cash     uint64            `json:"cash"`
	Holdings map[string]uint64 `json:"holdings"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	OrdersProcessed uint64 `json:"orders_processed"`
	OrdersInBook    int    `json:"orders_in_book"`
}

type MetricsResponse struct {
	OrdersReceived         uint64  `json:"orders_received"`
	OrdersRejected         uint64  `json:"orders_rejected"`
	OrdersFilled           uint64  `json:"orders_filled"`
	OrdersInBook           int     `json:"orders_in_book"`
	TradesExecuted         uint64  `json:"trades_executed"`
	VolumeTraded           uint64  `json:"volume_traded"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	LatencyP999Ms          float64 `json:"latency_p999_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
