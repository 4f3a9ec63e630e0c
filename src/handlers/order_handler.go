package handlers

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"exchange/src/config"
	"exchange/src/engine"
	"exchange/src/journal"
	"exchange/src/metrics"
	"exchange/src/models"
)

const maxLatencies = 10000

// OrderHandler serves the REST API over a single Matcher. Every call that
// touches the matcher or its ledger holds mu, so orders are processed one at
// a time in arrival order.
type OrderHandler struct {
	mu        sync.Mutex
	matcher   *engine.Matcher
	cfg       config.EngineConfig
	journal   *journal.Store
	metrics   *metrics.Metrics
	StartTime time.Time

	// haltErr is set under mu once the matcher reports corrupt state; halted
	// is closed at the same time.
	haltErr error
	halted  chan struct{}

	latencies   []time.Duration
	latenciesMu sync.RWMutex
}

// NewOrderHandler wraps matcher. store and m may be nil.
func NewOrderHandler(matcher *engine.Matcher, cfg config.EngineConfig, store *journal.Store, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{
		matcher:   matcher,
		cfg:       cfg,
		journal:   store,
		metrics:   m,
		StartTime: time.Now(),
		halted:    make(chan struct{}),
		latencies: make([]time.Duration, 0, maxLatencies),
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	orderReq, err := toOrderRequest(&req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("trader", req.Trader).
			Str("side", req.Side).
			Str("asset", req.Asset).
			Str("ip", c.IP()).
			Msg("Invalid order request")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	h.mu.Lock()
	if h.haltErr != nil {
		h.mu.Unlock()
		return haltedResponse(c)
	}
	startTime := time.Now()
	result, err := h.matcher.Submit(orderReq)
	latency := time.Since(startTime)
	resting := h.matcher.ActiveOrders()
	if errors.Is(err, engine.ErrInvariantViolation) {
		h.haltErr = err
		close(h.halted)
	}
	// journal rows are written in execution order
	h.journalResult(c, result, err)
	h.mu.Unlock()

	h.recordLatency(latency)
	if h.metrics != nil {
		h.metrics.ObserveSubmit(result, latency, resting)
	}

	var rej *engine.RejectionError
	if errors.As(err, &rej) {
		log.Warn().
			Uint64("order_id", rej.OrderID).
			Str("trader", rej.TraderName).
			Str("side", orderReq.Side.String()).
			Str("asset", orderReq.Asset.String()).
			Uint64("price", orderReq.Price).
			Uint64("quantity", orderReq.Quantity).
			Err(rej.Reason).
			Msg("Order rejected")
		id := rej.OrderID
		return c.Status(rejectionStatus(rej)).JSON(models.ErrorResponse{
			Error:   rej.Reason.Error(),
			OrderID: &id,
			Status:  string(engine.StatusRejected),
		})
	}
	if errors.Is(err, engine.ErrInvariantViolation) {
		log.Error().
			Err(err).
			Str("trader", orderReq.TraderName).
			Str("asset", orderReq.Asset.String()).
			Msg("Matcher state corrupted, order intake halted")
		return haltedResponse(c)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("trader", orderReq.TraderName).
			Str("asset", orderReq.Asset.String()).
			Msg("Error matching order")
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error: "Internal server error",
		})
	}

	trades := make([]models.TradeInfo, 0, len(result.Trades))
	for _, trade := range result.Trades {
		trades = append(trades, toTradeInfo(trade))
	}

	response := models.SubmitOrderResponse{
		OrderID:           result.OrderID,
		Status:            string(result.Status),
		FilledQuantity:    result.FilledQuantity,
		RemainingQuantity: result.RemainingQuantity,
		Refunded:          result.Refunded,
		Trades:            trades,
	}

	log.Info().
		Uint64("order_id", result.OrderID).
		Str("trader", orderReq.TraderName).
		Str("status", string(result.Status)).
		Uint64("filled_quantity", result.FilledQuantity).
		Uint64("remaining_quantity", result.RemainingQuantity).
		Int("trades_count", len(result.Trades)).
		Msg("Order processed")

	switch result.Status {
	case engine.StatusAccepted:
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case engine.StatusPartialFill:
		return c.Status(fiber.StatusAccepted).JSON(response)
	default:
		return c.Status(fiber.StatusOK).JSON(response)
	}
}

// Halted is closed once the matcher has reported corrupt state. No order is
// accepted after that.
func (h *OrderHandler) Halted() <-chan struct{} {
	return h.halted
}

// HaltErr is the invariant violation that halted the handler, or nil.
func (h *OrderHandler) HaltErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.haltErr
}

// journalResult must be called with mu held.
func (h *OrderHandler) journalResult(c *fiber.Ctx, result *engine.MatchResult, err error) {
	if h.journal == nil {
		return
	}
	var rej *engine.RejectionError
	if errors.As(err, &rej) {
		if jerr := h.journal.RecordRejection(c.UserContext(), rej); jerr != nil {
			log.Error().Err(jerr).Uint64("order_id", rej.OrderID).Msg("Failed to journal rejection")
		}
		return
	}
	if err != nil {
		return
	}
	for _, trade := range result.Trades {
		if jerr := h.journal.RecordTrade(c.UserContext(), trade); jerr != nil {
			log.Error().Err(jerr).Str("trade_id", trade.TradeID).Msg("Failed to journal trade")
		}
	}
}

func haltedResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
		Error: "Order intake halted: matcher state is inconsistent",
	})
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	asset, err := engine.ParseAsset(c.Params("asset"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	depth, err := strconv.Atoi(c.Query("depth", strconv.Itoa(h.cfg.DefaultDepth)))
	if err != nil || depth <= 0 {
		depth = h.cfg.DefaultDepth
	}
	if depth > h.cfg.MaxDepth {
		depth = h.cfg.MaxDepth
	}

	h.mu.Lock()
	bidsLevels, asksLevels := h.matcher.Book(asset).Snapshot(depth)
	h.mu.Unlock()

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Asset:     asset.String(),
		Timestamp: time.Now().UnixMilli(),
		Bids:      toLevelInfo(bidsLevels),
		Asks:      toLevelInfo(asksLevels),
	})
}

// GetOrderStatus reports resting orders only; filled and rejected orders
// leave no state behind in the matcher.
func (h *OrderHandler) GetOrderStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order id",
		})
	}

	h.mu.Lock()
	order, ok := h.matcher.Order(id)
	h.mu.Unlock()

	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Order not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderStatusResponse{
		OrderID:        order.ID,
		Trader:         order.TraderName,
		Asset:          order.Asset.String(),
		Side:           order.Side.String(),
		Price:          order.Price,
		Quantity:       order.Quantity,
		FilledQuantity: order.FilledQuantity(),
		Status:         string(order.Status),
		Timestamp:      order.Timestamp,
	})
}

func (h *OrderHandler) ListTraders(c *fiber.Ctx) error {
	h.mu.Lock()
	balances := h.matcher.Balances()
	h.mu.Unlock()

	out := make([]models.TraderResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, toTraderResponse(b))
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *OrderHandler) GetTrader(c *fiber.Ctx) error {
	name := c.Params("name")

	h.mu.Lock()
	ledger := h.matcher.Ledger()
	var (
		trader engine.Trader
		ok     bool
	)
	if id, found := ledger.Lookup(name); found {
		trader, ok = ledger.Trader(id)
	}
	h.mu.Unlock()

	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Trader not found",
		})
	}
	return c.Status(fiber.StatusOK).JSON(toTraderResponse(engine.Balance{
		Name:     trader.Name,
		Cash:     trader.Cash,
		Holdings: trader.Holdings,
	}))
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	h.mu.Lock()
	stats := h.matcher.Stats()
	inBook := h.matcher.ActiveOrders()
	halted := h.haltErr != nil
	h.mu.Unlock()

	status, code := "healthy", fiber.StatusOK
	if halted {
		status, code = "halted", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(models.HealthResponse{
		Status:          status,
		UptimeSeconds:   int64(time.Since(h.StartTime).Seconds()),
		OrdersProcessed: stats.OrdersReceived,
		OrdersInBook:    inBook,
	})
}

func (h *OrderHandler) Metrics(c *fiber.Ctx) error {
	h.mu.Lock()
	stats := h.matcher.Stats()
	inBook := h.matcher.ActiveOrders()
	h.mu.Unlock()

	p50, p99, p999 := h.calculateLatencyPercentiles()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		OrdersReceived:         stats.OrdersReceived,
		OrdersRejected:         stats.OrdersRejected,
		OrdersFilled:           stats.OrdersFilled,
		OrdersInBook:           inBook,
		TradesExecuted:         stats.TradesExecuted,
		VolumeTraded:           stats.VolumeTraded,
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		LatencyP999Ms:          p999,
		ThroughputOrdersPerSec: h.calculateThroughput(stats.OrdersReceived),
	})
}

func (h *OrderHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// rolling window: drop the oldest measurements
	if len(h.latencies) > maxLatencies {
		h.latencies = h.latencies[len(h.latencies)-maxLatencies:]
	}
}

func (h *OrderHandler) calculateLatencyPercentiles() (p50, p99, p999 float64) {
	h.latenciesMu.RLock()
	latenciesCopy := make([]time.Duration, len(h.latencies))
	copy(latenciesCopy, h.latencies)
	h.latenciesMu.RUnlock()

	if len(latenciesCopy) == 0 {
		return 0, 0, 0
	}

	sort.Slice(latenciesCopy, func(i, j int) bool {
		return latenciesCopy[i] < latenciesCopy[j]
	})

	percentile := func(q float64) float64 {
		idx := min(int(float64(len(latenciesCopy))*q), len(latenciesCopy)-1)
		return float64(latenciesCopy[idx].Nanoseconds()) / 1e6
	}
	return percentile(0.50), percentile(0.99), percentile(0.999)
}

func (h *OrderHandler) calculateThroughput(received uint64) float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(received) / uptime
}

func toOrderRequest(req *models.SubmitOrderRequest) (engine.OrderRequest, error) {
	if req.Trader == "" {
		return engine.OrderRequest{}, &ValidationError{Message: "Invalid order: trader is required"}
	}
	side, err := engine.ParseSide(req.Side)
	if err != nil {
		return engine.OrderRequest{}, &ValidationError{Message: "Invalid order: side must be BUY or SELL"}
	}
	asset, err := engine.ParseAsset(req.Asset)
	if err != nil {
		return engine.OrderRequest{}, &ValidationError{Message: "Invalid order: asset must be one of A, B, C, D"}
	}
	// zero price and quantity are left to the matcher so they consume an id
	return engine.OrderRequest{
		TraderName: req.Trader,
		Side:       side,
		Asset:      asset,
		Price:      req.Price,
		Quantity:   req.Quantity,
	}, nil
}

func rejectionStatus(rej *engine.RejectionError) int {
	switch {
	case errors.Is(rej, engine.ErrUnknownTrader):
		return fiber.StatusNotFound
	case errors.Is(rej, engine.ErrInvalidQuantity), errors.Is(rej, engine.ErrInvalidPrice), errors.Is(rej, engine.ErrInvalidAsset),
		errors.Is(rej, engine.ErrInvalidSide):
		return fiber.StatusBadRequest
	}
	return fiber.StatusUnprocessableEntity
}

func toTradeInfo(t *engine.Trade) models.TradeInfo {
	return models.TradeInfo{
		TradeID:          t.TradeID,
		Asset:            t.Asset.String(),
		Price:            t.Price,
		Quantity:         t.Quantity,
		BuyOrderID:       t.BuyOrderID,
		SellOrderID:      t.SellOrderID,
		MakerOrderID:     t.MakerOrderID,
		TakerOrderID:     t.TakerOrderID,
		TakerSide:        t.TakerSide.String(),
		PriceImprovement: t.PriceImprovement,
		Timestamp:        t.Timestamp,
	}
}

func toLevelInfo(levels []engine.LevelSnapshot) []models.PriceLevelInfo {
	out := make([]models.PriceLevelInfo, 0, len(levels))
	for _, level := range levels {
		out = append(out, models.PriceLevelInfo{
			Price:    level.Price,
			Quantity: level.Quantity,
			Orders:   level.Orders,
		})
	}
	return out
}

func toTraderResponse(b engine.Balance) models.TraderResponse {
	holdings := make(map[string]uint64, engine.NumAssets)
	for _, asset := range engine.Assets() {
		holdings[asset.String()] = b.Holdings[asset]
	}
	return models.TraderResponse{Name: b.Name, Cash: b.Cash, Holdings: holdings}
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
