package journal

import (
	"context"
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
	"github.com/pkg/errors"

	"exchange/src/engine"
)

// Store is an append-only audit log of trades and rejected orders. Nothing
// is ever read back into the engine.
type Store struct {
	db *sql.DB
}

type TradeRow struct {
	TradeID          string
	Asset            string
	Price            uint64
	Quantity         uint64
	BuyOrderID       uint64
	SellOrderID      uint64
	MakerOrderID     uint64
	TakerOrderID     uint64
	TakerSide        string
	PriceImprovement uint64
	Timestamp        int64
}

type RejectionRow struct {
	OrderID    uint64
	TraderName string
	Reason     string
}

// Open creates or opens the journal at path with WAL mode enabled.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one connection keeps ":memory:" databases alive and writes ordered
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "set pragma %s", pragma)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			asset TEXT NOT NULL,
			price INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			buy_order_id INTEGER NOT NULL,
			sell_order_id INTEGER NOT NULL,
			maker_order_id INTEGER NOT NULL,
			taker_order_id INTEGER NOT NULL,
			taker_side TEXT NOT NULL,
			price_improvement INTEGER NOT NULL,
			ts INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create trades table")
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rejections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER NOT NULL,
			trader_name TEXT NOT NULL,
			reason TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create rejections table")
	}

	return &Store{db: db}, nil
}

func (s *Store) RecordTrade(ctx context.Context, t *engine.Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (trade_id, asset, price, quantity, buy_order_id, sell_order_id,
			maker_order_id, taker_order_id, taker_side, price_improvement, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Asset.String(), int64(t.Price), int64(t.Quantity), int64(t.BuyOrderID), int64(t.SellOrderID),
		int64(t.MakerOrderID), int64(t.TakerOrderID), t.TakerSide.String(), int64(t.PriceImprovement), t.Timestamp,
	)
	return errors.Wrapf(err, "insert trade %s", t.TradeID)
}

func (s *Store) RecordRejection(ctx context.Context, rej *engine.RejectionError) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rejections (order_id, trader_name, reason) VALUES (?, ?, ?)",
		int64(rej.OrderID), rej.TraderName, rej.Reason.Error(),
	)
	return errors.Wrapf(err, "insert rejection for order %d", rej.OrderID)
}

// Trades returns every journaled trade in insertion order.
func (s *Store) Trades(ctx context.Context) ([]TradeRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, asset, price, quantity, buy_order_id, sell_order_id,
			maker_order_id, taker_order_id, taker_side, price_improvement, ts
		FROM trades ORDER BY rowid ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "query trades")
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var r TradeRow
		var price, qty, buy, sell, maker, taker, improvement int64
		if err := rows.Scan(&r.TradeID, &r.Asset, &price, &qty, &buy, &sell,
			&maker, &taker, &r.TakerSide, &improvement, &r.Timestamp); err != nil {
			return nil, errors.Wrap(err, "scan trade")
		}
		r.Price, r.Quantity = uint64(price), uint64(qty)
		r.BuyOrderID, r.SellOrderID = uint64(buy), uint64(sell)
		r.MakerOrderID, r.TakerOrderID = uint64(maker), uint64(taker)
		r.PriceImprovement = uint64(improvement)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate trades")
}

func (s *Store) Rejections(ctx context.Context) ([]RejectionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT order_id, trader_name, reason FROM rejections ORDER BY id ASC")
	if err != nil {
		return nil, errors.Wrap(err, "query rejections")
	}
	defer rows.Close()

	var out []RejectionRow
	for rows.Next() {
		var r RejectionRow
		var id int64
		if err := rows.Scan(&id, &r.TraderName, &r.Reason); err != nil {
			return nil, errors.Wrap(err, "scan rejection")
		}
		r.OrderID = uint64(id)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate rejections")
}

func (s *Store) Close() error {
	return s.db.Close()
}
