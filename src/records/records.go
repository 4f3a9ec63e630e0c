// Package records reads and writes the space-separated trader and order
// files consumed by a batch run.
//
//	trader: NAME CASH A B C D
//	order:  NAME b|s ASSET PRICE QUANTITY
package records

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"exchange/src/engine"
)

var ErrMalformedRecord = errors.New("malformed record")

const (
	traderFields = 2 + engine.NumAssets
	orderFields  = 5
)

func ParseTrader(line string) (engine.Balance, error) {
	parts := strings.Fields(line)
	if len(parts) != traderFields {
		return engine.Balance{}, fmt.Errorf("%w: trader wants %d fields, got %d", ErrMalformedRecord, traderFields, len(parts))
	}

	rec := engine.Balance{Name: parts[0]}
	cash, err := parseUint("cash", parts[1])
	if err != nil {
		return engine.Balance{}, err
	}
	rec.Cash = cash
	for _, asset := range engine.Assets() {
		qty, err := parseUint("asset "+asset.String(), parts[2+asset.Index()])
		if err != nil {
			return engine.Balance{}, err
		}
		rec.Holdings[asset] = qty
	}
	return rec, nil
}

func ParseOrder(line string) (engine.OrderRequest, error) {
	parts := strings.Fields(line)
	if len(parts) != orderFields {
		return engine.OrderRequest{}, fmt.Errorf("%w: order wants %d fields, got %d", ErrMalformedRecord, orderFields, len(parts))
	}

	side, err := parseSideCode(parts[1])
	if err != nil {
		return engine.OrderRequest{}, err
	}
	asset, err := engine.ParseAsset(parts[2])
	if err != nil {
		return engine.OrderRequest{}, err
	}
	price, err := parseUint("price", parts[3])
	if err != nil {
		return engine.OrderRequest{}, err
	}
	qty, err := parseUint("quantity", parts[4])
	if err != nil {
		return engine.OrderRequest{}, err
	}

	return engine.OrderRequest{
		TraderName: parts[0],
		Side:       side,
		Asset:      asset,
		Price:      price,
		Quantity:   qty,
	}, nil
}

// parseSideCode only accepts the single-letter record codes.
func parseSideCode(s string) (engine.Side, error) {
	switch s {
	case "b":
		return engine.SideBuy, nil
	case "s":
		return engine.SideSell, nil
	}
	return 0, fmt.Errorf("%w: side %q", ErrMalformedRecord, s)
}

func parseUint(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an unsigned integer", ErrMalformedRecord, field, s)
	}
	return v, nil
}

func LoadTraders(r io.Reader) ([]engine.Balance, error) {
	var out []engine.Balance
	err := scanLines(r, func(line string) error {
		rec, err := ParseTrader(line)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func LoadOrders(r io.Reader) ([]engine.OrderRequest, error) {
	var out []engine.OrderRequest
	err := scanLines(r, func(line string) error {
		rec, err := ParseOrder(line)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func scanLines(r io.Reader, fn func(line string) error) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
	}
	return errors.Wrap(sc.Err(), "read records")
}

func LoadTradersFile(path string) ([]engine.Balance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open traders")
	}
	defer f.Close()

	recs, err := LoadTraders(f)
	return recs, errors.Wrapf(err, "traders %s", path)
}

func LoadOrdersFile(path string) ([]engine.OrderRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open orders")
	}
	defer f.Close()

	recs, err := LoadOrders(f)
	return recs, errors.Wrapf(err, "orders %s", path)
}

// WriteBalances writes one trader record per line, in the field order
// LoadTraders reads.
func WriteBalances(w io.Writer, balances []engine.Balance) error {
	bw := bufio.NewWriter(w)
	for _, b := range balances {
		bw.WriteString(b.Name)
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatUint(b.Cash, 10))
		for _, q := range b.Holdings {
			bw.WriteByte(' ')
			bw.WriteString(strconv.FormatUint(q, 10))
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write balances")
}

// WriteBalancesFile replaces path atomically so a failed run never leaves a
// half-written trader file behind.
func WriteBalancesFile(path string, balances []engine.Balance) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp balances")
	}
	defer os.Remove(tmp.Name())

	if err := WriteBalances(tmp, balances); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp balances")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "replace %s", path)
}
