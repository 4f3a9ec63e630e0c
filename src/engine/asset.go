package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrUnknownSide  = errors.New("unknown side")
)

// Asset identifies one of the fixed tradable instruments. The numeric value is
// the position in the balance record, so the order of the constants matters.
type Asset uint8

const (
	AssetA Asset = iota
	AssetB
	AssetC
	AssetD

	NumAssets = 4
)

var assetNames = [NumAssets]string{"A", "B", "C", "D"}

// Assets returns every asset in record order.
func Assets() []Asset {
	return []Asset{AssetA, AssetB, AssetC, AssetD}
}

func ParseAsset(s string) (Asset, error) {
	for i, name := range assetNames {
		if s == name {
			return Asset(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAsset, s)
}

func (a Asset) Valid() bool {
	return a < NumAssets
}

func (a Asset) Index() int {
	return int(a)
}

func (a Asset) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Asset(%d)", uint8(a))
	}
	return assetNames[a]
}

type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

// ParseSide accepts the record codes "b"/"s" as well as "BUY"/"SELL".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "b", "buy":
		return SideBuy, nil
	case "s", "sell":
		return SideSell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Code is the single-letter form used in order records.
func (s Side) Code() string {
	if s == SideBuy {
		return "b"
	}
	return "s"
}

func (s Side) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}
