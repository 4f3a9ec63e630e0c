package engine_test

import (
	"testing"

	"exchange/src/engine"
)

const benchTraders = 64

func benchMatcher(b *testing.B) *engine.Matcher {
	b.Helper()
	ledger := engine.NewLedger()
	for i := 0; i < benchTraders; i++ {
		name := "T" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		_, err := ledger.Add(name, 1<<40, [engine.NumAssets]uint64{1 << 30, 1 << 30, 1 << 30, 1 << 30})
		if err != nil {
			b.Fatal(err)
		}
	}
	return engine.NewMatcher(ledger, &engine.Options{NewTradeID: func() string { return "" }})
}

func BenchmarkSubmitResting(b *testing.B) {
	m := benchMatcher(b)
	balances := m.Balances()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := limit(balances[i%benchTraders].Name, engine.SideSell, engine.AssetA, uint64(15050+i%50), 1)
		if _, err := m.Submit(req); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSubmitCrossing keeps a deep ask side and sweeps one level per
// buy, replenishing it so the book never drains.
func BenchmarkSubmitCrossing(b *testing.B) {
	m := benchMatcher(b)
	balances := m.Balances()
	for i := 0; i < 1000; i++ {
		if _, err := m.Submit(limit(balances[i%benchTraders].Name, engine.SideSell, engine.AssetB, uint64(100+i%50), 100)); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buyer := balances[i%benchTraders].Name
		seller := balances[(i+1)%benchTraders].Name
		if _, err := m.Submit(limit(buyer, engine.SideBuy, engine.AssetB, 200, 50)); err != nil {
			b.Fatal(err)
		}
		if _, err := m.Submit(limit(seller, engine.SideSell, engine.AssetB, uint64(100+i%50), 50)); err != nil {
			b.Fatal(err)
		}
	}
}
