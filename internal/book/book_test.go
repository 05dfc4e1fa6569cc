package book

import (
	"testing"

	"marketmaker/pkg/decimal"
	"marketmaker/pkg/types"
)

func lvl(price, size string) types.PriceLevel {
	return types.PriceLevel{Price: decimal.MustParse(price), Size: decimal.MustParse(size)}
}

func TestBookSnapshotAndMidPrice(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	b.Reset(
		[]types.PriceLevel{lvl("100", "1"), lvl("99", "2")},
		[]types.PriceLevel{lvl("101", "1"), lvl("102", "2")},
		1,
	)

	bidPrice, bidSize, ok := b.BestBid()
	if !ok || bidPrice.String() != "100.000000" || bidSize.String() != "1.000000" {
		t.Fatalf("unexpected best bid: %v %v %v", bidPrice, bidSize, ok)
	}
	askPrice, askSize, ok := b.BestAsk()
	if !ok || askPrice.String() != "101.000000" || askSize.String() != "1.000000" {
		t.Fatalf("unexpected best ask: %v %v %v", askPrice, askSize, ok)
	}

	mid, ok := b.MidPrice()
	if !ok || mid.String() != "100.500000" {
		t.Fatalf("mid price = %v, ok=%v, want 100.500000", mid, ok)
	}
}

func TestBookDeltaReplacesNotSums(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	b.Reset([]types.PriceLevel{lvl("100", "1")}, nil, 1)

	// delta at the same price should replace, not add to, the existing size
	b.ApplyDelta([]types.PriceLevel{lvl("100", "5")}, nil, 2)
	_, size, _ := b.BestBid()
	if got := size.String(); got != "5.000000" {
		t.Fatalf("size after delta = %s, want 5.000000 (replace, not sum)", got)
	}

	// zero-size delta removes the level
	b.ApplyDelta([]types.PriceLevel{lvl("100", "0")}, nil, 3)
	if _, _, ok := b.BestBid(); ok {
		t.Fatal("expected level to be removed on zero-size delta")
	}
}

func TestBookDepthTrim(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 2)
	b.Reset(
		[]types.PriceLevel{lvl("100", "1"), lvl("99", "1"), lvl("98", "1")},
		nil,
		1,
	)
	snap := b.Snapshot()
	if len(snap.Bids) != 2 {
		t.Fatalf("expected depth trimmed to 2, got %d levels", len(snap.Bids))
	}
	if snap.Bids[0].Price.String() != "100.000000" || snap.Bids[1].Price.String() != "99.000000" {
		t.Fatalf("unexpected trimmed levels: %+v", snap.Bids)
	}
}

func TestSimulateBuyWalksAsksWithoutMutating(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	b.Reset(nil, []types.PriceLevel{lvl("101", "1"), lvl("102", "2")}, 1)

	fills, remaining := b.SimulateBuy(decimal.MustParse("102"), decimal.MustParse("2"))
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %d", len(fills))
	}
	if fills[0].Price.String() != "101.000000" || fills[0].Size.String() != "1.000000" {
		t.Fatalf("unexpected first fill: %+v", fills[0])
	}
	if fills[1].Price.String() != "102.000000" || fills[1].Size.String() != "1.000000" {
		t.Fatalf("unexpected second fill: %+v", fills[1])
	}
	if !remaining.IsZero() {
		t.Fatalf("expected remaining 0, got %s", remaining)
	}

	// book must be unchanged
	askPrice, askSize, _ := b.BestAsk()
	if askPrice.String() != "101.000000" || askSize.String() != "1.000000" {
		t.Fatalf("simulate mutated the book: %v %v", askPrice, askSize)
	}
}

func TestSimulateSellStopsWhenLiquidityExhausted(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	b.Reset([]types.PriceLevel{lvl("100", "1")}, nil, 1)

	fills, remaining := b.SimulateSell(decimal.MustParse("100"), decimal.MustParse("5"))
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if fills[0].Size.String() != "1.000000" {
		t.Fatalf("expected fill capped at available size, got %s", fills[0].Size)
	}
	if remaining.String() != "4.000000" {
		t.Fatalf("expected remaining 4, got %s", remaining)
	}
}

// TestSimulateBuyLimitScenario is spec.md §8 scenario 1, verbatim.
func TestSimulateBuyLimitScenario(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	b.Reset(
		[]types.PriceLevel{lvl("100", "1"), lvl("99", "2")},
		[]types.PriceLevel{lvl("101", "1"), lvl("102", "2"), lvl("103", "3")},
		1,
	)

	fills, remaining := b.SimulateBuy(decimal.MustParse("102"), decimal.MustParse("4"))
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills, got %+v", fills)
	}
	if fills[0].Price.String() != "101.000000" || fills[0].Size.String() != "1.000000" {
		t.Fatalf("unexpected first fill: %+v", fills[0])
	}
	if fills[1].Price.String() != "102.000000" || fills[1].Size.String() != "2.000000" {
		t.Fatalf("unexpected second fill: %+v", fills[1])
	}
	if remaining.String() != "1.000000" {
		t.Fatalf("expected remaining 1, got %s", remaining)
	}

	fills, remaining = b.SimulateBuy(decimal.MustParse("100"), decimal.MustParse("4"))
	if len(fills) != 0 {
		t.Fatalf("expected no fills below best ask, got %+v", fills)
	}
	if remaining.String() != "4.000000" {
		t.Fatalf("expected remaining 4, got %s", remaining)
	}
}

func TestBookInsertRejectsNonPositiveSize(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	if err := b.Insert(types.Bid, decimal.MustParse("100"), decimal.Zero); err == nil {
		t.Fatal("expected error inserting non-positive size")
	}
	if err := b.Insert(types.Bid, decimal.MustParse("100"), decimal.MustParse("1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	price, size, ok := b.BestBid()
	if !ok || price.String() != "100.000000" || size.String() != "1.000000" {
		t.Fatalf("unexpected book state after insert: %v %v %v", price, size, ok)
	}
}

func TestBookRemoveFailsOnAbsentLevel(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	if err := b.Remove(types.Ask, decimal.MustParse("101")); err == nil {
		t.Fatal("expected error removing absent level")
	}
	if err := b.Insert(types.Ask, decimal.MustParse("101"), decimal.MustParse("1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := b.Remove(types.Ask, decimal.MustParse("101")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, ok := b.BestAsk(); ok {
		t.Fatal("expected level to be gone after remove")
	}
}

func TestBookAdjust(t *testing.T) {
	t.Parallel()
	b := New("BTCUSD", 0)
	if err := b.Adjust(types.Bid, decimal.MustParse("100"), decimal.MustParse("1")); err == nil {
		t.Fatal("expected error adjusting absent level")
	}

	if err := b.Insert(types.Bid, decimal.MustParse("100"), decimal.MustParse("2")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := b.Adjust(types.Bid, decimal.MustParse("100"), decimal.MustParse("-1")); err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	_, size, _ := b.BestBid()
	if size.String() != "1.000000" {
		t.Fatalf("expected size 1 after adjust, got %s", size)
	}

	if err := b.Adjust(types.Bid, decimal.MustParse("100"), decimal.MustParse("-5")); err == nil {
		t.Fatal("expected error on adjust that would go negative")
	}

	if err := b.Adjust(types.Bid, decimal.MustParse("100"), decimal.MustParse("-1")); err != nil {
		t.Fatalf("Adjust to zero: %v", err)
	}
	if _, _, ok := b.BestBid(); ok {
		t.Fatal("expected level removed after adjust to exactly zero")
	}
}
