package market_test

import (
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/market"
	"github.com/AloofBuddha/quantamental-dashboard/cmd/feedserver/internal/testutils"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

func TestGenerator_Logic(t *testing.T) {
	logger := zap.NewNop()

	// Fix Randomness: identity sampling, z = +1, volume factor = 1.0
	mockRand := &testutils.MockRand{ValInt: 0, ValNorm: 1.0, ValFloat: 0.5}

	// Large-cap Consumer: volatility = 0.010 * 1.0
	universe := []models.Stock{
		{Symbol: "KO", Name: "Coca-Cola Co.", Sector: "Consumer", MarketCap: 50e9,
			Open: 100, Price: 100, Volume: 1_000_000, Score: 50},
		{Symbol: "PEP", Name: "PepsiCo Inc.", Sector: "Consumer", MarketCap: 50e9,
			Open: 200, Price: 200, Volume: 2_000_000, Score: 50},
	}
	store := market.NewStore(universe)
	gen := market.NewGenerator(logger, store, 0.5, mockRand)

	deltas := gen.Tick()

	// floor(2 * 0.5) = 1 delta; identity sampling picks KO
	if len(deltas) != 1 {
		t.Fatalf("Expected 1 delta, got %d", len(deltas))
	}
	d := deltas[0]
	if d.Symbol != "KO" {
		t.Fatalf("Expected KO, got %s", d.Symbol)
	}

	// price' = 100 * (1 + 1.0*0.010) = 101
	if d.Price == nil || math.Abs(*d.Price-101.0) > 1e-9 {
		t.Errorf("Expected price 101.0, got %v", d.Price)
	}
	// percentChange vs open: (101-100)/100 * 100 = 1%
	if d.PercentChange == nil || math.Abs(*d.PercentChange-1.0) > 1e-9 {
		t.Errorf("Expected percentChange 1.0, got %v", d.PercentChange)
	}
	// score nudge: 1% move * 0.8 gain = +0.8 on a base of 50
	if d.Score == nil || math.Abs(*d.Score-50.8) > 1e-9 {
		t.Errorf("Expected score 50.8, got %v", d.Score)
	}
	// volume factor = 1 + (0.5*2 - 1)*0.1 = 1.0, so volume is unchanged and omitted
	if d.Volume != nil {
		t.Errorf("Expected volume omitted, got %d", *d.Volume)
	}

	// the walk mutates the store in place
	ko, _ := store.Get("KO")
	if math.Abs(ko.Price-101.0) > 1e-9 {
		t.Errorf("Store price not updated, got %f", ko.Price)
	}

	// the unsampled stock is untouched
	pep, _ := store.Get("PEP")
	if pep.Price != 200 || pep.Score != 50 {
		t.Errorf("Unsampled PEP changed: %+v", pep)
	}
}

func TestGenerator_TicksCompound(t *testing.T) {
	logger := zap.NewNop()
	mockRand := &testutils.MockRand{ValInt: 0, ValNorm: 1.0, ValFloat: 0.5}

	universe := []models.Stock{
		{Symbol: "KO", Sector: "Consumer", MarketCap: 50e9, Open: 100, Price: 100, Volume: 1000, Score: 50},
	}
	store := market.NewStore(universe)
	gen := market.NewGenerator(logger, store, 1.0, mockRand)

	gen.Tick()
	gen.Tick()

	// each tick walks from the mutated price: 100 * 1.01 * 1.01 = 102.01
	ko, _ := store.Get("KO")
	if math.Abs(ko.Price-102.01) > 1e-9 {
		t.Errorf("Expected compounded price 102.01, got %f", ko.Price)
	}
}

func TestGenerator_FloorsAndClamps(t *testing.T) {
	logger := zap.NewNop()

	// Massive downward shock on a small-cap tech stock:
	// volatility = 0.020 * 1.8 = 0.036, z = -20 -> raw price' = 0.02 * (1 - 0.72) < 0.01
	mockRand := &testutils.MockRand{ValInt: 0, ValNorm: -20, ValFloat: 0.5}
	universe := []models.Stock{
		{Symbol: "QAAA", Sector: "Technology", MarketCap: 1e9, Open: 0.02, Price: 0.02, Volume: 1000, Score: 2},
	}
	store := market.NewStore(universe)
	gen := market.NewGenerator(logger, store, 1.0, mockRand)

	deltas := gen.Tick()
	if len(deltas) != 1 {
		t.Fatalf("Expected 1 delta, got %d", len(deltas))
	}

	// price floored at a penny
	if deltas[0].Price == nil || *deltas[0].Price != 0.01 {
		t.Errorf("Expected price floored at 0.01, got %v", deltas[0].Price)
	}
	// move = -50%, nudge clamped to -5, score clamped at 0
	if deltas[0].Score == nil || *deltas[0].Score != 0 {
		t.Errorf("Expected score clamped at 0, got %v", deltas[0].Score)
	}

	// Mirror shock upward: score is capped at 100
	mockRand2 := &testutils.MockRand{ValInt: 0, ValNorm: 20, ValFloat: 0.5}
	store2 := market.NewStore([]models.Stock{
		{Symbol: "QAAB", Sector: "Technology", MarketCap: 1e9, Open: 100, Price: 100, Volume: 1000, Score: 98},
	})
	gen2 := market.NewGenerator(logger, store2, 1.0, mockRand2)

	deltas2 := gen2.Tick()
	if len(deltas2) != 1 {
		t.Fatalf("Expected 1 delta, got %d", len(deltas2))
	}
	if deltas2[0].Score == nil || *deltas2[0].Score != 100 {
		t.Errorf("Expected score clamped at 100, got %v", deltas2[0].Score)
	}
}

func TestGenerator_SampleFraction(t *testing.T) {
	logger := zap.NewNop()
	rnd := market.RealRand{Rand: rand.New(rand.NewSource(42))}

	universe := market.BuildUniverse(2000, rnd)
	store := market.NewStore(universe)
	gen := market.NewGenerator(logger, store, 0.1, rnd)

	before := make(map[string]models.Stock, len(universe))
	for _, st := range store.Snapshot() {
		before[st.Symbol] = st
	}

	deltas := gen.Tick()

	// floor(2000 * 0.1) = 200 deltas, one per sampled stock
	if len(deltas) != 200 {
		t.Fatalf("Expected 200 deltas, got %d", len(deltas))
	}

	seen := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		if seen[d.Symbol] {
			t.Errorf("Duplicate delta for %s in one tick", d.Symbol)
		}
		seen[d.Symbol] = true
		if d.Empty() {
			t.Errorf("Empty delta emitted for %s", d.Symbol)
		}
	}

	// sampled stocks changed, unsampled stocks are byte-for-byte untouched
	for _, st := range store.Snapshot() {
		prev := before[st.Symbol]
		if seen[st.Symbol] {
			if st == prev {
				t.Errorf("Sampled stock %s did not change", st.Symbol)
			}
		} else if st != prev {
			t.Errorf("Unsampled stock %s changed", st.Symbol)
		}
	}
}

func TestGenerator_ZeroFraction(t *testing.T) {
	logger := zap.NewNop()
	rnd := market.RealRand{Rand: rand.New(rand.NewSource(1))}

	store := market.NewStore(market.BuildUniverse(10, rnd))
	gen := market.NewGenerator(logger, store, 0, rnd)

	if deltas := gen.Tick(); len(deltas) != 0 {
		t.Errorf("Expected no deltas at fraction 0, got %d", len(deltas))
	}
}
