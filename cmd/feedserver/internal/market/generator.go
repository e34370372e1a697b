package market

import (
	"go.uber.org/zap"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

const (
	priceFloor   = 0.01 // a stock never walks to zero or negative
	volumeJitter = 0.10 // max symmetric volume move per tick
	scoreGain    = 0.8  // score points per percent of price move
	scoreStep    = 5.0  // max score movement in one tick
)

// Generator drives the random walk. Each Tick samples a fixed fraction of
// the universe without replacement, mutates the sampled stocks in the Store
// so subsequent ticks compound, and returns one delta per sampled stock.
// Unsampled stocks never appear in the result.
type Generator struct {
	logger   *zap.Logger
	store    *Store
	rand     Rand
	fraction float64
	symbols  []string
	vol      map[string]float64 // fixed per-symbol volatility
	scratch  []int              // reusable permutation for sampling
}

func NewGenerator(logger *zap.Logger, store *Store, fraction float64, rnd Rand) *Generator {
	symbols := store.Symbols()

	// Volatility is derived once from sector and market-cap class and never
	// recomputed, even as prices move the cap around.
	vol := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		st, _ := store.Get(sym)
		vol[sym] = volatilityFor(st.Sector, st.MarketCap)
	}

	scratch := make([]int, len(symbols))
	for i := range scratch {
		scratch[i] = i
	}

	return &Generator{
		logger:   logger,
		store:    store,
		rand:     rnd,
		fraction: fraction,
		symbols:  symbols,
		vol:      vol,
		scratch:  scratch,
	}
}

// Tick runs one generation step and returns the non-empty deltas.
func (g *Generator) Tick() []models.StockDelta {
	n := len(g.symbols)
	k := int(float64(n) * g.fraction)
	if k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	// Partial Fisher-Yates: after k swaps the first k scratch entries are a
	// uniform sample without replacement. The slice stays a permutation
	// across ticks, so no reset is needed.
	for i := 0; i < k; i++ {
		j := i + g.rand.Intn(n-i)
		g.scratch[i], g.scratch[j] = g.scratch[j], g.scratch[i]
	}
	sampled := make([]string, k)
	for i := 0; i < k; i++ {
		sampled[i] = g.symbols[g.scratch[i]]
	}

	deltas := make([]models.StockDelta, 0, k)
	g.store.MutateBatch(sampled, func(st *models.Stock) {
		if d := g.nudge(st); !d.Empty() {
			deltas = append(deltas, d)
		}
	})
	return deltas
}

// nudge walks one stock's fast-moving fields in place and reports what moved.
func (g *Generator) nudge(st *models.Stock) models.StockDelta {
	d := models.StockDelta{Symbol: st.Symbol}

	// price' = price * (1 + z*vol), z standard normal
	z := g.rand.NormFloat64()
	price := st.Price * (1 + z*g.vol[st.Symbol])
	if price < priceFloor {
		price = priceFloor
	}

	if price != st.Price {
		move := 0.0
		if st.Price != 0 {
			move = (price - st.Price) / st.Price * 100
		}

		pct := 0.0
		if st.Open != 0 {
			pct = (price - st.Open) / st.Open * 100
		}

		st.Price = price
		st.PercentChange = pct
		d.Price = &price
		d.PercentChange = &pct

		// The score is nudged from the move rather than recomputed from the
		// fundamentals, matching how the live composite behaves intra-day.
		nudge := clamp(move*scoreGain, -scoreStep, scoreStep)
		if nudge != 0 {
			score := clamp(st.Score+nudge, 0, 100)
			if score != st.Score {
				st.Score = score
				d.Score = &score
			}
		}
	}

	// Volume takes a small symmetric hit every sample, floored at zero.
	factor := 1 + (g.rand.Float64()*2-1)*volumeJitter
	volume := int64(float64(st.Volume) * factor)
	if volume < 0 {
		volume = 0
	}
	if volume != st.Volume {
		st.Volume = volume
		d.Volume = &volume
	}

	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
