package market

import (
	"fmt"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
)

// catalogEntry is a hand-picked ticker seed. The catalog covers every sector
// so small universes still look like a real watchlist.
type catalogEntry struct {
	Symbol string
	Name   string
	Sector string
}

var catalog = []catalogEntry{
	{"AAPL", "Apple Inc.", "Technology"},
	{"MSFT", "Microsoft Corp.", "Technology"},
	{"GOOG", "Alphabet Inc.", "Communication"},
	{"AMZN", "Amazon.com Inc.", "Consumer"},
	{"NVDA", "NVIDIA Corp.", "Technology"},
	{"META", "Meta Platforms Inc.", "Communication"},
	{"TSLA", "Tesla Inc.", "Consumer"},
	{"BRK.B", "Berkshire Hathaway", "Financials"},
	{"JPM", "JPMorgan Chase & Co.", "Financials"},
	{"V", "Visa Inc.", "Financials"},
	{"JNJ", "Johnson & Johnson", "Healthcare"},
	{"UNH", "UnitedHealth Group", "Healthcare"},
	{"XOM", "Exxon Mobil Corp.", "Energy"},
	{"CVX", "Chevron Corp.", "Energy"},
	{"PG", "Procter & Gamble", "Consumer"},
	{"HD", "Home Depot Inc.", "Consumer"},
	{"MA", "Mastercard Inc.", "Financials"},
	{"BAC", "Bank of America", "Financials"},
	{"ABBV", "AbbVie Inc.", "Healthcare"},
	{"PFE", "Pfizer Inc.", "Healthcare"},
	{"KO", "Coca-Cola Co.", "Consumer"},
	{"PEP", "PepsiCo Inc.", "Consumer"},
	{"COST", "Costco Wholesale", "Consumer"},
	{"AVGO", "Broadcom Inc.", "Technology"},
	{"ORCL", "Oracle Corp.", "Technology"},
	{"CSCO", "Cisco Systems", "Technology"},
	{"CRM", "Salesforce Inc.", "Technology"},
	{"AMD", "Advanced Micro Devices", "Technology"},
	{"INTC", "Intel Corp.", "Technology"},
	{"NFLX", "Netflix Inc.", "Communication"},
	{"DIS", "Walt Disney Co.", "Communication"},
	{"VZ", "Verizon Communications", "Communication"},
	{"T", "AT&T Inc.", "Communication"},
	{"WMT", "Walmart Inc.", "Consumer"},
	{"NKE", "Nike Inc.", "Consumer"},
	{"MCD", "McDonald's Corp.", "Consumer"},
	{"BA", "Boeing Co.", "Industrials"},
	{"CAT", "Caterpillar Inc.", "Industrials"},
	{"GE", "General Electric", "Industrials"},
	{"UPS", "United Parcel Service", "Industrials"},
	{"HON", "Honeywell International", "Industrials"},
	{"LMT", "Lockheed Martin", "Industrials"},
	{"NEE", "NextEra Energy", "Utilities"},
	{"DUK", "Duke Energy Corp.", "Utilities"},
	{"SO", "Southern Co.", "Utilities"},
	{"LIN", "Linde plc", "Materials"},
	{"FCX", "Freeport-McMoRan", "Materials"},
	{"NEM", "Newmont Corp.", "Materials"},
	{"AMT", "American Tower Corp.", "RealEstate"},
	{"PLD", "Prologis Inc.", "RealEstate"},
	{"SPG", "Simon Property Group", "RealEstate"},
	{"GS", "Goldman Sachs Group", "Financials"},
	{"MS", "Morgan Stanley", "Financials"},
	{"SLB", "Schlumberger Ltd.", "Energy"},
	{"COP", "ConocoPhillips", "Energy"},
	{"MRK", "Merck & Co.", "Healthcare"},
	{"LLY", "Eli Lilly and Co.", "Healthcare"},
	{"TMO", "Thermo Fisher Scientific", "Healthcare"},
	{"ADBE", "Adobe Inc.", "Technology"},
	{"QCOM", "Qualcomm Inc.", "Technology"},
}

// sectorVolatility is the per-tick price volatility baseline by sector.
// Tuned so a typical large cap moves well under a percent per tick.
var sectorVolatility = map[string]float64{
	"Technology":    0.020,
	"Communication": 0.016,
	"Energy":        0.018,
	"Financials":    0.015,
	"Materials":     0.013,
	"Healthcare":    0.012,
	"Industrials":   0.011,
	"Consumer":      0.010,
	"RealEstate":    0.009,
	"Utilities":     0.006,
}

// sectorSuffix names synthetic tickers plausibly for their sector.
var sectorSuffix = map[string]string{
	"Technology":    "Technologies",
	"Communication": "Media Group",
	"Energy":        "Energy Corp.",
	"Financials":    "Financial Group",
	"Materials":     "Materials Inc.",
	"Healthcare":    "Health Sciences",
	"Industrials":   "Industries",
	"Consumer":      "Brands Inc.",
	"RealEstate":    "Properties",
	"Utilities":     "Power & Light",
}

var sectors = []string{
	"Technology", "Communication", "Energy", "Financials", "Materials",
	"Healthcare", "Industrials", "Consumer", "RealEstate", "Utilities",
}

// volatilityFor derives the fixed per-stock volatility from sector and
// market-cap class. Mega caps drift, small caps swing.
func volatilityFor(sector string, marketCap float64) float64 {
	base, ok := sectorVolatility[sector]
	if !ok {
		base = 0.012
	}
	switch {
	case marketCap >= 200e9:
		return base * 0.7
	case marketCap >= 10e9:
		return base
	case marketCap >= 2e9:
		return base * 1.3
	default:
		return base * 1.8
	}
}

// syntheticSymbol produces distinct tickers (QAAA, QAAB, ...) for universes
// larger than the catalog. The Q prefix keeps them clear of real catalog
// symbols, and three letters cover universes into the tens of thousands.
func syntheticSymbol(i int) string {
	return fmt.Sprintf("Q%c%c%c", 'A'+(i/676)%26, 'A'+(i/26)%26, 'A'+i%26)
}

// BuildUniverse creates n stocks with randomized but plausible fundamentals.
// The first len(catalog) entries are real tickers, the rest synthetic.
// Identity fields and Open never change after this call.
func BuildUniverse(n int, rnd Rand) []models.Stock {
	stocks := make([]models.Stock, 0, n)
	for i := 0; i < n; i++ {
		var sym, name, sector string
		if i < len(catalog) {
			sym = catalog[i].Symbol
			name = catalog[i].Name
			sector = catalog[i].Sector
		} else {
			sector = sectors[i%len(sectors)]
			sym = syntheticSymbol(i - len(catalog))
			name = sym + " " + sectorSuffix[sector]
		}

		// Market cap spans small caps (~500M) to mega caps (~1.5T),
		// skewed small by squaring the draw.
		f := rnd.Float64()
		marketCap := 500e6 + f*f*1.5e12

		open := 20 + rnd.Float64()*480
		stocks = append(stocks, models.Stock{
			Symbol:          sym,
			Name:            name,
			Sector:          sector,
			MarketCap:       marketCap,
			PERatio:         8 + rnd.Float64()*40,
			PriceToBook:     0.8 + rnd.Float64()*9,
			OperatingMargin: 0.02 + rnd.Float64()*0.38,
			Open:            open,
			Price:           open,
			PercentChange:   0,
			Volume:          int64(100_000 + rnd.Intn(5_000_000)),
			Score:           40 + rnd.Float64()*20,
		})
	}
	return stocks
}
