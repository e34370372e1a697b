package models

// Stock is one tracked ticker row. Symbol is the key and is unique within a
// session; identity fields (Name, Sector) and the fundamentals never change
// after the universe is built. Open is the fixed reference price used for
// PercentChange.
type Stock struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Sector          string  `json:"sector"`
	MarketCap       float64 `json:"marketCap"` // USD
	PERatio         float64 `json:"peRatio"`
	PriceToBook     float64 `json:"priceToBook"`
	OperatingMargin float64 `json:"operatingMargin"` // fraction, e.g. 0.21
	Open            float64 `json:"open"`
	Price           float64 `json:"price"`
	PercentChange   float64 `json:"percentChange"` // vs Open, in percent
	Volume          int64   `json:"volume"`
	Score           float64 `json:"score"` // quantamental composite, 0..100
}

// StockDelta is a partial update to one stock's fast-changing fields. Nil
// pointers mean "field unchanged"; a delta with no set fields is never
// emitted. A delta cannot create a stock.
type StockDelta struct {
	Symbol        string   `json:"symbol"`
	Price         *float64 `json:"price,omitempty"`
	PercentChange *float64 `json:"percentChange,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
	Score         *float64 `json:"score,omitempty"`
}

// Empty reports whether the delta carries no field changes.
func (d StockDelta) Empty() bool {
	return d.Price == nil && d.PercentChange == nil && d.Volume == nil && d.Score == nil
}

// ApplyTo merges the delta's set fields into s. Identity fields and
// fundamentals are never touched.
func (d StockDelta) ApplyTo(s *Stock) {
	if d.Price != nil {
		s.Price = *d.Price
	}
	if d.PercentChange != nil {
		s.PercentChange = *d.PercentChange
	}
	if d.Volume != nil {
		s.Volume = *d.Volume
	}
	if d.Score != nil {
		s.Score = *d.Score
	}
}
