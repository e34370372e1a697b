package view

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/feed"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/viewprefs"
)

var defaultColumns = []string{"symbol", "name", "price", "percentChange", "volume", "score"}

var columnLabels = map[string]string{
	"symbol":          "SYMBOL",
	"name":            "NAME",
	"sector":          "SECTOR",
	"marketCap":       "MKT CAP",
	"peRatio":         "P/E",
	"priceToBook":     "P/B",
	"operatingMargin": "OP MARGIN",
	"open":            "OPEN",
	"price":           "PRICE",
	"percentChange":   "CHG%",
	"volume":          "VOLUME",
	"score":           "SCORE",
}

// Table renders the reconciliation store as a terminal grid, honoring the
// view's saved column, sort, and filter preferences. Column ids that no
// longer exist are skipped, so stale prefs cannot break a render.
type Table struct {
	out   io.Writer
	prefs viewprefs.Prefs
}

func NewTable(out io.Writer, prefs viewprefs.Prefs) *Table {
	if len(prefs.Columns) == 0 {
		prefs.Columns = defaultColumns
	}
	cols := make([]string, 0, len(prefs.Columns))
	for _, c := range prefs.Columns {
		if _, ok := columnLabels[c]; ok {
			cols = append(cols, c)
		}
	}
	prefs.Columns = cols
	return &Table{out: out, prefs: prefs}
}

// Prefs returns the live preferences for persisting on exit.
func (t *Table) Prefs() viewprefs.Prefs { return t.prefs }

func (t *Table) SetSort(column string, desc bool) {
	t.prefs.SortColumn = column
	t.prefs.SortDesc = desc
}

func (t *Table) SetFilter(filter string) {
	t.prefs.Filter = filter
}

// Render draws one frame: a status line with connection state and staleness,
// then the grid.
func (t *Table) Render(stocks []models.Stock, lastUpdated time.Time, state feed.ConnState, now time.Time) error {
	rows := t.filter(stocks)
	t.sortRows(rows)

	var b strings.Builder
	age := "never"
	if !lastUpdated.IsZero() {
		age = now.Sub(lastUpdated).Truncate(time.Millisecond).String() + " ago"
	}
	fmt.Fprintf(&b, "feed: %s | updated: %s | rows: %d/%d\n", state, age, len(rows), len(stocks))

	w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
	labels := make([]string, 0, len(t.prefs.Columns))
	for _, col := range t.prefs.Columns {
		labels = append(labels, columnLabels[col])
	}
	fmt.Fprintln(w, strings.Join(labels, "\t"))

	for i := range rows {
		cells := make([]string, 0, len(t.prefs.Columns))
		for _, col := range t.prefs.Columns {
			cells = append(cells, formatCell(&rows[i], col))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()

	_, err := io.WriteString(t.out, b.String())
	return err
}

func (t *Table) filter(stocks []models.Stock) []models.Stock {
	if t.prefs.Filter == "" {
		out := make([]models.Stock, len(stocks))
		copy(out, stocks)
		return out
	}
	needle := strings.ToLower(t.prefs.Filter)
	out := make([]models.Stock, 0, len(stocks))
	for _, st := range stocks {
		if strings.Contains(strings.ToLower(st.Symbol), needle) ||
			strings.Contains(strings.ToLower(st.Name), needle) ||
			strings.Contains(strings.ToLower(st.Sector), needle) {
			out = append(out, st)
		}
	}
	return out
}

// sortRows orders in place. An empty or unknown sort column keeps snapshot
// order.
func (t *Table) sortRows(rows []models.Stock) {
	col := t.prefs.SortColumn
	if col == "" {
		return
	}

	var less func(a, b *models.Stock) bool
	switch col {
	case "symbol":
		less = func(a, b *models.Stock) bool { return a.Symbol < b.Symbol }
	case "name":
		less = func(a, b *models.Stock) bool { return a.Name < b.Name }
	case "sector":
		less = func(a, b *models.Stock) bool { return a.Sector < b.Sector }
	case "marketCap":
		less = func(a, b *models.Stock) bool { return a.MarketCap < b.MarketCap }
	case "peRatio":
		less = func(a, b *models.Stock) bool { return a.PERatio < b.PERatio }
	case "priceToBook":
		less = func(a, b *models.Stock) bool { return a.PriceToBook < b.PriceToBook }
	case "operatingMargin":
		less = func(a, b *models.Stock) bool { return a.OperatingMargin < b.OperatingMargin }
	case "open":
		less = func(a, b *models.Stock) bool { return a.Open < b.Open }
	case "price":
		less = func(a, b *models.Stock) bool { return a.Price < b.Price }
	case "percentChange":
		less = func(a, b *models.Stock) bool { return a.PercentChange < b.PercentChange }
	case "volume":
		less = func(a, b *models.Stock) bool { return a.Volume < b.Volume }
	case "score":
		less = func(a, b *models.Stock) bool { return a.Score < b.Score }
	default:
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if t.prefs.SortDesc {
			return less(&rows[j], &rows[i])
		}
		return less(&rows[i], &rows[j])
	})
}

func formatCell(st *models.Stock, col string) string {
	switch col {
	case "symbol":
		return st.Symbol
	case "name":
		return st.Name
	case "sector":
		return st.Sector
	case "marketCap":
		return fmt.Sprintf("%.1fB", st.MarketCap/1e9)
	case "peRatio":
		return fmt.Sprintf("%.1f", st.PERatio)
	case "priceToBook":
		return fmt.Sprintf("%.2f", st.PriceToBook)
	case "operatingMargin":
		return fmt.Sprintf("%.1f%%", st.OperatingMargin*100)
	case "open":
		return fmt.Sprintf("%.2f", st.Open)
	case "price":
		return fmt.Sprintf("%.2f", st.Price)
	case "percentChange":
		return fmt.Sprintf("%+.2f%%", st.PercentChange)
	case "volume":
		return fmt.Sprintf("%d", st.Volume)
	case "score":
		return fmt.Sprintf("%.1f", st.Score)
	default:
		return ""
	}
}
