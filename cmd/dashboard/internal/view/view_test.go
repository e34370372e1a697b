package view_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/AloofBuddha/quantamental-dashboard/cmd/dashboard/internal/view"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/feed"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/models"
	"github.com/AloofBuddha/quantamental-dashboard/pkg/viewprefs"
)

func sampleRows() []models.Stock {
	return []models.Stock{
		{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Price: 228.5, PercentChange: 1.2, Volume: 50_000_000, Score: 71},
		{Symbol: "XOM", Name: "Exxon Mobil", Sector: "Energy", Price: 110.1, PercentChange: -0.4, Volume: 14_000_000, Score: 48},
		{Symbol: "MSFT", Name: "Microsoft", Sector: "Technology", Price: 415.0, PercentChange: 0.8, Volume: 22_000_000, Score: 64},
	}
}

func TestTable_StatusLine(t *testing.T) {
	var buf bytes.Buffer
	table := view.NewTable(&buf, viewprefs.Prefs{})

	err := table.Render(sampleRows(), time.Unix(1_700_000_000, 0), feed.StateConnected, time.Unix(1_700_000_002, 0))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	firstLine := strings.SplitN(out, "\n", 2)[0]
	if !strings.Contains(firstLine, "feed: connected") {
		t.Errorf("status line missing connection state: %q", firstLine)
	}
	if !strings.Contains(firstLine, "2s ago") {
		t.Errorf("status line missing staleness: %q", firstLine)
	}
	if !strings.Contains(firstLine, "rows: 3/3") {
		t.Errorf("status line missing row count: %q", firstLine)
	}
}

func TestTable_DefaultColumns(t *testing.T) {
	var buf bytes.Buffer
	table := view.NewTable(&buf, viewprefs.Prefs{})
	table.Render(sampleRows(), time.Time{}, feed.StateConnecting, time.Now())

	out := buf.String()
	for _, label := range []string{"SYMBOL", "NAME", "PRICE", "CHG%", "VOLUME", "SCORE"} {
		if !strings.Contains(out, label) {
			t.Errorf("missing default column %q in output:\n%s", label, out)
		}
	}
	if !strings.Contains(out, "updated: never") {
		t.Error("zero lastUpdated should render as never")
	}
}

func TestTable_SortByScoreDesc(t *testing.T) {
	var buf bytes.Buffer
	table := view.NewTable(&buf, viewprefs.Prefs{SortColumn: "score", SortDesc: true})
	table.Render(sampleRows(), time.Time{}, feed.StateConnected, time.Now())

	out := buf.String()
	aapl := strings.Index(out, "AAPL")
	msft := strings.Index(out, "MSFT")
	xom := strings.Index(out, "XOM")
	if aapl == -1 || msft == -1 || xom == -1 {
		t.Fatalf("rows missing from output:\n%s", out)
	}
	if !(aapl < msft && msft < xom) {
		t.Errorf("expected score order AAPL, MSFT, XOM, got:\n%s", out)
	}
}

func TestTable_FilterBySector(t *testing.T) {
	var buf bytes.Buffer
	table := view.NewTable(&buf, viewprefs.Prefs{Filter: "tech"})
	table.Render(sampleRows(), time.Time{}, feed.StateConnected, time.Now())

	out := buf.String()
	if strings.Contains(out, "XOM") {
		t.Errorf("filter should drop Energy rows:\n%s", out)
	}
	if !strings.Contains(out, "AAPL") || !strings.Contains(out, "MSFT") {
		t.Errorf("filter should keep Technology rows:\n%s", out)
	}
	if !strings.Contains(out, "rows: 2/3") {
		t.Errorf("status line should count filtered rows:\n%s", out)
	}
}

func TestTable_StaleColumnIdsSkipped(t *testing.T) {
	var buf bytes.Buffer
	table := view.NewTable(&buf, viewprefs.Prefs{Columns: []string{"symbol", "haloEffect", "price"}})
	table.Render(sampleRows(), time.Time{}, feed.StateConnected, time.Now())

	out := buf.String()
	if !strings.Contains(out, "SYMBOL") || !strings.Contains(out, "PRICE") {
		t.Errorf("known columns must survive:\n%s", out)
	}
	if strings.Contains(out, "haloEffect") {
		t.Errorf("unknown column id must be skipped:\n%s", out)
	}
	if got := table.Prefs().Columns; len(got) != 2 {
		t.Errorf("prefs should keep only known columns, got %v", got)
	}
}

func TestTable_SetSortAndFilterFlowIntoPrefs(t *testing.T) {
	var buf bytes.Buffer
	table := view.NewTable(&buf, viewprefs.Prefs{})

	table.SetSort("volume", true)
	table.SetFilter("Energy")

	prefs := table.Prefs()
	if prefs.SortColumn != "volume" || !prefs.SortDesc || prefs.Filter != "Energy" {
		t.Errorf("prefs not updated: %+v", prefs)
	}
}
