package viewprefs_test

import (
	"reflect"
	"testing"

	"github.com/AloofBuddha/quantamental-dashboard/pkg/viewprefs"
)

func TestStore_RoundTrip(t *testing.T) {
	store, err := viewprefs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	saved := viewprefs.Prefs{
		Columns:    []string{"symbol", "price", "percentChange", "score"},
		SortColumn: "score",
		SortDesc:   true,
		Filter:     "Technology",
	}
	if err := store.Put("main", saved); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := store.Get("main")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected saved prefs to be found")
	}
	if !reflect.DeepEqual(got, saved) {
		t.Errorf("prefs changed on the way through:\n got %+v\nwant %+v", got, saved)
	}
}

func TestStore_UnknownViewIsZero(t *testing.T) {
	store, err := viewprefs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	got, found, err := store.Get("nobody")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected found to be false for an unsaved view")
	}
	if !reflect.DeepEqual(got, viewprefs.Prefs{}) {
		t.Errorf("expected zero prefs, got %+v", got)
	}
}

func TestStore_DeleteAndViews(t *testing.T) {
	store, err := viewprefs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	store.Put("main", viewprefs.Prefs{SortColumn: "price"})
	store.Put("sector", viewprefs.Prefs{Filter: "Energy"})

	views, err := store.Views()
	if err != nil {
		t.Fatalf("Views failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %v", views)
	}

	if err := store.Delete("main"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found, _ := store.Get("main"); found {
		t.Error("deleted view should not be found")
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := viewprefs.Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Put("main", viewprefs.Prefs{SortColumn: "volume", SortDesc: true}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := viewprefs.Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, found, err := reopened.Get("main")
	if err != nil || !found {
		t.Fatalf("prefs lost across reopen: found=%v err=%v", found, err)
	}
	if got.SortColumn != "volume" || !got.SortDesc {
		t.Errorf("prefs corrupted across reopen: %+v", got)
	}
}
