// Package viewprefs persists per-view grid preferences: column layout, sort
// order, and row filter, keyed by a view identifier. The feed core never
// touches these; the rendering layer loads them at startup and saves them on
// exit.
package viewprefs

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Prefs is one view's saved grid settings.
type Prefs struct {
	Columns    []string `json:"columns"`
	SortColumn string   `json:"sortColumn"`
	SortDesc   bool     `json:"sortDesc"`
	Filter     string   `json:"filter"`
}

type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(view string) []byte { return []byte("view:" + view) }

// Get loads a view's preferences. A view never saved before comes back as a
// zero Prefs with found false.
func (s *Store) Get(view string) (Prefs, bool, error) {
	var prefs Prefs
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(view))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &prefs)
		})
	})
	if err == badger.ErrKeyNotFound {
		return Prefs{}, false, nil
	}
	if err != nil {
		return Prefs{}, false, fmt.Errorf("load prefs for %q: %w", view, err)
	}
	return prefs, true, nil
}

// Put saves a view's preferences, replacing whatever was stored.
func (s *Store) Put(view string, prefs Prefs) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode prefs for %q: %w", view, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(view), raw)
	})
}

// Delete removes a view's saved preferences.
func (s *Store) Delete(view string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(view))
	})
}

// Views lists every view identifier with saved preferences.
func (s *Store) Views() ([]string, error) {
	var views []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("view:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			views = append(views, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return views, err
}
