package domain

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one watched name: its owner and expiry in milliseconds since epoch,
// exactly as last observed on the registrar.
type Record struct {
	Owner          string `json:"owner"`
	ExpirationDate int64  `json:"expirationDate"`
}

// Watchlist maps a label (no ".eth" suffix) to its Record, keeping insertion order.
type Watchlist struct {
	entries *orderedmap.OrderedMap[string, Record]
}

func NewWatchlist() *Watchlist {
	return &Watchlist{entries: orderedmap.New[string, Record]()}
}

func (w *Watchlist) Get(label string) (Record, bool) {
	return w.entries.Get(label)
}

func (w *Watchlist) Has(label string) bool {
	_, ok := w.entries.Get(label)
	return ok
}

// Set inserts or replaces label. A replaced label keeps its position.
func (w *Watchlist) Set(label string, rec Record) {
	w.entries.Set(label, rec)
}

func (w *Watchlist) Delete(label string) bool {
	_, ok := w.entries.Delete(label)
	return ok
}

func (w *Watchlist) Len() int {
	return w.entries.Len()
}

func (w *Watchlist) Labels() []string {
	out := make([]string, 0, w.entries.Len())
	for p := w.entries.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

// Range calls fn in insertion order until fn returns false.
func (w *Watchlist) Range(fn func(label string, rec Record) bool) {
	for p := w.entries.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

func (w *Watchlist) Clone() *Watchlist {
	out := NewWatchlist()
	w.Range(func(label string, rec Record) bool {
		out.Set(label, rec)
		return true
	})
	return out
}

// Equal compares entries by value; order is not significant.
func (w *Watchlist) Equal(other *Watchlist) bool {
	if other == nil || w.Len() != other.Len() {
		return false
	}
	equal := true
	w.Range(func(label string, rec Record) bool {
		o, ok := other.Get(label)
		equal = ok && o == rec
		return equal
	})
	return equal
}

func (w *Watchlist) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.entries)
}

func (w *Watchlist) UnmarshalJSON(data []byte) error {
	entries := orderedmap.New[string, Record]()
	if err := json.Unmarshal(data, entries); err != nil {
		return err
	}
	w.entries = entries
	return nil
}
