package wishlist

import "github.com/shopspring/decimal"

// Entry is a saved product. Entries are unique by ProductID.
type Entry struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageRef  string          `json:"image,omitempty"`
}

// Wishlist has set semantics keyed by product id.
type Wishlist struct {
	Entries []Entry `json:"items"`
}

// AddItem is idempotent: a product already present is left as is.
func (w *Wishlist) AddItem(entry Entry) bool {
	if w.Contains(entry.ProductID) {
		return false
	}
	w.Entries = append(w.Entries, entry)
	return true
}

func (w *Wishlist) RemoveItem(productID int64) {
	kept := w.Entries[:0]
	for _, e := range w.Entries {
		if e.ProductID != productID {
			kept = append(kept, e)
		}
	}
	w.Entries = kept
}

func (w *Wishlist) Contains(productID int64) bool {
	for _, e := range w.Entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

func (w *Wishlist) Find(productID int64) (Entry, bool) {
	for _, e := range w.Entries {
		if e.ProductID == productID {
			return e, true
		}
	}
	return Entry{}, false
}

func (w *Wishlist) Clear() {
	w.Entries = nil
}

func (w *Wishlist) Count() int {
	return len(w.Entries)
}

func (w *Wishlist) Items() []Entry {
	out := make([]Entry, len(w.Entries))
	copy(out, w.Entries)
	return out
}
