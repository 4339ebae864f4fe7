package types

import "github.com/shopspring/decimal"

// LineItemSnapshot is one frozen cart line embedded in an order. The JSON keys
// match the storefront's historical total_products payload.
type LineItemSnapshot struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image,omitempty"`
}

// Subtotal returns unit price times quantity.
func (l LineItemSnapshot) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type LineItemSnapshots []LineItemSnapshot

// Total sums every line subtotal.
func (s LineItemSnapshots) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot.
func (s LineItemSnapshots) Clone() LineItemSnapshots {
	if s == nil {
		return nil
	}
	out := make(LineItemSnapshots, len(s))
	copy(out, s)
	return out
}
