package cart

import (
	"github.com/shopspring/decimal"

	"github.com/grmc/storefront-backend/pkg/types"
)

// LineItem is one product in the cart. Quantity is always at least 1.
type LineItem struct {
	ProductID      int64            `json:"id"`
	Name           string           `json:"name"`
	UnitPrice      decimal.Decimal  `json:"price"`
	Quantity       int              `json:"quantity"`
	ImageRef       string           `json:"image,omitempty"`
	RecycledLiters *decimal.Decimal `json:"liters,omitempty"`
}

// Subtotal returns unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	Lines []LineItem `json:"items"`
}

// AddItem merges item into the cart. An existing line for the same product
// grows by item.Quantity; quantities below 1 count as 1.
func (c *Cart) AddItem(item LineItem) {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == item.ProductID {
			c.Lines[i].Quantity += item.Quantity
			return
		}
	}
	c.Lines = append(c.Lines, item)
}

// RemoveItem drops the line for productID. Absent products are a no-op.
func (c *Cart) RemoveItem(productID int64) {
	kept := c.Lines[:0]
	for _, line := range c.Lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	c.Lines = kept
}

// UpdateQuantity sets the quantity of an existing line. Values below 1 are
// ignored rather than removing the line.
func (c *Cart) UpdateQuantity(productID int64, quantity int) bool {
	if quantity < 1 {
		return false
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.Lines = nil
}

// Total is the exact sum of line subtotals rounded to 3 decimal places.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal())
	}
	return total.Round(3)
}

// Count is the sum of quantities, not the number of lines.
func (c *Cart) Count() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Items returns a copy of the lines.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.Lines))
	copy(out, c.Lines)
	return out
}

// Snapshot freezes the lines for embedding into an order.
func (c *Cart) Snapshot() types.LineItemSnapshots {
	out := make(types.LineItemSnapshots, 0, len(c.Lines))
	for _, line := range c.Lines {
		out = append(out, types.LineItemSnapshot{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			ImageRef:  line.ImageRef,
		})
	}
	return out
}
