package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id int64, price string, qty int) LineItem {
	return LineItem{ProductID: id, Name: "P", UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestAddItemMergesQuantities(t *testing.T) {
	var c Cart
	c.AddItem(line(1, "5.500", 2))
	c.AddItem(line(1, "5.500", 3))

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestAddItemDefaultsQuantityToOne(t *testing.T) {
	var c Cart
	c.AddItem(line(1, "1", 0))
	c.AddItem(line(2, "1", -4))
	assert.Equal(t, 2, c.Count())
}

func TestTotalAndCount(t *testing.T) {
	var c Cart
	c.AddItem(line(1, "5.500", 2))
	c.AddItem(line(2, "3.250", 1))

	assert.Equal(t, "14.250", c.Total().StringFixed(3))
	assert.Equal(t, 3, c.Count())
}

func TestTotalIsOrderIndependentAndExact(t *testing.T) {
	var a, b Cart
	a.AddItem(line(1, "0.1", 1))
	a.AddItem(line(2, "0.2", 1))
	b.AddItem(line(2, "0.2", 1))
	b.AddItem(line(1, "0.1", 1))

	assert.True(t, a.Total().Equal(decimal.RequireFromString("0.3")))
	assert.True(t, a.Total().Equal(b.Total()))
}

func TestUpdateQuantityIgnoresValuesBelowOne(t *testing.T) {
	var c Cart
	c.AddItem(line(1, "2", 3))

	assert.False(t, c.UpdateQuantity(1, 0))
	assert.False(t, c.UpdateQuantity(1, -1))
	assert.Equal(t, 3, c.Lines[0].Quantity)

	assert.True(t, c.UpdateQuantity(1, 7))
	assert.Equal(t, 7, c.Lines[0].Quantity)

	assert.False(t, c.UpdateQuantity(99, 2))
}

func TestRemoveThenAddStartsFresh(t *testing.T) {
	var c Cart
	c.AddItem(line(1, "2", 4))
	c.AddItem(line(2, "1", 1))
	c.RemoveItem(1)
	c.RemoveItem(42)
	c.AddItem(line(1, "2", 1))

	require.Len(t, c.Lines, 2)
	assert.Equal(t, int64(2), c.Lines[0].ProductID)
	assert.Equal(t, 1, c.Lines[1].Quantity)
}

func TestClearAndEmptyTotal(t *testing.T) {
	var c Cart
	c.AddItem(line(1, "2", 1))
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, "0.000", c.Total().StringFixed(3))
	assert.Equal(t, 0, c.Count())
}

func TestItemsAndSnapshotAreCopies(t *testing.T) {
	var c Cart
	c.AddItem(LineItem{ProductID: 1, Name: "Tile", UnitPrice: decimal.RequireFromString("5.5"), Quantity: 2, ImageRef: "a.png"})

	items := c.Items()
	items[0].Quantity = 100
	assert.Equal(t, 2, c.Lines[0].Quantity)

	snap := c.Snapshot()
	c.Lines[0].UnitPrice = decimal.NewFromInt(99)
	require.Len(t, snap, 1)
	assert.Equal(t, "5.5", snap[0].UnitPrice.String())
	assert.Equal(t, "a.png", snap[0].ImageRef)
	assert.Equal(t, "11", snap.Total().String())
}
