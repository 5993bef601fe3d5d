package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(productID string, price int64, qty int) LineItem {
	return LineItem{
		ProductID: productID,
		Name:      "Game " + productID,
		UnitPrice: price,
		Quantity:  qty,
	}
}

func TestAddItem_NewLine(t *testing.T) {
	c := New("user-1", KindShop)

	require.NoError(t, c.AddItem(lineItem("p1", 1000, 2), 10))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, int64(2000), c.Items[0].Subtotal)
	assert.Equal(t, int64(2000), c.Total())
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 1000, 2), 10))

	require.NoError(t, c.AddItem(lineItem("p1", 1000, 3), 10))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, int64(5000), c.Items[0].Subtotal)
}

func TestAddItem_MergeExceedsStock(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 1000, 2), 3))

	err := c.AddItem(lineItem("p1", 1000, 2), 3)

	assert.ErrorIs(t, err, ErrQuantityExceedsStock)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	c := New("user-1", KindShop)

	assert.ErrorIs(t, c.AddItem(lineItem("p1", 1000, 0), 10), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem(lineItem("p1", 1000, -1), 10), ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestUpdateQuantity(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 500, 1), 10))

	require.NoError(t, c.UpdateQuantity("p1", 4, 10))
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, int64(2000), c.Items[0].Subtotal)

	assert.ErrorIs(t, c.UpdateQuantity("p1", 11, 10), ErrQuantityExceedsStock)
	assert.ErrorIs(t, c.UpdateQuantity("missing", 1, 10), ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 500, 1), 10))
	require.NoError(t, c.AddItem(lineItem("p2", 700, 2), 10))

	require.NoError(t, c.RemoveItem("p1"))

	require.Len(t, c.Items, 1)
	assert.Equal(t, "p2", c.Items[0].ProductID)
	assert.ErrorIs(t, c.RemoveItem("p1"), ErrItemNotFound)
}

func TestClamp_LowersQuantitiesToLiveStock(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 1000, 5), 5))
	require.NoError(t, c.AddItem(lineItem("p2", 500, 2), 5))

	clamped := c.Clamp(map[string]int{"p1": 3, "p2": 2})

	require.Len(t, clamped, 1)
	assert.Equal(t, ClampedLine{ProductID: "p1", From: 5, To: 3}, clamped[0])
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, int64(3000), c.Items[0].Subtotal)
	assert.Equal(t, 2, c.Items[1].Quantity)
}

func TestClamp_MissingProductMeansZeroStock(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 1000, 2), 5))

	clamped := c.Clamp(map[string]int{})

	require.Len(t, clamped, 1)
	assert.Equal(t, 0, c.Items[0].Quantity)
	assert.Equal(t, int64(0), c.Total())
}

func TestClamp_NeverRaisesQuantity(t *testing.T) {
	c := New("user-1", KindShop)
	require.NoError(t, c.AddItem(lineItem("p1", 1000, 2), 5))

	clamped := c.Clamp(map[string]int{"p1": 100})

	assert.Empty(t, clamped)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestParseKind(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"SHOP", KindShop, true},
		{"FAST", KindFast, true},
		{"shop", "", false},
		{"", "", false},
		{"OTHER", "", false},
	} {
		got, ok := ParseKind(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
