package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fruitCatalog() []Product {
	return []Product{
		{ID: "p1", Name: "Apple", Rate: decimal.NewFromInt(30)},
		{ID: "p2", Name: "Apricot", Rate: decimal.NewFromInt(80)},
		{ID: "p3", Name: "Banana", Rate: decimal.NewFromInt(12)},
	}
}

func TestMatchFirstPrefixWins(t *testing.T) {
	li := NewLineItem()

	res := Match(&li, "Ap", "A", fruitCatalog())

	require.True(t, res.Matched)
	assert.Equal(t, "p1", li.CatalogID)
	assert.Equal(t, "Apple", li.Name)
	requireDecimal(t, "30", li.Rate)
	assert.Equal(t, 2, res.SelectionStart)
	assert.Equal(t, 5, res.SelectionEnd)
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	li := NewLineItem()

	res := Match(&li, "bAN", "bA", fruitCatalog())

	require.True(t, res.Matched)
	assert.Equal(t, "Banana", li.Name)
	assert.Equal(t, "p3", li.CatalogID)
}

func TestMatchMissKeepsManualRate(t *testing.T) {
	li := NewLineItem()
	require.NoError(t, li.SetRate(decimal.NewFromInt(45)))

	res := Match(&li, "Cherry", "Cherr", fruitCatalog())

	assert.False(t, res.Matched)
	assert.Equal(t, "Cherry", li.Name)
	assert.False(t, li.IsBound())
	requireDecimal(t, "45", li.Rate)
}

func TestMatchMissBreaksExistingBinding(t *testing.T) {
	li := NewLineItem()
	Match(&li, "B", "", fruitCatalog())
	require.True(t, li.IsBound())

	Match(&li, "Bananas", "Banana", fruitCatalog())

	assert.False(t, li.IsBound())
	assert.Equal(t, "Bananas", li.Name)
	requireDecimal(t, "12", li.Rate)
}

func TestMatchDeletionDoesNotRecomplete(t *testing.T) {
	li := NewLineItem()
	catalog := fruitCatalog()

	Match(&li, "Appl", "App", catalog)
	require.Equal(t, "Apple", li.Name)

	res := Match(&li, "Appl", li.Name, catalog)
	assert.False(t, res.Matched)
	assert.Equal(t, "Appl", li.Name)

	res = Match(&li, "App", li.Name, catalog)
	assert.False(t, res.Matched)
	assert.Equal(t, "App", li.Name)
	assert.True(t, li.IsBound(), "binding survives until the field is emptied")

	Match(&li, "", li.Name, catalog)
	assert.Equal(t, "", li.Name)
	assert.False(t, li.IsBound())
}

func TestMatchEmptyCatalogIsFreeText(t *testing.T) {
	li := NewLineItem()

	res := Match(&li, "Apple", "Appl", nil)

	assert.False(t, res.Matched)
	assert.Equal(t, "Apple", li.Name)
	assert.False(t, li.IsBound())
}

func TestBoundRateIsLocked(t *testing.T) {
	li := NewLineItem()
	Match(&li, "Ban", "Ba", fruitCatalog())

	err := li.SetRate(decimal.NewFromInt(1))

	require.ErrorIs(t, err, ErrRateLocked)
	require.ErrorIs(t, err, ErrValidation)
	requireDecimal(t, "12", li.Rate)
}

func TestSetQuantityClamps(t *testing.T) {
	li := NewLineItem()
	li.SetQuantity(0)
	assert.Equal(t, 1, li.Quantity)
	li.SetQuantity(-4)
	assert.Equal(t, 1, li.Quantity)
	li.SetQuantity(7)
	assert.Equal(t, 7, li.Quantity)
}

func TestSuggest(t *testing.T) {
	got := Suggest("ap", fruitCatalog(), 0)
	require.Len(t, got, 2)
	assert.Equal(t, "Apple", got[0].Name)
	assert.Equal(t, "Apricot", got[1].Name)

	assert.Len(t, Suggest("a", fruitCatalog(), 1), 1)
	assert.Len(t, Suggest("", fruitCatalog(), 0), 3)
	assert.Empty(t, Suggest("kiwi", fruitCatalog(), 0))
}
