package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitquant/spx/pkg/book"
)

var products = []string{"GPU", "Router"}

func TestNewAccountStartsFlat(t *testing.T) {
	a := NewAccount(products)
	positions := a.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, Position{Product: "GPU"}, positions[0])
	assert.Equal(t, Position{Product: "Router"}, positions[1])
}

func TestPositionsKeepCatalogOrder(t *testing.T) {
	a := NewAccount(products)
	a.Update("Router", 3, -300)
	a.Update("GPU", -1, 100)

	positions := a.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, "GPU", positions[0].Product)
	assert.Equal(t, "Router", positions[1].Product)
}

func TestApplyFillTakerBuys(t *testing.T) {
	maker := NewAccount(products)
	taker := NewAccount(products)

	// 10 @ 505, notional 5050, fee 50. The buying taker pays the fee.
	ApplyFill(maker, taker, "GPU", 10, 5050, 50, book.Buy)

	assert.Equal(t, Position{Product: "GPU", Quantity: 10, Value: -5100}, taker.Position("GPU"))
	assert.Equal(t, Position{Product: "GPU", Quantity: -10, Value: 5050}, maker.Position("GPU"))
}

func TestApplyFillTakerSells(t *testing.T) {
	maker := NewAccount(products)
	taker := NewAccount(products)

	ApplyFill(maker, taker, "GPU", 10, 5050, 50, book.Sell)

	assert.Equal(t, Position{Product: "GPU", Quantity: -10, Value: 5000}, taker.Position("GPU"))
	assert.Equal(t, Position{Product: "GPU", Quantity: 10, Value: -5050}, maker.Position("GPU"))
}

func TestApplyFillAccumulates(t *testing.T) {
	maker := NewAccount(products)
	taker := NewAccount(products)

	ApplyFill(maker, taker, "GPU", 10, 5050, 50, book.Buy)
	ApplyFill(maker, taker, "GPU", 5, 2500, 25, book.Buy)

	assert.Equal(t, Position{Product: "GPU", Quantity: 15, Value: -7625}, taker.Position("GPU"))
	assert.Equal(t, Position{Product: "GPU", Quantity: -15, Value: 7550}, maker.Position("GPU"))

	// Cash is zero-sum apart from the fee.
	assert.Equal(t, int64(-75), taker.Position("GPU").Value+maker.Position("GPU").Value)
}
