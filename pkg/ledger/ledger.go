// Package ledger tracks each trader's running position per product: signed
// quantity and signed cumulative cash value. Entries are owned by their
// trader's session and only ever written by the dispatcher, so there is no
// locking here.
package ledger

import "github.com/pitquant/spx/pkg/book"

// Position is a trader's accumulated holding in one product. Quantity goes
// negative on short positions; Value is net cash flow (negative means net
// paid). Both are int64 so repeated max-size fills cannot overflow.
type Position struct {
	Product  string
	Quantity int64
	Value    int64
}

// Account holds one trader's positions, created eagerly at zero for every
// catalog product when the session starts.
type Account struct {
	order     []string
	positions map[string]*Position
}

// NewAccount builds an account with a zero position per product.
func NewAccount(products []string) *Account {
	a := &Account{
		order:     append([]string(nil), products...),
		positions: make(map[string]*Position, len(products)),
	}
	for _, p := range products {
		a.positions[p] = &Position{Product: p}
	}
	return a
}

// Update adds the deltas to the product's position.
func (a *Account) Update(product string, dq, dv int64) {
	pos, ok := a.positions[product]
	if !ok {
		pos = &Position{Product: product}
		a.positions[product] = pos
		a.order = append(a.order, product)
	}
	pos.Quantity += dq
	pos.Value += dv
}

// Position returns the current position in product, zero if never traded.
func (a *Account) Position(product string) Position {
	if pos, ok := a.positions[product]; ok {
		return *pos
	}
	return Position{Product: product}
}

// Positions returns all positions in catalog order.
func (a *Account) Positions() []Position {
	out := make([]Position, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, *a.positions[p])
	}
	return out
}

// ApplyFill applies one consumption event to both parties. The taker (the
// incoming order's owner) pays the fee; the maker trades at plain notional:
//
//	taker BUY:  taker +qty, -(notional+fee)   maker -qty, +notional
//	taker SELL: taker -qty, +(notional-fee)   maker +qty, -notional
func ApplyFill(maker, taker *Account, product string, quantity, notional, fee int64, takerSide book.Side) {
	if takerSide == book.Buy {
		maker.Update(product, -quantity, notional)
		taker.Update(product, quantity, -(notional + fee))
		return
	}
	maker.Update(product, quantity, -notional)
	taker.Update(product, -quantity, notional-fee)
}
