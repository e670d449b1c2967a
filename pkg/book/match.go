package book

// Fill describes one consumption event: quantity traded between a resting
// (maker) order and the incoming (taker) order, always at the resting
// order's price. Fields are captured before the orders mutate further so a
// Fill stays valid after the match loop moves on.
type Fill struct {
	Product  string
	Price    int64
	Quantity int64
	Notional int64
	Fee      int64

	MakerOrder  int64
	MakerTrader int
	TakerOrder  int64
	TakerTrader int
}

// Match runs the incoming order against the opposite side of its product's
// book. The walk starts at the opposite best and continues while that best
// still crosses the incoming price and the incoming order has quantity
// left. Each step consumes the smaller of the two quantities, removes
// exhausted orders, and reports the fill through onFill before advancing,
// so the caller can update positions and notify both owners between
// consumption events. Returns the total fee charged to the incoming side.
//
// The incoming order must already be resting in the book; if it survives
// the walk it stays resting as the new best of its side.
func (b *Book) Match(incoming *Order, onFill func(Fill)) int64 {
	pb, ok := b.byName[incoming.Product]
	if !ok {
		return 0
	}
	opposite := pb.side(incoming.Side.Opposite())

	var totalFee int64
	for incoming.Quantity > 0 {
		resting, ok := opposite.Min()
		if !ok {
			break
		}
		if incoming.Side == Buy && resting.Price > incoming.Price {
			break
		}
		if incoming.Side == Sell && resting.Price < incoming.Price {
			break
		}

		consumed := incoming.Quantity
		if resting.Quantity < consumed {
			consumed = resting.Quantity
		}
		incoming.Quantity -= consumed
		resting.Quantity -= consumed

		notional := Notional(consumed, resting.Price)
		fee := Fee(notional)
		totalFee += fee

		fill := Fill{
			Product:     incoming.Product,
			Price:       resting.Price,
			Quantity:    consumed,
			Notional:    notional,
			Fee:         fee,
			MakerOrder:  resting.ID,
			MakerTrader: resting.Trader,
			TakerOrder:  incoming.ID,
			TakerTrader: incoming.Trader,
		}

		if resting.Quantity == 0 {
			opposite.Delete(resting)
		}
		if incoming.Quantity == 0 {
			pb.side(incoming.Side).Delete(incoming)
		}

		if onFill != nil {
			onFill(fill)
		}
	}
	return totalFee
}
