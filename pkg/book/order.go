package book

// Side is the order direction.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is a resting or incoming limit order. Identity (ID, Trader) is
// immutable; Quantity is decremented in place by fills. An amended order is
// a replacement carrying the same ID and side with a fresh arrival sequence.
type Order struct {
	ID       int64
	Trader   int
	Product  string
	Side     Side
	Price    int64
	Quantity int64
	Amended  bool

	// seq is the book-wide arrival sequence, the FIFO tie-break at equal
	// price. Assigned on insert.
	seq uint64
}
