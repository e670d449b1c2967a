// Package book maintains per-product order books with strict price-time
// priority and runs the matching algorithm over them. Buy sides order by
// descending price, sell sides by ascending price, FIFO within a price
// level. The dispatcher is the only writer; the book itself carries no
// locks.
package book

import (
	"errors"
	"fmt"

	"github.com/google/btree"
)

const btreeDegree = 32

// ErrUnknownProduct is returned when an order names a product outside the
// catalog the book was built with. The validator rejects these upstream, so
// seeing it means a caller skipped validation.
var ErrUnknownProduct = errors.New("book: unknown product")

// Level is an aggregated price level, used for depth logging and the
// observer API.
type Level struct {
	Price    int64
	Quantity int64
	Orders   int
}

// buyLess orders the bid side: price descending, then arrival ascending,
// so Min() is the best bid and equal prices keep FIFO order.
func buyLess(a, b *Order) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.seq < b.seq
}

// sellLess orders the ask side: price ascending, then arrival ascending.
func sellLess(a, b *Order) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.seq < b.seq
}

type productBook struct {
	buys  *btree.BTreeG[*Order]
	sells *btree.BTreeG[*Order]
}

func (pb *productBook) side(s Side) *btree.BTreeG[*Order] {
	if s == Buy {
		return pb.buys
	}
	return pb.sells
}

// Book holds one productBook per catalog product. Products are fixed at
// construction; orders for unknown products are rejected.
type Book struct {
	products []string
	byName   map[string]*productBook
	seq      uint64
}

// New builds an empty book over the given products, in catalog order.
func New(products []string) *Book {
	b := &Book{
		products: append([]string(nil), products...),
		byName:   make(map[string]*productBook, len(products)),
	}
	for _, p := range products {
		b.byName[p] = &productBook{
			buys:  btree.NewG[*Order](btreeDegree, buyLess),
			sells: btree.NewG[*Order](btreeDegree, sellLess),
		}
	}
	return b
}

// Insert places o on its side of its product's book, behind any resting
// order at the same price. Assigns the arrival sequence.
func (b *Book) Insert(o *Order) error {
	pb, ok := b.byName[o.Product]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, o.Product)
	}
	b.seq++
	o.seq = b.seq
	pb.side(o.Side).ReplaceOrInsert(o)
	return nil
}

// Remove unlinks o from its sequence. Returns false if o is not resting.
func (b *Book) Remove(o *Order) bool {
	pb, ok := b.byName[o.Product]
	if !ok {
		return false
	}
	_, removed := pb.side(o.Side).Delete(o)
	return removed
}

// Find locates the resting order with the given id owned by trader. The
// scan covers every product in catalog order, buys before sells; the first
// match wins. Duplicate (trader, id) pairs are unreachable because order
// ids are strictly sequential per trader, so this is not enforced here.
func (b *Book) Find(trader int, orderID int64) (*Order, bool) {
	for _, name := range b.products {
		pb := b.byName[name]
		if o, ok := findIn(pb.buys, trader, orderID); ok {
			return o, true
		}
		if o, ok := findIn(pb.sells, trader, orderID); ok {
			return o, true
		}
	}
	return nil, false
}

func findIn(tree *btree.BTreeG[*Order], trader int, orderID int64) (*Order, bool) {
	var found *Order
	tree.Ascend(func(o *Order) bool {
		if o.Trader == trader && o.ID == orderID {
			found = o
			return false
		}
		return true
	})
	return found, found != nil
}

// BestBuy returns the highest-priority bid for product.
func (b *Book) BestBuy(product string) (*Order, bool) {
	pb, ok := b.byName[product]
	if !ok {
		return nil, false
	}
	return pb.buys.Min()
}

// BestSell returns the highest-priority ask for product.
func (b *Book) BestSell(product string) (*Order, bool) {
	pb, ok := b.byName[product]
	if !ok {
		return nil, false
	}
	return pb.sells.Min()
}

// Crossing reports whether product's best bid price meets or exceeds its
// best ask price.
func (b *Book) Crossing(product string) bool {
	buy, ok := b.BestBuy(product)
	if !ok {
		return false
	}
	sell, ok := b.BestSell(product)
	if !ok {
		return false
	}
	return buy.Price >= sell.Price
}

// Levels returns the aggregated price levels of one side, best first.
func (b *Book) Levels(product string, side Side) []Level {
	pb, ok := b.byName[product]
	if !ok {
		return nil
	}
	var levels []Level
	pb.side(side).Ascend(func(o *Order) bool {
		if n := len(levels); n > 0 && levels[n-1].Price == o.Price {
			levels[n-1].Quantity += o.Quantity
			levels[n-1].Orders++
			return true
		}
		levels = append(levels, Level{Price: o.Price, Quantity: o.Quantity, Orders: 1})
		return true
	})
	return levels
}

// SideLen returns the number of resting orders on one side of product.
func (b *Book) SideLen(product string, side Side) int {
	pb, ok := b.byName[product]
	if !ok {
		return 0
	}
	return pb.side(side).Len()
}

// Products returns the book's products in catalog order.
func (b *Book) Products() []string {
	return append([]string(nil), b.products...)
}
