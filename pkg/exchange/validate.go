package exchange

import (
	"strconv"
	"strings"

	"github.com/pitquant/spx/pkg/book"
	"github.com/pitquant/spx/pkg/catalog"
)

// Class is the outcome of classifying one raw record. The non-Invalid
// values double as the command's terminal state and name the reply sent to
// the submitter.
type Class int8

const (
	Invalid Class = iota
	AcceptedBuy
	AcceptedSell
	Amended
	Cancelled
)

func (c Class) String() string {
	switch c {
	case AcceptedBuy:
		return "ACCEPTED_BUY"
	case AcceptedSell:
		return "ACCEPTED_SELL"
	case Amended:
		return "AMENDED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "INVALID"
	}
}

// Command is a classified record. Fields beyond Class are meaningful only
// for non-Invalid outcomes; Product is empty for AMEND/CANCEL (the client
// does not resupply it) and Quantity/Price are zero for CANCEL.
type Command struct {
	Class    Class
	OrderID  int64
	Product  string
	Quantity int64
	Price    int64
}

// Field value bounds fixed by the protocol.
const (
	minFieldValue = 1
	maxFieldValue = 999999
)

// Classify runs the validation pipeline over one framed record:
//
//  1. record ends with the delimiter
//  2. keyword is BUY/SELL/AMEND/CANCEL
//  3. positional fields match their character class and terminator
//  4. quantity and price lie in [1, 999999] (order id also capped for
//     BUY/SELL)
//  5. BUY/SELL products exist in the catalog
//  6. BUY/SELL order id equals the trader's counter; AMEND/CANCEL ids
//     resolve to a resting order owned by the same trader
//
// The first failing stage yields Invalid. Classification never mutates the
// session, book, or catalog.
func Classify(record string, sess *Session, bk *book.Book, cat *catalog.Catalog) Command {
	invalid := Command{Class: Invalid}

	if len(record) == 0 || record[len(record)-1] != ';' {
		return invalid
	}
	body := record[:len(record)-1]

	switch {
	case strings.HasPrefix(body, "BUY "):
		return classifyNew(body[len("BUY "):], AcceptedBuy, sess, cat)
	case strings.HasPrefix(body, "SELL "):
		return classifyNew(body[len("SELL "):], AcceptedSell, sess, cat)
	case strings.HasPrefix(body, "AMEND "):
		return classifyAmend(body[len("AMEND "):], sess, bk)
	case strings.HasPrefix(body, "CANCEL "):
		return classifyCancel(body[len("CANCEL "):], sess, bk)
	default:
		return invalid
	}
}

func classifyNew(rest string, class Class, sess *Session, cat *catalog.Catalog) Command {
	invalid := Command{Class: Invalid}

	pos, idField, ok := scanField(rest, 0, isDigit, ' ')
	if !ok {
		return invalid
	}
	pos, product, ok := scanField(rest, pos, isAlnum, ' ')
	if !ok {
		return invalid
	}
	pos, qtyField, ok := scanField(rest, pos, isDigit, ' ')
	if !ok {
		return invalid
	}
	pos, priceField, ok := scanField(rest, pos, isDigit, 0)
	if !ok || pos != len(rest) {
		return invalid
	}

	orderID, err := strconv.ParseInt(idField, 10, 64)
	if err != nil {
		return invalid
	}
	quantity, err := strconv.ParseInt(qtyField, 10, 64)
	if err != nil {
		return invalid
	}
	price, err := strconv.ParseInt(priceField, 10, 64)
	if err != nil {
		return invalid
	}

	if quantity < minFieldValue || quantity > maxFieldValue {
		return invalid
	}
	if price < minFieldValue || price > maxFieldValue {
		return invalid
	}
	if orderID > maxFieldValue {
		return invalid
	}
	if !cat.Has(product) {
		return invalid
	}
	if orderID != sess.NextOrderID {
		return invalid
	}

	return Command{Class: class, OrderID: orderID, Product: product, Quantity: quantity, Price: price}
}

func classifyAmend(rest string, sess *Session, bk *book.Book) Command {
	invalid := Command{Class: Invalid}

	pos, idField, ok := scanField(rest, 0, isDigit, ' ')
	if !ok {
		return invalid
	}
	pos, qtyField, ok := scanField(rest, pos, isDigit, ' ')
	if !ok {
		return invalid
	}
	pos, priceField, ok := scanField(rest, pos, isDigit, 0)
	if !ok || pos != len(rest) {
		return invalid
	}

	orderID, err := strconv.ParseInt(idField, 10, 64)
	if err != nil {
		return invalid
	}
	quantity, err := strconv.ParseInt(qtyField, 10, 64)
	if err != nil {
		return invalid
	}
	price, err := strconv.ParseInt(priceField, 10, 64)
	if err != nil {
		return invalid
	}

	if quantity < minFieldValue || quantity > maxFieldValue {
		return invalid
	}
	if price < minFieldValue || price > maxFieldValue {
		return invalid
	}
	if _, ok := bk.Find(sess.ID, orderID); !ok {
		return invalid
	}

	return Command{Class: Amended, OrderID: orderID, Quantity: quantity, Price: price}
}

func classifyCancel(rest string, sess *Session, bk *book.Book) Command {
	invalid := Command{Class: Invalid}

	pos, idField, ok := scanField(rest, 0, isDigit, 0)
	if !ok || pos != len(rest) {
		return invalid
	}
	orderID, err := strconv.ParseInt(idField, 10, 64)
	if err != nil {
		return invalid
	}
	if _, ok := bk.Find(sess.ID, orderID); !ok {
		return invalid
	}
	return Command{Class: Cancelled, OrderID: orderID}
}

// scanField consumes a non-empty run of class bytes starting at pos and
// requires the run to end with term. term 0 means end-of-string. Returns
// the position after the terminator, the field text, and whether the field
// was well formed.
func scanField(s string, pos int, class func(byte) bool, term byte) (int, string, bool) {
	start := pos
	for pos < len(s) && class(s[pos]) {
		pos++
	}
	if pos == start {
		return 0, "", false
	}
	if term == 0 {
		if pos != len(s) {
			return 0, "", false
		}
		return pos, s[start:], true
	}
	if pos >= len(s) || s[pos] != term {
		return 0, "", false
	}
	return pos + 1, s[start:pos], true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isAlnum(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
