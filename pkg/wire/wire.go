// Package wire implements the exchange's text protocol: space-separated
// fields, records terminated by a single ';' byte, no length prefix.
// The byte layout is fixed by the trader contract and must not change.
package wire

import "fmt"

// Delim terminates every record in both directions.
const Delim = ';'

// Server -> trader records.

func MarketOpen() string {
	return "MARKET OPEN;"
}

func Accepted(orderID int64) string {
	return fmt.Sprintf("ACCEPTED %d;", orderID)
}

func Amended(orderID int64) string {
	return fmt.Sprintf("AMENDED %d;", orderID)
}

func Cancelled(orderID int64) string {
	return fmt.Sprintf("CANCELLED %d;", orderID)
}

func Invalid() string {
	return "INVALID;"
}

func Fill(orderID, quantity int64) string {
	return fmt.Sprintf("FILL %d %d;", orderID, quantity)
}

// Market is the broadcast sent to every trader other than the submitter.
// A cancellation broadcasts quantity and price both zero.
func Market(side, product string, quantity, price int64) string {
	return fmt.Sprintf("MARKET %s %s %d %d;", side, product, quantity, price)
}

// Trader -> server records, used by the bundled trader bot and by tests.

func Buy(orderID int64, product string, quantity, price int64) string {
	return fmt.Sprintf("BUY %d %s %d %d;", orderID, product, quantity, price)
}

func Sell(orderID int64, product string, quantity, price int64) string {
	return fmt.Sprintf("SELL %d %s %d %d;", orderID, product, quantity, price)
}

func Amend(orderID, quantity, price int64) string {
	return fmt.Sprintf("AMEND %d %d %d;", orderID, quantity, price)
}

func Cancel(orderID int64) string {
	return fmt.Sprintf("CANCEL %d;", orderID)
}
