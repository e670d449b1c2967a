// Command trader is the bundled auto-trader bot. It dials the exchange,
// waits for the market to open, and mirrors every broadcast sell with a
// buy of the same quantity and price. A broadcast sell of 1000 units or
// more is the stop signal.
package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pitquant/spx/pkg/wire"
)

const stopQuantity = 1000

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <trader id> <exchange address>\n", os.Args[0])
		os.Exit(1)
	}
	id := os.Args[1]
	addr := os.Args[2]
	log.SetPrefix("[trader " + id + "] ")

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()

	r := wire.NewReader(conn)
	w := wire.NewWriter(conn)

	if err := run(r, w); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run(r *wire.Reader, w *wire.Writer) error {
	// The exchange announces the session start before any order is legal.
	for {
		rec, err := r.ReadRecord()
		if err != nil {
			return fmt.Errorf("await market open: %w", err)
		}
		if rec == wire.MarketOpen() {
			break
		}
	}

	var nextOrderID int64
	for {
		rec, err := r.ReadRecord()
		if err != nil {
			return fmt.Errorf("read broadcast: %w", err)
		}

		product, quantity, price, ok := parseMarketSell(rec)
		if !ok {
			continue
		}
		// A cancellation broadcasts quantity zero; there is nothing to
		// mirror.
		if quantity == 0 {
			continue
		}
		if quantity >= stopQuantity {
			log.Printf("stop signal: %s %d@%d", product, quantity, price)
			return nil
		}

		if err := w.WriteRecord(wire.Buy(nextOrderID, product, quantity, price)); err != nil {
			return fmt.Errorf("send order: %w", err)
		}
		if err := awaitAccepted(r, nextOrderID); err != nil {
			return err
		}
		log.Printf("bought %d %s @ %d (order %d)", quantity, product, price, nextOrderID)
		nextOrderID++
	}
}

// parseMarketSell matches "MARKET SELL <product> <qty> <price>;".
func parseMarketSell(rec string) (product string, quantity, price int64, ok bool) {
	if len(rec) == 0 || rec[len(rec)-1] != wire.Delim {
		return "", 0, 0, false
	}
	fields := strings.Fields(rec[:len(rec)-1])
	if len(fields) != 5 || fields[0] != "MARKET" || fields[1] != "SELL" {
		return "", 0, 0, false
	}
	quantity, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	price, err = strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	return fields[2], quantity, price, true
}

// awaitAccepted reads until the order's acceptance arrives. Broadcasts and
// fills that land in between are ignored.
func awaitAccepted(r *wire.Reader, orderID int64) error {
	want := wire.Accepted(orderID)
	for {
		rec, err := r.ReadRecord()
		if err != nil {
			return fmt.Errorf("await acceptance: %w", err)
		}
		if rec == want {
			return nil
		}
		if rec == wire.Invalid() {
			return fmt.Errorf("order %d rejected", orderID)
		}
	}
}
