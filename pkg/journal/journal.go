// Package journal persists the trade history to a Pebble key-value store
// so the observer API can serve recent trades and a run's fills survive a
// restart of the exchange process.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"github.com/pitquant/spx/pkg/book"
)

// Key schema:
//
//	fill:<product>:<timestamp>:<id> -> Trade (JSON)
//
// Timestamp is zero-padded to 20 digits so a prefix scan walks trades in
// time order.
const prefixFill = "fill:"

// Trade is one persisted fill.
type Trade struct {
	ID          string `json:"id"`
	Product     string `json:"product"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Fee         int64  `json:"fee"`
	MakerTrader int    `json:"maker_trader"`
	TakerTrader int    `json:"taker_trader"`
	Timestamp   int64  `json:"timestamp"`
}

// Journal is a Pebble-backed trade log. Writes come from the dispatcher
// goroutine only; reads may come from API handlers concurrently, which
// Pebble supports without extra locking.
type Journal struct {
	db *pebble.DB
}

// Open creates or reopens the journal at path.
func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// RecordFill appends one fill to the log. NoSync keeps the dispatcher's
// write path off the disk flush; a crash can lose the tail of the log but
// never corrupts it.
func (j *Journal) RecordFill(f book.Fill) error {
	t := Trade{
		ID:          uuid.NewString(),
		Product:     f.Product,
		Price:       f.Price,
		Quantity:    f.Quantity,
		Fee:         f.Fee,
		MakerTrader: f.MakerTrader,
		TakerTrader: f.TakerTrader,
		Timestamp:   time.Now().UnixNano(),
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	if err := j.db.Set(fillKey(t.Product, t.Timestamp, t.ID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

// RecentFills returns up to limit trades for product, newest first.
func (j *Journal) RecentFills(product string, limit int) ([]Trade, error) {
	prefix := fillPrefix(product)
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	defer iter.Close()

	var trades []Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var t Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func fillKey(product string, timestamp int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixFill, product, timestamp, id))
}

func fillPrefix(product string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixFill, product))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
