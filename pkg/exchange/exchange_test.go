package exchange

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/pitquant/spx/pkg/catalog"
	"github.com/pitquant/spx/pkg/ledger"
	"github.com/pitquant/spx/pkg/wire"
)

type testTrader struct {
	conn net.Conn
	recs chan string
}

func (tr *testTrader) send(t *testing.T, rec string) {
	t.Helper()
	if _, err := tr.conn.Write([]byte(rec)); err != nil {
		t.Fatalf("send %q: %v", rec, err)
	}
}

func (tr *testTrader) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case rec, ok := <-tr.recs:
		if !ok {
			t.Fatalf("stream closed while waiting for %q", want)
		}
		if rec != want {
			t.Fatalf("got %q, want %q", rec, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q", want)
	}
}

// newTestExchange wires n in-memory traders to a running exchange and
// consumes each trader's market-open record. The returned done channel
// closes when Run finishes.
func newTestExchange(t *testing.T, n int, products ...string) (*Exchange, []*testTrader, chan struct{}) {
	t.Helper()

	cat := catalog.New(products...)
	ex := New(zaptest.NewLogger(t).Sugar(), cat, Config{})

	traders := make([]*testTrader, n)
	for i := 0; i < n; i++ {
		server, client := net.Pipe()
		ex.Attach(server)

		tr := &testTrader{conn: client, recs: make(chan string, 64)}
		go func() {
			r := wire.NewReader(tr.conn)
			for {
				rec, err := r.ReadRecord()
				if err != nil {
					close(tr.recs)
					return
				}
				tr.recs <- rec
			}
		}()
		traders[i] = tr
		t.Cleanup(func() { tr.conn.Close() })
	}

	ex.OpenMarket()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ex.Run(context.Background())
	}()

	for _, tr := range traders {
		tr.expect(t, "MARKET OPEN;")
	}
	return ex, traders, done
}

func expectPosition(t *testing.T, ex *Exchange, trader int, product string, quantity, value int64) {
	t.Helper()
	for _, p := range ex.TraderPositions(trader) {
		if p.Product != product {
			continue
		}
		want := ledger.Position{Product: product, Quantity: quantity, Value: value}
		if p != want {
			t.Errorf("trader %d position = %+v, want %+v", trader, p, want)
		}
		return
	}
	t.Errorf("trader %d has no %s position", trader, product)
}

func TestFullMatchAndSettlement(t *testing.T) {
	ex, traders, _ := newTestExchange(t, 2, "GPU")
	t0, t1 := traders[0], traders[1]

	t0.send(t, "BUY 0 GPU 10 500;")
	t0.expect(t, "ACCEPTED 0;")
	t1.expect(t, "MARKET BUY GPU 10 500;")

	t1.send(t, "SELL 0 GPU 10 500;")
	t1.expect(t, "ACCEPTED 0;")
	t0.expect(t, "MARKET SELL GPU 10 500;")

	// Resting owner hears about the fill before the incoming owner.
	t0.expect(t, "FILL 0 10;")
	t1.expect(t, "FILL 0 10;")

	// 1% of 5000, charged to the selling taker.
	if fees := ex.FeesCollected(); fees != 50 {
		t.Errorf("fees = %d, want 50", fees)
	}
	expectPosition(t, ex, 0, "GPU", 10, -5000)
	expectPosition(t, ex, 1, "GPU", -10, 4950)

	bids, asks := ex.BookLevels("GPU")
	if len(bids) != 0 || len(asks) != 0 {
		t.Errorf("book not empty: bids %v asks %v", bids, asks)
	}
}

func TestPartialFillRemainderRests(t *testing.T) {
	ex, traders, _ := newTestExchange(t, 2, "GPU")
	t0, t1 := traders[0], traders[1]

	t0.send(t, "SELL 0 GPU 5 100;")
	t0.expect(t, "ACCEPTED 0;")
	t1.expect(t, "MARKET SELL GPU 5 100;")

	t1.send(t, "BUY 0 GPU 8 100;")
	t1.expect(t, "ACCEPTED 0;")
	t0.expect(t, "MARKET BUY GPU 8 100;")
	t0.expect(t, "FILL 0 5;")
	t1.expect(t, "FILL 0 5;")

	bids, asks := ex.BookLevels("GPU")
	if len(asks) != 0 {
		t.Errorf("asks = %v, want empty", asks)
	}
	if len(bids) != 1 || bids[0].Price != 100 || bids[0].Quantity != 3 {
		t.Errorf("bids = %v, want 3 resting at 100", bids)
	}
	expectPosition(t, ex, 0, "GPU", -5, 500)
	expectPosition(t, ex, 1, "GPU", 5, -505)
}

func TestOrderIDsAreSequential(t *testing.T) {
	_, traders, _ := newTestExchange(t, 1, "GPU")
	t0 := traders[0]

	t0.send(t, "BUY 1 GPU 10 500;")
	t0.expect(t, "INVALID;")

	t0.send(t, "BUY 0 GPU 10 500;")
	t0.expect(t, "ACCEPTED 0;")

	// A rejected command must not advance the counter.
	t0.send(t, "BUY 0 GPU 10 400;")
	t0.expect(t, "INVALID;")

	t0.send(t, "BUY 1 GPU 10 400;")
	t0.expect(t, "ACCEPTED 1;")
}

func TestAmendRetriggersMatching(t *testing.T) {
	ex, traders, _ := newTestExchange(t, 2, "GPU")
	t0, t1 := traders[0], traders[1]

	t0.send(t, "SELL 0 GPU 10 600;")
	t0.expect(t, "ACCEPTED 0;")
	t1.expect(t, "MARKET SELL GPU 10 600;")

	t1.send(t, "BUY 0 GPU 10 500;")
	t1.expect(t, "ACCEPTED 0;")
	t0.expect(t, "MARKET BUY GPU 10 500;")

	t1.send(t, "AMEND 0 10 600;")
	t1.expect(t, "AMENDED 0;")
	t0.expect(t, "MARKET BUY GPU 10 600;")
	t0.expect(t, "FILL 0 10;")
	t1.expect(t, "FILL 0 10;")

	// Fee on notional 6000, paid by the amended buy.
	if fees := ex.FeesCollected(); fees != 60 {
		t.Errorf("fees = %d, want 60", fees)
	}
	expectPosition(t, ex, 1, "GPU", 10, -6060)
	expectPosition(t, ex, 0, "GPU", -10, 6000)
}

func TestCancelBroadcastsZeroQuantity(t *testing.T) {
	ex, traders, _ := newTestExchange(t, 2, "GPU")
	t0, t1 := traders[0], traders[1]

	t0.send(t, "BUY 0 GPU 10 500;")
	t0.expect(t, "ACCEPTED 0;")
	t1.expect(t, "MARKET BUY GPU 10 500;")

	t0.send(t, "CANCEL 0;")
	t0.expect(t, "CANCELLED 0;")
	t1.expect(t, "MARKET BUY GPU 0 0;")

	bids, _ := ex.BookLevels("GPU")
	if len(bids) != 0 {
		t.Errorf("bids = %v, want empty", bids)
	}

	// A cancelled order cannot be cancelled again.
	t0.send(t, "CANCEL 0;")
	t0.expect(t, "INVALID;")
}

func TestDisconnectedTraderOrdersStayMatchable(t *testing.T) {
	ex, traders, done := newTestExchange(t, 2, "GPU")
	t0, t1 := traders[0], traders[1]

	t0.send(t, "BUY 0 GPU 10 500;")
	t0.expect(t, "ACCEPTED 0;")
	t1.expect(t, "MARKET BUY GPU 10 500;")

	t0.conn.Close()

	// The departed trader's bid still fills the incoming sell.
	t1.send(t, "SELL 0 GPU 10 500;")
	t1.expect(t, "ACCEPTED 0;")
	t1.expect(t, "FILL 0 10;")

	expectPosition(t, ex, 0, "GPU", 10, -5000)
	expectPosition(t, ex, 1, "GPU", -10, 4950)

	t1.conn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish after all traders disconnected")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cat := catalog.New("GPU")
	ex := New(zaptest.NewLogger(t).Sugar(), cat, Config{})
	server, client := net.Pipe()
	defer client.Close()
	defer server.Close()
	ex.Attach(server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ex.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
