package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pitquant/spx/pkg/book"
	"github.com/pitquant/spx/pkg/journal"
	"github.com/pitquant/spx/pkg/ledger"
)

type stubCore struct{}

func (stubCore) Products() []string { return []string{"GPU", "Router"} }

func (stubCore) BookLevels(product string) (bids, asks []book.Level) {
	if product != "GPU" {
		return nil, nil
	}
	return []book.Level{{Price: 500, Quantity: 12, Orders: 2}},
		[]book.Level{{Price: 510, Quantity: 3, Orders: 1}}
}

func (stubCore) TraderPositions(trader int) []ledger.Position {
	if trader != 0 {
		return nil
	}
	return []ledger.Position{
		{Product: "GPU", Quantity: 10, Value: -5000},
		{Product: "Router"},
	}
}

func (stubCore) FeesCollected() int64 { return 50 }

type stubTrades struct{}

func (stubTrades) RecentFills(product string, limit int) ([]journal.Trade, error) {
	return []journal.Trade{{ID: "t1", Product: product, Price: 500, Quantity: 10, Fee: 50}}, nil
}

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestGetProducts(t *testing.T) {
	s := NewServer(stubCore{}, nil)
	rr := serve(t, s, "/api/v1/products")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var products []string
	if err := json.Unmarshal(rr.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 2 || products[0] != "GPU" {
		t.Errorf("products = %v", products)
	}
}

func TestGetBook(t *testing.T) {
	s := NewServer(stubCore{}, nil)
	rr := serve(t, s, "/api/v1/book/GPU")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var snap BookSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Product != "GPU" || len(snap.Bids) != 1 || len(snap.Asks) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Bids[0].Price != 500 || snap.Bids[0].Quantity != 12 {
		t.Errorf("top bid = %+v", snap.Bids[0])
	}

	if rr := serve(t, s, "/api/v1/book/CPU"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown product status = %d", rr.Code)
	}
}

func TestGetPositions(t *testing.T) {
	s := NewServer(stubCore{}, nil)
	rr := serve(t, s, "/api/v1/traders/0/positions")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var positions []PositionInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &positions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(positions) != 2 || positions[0].Quantity != 10 || positions[0].Value != -5000 {
		t.Errorf("positions = %+v", positions)
	}

	if rr := serve(t, s, "/api/v1/traders/9/positions"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown trader status = %d", rr.Code)
	}
	if rr := serve(t, s, "/api/v1/traders/x/positions"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad trader id status = %d", rr.Code)
	}
}

func TestGetTrades(t *testing.T) {
	s := NewServer(stubCore{}, stubTrades{})
	rr := serve(t, s, "/api/v1/trades/GPU?limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var trades []TradeInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &trades); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(trades) != 1 || trades[0].ID != "t1" {
		t.Errorf("trades = %+v", trades)
	}

	if rr := serve(t, s, "/api/v1/trades/GPU?limit=0"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rr.Code)
	}

	// No journal configured: empty list, not an error.
	s = NewServer(stubCore{}, nil)
	if rr := serve(t, s, "/api/v1/trades/GPU"); rr.Code != http.StatusOK {
		t.Errorf("status without journal = %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	s := NewServer(stubCore{}, nil)
	rr := serve(t, s, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var status StatusInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "ok" || status.Products != 2 || status.FeesCollected != 50 {
		t.Errorf("status = %+v", status)
	}
}
