// Package api serves a read-only observer surface over the running
// exchange: REST endpoints for the catalog, book depth, positions, and
// trade history, plus a WebSocket feed of market events. It never submits
// orders; the text protocol is the only write path.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/pitquant/spx/pkg/book"
	"github.com/pitquant/spx/pkg/journal"
	"github.com/pitquant/spx/pkg/ledger"
)

// Core is the view of the exchange the API reads from. All methods must be
// safe to call concurrently with the dispatcher.
type Core interface {
	Products() []string
	BookLevels(product string) (bids, asks []book.Level)
	TraderPositions(trader int) []ledger.Position
	FeesCollected() int64
}

// TradeLog serves historical fills. Nil disables the trades endpoint.
type TradeLog interface {
	RecentFills(product string, limit int) ([]journal.Trade, error)
}

// Server handles REST and WebSocket connections.
type Server struct {
	core   Core
	trades TradeLog
	router *mux.Router
	hub    *Hub
}

// NewServer builds the observer server over the exchange core. trades may
// be nil.
func NewServer(core Core, trades TradeLog) *Server {
	s := &Server{
		core:   core,
		trades: trades,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/products", s.handleGetProducts).Methods("GET")
	api.HandleFunc("/book/{product}", s.handleGetBook).Methods("GET")
	api.HandleFunc("/traders/{id}/positions", s.handleGetPositions).Methods("GET")
	api.HandleFunc("/trades/{product}", s.handleGetTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the HTTP server on addr. Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.core.Products())
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	product := mux.Vars(r)["product"]
	if !s.knownProduct(product) {
		respondError(w, http.StatusNotFound, "unknown product", product)
		return
	}

	bids, asks := s.core.BookLevels(product)
	respondJSON(w, BookSnapshot{
		Product:   product,
		Bids:      toPriceLevels(bids),
		Asks:      toPriceLevels(asks),
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid trader id", err.Error())
		return
	}

	positions := s.core.TraderPositions(id)
	if positions == nil {
		respondError(w, http.StatusNotFound, "unknown trader", mux.Vars(r)["id"])
		return
	}

	out := make([]PositionInfo, len(positions))
	for i, p := range positions {
		out[i] = PositionInfo{Product: p.Product, Quantity: p.Quantity, Value: p.Value}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		respondJSON(w, []TradeInfo{})
		return
	}

	product := mux.Vars(r)["product"]
	if !s.knownProduct(product) {
		respondError(w, http.StatusNotFound, "unknown product", product)
		return
	}

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, "invalid limit", q)
			return
		}
		limit = n
	}

	fills, err := s.trades.RecentFills(product, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trade log unavailable", err.Error())
		return
	}

	out := make([]TradeInfo, len(fills))
	for i, t := range fills {
		out[i] = TradeInfo{
			ID:          t.ID,
			Product:     t.Product,
			Price:       t.Price,
			Quantity:    t.Quantity,
			Fee:         t.Fee,
			MakerTrader: t.MakerTrader,
			TakerTrader: t.TakerTrader,
			Timestamp:   t.Timestamp,
		}
	}
	respondJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, StatusInfo{
		Status:        "ok",
		Products:      len(s.core.Products()),
		FeesCollected: s.core.FeesCollected(),
	})
}

// BroadcastMarket publishes one market event to "market:<product>"
// subscribers. Safe to call from the dispatcher goroutine.
func (s *Server) BroadcastMarket(side, product string, quantity, price int64) {
	s.hub.BroadcastToChannel("market:"+product, MarketUpdate{
		Type:      "market",
		Side:      side,
		Product:   product,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Now().UnixMilli(),
	})
}

// BroadcastFill publishes one fill to "fills:<product>" subscribers.
func (s *Server) BroadcastFill(f book.Fill) {
	s.hub.BroadcastToChannel("fills:"+f.Product, FillUpdate{
		Type:      "fill",
		Product:   f.Product,
		Price:     f.Price,
		Quantity:  f.Quantity,
		Fee:       f.Fee,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) knownProduct(product string) bool {
	for _, p := range s.core.Products() {
		if p == product {
			return true
		}
	}
	return false
}

func toPriceLevels(levels []book.Level) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = PriceLevel{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders}
	}
	return out
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
