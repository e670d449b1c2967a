// Package exchange runs the trading session: it owns the order book, the
// trader registry, and the position ledger, and serializes every command
// through a single dispatcher goroutine. Listener goroutines frame records
// off each trader connection and hand them to the dispatcher over a
// channel, so all book and ledger mutation happens on one goroutine.
package exchange

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitquant/spx/pkg/book"
	"github.com/pitquant/spx/pkg/catalog"
	"github.com/pitquant/spx/pkg/ledger"
	"github.com/pitquant/spx/pkg/wire"
)

const eventQueueSize = 1024

// EventKind distinguishes the two things a listener can report.
type EventKind int8

const (
	// DataReady carries one framed record from a trader.
	DataReady EventKind = iota
	// Terminated marks the trader's stream as closed.
	Terminated
)

// Event is one unit of dispatcher work. Events from all listeners funnel
// through a single channel, so dispatch order is arrival order.
type Event struct {
	Session *Session
	Kind    EventKind
	Record  string
}

// Config carries the tunables the exchange is built with.
type Config struct {
	// FillNotifyGap is the pause between notifying the resting order's
	// owner and the incoming order's owner of the same fill. The resting
	// owner is always notified first.
	FillNotifyGap time.Duration
}

// Exchange is the matching and dispatch core. The dispatcher goroutine is
// the sole writer; the read-only accessors used by the observer API take
// the read side of the lock.
type Exchange struct {
	// OnFill, when set, observes every fill after both parties have been
	// notified. OnMarket observes every market broadcast. Both run on the
	// dispatcher goroutine and must be set before OpenMarket.
	OnFill   func(book.Fill)
	OnMarket func(side, product string, quantity, price int64)

	mu  sync.RWMutex
	log *zap.SugaredLogger

	cat    *catalog.Catalog
	book   *book.Book
	reg    Registry
	events chan Event

	live int
	fees int64

	cfg Config
}

// New builds an exchange over the catalog. Traders attach before the
// market opens.
func New(logger *zap.SugaredLogger, cat *catalog.Catalog, cfg Config) *Exchange {
	return &Exchange{
		log:    logger,
		cat:    cat,
		book:   book.New(cat.Products()),
		events: make(chan Event, eventQueueSize),
		cfg:    cfg,
	}
}

// Attach registers a trader connection and starts its listener goroutine.
// The returned session id is the trader's identity for the whole run.
func (e *Exchange) Attach(conn io.ReadWriteCloser) *Session {
	e.mu.Lock()
	s := newSession(e.reg.Len(), conn, e.cat.Products())
	e.reg.add(s)
	e.live++
	e.mu.Unlock()

	e.log.Infow("trader_attached", "trader", s.ID)
	go e.listen(s)
	return s
}

func (e *Exchange) listen(s *Session) {
	for {
		rec, err := s.r.ReadRecord()
		if err != nil {
			e.events <- Event{Session: s, Kind: Terminated}
			return
		}
		e.events <- Event{Session: s, Kind: DataReady, Record: rec}
	}
}

// OpenMarket announces the session start to every attached trader. Until
// this is sent, well-behaved traders do not submit orders.
func (e *Exchange) OpenMarket() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.reg.All() {
		e.send(s, wire.MarketOpen())
	}
	e.log.Infow("market_open", "traders", e.reg.Len(), "products", e.cat.Len())
}

// Run drives the dispatcher until every trader has disconnected or the
// context is cancelled. Must be called after OpenMarket.
func (e *Exchange) Run(ctx context.Context) error {
	for e.liveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.dispatch(ev)
		}
	}
	e.log.Infow("trading_completed", "fees_collected", e.FeesCollected())
	return nil
}

func (e *Exchange) liveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.live
}

// FeesCollected returns the total fees charged so far.
func (e *Exchange) FeesCollected() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fees
}

// Products returns the catalog in file order.
func (e *Exchange) Products() []string {
	return e.cat.Products()
}

// BookLevels returns the aggregated bid and ask levels for product, best
// first on each side.
func (e *Exchange) BookLevels(product string) (bids, asks []book.Level) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Levels(product, book.Buy), e.book.Levels(product, book.Sell)
}

// TraderPositions returns the trader's positions in catalog order, nil for
// an unknown trader.
func (e *Exchange) TraderPositions(trader int) []ledger.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.reg.Get(trader)
	if s == nil {
		return nil
	}
	return s.Account.Positions()
}

// dispatch handles one event under the write lock, so observer reads see
// each command's effects atomically.
func (e *Exchange) dispatch(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Kind == Terminated {
		e.disconnect(ev.Session)
		return
	}
	e.apply(ev.Session, ev.Record)
}

// disconnect drops the trader from the live set. Its resting orders stay
// in the book and remain matchable; only the notification stream stops.
func (e *Exchange) disconnect(s *Session) {
	if !s.Connected {
		return
	}
	s.Connected = false
	s.conn.Close()
	e.live--
	e.log.Infow("trader_disconnected", "trader", s.ID, "live", e.live)
}

// apply runs one command through the full cycle: classify, mutate the
// book, reply to the submitter, broadcast to the other traders, match, and
// advance the order id counter for accepted orders.
func (e *Exchange) apply(s *Session, record string) {
	e.log.Debugw("command_received", "trader", s.ID, "record", record)

	cmd := Classify(record, s, e.book, e.cat)
	switch cmd.Class {
	case AcceptedBuy, AcceptedSell:
		e.applyNew(s, cmd)
	case Amended:
		e.applyAmend(s, cmd)
	case Cancelled:
		e.applyCancel(s, cmd)
	default:
		e.send(s, wire.Invalid())
	}
}

func (e *Exchange) applyNew(s *Session, cmd Command) {
	side := book.Buy
	if cmd.Class == AcceptedSell {
		side = book.Sell
	}
	o := &book.Order{
		ID:       cmd.OrderID,
		Trader:   s.ID,
		Product:  cmd.Product,
		Side:     side,
		Price:    cmd.Price,
		Quantity: cmd.Quantity,
	}
	if err := e.book.Insert(o); err != nil {
		e.log.DPanicw("insert_rejected", "trader", s.ID, "err", err)
		e.send(s, wire.Invalid())
		return
	}

	e.send(s, wire.Accepted(cmd.OrderID))
	e.broadcast(s, o.Side.String(), o.Product, o.Quantity, o.Price)
	e.runMatch(o)
	s.NextOrderID++
	e.logBookState(o.Product)
}

func (e *Exchange) applyAmend(s *Session, cmd Command) {
	o, ok := e.book.Find(s.ID, cmd.OrderID)
	if !ok {
		e.log.DPanicw("amend_target_vanished", "trader", s.ID, "order", cmd.OrderID)
		e.send(s, wire.Invalid())
		return
	}

	// Reinsertion gives the order a fresh arrival sequence, so an amend
	// always forfeits time priority at its price level.
	e.book.Remove(o)
	o.Quantity = cmd.Quantity
	o.Price = cmd.Price
	o.Amended = true
	if err := e.book.Insert(o); err != nil {
		e.log.DPanicw("amend_reinsert_rejected", "trader", s.ID, "err", err)
		e.send(s, wire.Invalid())
		return
	}

	e.send(s, wire.Amended(cmd.OrderID))
	e.broadcast(s, o.Side.String(), o.Product, o.Quantity, o.Price)
	e.runMatch(o)
	e.logBookState(o.Product)
}

func (e *Exchange) applyCancel(s *Session, cmd Command) {
	o, ok := e.book.Find(s.ID, cmd.OrderID)
	if !ok {
		e.log.DPanicw("cancel_target_vanished", "trader", s.ID, "order", cmd.OrderID)
		e.send(s, wire.Invalid())
		return
	}
	e.book.Remove(o)

	e.send(s, wire.Cancelled(cmd.OrderID))
	e.broadcast(s, o.Side.String(), o.Product, 0, 0)
	e.logBookState(o.Product)
}

// runMatch walks the incoming order against the opposite side. For each
// fill the ledger updates both parties, the resting owner is notified
// first, and after the configured gap the incoming owner is notified.
func (e *Exchange) runMatch(incoming *book.Order) {
	takerSide := incoming.Side
	e.book.Match(incoming, func(f book.Fill) {
		maker := e.reg.Get(f.MakerTrader)
		taker := e.reg.Get(f.TakerTrader)
		ledger.ApplyFill(maker.Account, taker.Account, f.Product, f.Quantity, f.Notional, f.Fee, takerSide)
		e.fees += f.Fee

		e.send(maker, wire.Fill(f.MakerOrder, f.Quantity))
		if e.cfg.FillNotifyGap > 0 {
			time.Sleep(e.cfg.FillNotifyGap)
		}
		e.send(taker, wire.Fill(f.TakerOrder, f.Quantity))

		e.log.Infow("fill",
			"product", f.Product,
			"price", f.Price,
			"quantity", f.Quantity,
			"maker", f.MakerTrader,
			"taker", f.TakerTrader,
			"fee", f.Fee,
		)
		if e.OnFill != nil {
			e.OnFill(f)
		}
	})
}

// broadcast sends a MARKET record to every connected trader except the
// submitter, in ascending session id order.
func (e *Exchange) broadcast(from *Session, side, product string, quantity, price int64) {
	rec := wire.Market(side, product, quantity, price)
	for _, s := range e.reg.All() {
		if s == from || !s.Connected {
			continue
		}
		e.send(s, rec)
	}
	if e.OnMarket != nil {
		e.OnMarket(side, product, quantity, price)
	}
}

func (e *Exchange) send(s *Session, rec string) {
	if !s.Connected {
		return
	}
	if err := s.w.WriteRecord(rec); err != nil {
		e.log.Debugw("send_failed", "trader", s.ID, "err", err)
	}
}

// logBookState dumps the product's depth and every trader's position at
// debug level after each applied command.
func (e *Exchange) logBookState(product string) {
	if !e.log.Desugar().Core().Enabled(zap.DebugLevel) {
		return
	}
	e.log.Debugw("book",
		"product", product,
		"bids", e.book.Levels(product, book.Buy),
		"asks", e.book.Levels(product, book.Sell),
	)
	for _, s := range e.reg.All() {
		e.log.Debugw("positions", "trader", s.ID, "positions", s.Account.Positions())
	}
}
