package exchange

import (
	"io"

	"github.com/pitquant/spx/pkg/ledger"
	"github.com/pitquant/spx/pkg/wire"
)

// Session is one trader's registration: identity, connectivity, the
// next-expected order id, transport handles, and positions. Everything but
// the transport is written only by the dispatcher.
type Session struct {
	ID          int
	Connected   bool
	NextOrderID int64
	Account     *ledger.Account

	conn io.Closer
	r    *wire.Reader
	w    *wire.Writer
}

func newSession(id int, conn io.ReadWriteCloser, products []string) *Session {
	return &Session{
		ID:        id,
		Connected: true,
		Account:   ledger.NewAccount(products),
		conn:      conn,
		r:         wire.NewReader(conn),
		w:         wire.NewWriter(conn),
	}
}

// Registry tracks sessions by id. Session ids are dense, assigned in
// attach order, and broadcasts iterate them ascending, which fixes the
// deterministic notification order.
type Registry struct {
	sessions []*Session
}

func (r *Registry) add(s *Session) {
	r.sessions = append(r.sessions, s)
}

// Get returns the session with the given id, nil if out of range.
func (r *Registry) Get(id int) *Session {
	if id < 0 || id >= len(r.sessions) {
		return nil
	}
	return r.sessions[id]
}

// All returns the sessions in id order. Callers must not mutate the slice.
func (r *Registry) All() []*Session {
	return r.sessions
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
