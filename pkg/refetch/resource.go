package refetch

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicsource/refetch/internal/httpx"
)

// ErrClosed is returned when a closed Resource is updated.
var ErrClosed = errors.New("refetch: resource is closed")

// Resource owns one logical fetch. It decides when to issue a request,
// discards results of superseded requests via a monotonically increasing
// token, and owns at most one poll timer and one reset timer at a time.
// All methods are safe for concurrent use; state transitions happen under
// a single mutex, and issuing a request is the only suspension point.
type Resource struct {
	transport Transport
	logger    zerolog.Logger
	lazy      bool

	mu         sync.Mutex
	req        *Request // current descriptor; nil means suppressed
	token      uint64   // minted per issued request, bumped to invalidate
	state      State
	pollTimer  *time.Timer
	resetTimer *time.Timer
	subs       map[int]func(State)
	nextSub    int
	closed     bool
}

// NewEager builds a Resource that fetches as soon as a valid descriptor
// exists and refetches on every structural descriptor change and poll
// interval. Input is anything Normalize accepts.
func NewEager(input any, opts ...Option) (*Resource, error) {
	return newResource(input, false, opts...)
}

// NewLazy builds a Resource that never fetches on its own descriptor
// changes; the caller issues fetches via Trigger. Polling, if configured
// on the descriptor, still applies once triggered.
func NewLazy(input any, opts ...Option) (*Resource, error) {
	return newResource(input, true, opts...)
}

func newResource(input any, lazy bool, opts ...Option) (*Resource, error) {
	req, err := Normalize(input)
	if err != nil {
		return nil, err
	}

	r := &Resource{
		logger: zerolog.Nop(),
		lazy:   lazy,
		req:    req,
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.transport == nil {
		r.transport = httpx.NewClient()
	}

	if !lazy && req != nil {
		r.mu.Lock()
		r.issueLocked()
		r.mu.Unlock()
	}
	return r, nil
}

// State returns a snapshot of the current lifecycle state.
func (r *Resource) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers fn to be called with a state snapshot after every
// transition. The returned function removes the subscription and is safe
// to call more than once. Callbacks run outside the Resource's lock.
func (r *Resource) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Update renormalizes input into the current descriptor. A nil descriptor
// suppresses the Resource back to idle in any mode: it invalidates any
// in-flight request, cancels both timers and clears all state. On an
// eager Resource a structural descriptor change issues a new request;
// a lazy Resource only swaps the descriptor used by the next Trigger.
func (r *Resource) Update(input any) error {
	next, err := Normalize(input)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	prev := r.req
	r.req = next

	var notify func()
	switch {
	case next == nil:
		if prev == nil {
			r.mu.Unlock()
			return nil
		}
		r.suppressLocked()
		notify = r.notifyLocked()
	case r.lazy:
		r.mu.Unlock()
		return nil
	case prev == nil || !prev.Equal(next):
		r.issueLocked()
		notify = r.notifyLocked()
	default:
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()
	notify()
	return nil
}

// Trigger issues a request using the descriptor current at call time.
// It is a no-op while the Resource is suppressed or closed.
func (r *Resource) Trigger() {
	r.mu.Lock()
	if r.closed || r.req == nil {
		r.mu.Unlock()
		return
	}
	r.issueLocked()
	notify := r.notifyLocked()
	r.mu.Unlock()
	notify()
}

// Close tears the Resource down: both timers are canceled, the token is
// bumped so any in-flight completion becomes a no-op, and subscribers are
// dropped. Close is idempotent. No fetch mutates state after Close.
func (r *Resource) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.token++
	r.stopPollLocked()
	r.stopResetLocked()
	r.subs = make(map[int]func(State))
	r.mu.Unlock()
	r.logger.Debug().Msg("resource closed")
}

// issueLocked mints a token and starts a fetch with the current
// descriptor. A fresh fetch resets the post-success grace period, so any
// pending reset timer is canceled, as is the poll timer; polling is
// re-armed when the fetch settles.
func (r *Resource) issueLocked() {
	r.token++
	tok := r.token
	req := r.req.clone()

	r.stopPollLocked()
	r.stopResetLocked()

	r.state.IsFetching = true
	r.state.IsFetched = false
	r.state.Err = nil

	r.logger.Debug().
		Uint64("token", tok).
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("issuing request")

	go func() {
		data, ferr := r.doFetch(req)
		r.settle(tok, req, data, ferr)
	}()
}

// doFetch runs outside the lock; it is the only suspension point.
func (r *Resource) doFetch(req *Request) (any, *Error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequest(req.Method, req.URL, body)
	if err != nil {
		return nil, transportError(err)
	}
	httpReq.Header = httpx.CloneHeader(req.Header)

	resp, err := r.transport.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}

	data, err := CheckStatus(resp)
	if err != nil {
		var ferr *Error
		if errors.As(err, &ferr) {
			return nil, ferr
		}
		return nil, transportError(err)
	}
	return data, nil
}

// settle applies a completed fetch. Completions whose token no longer
// matches are superseded and discarded with no observable state change.
// Timer config comes from the descriptor that issued the request, not
// from whatever the current descriptor has since become.
func (r *Resource) settle(tok uint64, req *Request, data any, ferr *Error) {
	r.mu.Lock()
	if r.closed || tok != r.token {
		r.mu.Unlock()
		r.logger.Debug().Uint64("token", tok).Msg("discarding superseded response")
		return
	}

	if ferr != nil {
		r.state = State{Err: ferr}
		r.logger.Debug().Uint64("token", tok).Str("message", ferr.Message).Msg("request failed")
	} else {
		r.state = State{IsFetched: true, Data: data}
		if req.ResetDelay > 0 {
			r.armResetLocked(tok, req.ResetDelay)
		}
		r.logger.Debug().Uint64("token", tok).Msg("request succeeded")
	}

	// Poll from settlement, not issuance, so a fetch slower than the
	// interval never overlaps the next one.
	if req.RefreshInterval > 0 {
		r.armPollLocked(tok, req.RefreshInterval)
	}

	notify := r.notifyLocked()
	r.mu.Unlock()
	notify()
}

func (r *Resource) armPollLocked(tok uint64, d time.Duration) {
	r.stopPollLocked()
	r.pollTimer = time.AfterFunc(d, func() {
		r.mu.Lock()
		// A timer that fired after being superseded is stale.
		if r.closed || tok != r.token || r.req == nil {
			r.mu.Unlock()
			return
		}
		r.logger.Debug().Uint64("token", tok).Msg("poll interval elapsed")
		r.issueLocked()
		notify := r.notifyLocked()
		r.mu.Unlock()
		notify()
	})
}

func (r *Resource) armResetLocked(tok uint64, d time.Duration) {
	r.stopResetLocked()
	r.resetTimer = time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.closed || tok != r.token || !r.state.IsFetched {
			r.mu.Unlock()
			return
		}
		// The reset expires success state only; Err is left alone and no
		// fetch is issued.
		r.state.IsFetched = false
		r.state.Data = nil
		r.logger.Debug().Uint64("token", tok).Msg("fetched state expired")
		notify := r.notifyLocked()
		r.mu.Unlock()
		notify()
	})
}

// suppressLocked returns the Resource to idle without issuing a request:
// the token bump invalidates any in-flight completion.
func (r *Resource) suppressLocked() {
	r.token++
	r.stopPollLocked()
	r.stopResetLocked()
	r.state = State{}
	r.logger.Debug().Msg("descriptor absent, suppressing")
}

func (r *Resource) stopPollLocked() {
	if r.pollTimer != nil {
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
}

func (r *Resource) stopResetLocked() {
	if r.resetTimer != nil {
		r.resetTimer.Stop()
		r.resetTimer = nil
	}
}

// notifyLocked snapshots the state and subscriber set; the returned
// closure must be invoked after the lock is released.
func (r *Resource) notifyLocked() func() {
	if len(r.subs) == 0 {
		return func() {}
	}
	st := r.state
	fns := make([]func(State), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(st)
		}
	}
}
