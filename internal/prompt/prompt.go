// Package prompt turns "ask the user for a password" into a blocking call
// answered by whatever display layer is attached.
//
// Requests are queued FIFO: only the head is shown, and a second request
// never replaces the first. A blank submission keeps the prompt open with an
// error instead of failing the waiting caller.
package prompt

import (
	"context"
	"strings"
	"sync"

	"github.com/starford/daybook/internal/apperr"
)

// State is a snapshot of the prompt for rendering.
type State struct {
	Open    bool   `json:"open"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
	Pending int    `json:"pending"`
}

type result struct {
	password string
	err      error
}

type request struct {
	title   string
	message string
	done    chan result
}

// Negotiator owns the request queue.
type Negotiator struct {
	mu        sync.Mutex
	queue     []*request
	errMsg    string
	handing   int // submitted answers not yet picked up by their requester
	listeners map[int]func(State)
	nextID    int
}

// New returns an idle negotiator.
func New() *Negotiator {
	return &Negotiator{listeners: make(map[int]func(State))}
}

// Request blocks until the user submits a password for this request,
// cancels it (apperr.ErrUserCancelled), or ctx ends.
func (n *Negotiator) Request(ctx context.Context, title, message string) (string, error) {
	req := &request{title: title, message: message, done: make(chan result, 1)}

	n.mu.Lock()
	n.queue = append(n.queue, req)
	if len(n.queue) == 1 {
		n.errMsg = ""
	}
	n.mu.Unlock()
	n.notify()

	select {
	case r := <-req.done:
		return n.collect(r)
	case <-ctx.Done():
		n.mu.Lock()
		queued := n.remove(req)
		n.mu.Unlock()
		if !queued {
			// Submit or Cancel already took it; the answer is on its way.
			return n.collect(<-req.done)
		}
		n.notify()
		return "", ctx.Err()
	}
}

// Submit answers the request at the head of the queue.
func (n *Negotiator) Submit(password string) error {
	n.mu.Lock()
	if len(n.queue) == 0 {
		n.mu.Unlock()
		return apperr.ErrNoPendingPrompt
	}
	if strings.TrimSpace(password) == "" {
		n.errMsg = apperr.ErrEmptyPassword.Error()
		n.mu.Unlock()
		n.notify()
		return apperr.ErrEmptyPassword
	}
	head := n.queue[0]
	n.queue = n.queue[1:]
	n.errMsg = ""
	n.handing++
	n.mu.Unlock()

	n.notify()
	head.done <- result{password: password}
	return nil
}

// collect ends the hand-off of a submitted answer.
func (n *Negotiator) collect(r result) (string, error) {
	if r.err == nil {
		n.mu.Lock()
		n.handing--
		n.mu.Unlock()
		n.notify()
	}
	return r.password, r.err
}

// Cancel rejects the request at the head of the queue with
// apperr.ErrUserCancelled; the next queued request, if any, is shown.
func (n *Negotiator) Cancel() error {
	n.mu.Lock()
	if len(n.queue) == 0 {
		n.mu.Unlock()
		return apperr.ErrNoPendingPrompt
	}
	head := n.queue[0]
	n.queue = n.queue[1:]
	n.errMsg = ""
	n.mu.Unlock()

	head.done <- result{err: apperr.ErrUserCancelled}
	n.notify()
	return nil
}

// State returns the current prompt snapshot.
func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stateLocked()
}

// Subscribe registers fn to receive every state change. The returned
// function unregisters it.
func (n *Negotiator) Subscribe(fn func(State)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *Negotiator) stateLocked() State {
	if len(n.queue) == 0 {
		return State{Loading: n.handing > 0}
	}
	head := n.queue[0]
	return State{
		Open:    true,
		Title:   head.title,
		Message: head.message,
		Error:   n.errMsg,
		Loading: n.handing > 0,
		Pending: len(n.queue),
	}
}

func (n *Negotiator) remove(req *request) bool {
	for i, r := range n.queue {
		if r == req {
			n.queue = append(n.queue[:i], n.queue[i+1:]...)
			if i == 0 {
				n.errMsg = ""
			}
			return true
		}
	}
	return false
}

func (n *Negotiator) notify() {
	n.mu.Lock()
	st := n.stateLocked()
	fns := make([]func(State), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
