// Package sse implements a Server-Sent Events broker for session updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/daybook/internal/models"
)

// EventState carries a full, throttled session snapshot.
const EventState = "state"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Status is the lightweight payload sent with every session event.
type Status struct {
	DisplayName  string `json:"display_name"`
	NoteCount    int    `json:"note_count"`
	IsDirty      bool   `json:"is_dirty"`
	IsAutoSaving bool   `json:"is_auto_saving"`
	IsHandleLost bool   `json:"is_handle_lost"`
	IsEncrypted  bool   `json:"is_encrypted"`
}

type stateReq struct {
	event string
	state models.ReadState
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + state throttle). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	stateMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	stateCh       chan stateReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends full state snapshots at most once per
// stateThrottle. The newest snapshot is always delivered.
func NewBroker(stateThrottle time.Duration) *Broker {
	if stateThrottle <= 0 {
		stateThrottle = 250 * time.Millisecond
	}

	b := &Broker{
		stateMin:      stateThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		stateCh:       make(chan stateReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastState time.Time
		pending   *models.ReadState
		trailing  <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}
	flushState := func(now time.Time) {
		if pending == nil {
			return
		}
		broadcast(Event{Type: EventState, Data: *pending})
		pending = nil
		lastState = now
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.stateCh:
			broadcast(Event{Type: req.event, Data: statusOf(req.state)})
			st := req.state
			pending = &st
			now := time.Now()
			if wait := b.stateMin - now.Sub(lastState); wait <= 0 {
				flushState(now)
			} else if trailing == nil {
				trailing = time.After(wait)
			}

		case now := <-trailing:
			trailing = nil
			flushState(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

func statusOf(st models.ReadState) Status {
	return Status{
		DisplayName:  st.DisplayName,
		NoteCount:    len(st.Notes),
		IsDirty:      st.IsDirty,
		IsAutoSaving: st.IsAutoSaving,
		IsHandleLost: st.IsHandleLost,
		IsEncrypted:  st.IsEncrypted,
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Broadcast sends an event to all connected clients.
func (b *Broker) Broadcast(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// Publish reports a session change: a status event right away and a throttled
// full snapshot.
func (b *Broker) Publish(event string, st models.ReadState) {
	if b.closed.Load() {
		return
	}
	select {
	case b.stateCh <- stateReq{event: event, state: st}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
