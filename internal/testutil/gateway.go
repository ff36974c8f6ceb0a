package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/storage"
)

// FakeGateway is an in-memory storage.Gateway and storage.Watcher. Picks are
// answered by the configured picker, or by Choice when there is none; an
// empty Choice cancels.
type FakeGateway struct {
	mu       sync.Mutex
	capable  bool
	Choice   string
	picker   storage.Picker
	files    map[string][]byte
	writes   []Write
	failErr  error
	block    chan struct{}
	watchers map[string][]func()
	inflight int
	maxInfl  int
}

// Write records one call to Gateway.Write.
type Write struct {
	Name string
	Data []byte
}

// NewFakeGateway returns a capable gateway with no files.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		capable:  true,
		files:    make(map[string][]byte),
		watchers: make(map[string][]func()),
	}
}

// SetCapable toggles IsCapable.
func (g *FakeGateway) SetCapable(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.capable = v
}

// Pick sets the answer for the next pick.
func (g *FakeGateway) Pick(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Choice = name
}

// UsePicker routes picks through p, for example storage.ContextPicker.
func (g *FakeGateway) UsePicker(p storage.Picker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.picker = p
}

func (g *FakeGateway) choose(ctx context.Context, mode storage.Mode) (string, error) {
	if g.picker != nil {
		return g.picker.Pick(ctx, mode)
	}
	if g.Choice == "" {
		return "", apperr.ErrUserCancelled
	}
	return g.Choice, nil
}

// Put stores a file as if it already existed.
func (g *FakeGateway) Put(name string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[name] = append([]byte(nil), data...)
}

// File returns the stored content of name.
func (g *FakeGateway) File(name string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.files[name]
	return append([]byte(nil), data...), ok
}

// Writes returns the handle writes seen so far. PickAndCreate is not counted.
func (g *FakeGateway) Writes() []Write {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Write(nil), g.writes...)
}

// FailWrites makes every subsequent Write return err; nil restores success.
func (g *FakeGateway) FailWrites(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failErr = err
}

// BlockWrites makes Write wait until the returned function is called.
func (g *FakeGateway) BlockWrites() (release func()) {
	ch := make(chan struct{})
	g.mu.Lock()
	g.block = ch
	g.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.block = nil
			g.mu.Unlock()
			close(ch)
		})
	}
}

// Remove deletes name and notifies its watchers.
func (g *FakeGateway) Remove(name string) {
	g.mu.Lock()
	delete(g.files, name)
	fns := g.watchers[name]
	delete(g.watchers, name)
	g.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// IsCapable implements storage.Gateway.
func (g *FakeGateway) IsCapable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capable
}

// PickAndOpen implements storage.Gateway.
func (g *FakeGateway) PickAndOpen(ctx context.Context) (storage.Opened, error) {
	if err := ctx.Err(); err != nil {
		return storage.Opened{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.capable {
		return storage.Opened{}, apperr.ErrCapabilityUnavailable
	}
	name, err := g.choose(ctx, storage.ModeOpen)
	if err != nil {
		return storage.Opened{}, err
	}
	data, ok := g.files[name]
	if !ok {
		return storage.Opened{}, fmt.Errorf("%s: %w", name, apperr.ErrNotFound)
	}
	return storage.Opened{
		Handle:      storage.NewHandle(name, name),
		Data:        append([]byte(nil), data...),
		DisplayName: name,
	}, nil
}

// PickAndCreate implements storage.Gateway.
func (g *FakeGateway) PickAndCreate(ctx context.Context, data []byte) (storage.Created, error) {
	if err := ctx.Err(); err != nil {
		return storage.Created{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.capable {
		return storage.Created{}, apperr.ErrCapabilityUnavailable
	}
	name, err := g.choose(ctx, storage.ModeCreate)
	if err != nil {
		return storage.Created{}, err
	}
	g.files[name] = append([]byte(nil), data...)
	return storage.Created{
		Handle:      storage.NewHandle(name, name),
		DisplayName: name,
	}, nil
}

// Write implements storage.Gateway.
func (g *FakeGateway) Write(ctx context.Context, h *storage.Handle, data []byte) error {
	g.mu.Lock()
	block := g.block
	g.inflight++
	g.maxInfl = max(g.maxInfl, g.inflight)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !h.Live() {
		return fmt.Errorf("stale handle: %w", apperr.ErrHandleWrite)
	}
	if g.failErr != nil {
		return fmt.Errorf("%w: %w", apperr.ErrHandleWrite, g.failErr)
	}
	g.files[h.Locator()] = append([]byte(nil), data...)
	g.writes = append(g.writes, Write{Name: h.Locator(), Data: append([]byte(nil), data...)})
	return nil
}

// Watch implements storage.Watcher. It returns when ctx is done.
func (g *FakeGateway) Watch(ctx context.Context, h *storage.Handle, onGone func()) error {
	g.mu.Lock()
	g.watchers[h.Locator()] = append(g.watchers[h.Locator()], onGone)
	g.mu.Unlock()
	<-ctx.Done()
	return nil
}

// Watching reports whether any watch is registered for name.
func (g *FakeGateway) Watching(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.watchers[name]) > 0
}

// MaxConcurrentWrites is the largest number of overlapping Write calls seen.
func (g *FakeGateway) MaxConcurrentWrites() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxInfl
}
