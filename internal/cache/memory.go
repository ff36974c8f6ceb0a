package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/daybook/internal/models"
)

// Memory is a process-local Cache. It keeps the serialized form so reads
// behave like the durable implementation.
type Memory struct {
	mu       sync.Mutex
	data     []byte
	writeErr error
	logger   *slog.Logger
}

var _ Cache = (*Memory)(nil)

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{logger: slog.Default()}
}

// Read returns the cached collection.
func (m *Memory) Read(_ context.Context) (models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.data, m.logger), nil
}

// Write replaces the cached collection.
func (m *Memory) Write(_ context.Context, c models.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return wrapWrite("write", m.writeErr)
	}
	data, err := encode(c)
	if err != nil {
		return wrapWrite("encode", err)
	}
	m.data = data
	return nil
}

// Clear drops the cached collection.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Raw returns the stored bytes.
func (m *Memory) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// SetRaw overwrites the stored bytes, bypassing encoding.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// FailWrites makes every subsequent Write fail with err; nil restores writes.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}
