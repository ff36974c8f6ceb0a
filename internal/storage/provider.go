// Package storage is the storage handle gateway: "pick a file, read it,
// write it" behind a capability check.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/binary"
)

// Handle references one picked file. It is only valid inside the process
// that obtained it and is never serialized; after a restart the session must
// treat the association as lost.
type Handle struct {
	name    string
	locator string
	token   uint64
}

var processToken = newProcessToken()

func newProcessToken() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// NewHandle stamps a handle for the current process. Gateways call it; the
// session treats the result as opaque.
func NewHandle(name, locator string) *Handle {
	return &Handle{name: name, locator: locator, token: processToken}
}

// Name is the user-facing display name.
func (h *Handle) Name() string { return h.name }

// Locator is the gateway-specific address of the file.
func (h *Handle) Locator() string { return h.locator }

// Live reports whether h was issued in this process.
func (h *Handle) Live() bool { return h != nil && h.token == processToken }

// Opened is the result of PickAndOpen.
type Opened struct {
	Handle      *Handle
	Data        []byte
	DisplayName string
}

// Created is the result of PickAndCreate.
type Created struct {
	Handle      *Handle
	DisplayName string
}

// Gateway is the interface for handle-based file operations. Callers must
// check IsCapable first; every other method fails with
// apperr.ErrCapabilityUnavailable when the environment cannot do file I/O.
type Gateway interface {
	IsCapable() bool
	// PickAndOpen asks the user for an existing file and reads it.
	// Cancellation returns apperr.ErrUserCancelled.
	PickAndOpen(ctx context.Context) (Opened, error)
	// PickAndCreate asks the user for a destination and writes data to it.
	PickAndCreate(ctx context.Context, data []byte) (Created, error)
	// Write replaces the whole file behind h.
	Write(ctx context.Context, h *Handle, data []byte) error
}

// Watcher is implemented by gateways that can report a bound file vanishing
// underneath the session.
type Watcher interface {
	Watch(ctx context.Context, h *Handle, onGone func()) error
}
