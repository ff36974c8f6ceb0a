package storage

import (
	"context"

	"github.com/starford/daybook/internal/apperr"
)

// Unavailable is the gateway for environments without file handle support.
type Unavailable struct{}

var _ Gateway = Unavailable{}

func (Unavailable) IsCapable() bool { return false }

func (Unavailable) PickAndOpen(context.Context) (Opened, error) {
	return Opened{}, apperr.ErrCapabilityUnavailable
}

func (Unavailable) PickAndCreate(context.Context, []byte) (Created, error) {
	return Created{}, apperr.ErrCapabilityUnavailable
}

func (Unavailable) Write(context.Context, *Handle, []byte) error {
	return apperr.ErrCapabilityUnavailable
}
