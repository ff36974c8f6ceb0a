// Package cache implements the durable one-slot cache that mirrors the whole
// note collection on every mutation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/models"
)

// Cache is the last line of defense against data loss when no file is
// bound. Read never fails on corrupt content; Write never drops data silently.
type Cache interface {
	// Read returns the cached collection, or an empty one when the slot is
	// absent or unparseable.
	Read(ctx context.Context) (models.Collection, error)
	// Write overwrites the slot. Failures wrap apperr.ErrCacheWrite.
	Write(ctx context.Context, c models.Collection) error
	// Clear removes the slot.
	Clear(ctx context.Context) error
}

func encode(c models.Collection) ([]byte, error) {
	if c == nil {
		c = models.Collection{}
	}
	return json.Marshal(c)
}

// decode treats anything that is not a JSON array of notes as "start over".
func decode(data []byte, logger *slog.Logger) models.Collection {
	if len(data) == 0 {
		return models.Collection{}
	}
	var c models.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		logger.Warn("cache: discarding unreadable collection", slog.String("error", err.Error()))
		return models.Collection{}
	}
	if c == nil {
		return models.Collection{}
	}
	return c
}

func wrapWrite(op string, err error) error {
	return fmt.Errorf("cache: %s: %w: %w", op, apperr.ErrCacheWrite, err)
}
