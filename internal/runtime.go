package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/daybook/internal/cache"
	"github.com/starford/daybook/internal/codec"
	"github.com/starford/daybook/internal/prompt"
	"github.com/starford/daybook/internal/session"
	"github.com/starford/daybook/internal/settings"
	"github.com/starford/daybook/internal/sse"
	"github.com/starford/daybook/internal/storage"
)

// runtime holds the components shared by the HTTP and MCP front ends.
type runtime struct {
	logger  *slog.Logger
	session *session.Session
	prompt  *prompt.Negotiator
	broker  *sse.Broker
	closers []func() error
}

func newRuntime(ctx context.Context, cfg *Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = rt.close()
		}
	}()

	var (
		c  cache.Cache
		st settings.Store
	)
	if cfg.Data.Ephemeral {
		c = cache.NewMemory()
		st = &settings.Memory{}
		logger.Info("Using in-memory cache and settings")
	} else {
		if err := os.MkdirAll(cfg.Data.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		sqlite, err := cache.OpenSQLite(cfg.Data.CachePath(), logger)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		rt.closers = append(rt.closers, sqlite.Close)
		c = sqlite

		fs, err := settings.NewFileStore(cfg.Data.SettingsPath())
		if err != nil {
			return nil, fmt.Errorf("init settings: %w", err)
		}
		st = fs
	}

	var gw storage.Gateway = storage.Unavailable{}
	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.File.Root, 0o755); err != nil {
			return nil, fmt.Errorf("create file root: %w", err)
		}
		fs, err := storage.NewFS(cfg.File.Root, storage.ContextPicker{}, logger)
		if err != nil {
			return nil, fmt.Errorf("init file gateway: %w", err)
		}
		gw = fs
	}

	rt.prompt = prompt.New()
	rt.broker = sse.NewBroker(250 * time.Millisecond)
	rt.closers = append(rt.closers, func() error { rt.broker.Close(); return nil })
	rt.prompt.Subscribe(func(s prompt.State) {
		rt.broker.Broadcast(sse.Event{Type: "prompt.changed", Data: s})
	})

	sess, err := session.New(ctx, session.Deps{
		Cache:      c,
		Settings:   st,
		Codec:      codec.New(),
		Gateway:    gw,
		Negotiator: rt.prompt,
		Logger:     logger,
	}, session.WithDebounce(cfg.File.Debounce), session.WithNotifier(rt.broker))
	if err != nil {
		return nil, err
	}
	rt.session = sess

	ok = true
	return rt, nil
}

// shutdown writes any pending autosave, then releases resources in reverse
// order of creation.
func (rt *runtime) shutdown(ctx context.Context) error {
	var errs []error
	if rt.session != nil {
		if err := rt.session.Flush(ctx); err != nil {
			rt.logger.Error("Final autosave failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	errs = append(errs, rt.close())
	return errors.Join(errs...)
}

func (rt *runtime) close() error {
	if rt.session != nil {
		rt.session.Close()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
