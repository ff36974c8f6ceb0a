// Package session is the persistence orchestrator. It owns the in-memory note
// collection and keeps three stores in step: the durable cache, the settings
// record of the bound file, and the bound file itself.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/cache"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/notes"
	"github.com/starford/daybook/internal/settings"
	"github.com/starford/daybook/internal/storage"
)

// DefaultDebounce is the quiet period before an autosave.
const DefaultDebounce = 2 * time.Second

// UnsavedWarning is shown before an action that would discard unsaved edits.
const UnsavedWarning = "You have unsaved changes. Loading a file will discard them. Continue?"

// Events published through the Notifier.
const (
	EventChanged        = "session.changed"
	EventAutosaveFailed = "autosave.failed"
	EventFileLoaded     = "file.loaded"
	EventFileSaved      = "file.saved"
	EventFileLost       = "file.lost"
	EventFileClosed     = "file.closed"
)

// Codec turns a plaintext file body into an encrypted envelope and back.
type Codec interface {
	IsEnvelope(blob []byte) bool
	Encrypt(plaintext []byte, password string) ([]byte, error)
	Decrypt(blob []byte, password string) ([]byte, error)
}

// Negotiator obtains a password from the user. Cancellation is reported as
// apperr.ErrUserCancelled.
type Negotiator interface {
	Request(ctx context.Context, title, message string) (string, error)
}

// Notifier receives a state snapshot after every observable change.
type Notifier interface {
	Publish(event string, state models.ReadState)
}

// Deps are the collaborators of a Session. All fields except Logger are
// required.
type Deps struct {
	Cache      cache.Cache
	Settings   settings.Store
	Codec      Codec
	Gateway    storage.Gateway
	Negotiator Negotiator
	Logger     *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce overrides the autosave quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithNotifier registers a state observer.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// Session is safe for concurrent use.
type Session struct {
	deps     Deps
	logger   *slog.Logger
	debounce time.Duration
	notifier Notifier

	baseCtx context.Context
	cancel  context.CancelFunc

	// writeMu serializes writes to the bound handle. It is always taken
	// before mu, never while holding it.
	writeMu sync.Mutex

	mu          sync.Mutex
	notes       models.Collection
	handle      *storage.Handle
	displayName string
	encrypted   bool
	password    string
	dirty       bool
	autosaving  bool
	rev         uint64
	savedSum    string
	timer       *time.Timer
	timerGen    uint64
	stopWatch   context.CancelFunc
	closed      bool
}

// New builds a session from the cache and the persisted association. A file
// remembered from an earlier run is reported as lost, since handles do not
// survive a restart; when that file was encrypted the decrypted copy in the
// cache is wiped before New returns.
func New(ctx context.Context, deps Deps, opts ...Option) (*Session, error) {
	switch {
	case deps.Cache == nil:
		return nil, errors.New("session: cache is required")
	case deps.Settings == nil:
		return nil, errors.New("session: settings store is required")
	case deps.Codec == nil:
		return nil, errors.New("session: codec is required")
	case deps.Gateway == nil:
		return nil, errors.New("session: gateway is required")
	case deps.Negotiator == nil:
		return nil, errors.New("session: negotiator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		deps:     deps,
		logger:   logger,
		debounce: DefaultDebounce,
	}
	for _, o := range opts {
		o(s)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	coll, err := deps.Cache.Read(ctx)
	if err != nil {
		logger.Warn("session: cache unreadable, starting empty", slog.String("error", err.Error()))
		coll = models.Collection{}
	}
	s.notes = coll

	assoc, err := deps.Settings.Load()
	if err != nil {
		logger.Warn("session: settings unreadable, ignoring association", slog.String("error", err.Error()))
		assoc = settings.Association{}
	}
	s.displayName = assoc.FileName
	s.encrypted = assoc.FileEncrypted

	if s.displayName != "" && s.encrypted {
		s.notes = models.Collection{}
		if err := deps.Cache.Clear(ctx); err != nil {
			s.cancel()
			return nil, fmt.Errorf("session: clear cache of encrypted file: %w", err)
		}
		logger.Info("session: encrypted file association lost on restart, cache cleared",
			slog.String("file", s.displayName))
	} else if s.displayName != "" {
		logger.Info("session: file association lost on restart", slog.String("file", s.displayName))
	}
	return s, nil
}

// State returns a snapshot for the display layer.
func (s *Session) State() models.ReadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() models.ReadState {
	lost := s.lostLocked()
	return models.ReadState{
		Notes:        s.notes.Clone(),
		IsAutoSaving: s.autosaving,
		DisplayName:  s.displayName,
		IsDirty:      s.dirty,
		IsHandleLost: lost,
		IsEncrypted:  s.encrypted,
		FileCapable:  s.deps.Gateway.IsCapable(),
		WarnOnExit:   s.dirty && (s.displayName == "" || lost),
	}
}

func (s *Session) boundLocked() bool { return s.handle != nil }

func (s *Session) lostLocked() bool { return s.displayName != "" && s.handle == nil }

func (s *Session) publish(event string, st models.ReadState) {
	if s.notifier != nil {
		s.notifier.Publish(event, st)
	}
}

// MutateNote creates or updates a note. originalDate names the note being
// edited and may differ from note.Date when renaming.
func (s *Session) MutateNote(ctx context.Context, originalDate string, note models.Note) error {
	return s.apply(ctx, func(c models.Collection) (models.Collection, error) {
		return notes.Upsert(c, originalDate, note)
	})
}

// DeleteNote removes the note with the given date.
func (s *Session) DeleteNote(ctx context.Context, date string) error {
	return s.apply(ctx, func(c models.Collection) (models.Collection, error) {
		return notes.Delete(c, date)
	})
}

// EditNote applies fn to the note at date atomically.
func (s *Session) EditNote(ctx context.Context, date string, fn func(models.Note) (models.Note, error)) error {
	return s.apply(ctx, func(c models.Collection) (models.Collection, error) {
		i := c.Find(date)
		if i < 0 {
			return nil, fmt.Errorf("note %s: %w", date, apperr.ErrNotFound)
		}
		edited, err := fn(c[i].Clone())
		if err != nil {
			return nil, err
		}
		return notes.Upsert(c, date, edited)
	})
}

// apply runs a collection transformation, mirrors the result to the cache
// and schedules persistence to the bound file.
func (s *Session) apply(ctx context.Context, fn func(models.Collection) (models.Collection, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	updated, err := fn(s.notes)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.notes = updated
	s.rev++
	s.dirty = true
	cacheErr := s.deps.Cache.Write(ctx, updated)
	if s.boundLocked() {
		s.scheduleLocked()
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.publish(EventChanged, st)
	if cacheErr != nil {
		s.logger.Error("session: cache write failed", slog.String("error", cacheErr.Error()))
		return cacheErr
	}
	return nil
}

var errClosed = errors.New("session closed")

// scheduleLocked restarts the debounce timer. Only the newest timer writes.
func (s *Session) scheduleLocked() {
	s.timerGen++
	gen := s.timerGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.autosave(gen) })
}

func (s *Session) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) autosave(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || s.closed || !s.boundLocked() {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	_ = s.writeBound(s.baseCtx, true)
}

// writeBound writes the current collection to the bound handle. An autosave
// skips the write when the file already holds the same content.
func (s *Session) writeBound(ctx context.Context, auto bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.boundLocked() {
		s.mu.Unlock()
		return nil
	}
	h := s.handle
	password := s.password
	snapshot := s.notes.Clone()
	rev := s.rev
	savedSum := s.savedSum
	if auto {
		s.autosaving = true
	}
	st := s.stateLocked()
	s.mu.Unlock()
	if auto {
		s.publish(EventChanged, st)
	}

	plain, sum, err := marshalCollection(snapshot, password != "")
	if err == nil && !(auto && sum == savedSum) {
		var data []byte
		data, err = s.seal(plain, password)
		if err == nil {
			err = s.deps.Gateway.Write(ctx, h, data)
		}
	}

	s.mu.Lock()
	s.autosaving = false
	if err != nil {
		s.dirty = true
	} else if s.handle == h {
		s.savedSum = sum
		if s.rev == rev {
			s.dirty = false
		}
	}
	st = s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		if auto {
			s.logger.Warn("session: autosave failed",
				slog.String("file", h.Name()), slog.String("error", err.Error()))
			s.publish(EventAutosaveFailed, st)
		}
		return fmt.Errorf("write %s: %w", h.Name(), err)
	}
	if auto {
		s.logger.Debug("session: autosaved", slog.String("file", h.Name()))
	}
	s.publish(EventFileSaved, st)
	return nil
}

func (s *Session) seal(plain []byte, password string) ([]byte, error) {
	if password == "" {
		return plain, nil
	}
	return s.deps.Codec.Encrypt(plain, password)
}

// LoadFile picks a file and replaces the collection with its content. It
// returns false without error when the user cancels.
func (s *Session) LoadFile(ctx context.Context) (bool, error) {
	if !s.deps.Gateway.IsCapable() {
		return false, apperr.ErrCapabilityUnavailable
	}
	opened, err := s.deps.Gateway.PickAndOpen(ctx)
	if apperr.IsCancelled(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}

	data := opened.Data
	var password string
	if s.deps.Codec.IsEnvelope(data) {
		password, err = s.deps.Negotiator.Request(ctx, "Unlock file",
			fmt.Sprintf("Enter the password for %s", opened.DisplayName))
		if apperr.IsCancelled(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if data, err = s.deps.Codec.Decrypt(data, password); err != nil {
			return false, err
		}
	}
	coll, err := ParseCollection(data)
	if err != nil {
		return false, err
	}
	_, sum, err := marshalCollection(coll, password != "")
	if err != nil {
		return false, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.cancelTimerLocked()
	s.notes = coll
	s.rev++
	s.dirty = false
	s.savedSum = sum
	s.bindLocked(opened.Handle, opened.DisplayName, password)
	cacheErr := s.deps.Cache.Write(ctx, coll)
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Info("session: file loaded",
		slog.String("file", opened.DisplayName),
		slog.Bool("encrypted", password != ""),
		slog.Int("notes", len(coll)))
	s.publish(EventFileLoaded, st)
	if cacheErr != nil {
		return true, cacheErr
	}
	return true, nil
}

// bindLocked associates the session with h, persists the association and
// starts watching the file.
func (s *Session) bindLocked(h *storage.Handle, name, password string) {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	s.handle = h
	s.displayName = name
	s.password = password
	s.encrypted = password != ""
	if err := s.deps.Settings.Save(settings.Association{FileName: name, FileEncrypted: s.encrypted}); err != nil {
		s.logger.Warn("session: persist association failed", slog.String("error", err.Error()))
	}
	if w, ok := s.deps.Gateway.(storage.Watcher); ok {
		ctx, cancel := context.WithCancel(s.baseCtx)
		s.stopWatch = cancel
		go func() {
			if err := w.Watch(ctx, h, func() { s.handleGone(h) }); err != nil && ctx.Err() == nil {
				s.logger.Warn("session: watch file", slog.String("file", name), slog.String("error", err.Error()))
			}
		}()
	}
}

// handleGone drops a handle whose file disappeared. An encrypted session also
// drops the decrypted content.
func (s *Session) handleGone(h *storage.Handle) {
	s.mu.Lock()
	if s.handle != h || s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelTimerLocked()
	s.handle = nil
	s.password = ""
	s.savedSum = ""
	var clearErr error
	if s.encrypted {
		s.notes = models.Collection{}
		s.rev++
		s.dirty = false
		clearErr = s.deps.Cache.Clear(s.baseCtx)
	} else {
		s.dirty = true
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Warn("session: bound file is gone", slog.String("file", h.Name()))
	if clearErr != nil {
		s.logger.Error("session: clear cache after losing encrypted file", slog.String("error", clearErr.Error()))
	}
	s.publish(EventFileLost, st)
}

// SaveAs writes the collection to a newly picked file and binds to it. A
// non-empty password produces an encrypted envelope. It returns false without
// error when the user cancels.
func (s *Session) SaveAs(ctx context.Context, password string) (bool, error) {
	if !s.deps.Gateway.IsCapable() {
		return false, apperr.ErrCapabilityUnavailable
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snapshot := s.notes.Clone()
	rev := s.rev
	s.mu.Unlock()

	plain, sum, err := marshalCollection(snapshot, password != "")
	if err != nil {
		return false, err
	}
	data, err := s.seal(plain, password)
	if err != nil {
		return false, err
	}
	created, err := s.deps.Gateway.PickAndCreate(ctx, data)
	if apperr.IsCancelled(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("save as: %w", err)
	}

	s.mu.Lock()
	s.bindLocked(created.Handle, created.DisplayName, password)
	s.savedSum = sum
	if s.rev == rev {
		s.dirty = false
		s.cancelTimerLocked()
	} else {
		s.scheduleLocked()
	}
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Info("session: saved as",
		slog.String("file", created.DisplayName), slog.Bool("encrypted", password != ""))
	s.publish(EventFileSaved, st)
	return true, nil
}

// SaveAsProtected asks for a new password and saves to a new file with it.
func (s *Session) SaveAsProtected(ctx context.Context) (bool, error) {
	if !s.deps.Gateway.IsCapable() {
		return false, apperr.ErrCapabilityUnavailable
	}
	password, err := s.deps.Negotiator.Request(ctx, "Protect file", "Choose a password for the new file")
	if apperr.IsCancelled(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.SaveAs(ctx, password)
}

// SaveCurrent writes to the bound file, or falls back to save-as when there
// is no usable handle.
func (s *Session) SaveCurrent(ctx context.Context) (bool, error) {
	s.mu.Lock()
	bound := s.boundLocked()
	lost := s.lostLocked()
	encrypted := s.encrypted
	password := s.password
	name := s.displayName
	if bound {
		s.cancelTimerLocked()
	}
	s.mu.Unlock()

	switch {
	case lost && encrypted:
		pw, err := s.deps.Negotiator.Request(ctx, "Reconnect file",
			fmt.Sprintf("Enter a password to save %s again", name))
		if apperr.IsCancelled(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return s.SaveAs(ctx, pw)
	case !bound:
		return s.SaveAs(ctx, password)
	}
	if err := s.writeBound(ctx, false); err != nil {
		return false, err
	}
	return true, nil
}

// CloseAssociation forgets the bound file and wipes local content.
func (s *Session) CloseAssociation(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.cancelTimerLocked()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	name := s.displayName
	s.handle = nil
	s.displayName = ""
	s.encrypted = false
	s.password = ""
	s.savedSum = ""
	s.notes = models.Collection{}
	s.rev++
	s.dirty = false
	settingsErr := s.deps.Settings.Save(settings.Association{})
	cacheErr := s.deps.Cache.Clear(ctx)
	st := s.stateLocked()
	s.mu.Unlock()

	s.logger.Info("session: file association closed", slog.String("file", name))
	s.publish(EventFileClosed, st)
	return errors.Join(settingsErr, cacheErr)
}

// WarnIfUnsavedBeforeDestructiveAction returns true when the caller may
// proceed: either nothing is unsaved or confirm accepted the warning.
func (s *Session) WarnIfUnsavedBeforeDestructiveAction(confirm func(msg string) bool) bool {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()
	if !dirty {
		return true
	}
	return confirm(UnsavedWarning)
}

// Flush runs a pending autosave now and waits for any write in progress.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	pending := s.timer != nil && s.boundLocked()
	s.cancelTimerLocked()
	s.mu.Unlock()
	if !pending {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return nil
	}
	return s.writeBound(ctx, true)
}

// Close stops timers and watches. Pending autosaves are dropped; call Flush
// first to keep them.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelTimerLocked()
	s.stopWatch = nil
	s.cancel()
}
