package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/daybook/internal/apperr"
)

func tempGateway(t *testing.T, name string) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, StaticPicker{Name: name}, nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs, dir
}

func TestCreateWriteAndOpen(t *testing.T) {
	fs, dir := tempGateway(t, "notes")
	ctx := context.Background()

	created, err := fs.PickAndCreate(ctx, []byte("[]"))
	if err != nil {
		t.Fatalf("PickAndCreate: %v", err)
	}
	if created.DisplayName != "notes.json" {
		t.Errorf("display name = %q", created.DisplayName)
	}

	if err := fs.Write(ctx, created.Handle, []byte(`[{"date":"20240101"}]`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "notes.json"))
	if string(raw) != `[{"date":"20240101"}]` {
		t.Errorf("content = %q", raw)
	}

	fs.picker = StaticPicker{Name: "notes.json"}
	opened, err := fs.PickAndOpen(ctx)
	if err != nil {
		t.Fatalf("PickAndOpen: %v", err)
	}
	if string(opened.Data) != string(raw) || opened.DisplayName != "notes.json" {
		t.Errorf("opened = %+v", opened)
	}
}

func TestPickCancelled(t *testing.T) {
	fs, _ := tempGateway(t, "")
	if _, err := fs.PickAndOpen(context.Background()); !errors.Is(err, apperr.ErrUserCancelled) {
		t.Errorf("open err = %v, want ErrUserCancelled", err)
	}
	if _, err := fs.PickAndCreate(context.Background(), []byte("[]")); !errors.Is(err, apperr.ErrUserCancelled) {
		t.Errorf("create err = %v, want ErrUserCancelled", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	fs, _ := tempGateway(t, "missing.json")
	if _, err := fs.PickAndOpen(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCapability(t *testing.T) {
	fs, err := NewFS(filepath.Join(t.TempDir(), "not-mounted"), StaticPicker{Name: "x.json"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fs.IsCapable() {
		t.Fatal("missing root should not be capable")
	}
	if _, err := fs.PickAndOpen(context.Background()); !errors.Is(err, apperr.ErrCapabilityUnavailable) {
		t.Errorf("err = %v, want ErrCapabilityUnavailable", err)
	}
	if err := fs.Write(context.Background(), NewHandle("x.json", "/x.json"), nil); !errors.Is(err, apperr.ErrCapabilityUnavailable) {
		t.Errorf("err = %v, want ErrCapabilityUnavailable", err)
	}

	noPicker, _ := NewFS(t.TempDir(), nil, nil)
	if noPicker.IsCapable() {
		t.Error("gateway without picker should not be capable")
	}

	var u Unavailable
	if u.IsCapable() {
		t.Error("Unavailable must not be capable")
	}
	if _, err := u.PickAndCreate(context.Background(), nil); !errors.Is(err, apperr.ErrCapabilityUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestStaleHandleRejected(t *testing.T) {
	fs, dir := tempGateway(t, "a.json")
	stale := &Handle{name: "a.json", locator: filepath.Join(dir, "a.json"), token: processToken + 1}
	if err := fs.Write(context.Background(), stale, []byte("[]")); !errors.Is(err, apperr.ErrHandleWrite) {
		t.Errorf("err = %v, want ErrHandleWrite", err)
	}
	if err := fs.Write(context.Background(), nil, []byte("[]")); !errors.Is(err, apperr.ErrHandleWrite) {
		t.Errorf("nil handle err = %v, want ErrHandleWrite", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	for _, p := range []string{"../../etc/passwd", "../outside.json", "/etc/shadow"} {
		fs, _ := tempGateway(t, p)
		if _, err := fs.PickAndOpen(context.Background()); err == nil {
			t.Errorf("expected error opening %q", p)
		}
		if _, err := fs.PickAndCreate(context.Background(), []byte("x")); err == nil {
			t.Errorf("expected error creating %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	fs, dir := tempGateway(t, "atomic.json")
	ctx := context.Background()
	created, err := fs.PickAndCreate(ctx, []byte("original"))
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(ctx, created.Handle, []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(dir, "atomic.json"))
	if string(got) != "updated" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".daybook-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestContextPicker(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewFS(dir, ContextPicker{}, nil)
	if _, err := fs.PickAndCreate(context.Background(), []byte("[]")); !errors.Is(err, apperr.ErrUserCancelled) {
		t.Errorf("err = %v, want ErrUserCancelled", err)
	}
	created, err := fs.PickAndCreate(WithChoice(context.Background(), "ctx.json"), []byte("[]"))
	if err != nil {
		t.Fatalf("PickAndCreate: %v", err)
	}
	if created.DisplayName != "ctx.json" {
		t.Errorf("display name = %q", created.DisplayName)
	}
}

func TestWatchReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	var logs syncBuffer
	fs, err := NewFS(dir, StaticPicker{Name: "watched.json"}, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := fs.PickAndCreate(ctx, []byte("[]"))
	if err != nil {
		t.Fatal(err)
	}

	var gone atomic.Bool
	done := make(chan struct{})
	go func() {
		_ = fs.Watch(ctx, created.Handle, func() { gone.Store(true) })
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	// Our own writes must not look like a removal.
	if err := fs.Write(ctx, created.Handle, []byte("[1]")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(goneSettle + 100*time.Millisecond)
	if gone.Load() {
		t.Fatal("atomic write reported as removal")
	}

	_ = os.Remove(filepath.Join(dir, "watched.json"))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not report removal")
	}
	if !gone.Load() {
		t.Error("onGone not called")
	}
	if !strings.Contains(logs.String(), "bound file disappeared") {
		t.Errorf("removal not logged through the gateway logger: %q", logs.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
