package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/daybook/internal/cache"
	"github.com/starford/daybook/internal/codec"
	"github.com/starford/daybook/internal/models"
	"github.com/starford/daybook/internal/prompt"
	"github.com/starford/daybook/internal/session"
	"github.com/starford/daybook/internal/settings"
	"github.com/starford/daybook/internal/storage"
	"github.com/starford/daybook/internal/testutil"
)

type testEnv struct {
	sess   *session.Session
	prompt *prompt.Negotiator
	gw     *testutil.FakeGateway
	router http.Handler
}

func newTestEnv(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()
	gw := testutil.NewFakeGateway()
	gw.UsePicker(storage.ContextPicker{})
	pr := prompt.New()
	sess, err := session.New(context.Background(), session.Deps{
		Cache:      cache.NewMemory(),
		Settings:   &settings.Memory{},
		Codec:      codec.New(),
		Gateway:    gw,
		Negotiator: pr,
		Logger:     testutil.Logger(),
	}, session.WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sess.Close)
	return &testEnv{sess: sess, prompt: pr, gw: gw, router: NewRouter(sess, pr, cfg)}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sampleNote(date, body string) models.Note {
	return models.Note{
		Owner: models.DefaultOwner,
		Date:  date,
		Items: []models.ContentItem{{ID: "i-" + date, Header: "h", Body: body}},
	}
}

func TestPutGetListDelete(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})

	w := e.do(t, http.MethodPut, "/notes/20240101", sampleNote("20240101", "one"))
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d %s", w.Code, w.Body.String())
	}
	e.do(t, http.MethodPut, "/notes/20240305", sampleNote("20240305", "two"))

	w = e.do(t, http.MethodGet, "/notes", nil)
	var list NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 || list.Notes[0].Date != "20240305" {
		t.Fatalf("list = %+v", list)
	}

	w = e.do(t, http.MethodGet, "/notes/20240101", nil)
	var n models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &n)
	if w.Code != http.StatusOK || n.Items[0].Body != "one" {
		t.Fatalf("get = %d %+v", w.Code, n)
	}

	if w = e.do(t, http.MethodDelete, "/notes/20240101", nil); w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	if w = e.do(t, http.MethodDelete, "/notes/20240101", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", w.Code)
	}
	if w = e.do(t, http.MethodGet, "/notes/20240101", nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d", w.Code)
	}
}

func TestPutRenameConflict(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	e.do(t, http.MethodPut, "/notes/20240101", sampleNote("20240101", "a"))
	e.do(t, http.MethodPut, "/notes/20240102", sampleNote("20240102", "b"))

	w := e.do(t, http.MethodPut, "/notes/20240102", sampleNote("20240101", "b"))
	if w.Code != http.StatusConflict {
		t.Errorf("rename onto taken date = %d, want 409", w.Code)
	}
}

func TestPutInvalidNote(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	w := e.do(t, http.MethodPut, "/notes/2024-01-01", sampleNote("2024-01-01", "a"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid date = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPut, "/notes/20240101", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d", rec.Code)
	}
}

func TestContentItems(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})

	w := e.do(t, http.MethodPost, "/notes/20240101/contents", ContentRequest{Header: "first", Content: "x"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add to missing note = %d %s", w.Code, w.Body.String())
	}
	var first models.ContentItem
	_ = json.Unmarshal(w.Body.Bytes(), &first)
	if first.ID == "" {
		t.Fatal("content item has no id")
	}
	e.do(t, http.MethodPost, "/notes/20240101/contents", ContentRequest{Header: "second"})

	items := e.sess.State().Notes[0].Items
	if len(items) != 2 || items[0].Header != "second" {
		t.Fatalf("items = %+v", items)
	}

	w = e.do(t, http.MethodPut, "/notes/20240101/contents/"+first.ID, ContentRequest{Header: "edited", Content: "y"})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}
	if w = e.do(t, http.MethodDelete, "/notes/20240101/contents/"+first.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("remove = %d", w.Code)
	}
	if w = e.do(t, http.MethodDelete, "/notes/20240101/contents/"+first.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("remove missing = %d", w.Code)
	}
	long := strings.Repeat("h", models.MaxHeaderLength+1)
	if w = e.do(t, http.MethodPost, "/notes/20240101/contents", ContentRequest{Header: long}); w.Code != http.StatusBadRequest {
		t.Errorf("long header = %d", w.Code)
	}
}

func TestOpenPlaintextFile(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	body, _ := json.Marshal(models.Collection{sampleNote("20240101", "from file")})
	e.gw.Put("notes.json", body)

	w := e.do(t, http.MethodPost, "/file/open", OpenFileRequest{Name: "notes.json"})
	if w.Code != http.StatusOK {
		t.Fatalf("open = %d %s", w.Code, w.Body.String())
	}
	var resp FileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Done || resp.State.DisplayName != "notes.json" || len(resp.State.Notes) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenRequiresDiscardConfirmation(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	e.gw.Put("notes.json", []byte(`[]`))
	e.do(t, http.MethodPut, "/notes/20240101", sampleNote("20240101", "unsaved"))

	w := e.do(t, http.MethodPost, "/file/open", OpenFileRequest{Name: "notes.json"})
	if w.Code != http.StatusPreconditionRequired {
		t.Fatalf("open with unsaved edits = %d", w.Code)
	}
	if len(e.sess.State().Notes) != 1 {
		t.Fatal("unsaved edits discarded without confirmation")
	}

	w = e.do(t, http.MethodPost, "/file/open", OpenFileRequest{Name: "notes.json", DiscardUnsaved: true})
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed open = %d", w.Code)
	}
	if len(e.sess.State().Notes) != 0 {
		t.Error("file content not loaded")
	}
}

func TestOpenInvalidFile(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	e.gw.Put("bad.json", []byte(`{"not": "a list"}`))
	w := e.do(t, http.MethodPost, "/file/open", OpenFileRequest{Name: "bad.json"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid file = %d", w.Code)
	}
}

func TestOpenCancelled(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	w := e.do(t, http.MethodPost, "/file/open", OpenFileRequest{})
	var resp FileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Done {
		t.Errorf("cancelled open = %d %+v", w.Code, resp)
	}
}

func TestOpenEncryptedThroughPrompt(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	plain, _ := json.Marshal(models.Collection{sampleNote("20240101", "secret")})
	blob, err := codec.New().Encrypt(plain, "pw")
	if err != nil {
		t.Fatal(err)
	}
	e.gw.Put("vault.json", blob)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- e.do(t, http.MethodPost, "/file/open", OpenFileRequest{Name: "vault.json"})
	}()

	testutil.Eventually(t, time.Second, func() bool { return e.prompt.State().Open })
	w := e.do(t, http.MethodGet, "/prompt", nil)
	var st prompt.State
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Open || st.Pending != 1 {
		t.Fatalf("prompt state = %+v", st)
	}

	if w = e.do(t, http.MethodPost, "/prompt/submit", SubmitRequest{Password: "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank submit = %d", w.Code)
	}
	if w = e.do(t, http.MethodPost, "/prompt/submit", SubmitRequest{Password: "pw"}); w.Code != http.StatusNoContent {
		t.Fatalf("submit = %d", w.Code)
	}

	select {
	case w = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("open did not finish")
	}
	var resp FileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || !resp.State.IsEncrypted || len(resp.State.Notes) != 1 {
		t.Errorf("open = %d %+v", w.Code, resp)
	}
}

func TestOpenWrongPassword(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	blob, _ := codec.New().Encrypt([]byte(`[]`), "right")
	e.gw.Put("vault.json", blob)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- e.do(t, http.MethodPost, "/file/open", OpenFileRequest{Name: "vault.json"})
	}()
	testutil.Eventually(t, time.Second, func() bool { return e.prompt.State().Open })
	e.do(t, http.MethodPost, "/prompt/submit", SubmitRequest{Password: "wrong"})

	w := <-done
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("wrong password = %d", w.Code)
	}
}

func TestSaveAsAndSave(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	e.do(t, http.MethodPut, "/notes/20240101", sampleNote("20240101", "a"))

	w := e.do(t, http.MethodPost, "/file/save-as", SaveFileRequest{Name: "vault.json", Password: "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("save-as = %d %s", w.Code, w.Body.String())
	}
	blob, ok := e.gw.File("vault.json")
	if !ok || !codec.New().IsEnvelope(blob) {
		t.Fatal("save-as did not write an envelope")
	}

	e.do(t, http.MethodPut, "/notes/20240102", sampleNote("20240102", "b"))
	if w = e.do(t, http.MethodPost, "/file/save", SaveFileRequest{}); w.Code != http.StatusOK {
		t.Fatalf("save = %d", w.Code)
	}
	if got := len(e.gw.Writes()); got < 1 {
		t.Errorf("writes = %d", got)
	}
	if e.sess.State().IsDirty {
		t.Error("dirty after save")
	}
}

func TestSaveUnavailable(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	e.gw.SetCapable(false)
	w := e.do(t, http.MethodPost, "/file/save-as", SaveFileRequest{Name: "x.json"})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("save-as without capability = %d", w.Code)
	}
}

func TestCloseFile(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	e.do(t, http.MethodPut, "/notes/20240101", sampleNote("20240101", "a"))
	e.do(t, http.MethodPost, "/file/save-as", SaveFileRequest{Name: "vault.json"})

	w := e.do(t, http.MethodPost, "/file/close", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("close = %d", w.Code)
	}
	st := e.sess.State()
	if st.DisplayName != "" || len(st.Notes) != 0 {
		t.Errorf("state after close: %+v", st)
	}
}

func TestPromptNothingPending(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	if w := e.do(t, http.MethodPost, "/prompt/submit", SubmitRequest{Password: "x"}); w.Code != http.StatusConflict {
		t.Errorf("submit = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/prompt/cancel", nil); w.Code != http.StatusConflict {
		t.Errorf("cancel = %d", w.Code)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	e := newTestEnv(t, RouterConfig{SubmitLimiter: rate.NewLimiter(rate.Every(time.Hour), 1)})
	e.do(t, http.MethodPost, "/prompt/submit", SubmitRequest{Password: "x"})
	w := e.do(t, http.MethodPost, "/prompt/submit", SubmitRequest{Password: "x"})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second submit = %d, want 429", w.Code)
	}
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t, RouterConfig{AuthEnabled: true, Token: "secret"})

	if w := e.do(t, http.MethodGet, "/state", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d", w.Code)
	}
}

func TestStatusMapping(t *testing.T) {
	e := newTestEnv(t, RouterConfig{})
	w := e.do(t, http.MethodGet, "/state", nil)
	var st models.ReadState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if !st.FileCapable || st.IsDirty {
		t.Errorf("initial state = %+v", st)
	}
}
