package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/export"
	"github.com/starford/inkwell/internal/noteservice"
	"github.com/starford/inkwell/internal/notes"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/testutil"
)

// testEnv sets up an in-memory service and router for testing.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	svc := testutil.TestService(t)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case []byte:
		rd = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, h http.Handler, content string) NoteDetail {
	t.Helper()
	w := do(t, h, http.MethodPost, "/notes", map[string]string{"content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var n NoteDetail
	if err := json.Unmarshal(w.Body.Bytes(), &n); err != nil {
		t.Fatal(err)
	}
	return n
}

func notePath(id int64, suffix string) string {
	return "/notes/" + strconv.FormatInt(id, 10) + suffix
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	created := createNote(t, router, "Hello\nWorld #greeting")
	if created.Title != "Hello" || created.Words != 2 {
		t.Errorf("created = %+v", created)
	}

	w := do(t, router, http.MethodGet, notePath(created.ID, ""), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got, want := w.Header().Get("ETag"), `"`+created.ETag+`"`; got != want {
		t.Errorf("ETag = %q, want %q", got, want)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.ID != created.ID || note.Content != "Hello\nWorld #greeting" {
		t.Errorf("note = %+v", note)
	}
	if len(note.Tags) != 1 || note.Tags[0] != "greeting" {
		t.Errorf("tags = %v", note.Tags)
	}
}

func TestCreateNote_Rejects(t *testing.T) {
	_, router := testEnv(t, "")

	tests := []struct {
		name string
		body any
	}{
		{"blank", map[string]string{"content": "   \n\t"}},
		{"missing", map[string]string{}},
		{"invalid json", []byte("{")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/notes", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreateNote_TooLarge(t *testing.T) {
	_, router := testEnv(t, "")
	big := `{"content":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := do(t, router, http.MethodPost, "/notes", []byte(big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestCreateNote_StorageFull(t *testing.T) {
	adapter := storage.NewAdapter(storage.WithQuota(storage.NewMemoryKV(), 64), storage.DefaultKey, testutil.Logger())
	svc := noteservice.NewService(notes.New(context.Background(), adapter))
	router := NewRouter(svc, false, "", nil)

	w := do(t, router, http.MethodPost, "/notes", map[string]string{"content": strings.Repeat("word ", 50)})
	if w.Code != http.StatusInsufficientStorage {
		t.Fatalf("status = %d, want 507", w.Code)
	}
	if len(svc.ListNotes(context.Background())) != 0 {
		t.Error("failed write must not change the collection")
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "v1")

	update := func(ifMatch string) *httptest.ResponseRecorder {
		data, _ := json.Marshal(map[string]string{"content": "v2"})
		req := httptest.NewRequest(http.MethodPut, notePath(created.ID, ""), bytes.NewReader(data))
		if ifMatch != "" {
			req.Header.Set("If-Match", ifMatch)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := update(`"` + created.ETag + `"`); w.Code != http.StatusOK {
		t.Fatalf("update with current etag = %d, body = %s", w.Code, w.Body.String())
	}
	// The etag now refers to "v1".
	if w := update(created.ETag); w.Code != http.StatusConflict {
		t.Errorf("update with stale etag = %d, want 409", w.Code)
	}
	if w := update(""); w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestUpdateNote_Errors(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "v1")

	if w := do(t, router, http.MethodPut, "/notes/999", map[string]string{"content": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPut, notePath(created.ID, ""), map[string]string{"content": " "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank content = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/notes/abc", map[string]string{"content": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "bye")

	if w := do(t, router, http.MethodDelete, notePath(created.ID, ""), nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, notePath(created.ID, ""), nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, notePath(created.ID, ""), nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	_, router := testEnv(t, "")
	first := createNote(t, router, "first")
	second := createNote(t, router, "second")

	w := do(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Notes) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Notes[0].ID != second.ID || resp.Notes[1].ID != first.ID {
		t.Errorf("order = [%d %d], want newest first", resp.Notes[0].ID, resp.Notes[1].ID)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "Project kickoff")
	createNote(t, router, "grocery list")

	w := do(t, router, http.MethodGet, "/search?q=KICK&highlight=true", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Active || len(resp.Results) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if got, want := resp.Results[0].Highlighted, "Project <mark>kick</mark>off"; got != want {
		t.Errorf("highlighted = %q, want %q", got, want)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	_, router := testEnv(t, "")
	createNote(t, router, "anything")

	w := do(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var raw map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &raw)
	if raw["active"] != false {
		t.Errorf("active = %v, want false", raw["active"])
	}
	if results, ok := raw["results"].([]any); !ok || len(results) != 0 {
		t.Errorf("results = %v, want empty list", raw["results"])
	}
}

func TestRenderNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "line one\nline two")

	w := do(t, router, http.MethodGet, notePath(created.ID, "/html"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("html = %d", w.Code)
	}
	var resp HTMLResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp.HTML, "<br") {
		t.Errorf("expected hard line break, got %q", resp.HTML)
	}
}

func TestExportNote(t *testing.T) {
	_, router := testEnv(t, "")
	created := createNote(t, router, "# Export me")

	w := do(t, router, http.MethodGet, notePath(created.ID, "/export"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	wantDisp := `attachment; filename="note-` + strconv.FormatInt(created.ID, 10) + `.md"`
	if got := w.Header().Get("Content-Disposition"); got != wantDisp {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisp)
	}
	if got := w.Header().Get("Content-Type"); got != export.MIMEMarkdown {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.String() != "# Export me" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestExportDraft(t *testing.T) {
	svc, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/export", NoteRequest{Content: "  unsaved draft #idea \n"})
	if w.Code != http.StatusOK {
		t.Fatalf("export draft = %d, body = %s", w.Code, w.Body.String())
	}
	disp := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disp, `attachment; filename="note-`) || !strings.HasSuffix(disp, `.txt"`) {
		t.Errorf("Content-Disposition = %q", disp)
	}
	if got := w.Header().Get("Content-Type"); got != export.MIMEText {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.String() != "unsaved draft #idea" {
		t.Errorf("body = %q", w.Body.String())
	}
	if n := len(svc.ListNotes(context.Background())); n != 0 {
		t.Errorf("draft export stored %d notes", n)
	}

	if w := do(t, router, http.MethodPost, "/export", NoteRequest{Content: " \n "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank draft = %d, want 400", w.Code)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	_, src := testEnv(t, "")
	createNote(t, src, "alpha")
	createNote(t, src, "beta")

	w := do(t, src, http.MethodGet, "/backup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("backup = %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="notes-backup-`) {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}

	dstSvc, dst := testEnv(t, "")
	r := do(t, dst, http.MethodPost, "/backup", w.Body.Bytes())
	if r.Code != http.StatusOK {
		t.Fatalf("restore = %d, body = %s", r.Code, r.Body.String())
	}
	var resp RestoreResponse
	_ = json.Unmarshal(r.Body.Bytes(), &resp)
	if resp.Restored != 2 || len(dstSvc.ListNotes(context.Background())) != 2 {
		t.Errorf("restored = %d", resp.Restored)
	}
}

func TestRestoreBackup_Invalid(t *testing.T) {
	_, router := testEnv(t, "")
	for _, body := range []string{`[]`, `{"notes": [], "version": "9.0"}`, `not json`} {
		if w := do(t, router, http.MethodPost, "/backup", []byte(body)); w.Code != http.StatusBadRequest {
			t.Errorf("restore %s = %d, want 400", body, w.Code)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/notes", nil); w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	// The handler blocks until the request context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(testutil.TestService(t), authEnabled, token, sseHandler)
}
