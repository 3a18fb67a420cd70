package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/inkwell/internal/testutil"
)

func testConfig(t *testing.T, backend string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Backend = backend
	cfg.Store.File.Dir = t.TempDir()
	cfg.Store.SQLite.Path = filepath.Join(t.TempDir(), "inkwell.db")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			ctx := context.Background()

			svc, store, err := Open(ctx, cfg, testutil.Logger())
			if err != nil {
				t.Fatal(err)
			}
			created, err := svc.CreateNote(ctx, "persist me #keep")
			if err != nil {
				t.Fatal(err)
			}
			store.Close()

			svc, store, err = Open(ctx, cfg, testutil.Logger())
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()
			got, err := svc.GetNote(ctx, created.ID)
			if err != nil {
				t.Fatalf("after reopen: %v", err)
			}
			if got.Content != "persist me #keep" || len(got.Tags) != 1 {
				t.Errorf("got = %+v", got)
			}
		})
	}
}

func TestOpenStore_FilePath(t *testing.T) {
	cfg := testConfig(t, BackendFile)
	store, err := OpenStore(context.Background(), cfg.Store, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if want := filepath.Join(cfg.Store.File.Dir, "notes.json"); store.File != want {
		t.Errorf("File = %q, want %q", store.File, want)
	}

	mem, err := OpenStore(context.Background(), testConfig(t, BackendMemory).Store, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if mem.File != "" {
		t.Errorf("memory backend File = %q, want empty", mem.File)
	}
}

func TestOpen_QuotaRejectsLargeWrite(t *testing.T) {
	cfg := testConfig(t, BackendMemory)
	cfg.Store.QuotaBytes = 256
	ctx := context.Background()

	svc, store, err := Open(ctx, cfg, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := svc.CreateNote(ctx, strings.Repeat("x", 512)); err == nil {
		t.Error("write over quota should fail")
	}
}

func TestNewHandler_HealthAndAuth(t *testing.T) {
	cfg := testConfig(t, BackendMemory)
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "tok"}
	svc, store, err := Open(context.Background(), cfg, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	h := NewHandler(svc, cfg, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notes", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/api/notes without token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("/api/notes with token = %d, want 200", w.Code)
	}
}
