package app

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- test helpers ---

func openTestSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// staticVerifier accepts exactly one token.
type staticVerifier struct{}

func (staticVerifier) ParseAccess(raw string) (*token.Claims, error) {
	if raw != "good" {
		return nil, domain.NewAppError(domain.CodeUnauthorized, "invalid token", nil)
	}
	return &token.Claims{UserID: 7, Role: domain.RoleClient, Kind: token.KindAccess}, nil
}

type mockModule struct {
	called bool
}

func (m *mockModule) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	m.called = true
	public.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	protected.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": middleware.CurrentUserID(c)})
	})
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var body struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return body.Status, body.Components
}

// --- Health check tests ---

func TestHealthHandler_OK(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(openTestSQLiteDB(t), stubPinger{}))

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	status, comps := decodeHealth(t, w)
	if status != "ok" || comps["database"] != "ok" || comps["cache"] != "ok" {
		t.Errorf("health = %s %v", status, comps)
	}
}

func TestHealthHandler_DBDown(t *testing.T) {
	db := openTestSQLiteDB(t)
	sqlDB, _ := db.DB()
	sqlDB.Close()

	r := gin.New()
	r.GET("/health", healthHandler(db, nil))

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	status, comps := decodeHealth(t, w)
	if status != "degraded" || comps["database"] != "error" {
		t.Errorf("health = %s %v", status, comps)
	}
	if _, ok := comps["cache"]; ok {
		t.Error("cache component reported without a cache")
	}
}

func TestHealthHandler_CacheDown(t *testing.T) {
	r := gin.New()
	r.GET("/health", healthHandler(openTestSQLiteDB(t), stubPinger{err: errors.New("connection refused")}))

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	_, comps := decodeHealth(t, w)
	if comps["database"] != "ok" || comps["cache"] != "error" {
		t.Errorf("components = %v", comps)
	}
}

func TestHealthHandler_UsesRequestContextTimeout(t *testing.T) {
	registerBlockingPingDriver()

	sqlDB, err := sql.Open(blockingPingDriverName, "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	r := gin.New()
	r.GET("/health", healthHandler(db, nil))

	reqCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(reqCtx)

	start := time.Now()
	r.ServeHTTP(w, req)
	elapsed := time.Since(start)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if elapsed > 300*time.Millisecond {
		t.Fatalf("expected health response to honor request context timeout, elapsed=%v", elapsed)
	}
}

// --- RegisterRoutes tests ---

func TestRegisterRoutes_Validation(t *testing.T) {
	tests := []struct {
		name string
		r    *gin.Engine
		deps *RouteDeps
	}{
		{"nil router", nil, &RouteDeps{}},
		{"nil deps", gin.New(), nil},
		{"no modules", gin.New(), &RouteDeps{Verifier: staticVerifier{}}},
		{"no verifier", gin.New(), &RouteDeps{Modules: []Module{&mockModule{}}}},
		{"nil module entry", gin.New(), &RouteDeps{Modules: []Module{&mockModule{}, nil}, Verifier: staticVerifier{}}},
		{"root uploads prefix", gin.New(), &RouteDeps{
			Modules:       []Module{&mockModule{}},
			Verifier:      staticVerifier{},
			UploadsDir:    "/tmp",
			UploadsPrefix: "/",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := RegisterRoutes(tt.r, tt.deps); err == nil {
				t.Fatal("RegisterRoutes() error = nil, want error")
			}
		})
	}
}

func TestRegisterRoutes_PublicAndProtectedGroups(t *testing.T) {
	r := gin.New()
	m := &mockModule{}
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{m}, Verifier: staticVerifier{}}); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}
	if !m.called {
		t.Fatal("module RegisterRoutes was not called")
	}

	if w := serve(r, http.MethodGet, "/api/v1/ping", nil); w.Code != http.StatusOK {
		t.Errorf("public route status = %d, want 200", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/v1/whoami", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("protected route without token = %d, want 401", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/v1/whoami", map[string]string{"Authorization": "Bearer bad"}); w.Code != http.StatusUnauthorized {
		t.Errorf("protected route with bad token = %d, want 401", w.Code)
	}
	w := serve(r, http.MethodGet, "/api/v1/whoami", map[string]string{"Authorization": "Bearer good"})
	if w.Code != http.StatusOK || w.Body.String() != `{"user_id":7}` {
		t.Errorf("protected route = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{Modules: []Module{&mockModule{}}, Verifier: staticVerifier{}}); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/missing", http.StatusNotFound},
		{http.MethodGet, "/index.html", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/ping", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		w := serve(r, tt.method, tt.path, nil)
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			continue
		}
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Errorf("%s %s body is not JSON: %q", tt.method, tt.path, w.Body.String())
		}
		if body.Code != tt.want {
			t.Errorf("%s %s envelope code = %d, want %d", tt.method, tt.path, body.Code, tt.want)
		}
	}
}

func TestRegisterRoutes_ServesUploads(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "abc.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r := gin.New()
	if err := RegisterRoutes(r, &RouteDeps{
		Modules:       []Module{&mockModule{}},
		Verifier:      staticVerifier{},
		UploadsDir:    dir,
		UploadsPrefix: "uploads/",
	}); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}

	w := serve(r, http.MethodGet, "/uploads/abc.pdf", nil)
	if w.Code != http.StatusOK || w.Body.String() != "%PDF-1.4" {
		t.Fatalf("GET /uploads/abc.pdf = %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=86400" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	if w := serve(r, http.MethodGet, "/uploads/missing.pdf", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing upload = %d, want 404", w.Code)
	}
	// Directory listings are disabled.
	if w := serve(r, http.MethodGet, "/uploads/nested/", nil); w.Code != http.StatusNotFound {
		t.Errorf("directory listing = %d, want 404", w.Code)
	}
}

// --- blocking ping driver ---

const blockingPingDriverName = "allobricolage_blocking_ping"

var registerBlockingPingDriverOnce sync.Once

func registerBlockingPingDriver() {
	registerBlockingPingDriverOnce.Do(func() {
		sql.Register(blockingPingDriverName, blockingPingDriver{})
	})
}

type blockingPingDriver struct{}

func (blockingPingDriver) Open(string) (driver.Conn, error) {
	return blockingPingConn{}, nil
}

type blockingPingConn struct{}

func (blockingPingConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (blockingPingConn) Close() error                        { return nil }
func (blockingPingConn) Begin() (driver.Tx, error)           { return blockingPingTx{}, nil }

func (blockingPingConn) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type blockingPingTx struct{}

func (blockingPingTx) Commit() error   { return nil }
func (blockingPingTx) Rollback() error { return nil }
