package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/allobricolage/internal/middleware"
	"github.com/simp-lee/allobricolage/internal/testutil"
)

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewService(db, newTokens(t), Options{BcryptCost: bcrypt.MinCost})
	h := NewHandler(svc, CookieOptions{SameSite: http.SameSiteLaxMode}, middleware.NewCSRF("csrf-secret", "/", false))
	return testutil.NewRouter(NewModule(h).RegisterRoutes)
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var registerBody = map[string]string{
	"first_name": "Nadia",
	"last_name":  "Tazi",
	"email":      "nadia@example.ma",
	"password":   "password123",
	"role":       "CLIENT",
}

func TestHandler_RegisterSetsCookies(t *testing.T) {
	r := setupAuthRouter(t)

	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/register", testutil.Identity{}, registerBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	var resp TokenResponse
	testutil.Decode(t, w, &resp)
	if resp.AccessToken == "" || resp.TokenType != "Bearer" || resp.User == nil {
		t.Errorf("response = %+v", resp)
	}

	refresh := cookie(w, "refresh_token")
	if refresh == nil || !refresh.HttpOnly || refresh.Path != "/api/v1/auth" {
		t.Errorf("refresh cookie = %+v", refresh)
	}
	if strings.Contains(w.Body.String(), refresh.Value) {
		t.Error("refresh token must not appear in the body")
	}
	if c := cookie(w, middleware.CSRFCookieName); c == nil || c.Value != resp.CSRFToken {
		t.Errorf("csrf cookie = %+v", c)
	}

	w = testutil.Do(r, http.MethodPost, "/api/v1/auth/register", testutil.Identity{}, registerBody)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}

	admin := map[string]string{"first_name": "A", "last_name": "B", "email": "a@example.ma", "password": "password123", "role": "ADMIN"}
	if w := testutil.Do(r, http.MethodPost, "/api/v1/auth/register", testutil.Identity{}, admin); w.Code != http.StatusBadRequest {
		t.Errorf("admin role status = %d", w.Code)
	}
}

func TestHandler_LoginAndRefresh(t *testing.T) {
	r := setupAuthRouter(t)
	testutil.Do(r, http.MethodPost, "/api/v1/auth/register", testutil.Identity{}, registerBody)

	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/login", testutil.Identity{}, map[string]string{
		"email": "nadia@example.ma", "password": "nope-nope",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}

	w = testutil.Do(r, http.MethodPost, "/api/v1/auth/login", testutil.Identity{}, map[string]string{
		"email": "nadia@example.ma", "password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body)
	}
	refresh := cookie(w, "refresh_token")
	csrf := cookie(w, middleware.CSRFCookieName)

	// Without the CSRF header the refresh is refused.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(refresh)
	req.AddCookie(csrf)
	if w := testutil.DoRequest(r, req, testutil.Identity{}); w.Code != http.StatusForbidden {
		t.Errorf("refresh without csrf header status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(refresh)
	req.AddCookie(csrf)
	req.Header.Set(middleware.CSRFHeaderName, csrf.Value)
	w = testutil.DoRequest(r, req, testutil.Identity{})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", w.Code, w.Body)
	}
	rotated := cookie(w, "refresh_token")
	if rotated == nil || rotated.Value == refresh.Value {
		t.Fatal("refresh cookie not rotated")
	}

	// Logout with the new cookie, then the new cookie is dead as well.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(rotated)
	req.AddCookie(csrf)
	req.Header.Set(middleware.CSRFHeaderName, csrf.Value)
	w = testutil.DoRequest(r, req, testutil.Identity{})
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	if c := cookie(w, "refresh_token"); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout should expire the cookie, got %+v", c)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(rotated)
	req.AddCookie(csrf)
	req.Header.Set(middleware.CSRFHeaderName, csrf.Value)
	if w := testutil.DoRequest(r, req, testutil.Identity{}); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout status = %d", w.Code)
	}
}

func TestHandler_RefreshWithoutCookie(t *testing.T) {
	r := setupAuthRouter(t)

	// Obtain a valid CSRF token through a registration.
	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/register", testutil.Identity{}, registerBody)
	csrf := cookie(w, middleware.CSRFCookieName)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(csrf)
	req.Header.Set(middleware.CSRFHeaderName, csrf.Value)
	if w := testutil.DoRequest(r, req, testutil.Identity{}); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHandler_MeAndPassword(t *testing.T) {
	r := setupAuthRouter(t)
	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/register", testutil.Identity{}, registerBody)
	var resp TokenResponse
	testutil.Decode(t, w, &resp)
	id := testutil.As(resp.User)

	w = testutil.Do(r, http.MethodGet, "/api/v1/auth/me", id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	var me MeResponse
	testutil.Decode(t, w, &me)
	if me.User == nil || me.User.Email != "nadia@example.ma" {
		t.Errorf("me = %+v", me)
	}

	if w := testutil.Do(r, http.MethodGet, "/api/v1/auth/me", testutil.Identity{}, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me status = %d", w.Code)
	}

	w = testutil.Do(r, http.MethodPut, "/api/v1/auth/password", id, map[string]string{
		"current_password": "wrong-password", "new_password": "password456",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong current status = %d", w.Code)
	}
	w = testutil.Do(r, http.MethodPut, "/api/v1/auth/password", id, map[string]string{
		"current_password": "password123", "new_password": "password456",
	})
	if w.Code != http.StatusOK {
		t.Errorf("change status = %d, body = %s", w.Code, w.Body)
	}
}

func TestHandler_ForgotPasswordAlwaysSucceeds(t *testing.T) {
	r := setupAuthRouter(t)
	for _, email := range []string{"ghost@example.ma", "nadia@example.ma"} {
		w := testutil.Do(r, http.MethodPost, "/api/v1/auth/forgot-password", testutil.Identity{}, map[string]string{"email": email})
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", email, w.Code)
		}
	}

	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/reset-password", testutil.Identity{}, map[string]string{
		"token": "unknown", "password": "password123",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown reset token status = %d", w.Code)
	}
}

func TestNewModule_PanicsOnNilHandler(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewModule(nil)
}
