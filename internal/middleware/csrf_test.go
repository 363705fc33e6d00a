package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const testCSRFSecret = "csrf-test-secret"

func issueCSRF(t *testing.T, guard *CSRF) *http.Cookie {
	t.Helper()
	r := gin.New()
	r.GET("/csrf", func(c *gin.Context) {
		token, err := guard.Issue(c)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		c.String(http.StatusOK, token)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	for _, ck := range w.Result().Cookies() {
		if ck.Name == CSRFCookieName {
			if ck.Value != w.Body.String() {
				t.Fatalf("cookie %q differs from body %q", ck.Value, w.Body.String())
			}
			if ck.HttpOnly {
				t.Fatal("CSRF cookie must be readable by the SPA")
			}
			return ck
		}
	}
	t.Fatal("CSRF cookie not set")
	return nil
}

func TestCSRF_Issue(t *testing.T) {
	guard := NewCSRF(testCSRFSecret, "/api/v1/auth", false)
	ck := issueCSRF(t, guard)

	if ck.Path != "/api/v1/auth" || ck.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie attributes = %+v", ck)
	}
	if !validToken(ck.Value, testCSRFSecret) {
		t.Error("issued token does not verify")
	}
}

func TestCSRF_Protect(t *testing.T) {
	guard := NewCSRF(testCSRFSecret, "/", false)
	ck := issueCSRF(t, guard)
	forged, _ := generateToken("other-secret")
	other := issueCSRF(t, guard)

	tests := []struct {
		name   string
		method string
		cookie string
		header string
		status int
	}{
		{"safe method passes", http.MethodGet, "", "", http.StatusOK},
		{"valid pair", http.MethodPost, ck.Value, ck.Value, http.StatusOK},
		{"missing cookie", http.MethodPost, "", ck.Value, http.StatusForbidden},
		{"missing header", http.MethodPost, ck.Value, "", http.StatusForbidden},
		{"forged token", http.MethodPost, forged, forged, http.StatusForbidden},
		{"mismatched tokens", http.MethodPost, ck.Value, other.Value, http.StatusForbidden},
	}

	r := newRouter(guard.Protect())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			w := serve(r, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusForbidden && !strings.Contains(decodeEnvelope(t, w).Message, "CSRF") {
				t.Errorf("unexpected body %q", w.Body.String())
			}
		})
	}
}

func TestCSRF_Clear(t *testing.T) {
	guard := NewCSRF(testCSRFSecret, "/", true)
	r := gin.New()
	r.POST("/logout", func(c *gin.Context) { guard.Clear(c) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/logout", nil))
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 || !cookies[0].Secure {
		t.Fatalf("expected an expired secure cookie, got %+v", cookies)
	}
}

func TestValidToken(t *testing.T) {
	token, _ := generateToken(testCSRFSecret)
	for _, bad := range []string{"", "abc", ".sig", "nonce.", token + "x"} {
		if validToken(bad, testCSRFSecret) {
			t.Errorf("validToken(%q) = true", bad)
		}
	}
	if !validToken(token, testCSRFSecret) {
		t.Error("fresh token should validate")
	}
}

func TestNewCSRF_EmptySecretPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewCSRF("  ", "/", false)
}
