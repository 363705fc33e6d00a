package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/allobricolage/internal/domain"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRF implements double-submit protection for the cookie-authenticated
// endpoints (refresh and logout). The SPA reads the readable csrf_token
// cookie and echoes it in the X-CSRF-Token header.
//
// Token format: hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret)).
type CSRF struct {
	secret string
	path   string
	secure bool
}

// NewCSRF creates the CSRF guard. Cookies are scoped to path and marked
// Secure when secure is set.
func NewCSRF(secret, path string, secure bool) *CSRF {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		panic("middleware: csrf secret is required")
	}
	if path == "" {
		path = "/"
	}
	return &CSRF{secret: secret, path: path, secure: secure}
}

// Issue generates a token, sets it as a cookie and returns it so the
// handler can also put it in the response body.
func (g *CSRF) Issue(c *gin.Context) (string, error) {
	token, err := generateToken(g.secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     g.path,
		HttpOnly: false,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Clear expires the CSRF cookie.
func (g *CSRF) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     g.path,
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Protect rejects unsafe requests whose header token is missing, forged or
// different from the cookie token. Safe methods pass through.
func (g *CSRF) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookieToken, err := c.Cookie(CSRFCookieName)
		requestToken := c.GetHeader(CSRFHeaderName)
		if err != nil || cookieToken == "" || requestToken == "" {
			abortWithError(c, domain.Forbidden("CSRF token missing"))
			return
		}

		if !validToken(cookieToken, g.secret) || !tokensMatch(cookieToken, requestToken) {
			abortWithError(c, domain.Forbidden("CSRF token invalid"))
			return
		}

		c.Next()
	}
}

// generateToken creates a new CSRF token: hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret)).
func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	return nonceHex + "." + signNonce(nonceHex, secret), nil
}

// signNonce returns the base64url-encoded HMAC-SHA256 signature of the nonce.
func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// validToken checks whether the token has a valid format and a correct HMAC signature.
func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(signNonce(nonce, secret))) == 1
}

func tokensMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
