package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// CSRF enforces the double-submit check for cookie sessions: unsafe methods
// must echo the CSRF cookie in the X-CSRF-Token header. Bearer and API key
// callers are exempt. Must run after Auth.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isUnsafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		s, ok := SessionFromContext(r.Context())
		if !ok || s.Method != MethodCookie {
			next.ServeHTTP(w, r)
			return
		}

		c, err := r.Cookie(CSRFCookie)
		if err != nil || c.Value == "" {
			writeError(w, http.StatusForbidden, "CSRF token missing in cookies")
			return
		}
		header := r.Header.Get(CSRFHeader)
		if header == "" {
			writeError(w, http.StatusForbidden, "X-CSRF-Token header missing")
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.Value), []byte(header)) != 1 {
			writeError(w, http.StatusForbidden, "CSRF token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewCSRFToken returns a random token for the CSRF cookie.
func NewCSRFToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func isUnsafeMethod(m string) bool {
	switch m {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
