package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/troikatech/keycheck/pkg/errors"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfContextKey = "csrf_token"
)

// CSRF implements the double-submit cookie pattern for the HTML forms. Safe
// methods get a token cookie; unsafe methods must echo it in the form or
// the X-CSRF-Token header.
func CSRF(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookieName)
		if err != nil || token == "" {
			token = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteStrictMode,
			})
			if !isSafeMethod(c.Request.Method) {
				errors.Forbidden(c, "missing CSRF cookie; reload the page and try again")
				c.Abort()
				return
			}
		}
		c.Set(csrfContextKey, token)

		if !isSafeMethod(c.Request.Method) {
			sent := c.GetHeader(csrfHeader)
			if sent == "" {
				sent = c.PostForm(CSRFFormField)
			}
			if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
				errors.Forbidden(c, "invalid CSRF token; reload the page and try again")
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// CSRFToken returns the token for the current request, for embedding in forms
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
