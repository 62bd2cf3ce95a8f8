package middleware

import (
	"mime"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/troikatech/keycheck/pkg/errors"
)

// APIGuard protects the JSON API from cross-site requests. Unsafe methods
// must come from the same origin or one listed in allowedOrigins ("*" allows
// any), and must be sent as application/json so a browser cannot issue them
// from a plain HTML form without a CORS preflight.
func APIGuard(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" && !allowAll {
			if _, ok := allowed[origin]; !ok && !sameOrigin(origin, c.Request.Host) {
				errors.Forbidden(c, "cross-origin request from "+origin+" is not allowed")
				c.Abort()
				return
			}
		}

		mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mediaType != "application/json" {
			errors.ErrorResponse(c, http.StatusUnsupportedMediaType,
				"Unsupported Media Type",
				"API requests must be sent with Content-Type: application/json",
			)
			c.Abort()
			return
		}

		c.Next()
	}
}

func sameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host != "" && u.Host == host
}
