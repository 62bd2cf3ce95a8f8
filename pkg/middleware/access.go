package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/troikatech/keycheck/pkg/auth"
	"github.com/troikatech/keycheck/pkg/errors"
)

const accessRealm = `Basic realm="keycheck", charset="UTF-8"`

// AccessGate requires HTTP basic auth for the configured operator. Probes
// spend money on the account behind the key, so a deployment reachable by
// others should set it.
func AccessGate(user, passwordHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		gotUser, gotPassword, ok := c.Request.BasicAuth()
		if !ok || !auth.VerifyOperator(user, passwordHash, gotUser, gotPassword) {
			c.Header("WWW-Authenticate", accessRealm)
			errors.Unauthorized(c, "operator credentials required")
			c.Abort()
			return
		}

		c.Set("operator", gotUser)
		c.Next()
	}
}
