package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/response"
)

// RequirePrivileged allows teachers and administrators only.
func RequirePrivileged() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := GetIdentity(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !ident.Privileged() {
			response.AbortFail(c, http.StatusForbidden, response.ErrPrivilegedAccessOnly)
			return
		}
		c.Next()
	}
}

// RequireRole allows the listed roles only.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := GetIdentity(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		for _, r := range roles {
			if ident.Role == r {
				c.Next()
				return
			}
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
	}
}
