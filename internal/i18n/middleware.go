package i18n

import "github.com/gin-gonic/gin"

// Middleware picks the localizer from Accept-Language and stores it in the
// request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loc := NewLocalizer(c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(WithLocalizer(c.Request.Context(), loc))
		c.Next()
	}
}
