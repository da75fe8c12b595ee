package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuth requires "Authorization: Bearer <token>"
func AdminAuth(token string) gin.HandlerFunc {
	want := []byte(token)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || got == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
