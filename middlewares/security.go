package middlewares

import (
	"github.com/gin-gonic/gin"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		// Gambar dari /uploads boleh di-embed oleh frontend lain
		c.Header("Cross-Origin-Resource-Policy", "cross-origin")

		c.Next()
	}
}
