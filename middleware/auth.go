package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthRequired sends anonymous visitors to the login page.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			AddFlash(c, FlashWarning, "Please log in to access this page.")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly lets only authenticated admins through. Everyone else gets a 403
// produced by forbidden, and the wrapped handler never runs.
func AdminOnly(forbidden gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) || !CurrentUser(c).IsAdmin() {
			c.Status(http.StatusForbidden)
			forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
