package router

import (
	"net/http"

	"inmobot/controllers"

	"github.com/gin-gonic/gin"
)

// Authorizer blocks access to admin routes when the token does not carry the admin role.
func Authorizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := controllers.GetClaimsLogged(c)
		if !ok {
			controllers.RespondError(c, "unauthorized", http.StatusUnauthorized)
			c.Abort()
			return
		}

		if claims.Role != controllers.ROLE_ADMIN {
			controllers.RespondError(c, "sem acesso ao painel", http.StatusForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
