package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxClaimsKey = "auth_claims"

// AuthRequired validates the Bearer token and stores its claims in the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		app, ok := mustApp(c)
		if !ok {
			c.Abort()
			return
		}

		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			RespondError(c, "ops! wait", http.StatusUnauthorized)
			c.Abort()
			return
		}
		raw := strings.TrimSpace(h[len("Bearer "):])

		claims, err := parseAdminToken(raw, app.Config.Security.JwtSecret)
		if err != nil {
			msg := "ops! wat"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "ops! token expired"
			}
			RespondError(c, msg, http.StatusUnauthorized)
			c.Abort()
			return
		}

		c.Set(ctxClaimsKey, *claims)
		c.Next()
	}
}

// GetClaimsLogged returns the claims loaded by AuthRequired.
func GetClaimsLogged(c *gin.Context) (AdminClaims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return AdminClaims{}, false
	}
	claims, ok := v.(AdminClaims)
	return claims, ok
}

func parseAdminToken(raw, secret string) (*AdminClaims, error) {
	var claims AdminClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
