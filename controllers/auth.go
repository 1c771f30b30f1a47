package controllers

import (
	"log"
	"net/http"
	"time"

	"inmobot/tools"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const ROLE_ADMIN = "admin"

type LoginRequest struct {
	Password string `json:"password" form:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminClaims is the payload of the tokens issued by Login.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// POST /api/login
func Login(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		RespondError(c, "password é obrigatório", http.StatusBadRequest)
		return
	}

	if !tools.CheckSecret(app.Config.Security.AdminPassword, req.Password) {
		log.Printf("auth: failed admin login from %s", c.ClientIP())
		RespondError(c, "senha inválida", http.StatusUnauthorized)
		return
	}

	now := app.now()
	exp := now.Add(time.Duration(app.Config.Security.TokenHours) * time.Hour)
	signed, err := signAdminToken(app.Config.Security.JwtSecret, now, exp)
	if err != nil {
		RespondError(c, "erro ao assinar token", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, LoginResponse{Token: signed, ExpiresAt: exp})
}

func signAdminToken(secret string, now, exp time.Time) (string, error) {
	claims := AdminClaims{
		Role: ROLE_ADMIN,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ROLE_ADMIN,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
