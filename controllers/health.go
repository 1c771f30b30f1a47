package controllers

import (
	"net/http"

	dbpkg "inmobot/db"

	"github.com/gin-gonic/gin"
)

// GET /api/health
// 200 se o banco responde; 503 caso contrário.
func Health(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil || db.DB().PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /api/sessions/sweep (admin)
// Remove as sessões ociosas agora, sem esperar o agendamento.
func SweepSessions(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	if app.Sweeper == nil {
		RespondError(c, "sweeper não configurado", http.StatusInternalServerError)
		return
	}
	n, err := app.Sweeper.RunOnce(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"removed": n})
}
