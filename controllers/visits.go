package controllers

import (
	"net/http"
	"strings"
	"time"

	"inmobot/dialogue"
	"inmobot/scheduler"
	"inmobot/store"

	"github.com/gin-gonic/gin"
)

// GET /api/visits (admin)
// Query params:
// - listing=REF (optional)
// - client=<id do canal> (optional)
// - status=pending|confirmed|cancelled (optional)
// - from=YYYY-MM-DD, to=YYYY-MM-DD (optional, to exclusivo)
// - limit (optional, default: 200, max: 500)
func GetVisits(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	loc := app.Config.Location()
	from, ok := queryDate(c, "from", loc)
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", loc)
	if !ok {
		return
	}

	visits, err := app.Visits.List(c.Request.Context(), store.VisitQuery{
		ListingReference: strings.TrimSpace(c.Query("listing")),
		ClientID:         strings.TrimSpace(c.Query("client")),
		Status:           strings.TrimSpace(c.Query("status")),
		From:             from,
		To:               to,
		Limit:            clampInt(queryInt(c, "limit", 200), 1, 500),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"visits": visits})
}

type CreateVisitRequest struct {
	ListingReference string `json:"listing_reference" binding:"required"`
	ClientName       string `json:"client_name" binding:"required"`
	ClientID         string `json:"client_id" binding:"required"`
	When             string `json:"when" binding:"required"` // DD/MM/AAAA HH:MM no fuso configurado
	Notes            string `json:"notes"`
}

// POST /api/visits (admin)
// Agenda pela mesma regra do bot (visita no futuro, imóvel disponível).
func CreateVisit(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	var req CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	when, err := dialogue.ParseDateTime(req.When, app.Config.Location())
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	id, err := app.Scheduler.CreateVisit(c.Request.Context(), scheduler.VisitRequest{
		ListingRef: req.ListingReference,
		ClientName: req.ClientName,
		ClientID:   req.ClientID,
		When:       when,
		Notes:      req.Notes,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "scheduled_at": when.Format(time.RFC3339)})
}
