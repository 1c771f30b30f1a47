package controllers

import (
	"errors"
	"net/http"
	"strings"

	"inmobot/models"

	"github.com/gin-gonic/gin"
)

// GET /api/listings (admin)
// Query params:
// - status=available|unavailable (optional)
// - limit (optional, default: 50, max: 500)
// - offset (optional, default: 0)
func GetListings(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	status := strings.TrimSpace(c.Query("status"))
	switch status {
	case "", models.LISTING_STATUS_AVAILABLE, models.LISTING_STATUS_UNAVAILABLE:
	default:
		RespondError(c, "status inválido", http.StatusBadRequest)
		return
	}
	limit := clampInt(queryInt(c, "limit", 50), 1, 500)
	offset := clampInt(queryInt(c, "offset", 0), 0, 1_000_000)

	listings, err := app.Listings.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"limit": limit, "offset": offset, "listings": listings})
}

// GET /api/listings/:ref (admin)
func GetListingByReference(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	l, err := app.Listings.GetByReference(c.Request.Context(), c.Param("ref"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"listing": l})
}

// POST /api/listings/:ref/deactivate (admin)
// Só available -> unavailable; não há reativação.
func DeactivateListing(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	l, err := app.Listings.Deactivate(c.Request.Context(), c.Param("ref"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"listing": l})
}

// GET /api/search?q=texto (admin)
// Mesma busca usada pelo bot, útil para calibrar sinônimos e o ranker.
func SearchListings(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	if app.Search == nil {
		RespondError(c, "busca não configurada", http.StatusInternalServerError)
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		RespondError(c, "q é obrigatório", http.StatusBadRequest)
		return
	}
	results, err := app.Search.SearchText(c.Request.Context(), q)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		RespondDomainError(c, err)
		return
	}
	RespondSuccess(c, gin.H{"query": q, "results": results})
}
