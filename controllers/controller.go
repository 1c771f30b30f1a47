package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"inmobot/config"
	"inmobot/dialogue"
	"inmobot/models"
	"inmobot/scheduler"
	"inmobot/search"
	"inmobot/store"

	"github.com/gin-gonic/gin"
)

const appKey = "app"

// Handler runs one dialogue turn; dialogue.Engine implements it.
type Handler interface {
	Handle(ctx context.Context, in dialogue.Inbound) (string, bool)
}

// Sweeper removes idle sessions on demand; sessions.Sweeper implements it.
type Sweeper interface {
	RunOnce(ctx context.Context) (int, error)
}

// App is what the handlers need besides the database.
type App struct {
	Config    config.Configuration
	Engine    Handler
	Listings  *store.Listings
	Manual    *store.Manual
	Search    *search.Engine
	Visits    *store.Visits
	Scheduler *scheduler.Scheduler
	Sweeper   Sweeper
	Now       func() time.Time
}

// SetAppToContext exposes the application wiring to handlers through the gin context.
func SetAppToContext(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(appKey, app)
		c.Next()
	}
}

func AppInstance(c *gin.Context) *App {
	v, ok := c.Get(appKey)
	if !ok {
		return nil
	}
	app, _ := v.(*App)
	return app
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// RespondDomainError maps the error taxonomy to HTTP status codes.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		RespondError(c, "não encontrado", http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidInput):
		RespondError(c, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrUpstreamUnavailable):
		RespondError(c, "serviço externo indisponível", http.StatusBadGateway)
	default:
		RespondError(c, "erro interno", http.StatusInternalServerError)
	}
}

// mustApp aborts with 500 when the wiring middleware is missing.
func mustApp(c *gin.Context) (*App, bool) {
	app := AppInstance(c)
	if app == nil {
		RespondError(c, "app não configurado no contexto", http.StatusInternalServerError)
		return nil, false
	}
	return app, true
}
