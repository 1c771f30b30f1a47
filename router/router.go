package router

import (
	"log"

	"inmobot/config"
	"inmobot/controllers"
	dbpkg "inmobot/db"
	"inmobot/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// Initialize wires all routes and middlewares.
// Public routes (canais + login) and admin routes (token + Authorizer).
func Initialize(r *gin.Engine, cfg config.Configuration, app *controllers.App, db *gorm.DB) {
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	r.Use(dbpkg.SetDBtoContext(db))
	r.Use(controllers.SetAppToContext(app))

	api := r.Group("/api")

	api.GET("/health", controllers.Health)

	// Webhook (WhatsApp)
	api.GET("/webhook", Logger(), controllers.WebhookVerify)
	api.POST("/webhook", Logger(), controllers.WebhookUpdate)

	// Canal web: HTTP síncrono e websocket
	api.POST("/messages", Logger(), controllers.PostMessage)
	api.GET("/chat", controllers.ChatSocket)

	api.POST("/login", Logger(), controllers.Login)

	// Admin routes (token + role)
	admin := api.Group("")
	admin.Use(controllers.AuthRequired())
	admin.Use(Authorizer())

	// Listings
	admin.GET("/listings", Logger(), controllers.GetListings)
	admin.GET("/listings/:ref", Logger(), controllers.GetListingByReference)
	admin.POST("/listings/:ref/deactivate", Logger(), controllers.DeactivateListing)
	admin.GET("/search", Logger(), controllers.SearchListings)

	// Manual interno (contexto do answerer)
	admin.GET("/manual", Logger(), controllers.GetManual)
	admin.POST("/manual", Logger(), controllers.UploadManual)
	admin.DELETE("/manual/:document", Logger(), controllers.DeleteManual)

	// Visits
	admin.GET("/visits", Logger(), controllers.GetVisits)
	admin.POST("/visits", Logger(), controllers.CreateVisit)

	// Events
	admin.GET("/events", Logger(), controllers.GetEvents)
	admin.GET("/events/:id", Logger(), controllers.GetEventByID)

	// Dashboard
	admin.GET("/stats", Logger(), controllers.GetStats)
	admin.POST("/sessions/sweep", Logger(), controllers.SweepSessions)

	log.Printf("Routes initialized")
}
