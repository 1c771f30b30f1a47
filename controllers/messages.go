package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"

	dbpkg "inmobot/db"
	"inmobot/dialogue"
	"inmobot/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

type MessageRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
	Body     string `json:"body"`
	IsGroup  bool   `json:"is_group"`
}

type MessageResponse struct {
	ID      string `json:"id"`
	Reply   string `json:"reply"`
	Replied bool   `json:"replied"`
}

// webSenderPrefix separa as sessões dos canais web das do WhatsApp: o sender_id vem do
// cliente e não é autenticado, então nunca pode coincidir com um número de telefone.
const webSenderPrefix = "web-"

// POST /api/messages
// Simula o canal: roda o turno de forma síncrona e devolve a resposta.
func PostMessage(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	sender := strings.TrimSpace(req.SenderID)
	if sender == "" {
		RespondError(c, "sender_id é obrigatório", http.StatusBadRequest)
		return
	}

	sender = webSenderPrefix + sender

	id := uuid.NewString()
	reply, replied := handleDirect(c.Request.Context(), app, dbpkg.DBInstance(c), id,
		dialogue.Inbound{SenderID: sender, Body: req.Body, IsGroup: req.IsGroup})

	RespondSuccess(c, MessageResponse{ID: id, Reply: reply, Replied: replied})
}

// handleDirect runs a turn for a synchronous channel and records it as a web event.
func handleDirect(ctx context.Context, app *App, db *gorm.DB, messageID string, in dialogue.Inbound) (string, bool) {
	reply, ok := app.Engine.Handle(ctx, in)
	if db == nil {
		return reply, ok
	}

	status := models.EVENT_STATUS_DONE
	if !ok {
		status = models.EVENT_STATUS_IGNORED
	}
	now := app.now()
	ev := models.Event{
		Recipient:   in.SenderID,
		MessageID:   messageID,
		Channel:     models.EVENT_CHANNEL_WEB,
		IsGroup:     in.IsGroup,
		Text:        in.Body,
		Status:      status,
		ScheduledAt: &now,
		ProcessedAt: &now,
		ReplyText:   reply,
	}
	if err := db.Create(&ev).Error; err != nil {
		log.Printf("messages: record event for %s: %v", in.SenderID, err)
	}
	return reply, ok
}
