package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	dbpkg "inmobot/db"
	"inmobot/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					From    string `json:"from"`
					ID      string `json:"id"`
					Type    string `json:"type"`
					GroupID string `json:"group_id"`
					Text    struct {
						Body string `json:"body"`
					} `json:"text"`
					Button struct {
						Text string `json:"text"`
					} `json:"button"`
					Interactive struct {
						ButtonReply struct {
							Title string `json:"title"`
						} `json:"button_reply"`
						ListReply struct {
							Title string `json:"title"`
						} `json:"list_reply"`
					} `json:"interactive"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type IncomingTextMessage struct {
	From    string
	ID      string
	Text    string
	IsGroup bool
}

// extractTextMessages keeps text-like messages (text, quick-reply buttons, list
// picks) and drops media, reactions and status callbacks.
func extractTextMessages(payload WebhookPayload) []IncomingTextMessage {
	var out []IncomingTextMessage

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if strings.TrimSpace(change.Field) != "messages" {
				continue
			}
			for _, m := range change.Value.Messages {
				var body string
				switch strings.ToLower(strings.TrimSpace(m.Type)) {
				case "text":
					body = m.Text.Body
				case "button":
					body = m.Button.Text
				case "interactive":
					body = m.Interactive.ButtonReply.Title
					if body == "" {
						body = m.Interactive.ListReply.Title
					}
				default:
					continue
				}
				body = strings.TrimSpace(body)
				if body == "" {
					continue
				}
				out = append(out, IncomingTextMessage{
					From:    strings.TrimSpace(m.From),
					ID:      strings.TrimSpace(m.ID),
					Text:    body,
					IsGroup: strings.TrimSpace(m.GroupID) != "",
				})
			}
		}
	}

	return out
}

// verifyMetaSignature validates the request body against Meta's signature header.
//
// WhatsApp/Graph Webhooks typically send: X-Hub-Signature-256: sha256=<hex>
// The secret should be your Meta App Secret (NOT the WhatsApp access token).
func verifyMetaSignature(secret string, header string, rawBody []byte) (bool, string) {
	if strings.TrimSpace(secret) == "" {
		return false, "app secret not configured"
	}
	sig := strings.TrimSpace(header)
	if sig == "" {
		return false, "missing X-Hub-Signature-256"
	}
	if !strings.HasPrefix(sig, "sha256=") {
		return false, "invalid X-Hub-Signature-256 format"
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(sig, "sha256="))
	if err != nil {
		return false, "invalid signature hex"
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)

	if !hmac.Equal(provided, expected) {
		return false, "signature mismatch"
	}
	return true, ""
}

// GET /api/webhook
func WebhookVerify(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	verifyToken := app.Config.WhatsApp.VerifyToken
	if verifyToken == "" {
		RespondError(c, "verify token not configured", http.StatusInternalServerError)
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	log.Printf("webhook: verify mode=%s token_ok=%v", mode, token == verifyToken)

	if mode == "subscribe" && token == verifyToken && challenge != "" {
		c.String(http.StatusOK, "%s", challenge)
		return
	}

	RespondError(c, "forbidden", http.StatusForbidden)
}

// POST /api/webhook
func WebhookUpdate(c *gin.Context) {
	app, ok := mustApp(c)
	if !ok {
		return
	}
	db, ok := dbpkg.MustDB(c)
	if !ok {
		return
	}

	// Read raw body once so we can validate Meta signature.
	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	if ok, reason := verifyMetaSignature(app.Config.WhatsApp.AppSecret, c.GetHeader("X-Hub-Signature-256"), raw); !ok {
		log.Printf("webhook: rejected update: %s", reason)
		RespondError(c, "forbidden: "+reason, http.StatusForbidden)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		RespondError(c, "invalid json", http.StatusBadRequest)
		return
	}

	queued := 0
	for _, m := range extractTextMessages(payload) {
		created, err := enqueueEvent(db, m, app.now())
		if err != nil {
			log.Printf("webhook: enqueue message %s from %s: %v", m.ID, m.From, err)
			continue
		}
		if created {
			queued++
		}
	}

	// responde rápido pro Meta; o worker processa em seguida
	c.String(http.StatusOK, "EVENT_RECEIVED")
	if queued > 0 {
		log.Printf("webhook: %d message(s) queued", queued)
	}
}

// enqueueEvent stores the message as a pending event. Meta retries deliveries, so a
// message id already stored is skipped.
func enqueueEvent(db *gorm.DB, m IncomingTextMessage, now time.Time) (bool, error) {
	if m.ID != "" {
		var n int
		if err := db.Model(&models.Event{}).Where("message_id = ?", m.ID).Count(&n).Error; err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}

	ev := models.Event{
		Recipient:   m.From,
		MessageID:   m.ID,
		Channel:     models.EVENT_CHANNEL_WHATSAPP,
		IsGroup:     m.IsGroup,
		Text:        m.Text,
		Status:      models.EVENT_STATUS_PENDING,
		ScheduledAt: &now,
	}
	if err := db.Create(&ev).Error; err != nil {
		return false, err
	}
	return true, nil
}
