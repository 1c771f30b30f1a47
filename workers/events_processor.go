package workers

import (
	"context"
	"log"
	"strings"
	"time"

	"inmobot/dialogue"
	"inmobot/models"
	"inmobot/tools"

	"github.com/jinzhu/gorm"
)

// Handler produces the reply for one inbound message; dialogue.Engine implements it.
type Handler interface {
	Handle(ctx context.Context, in dialogue.Inbound) (string, bool)
}

// Sender delivers a reply; tools.WhatsAppClient implements it.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// EventProcessor polls pending WhatsApp events, claims them and hands them to the
// dispatcher keyed by sender, so each sender's messages are answered in order.
type EventProcessor struct {
	db         *gorm.DB
	handler    Handler
	sender     Sender // nil: só grava a resposta no evento (POC sem WhatsApp)
	dispatcher *Dispatcher
	interval   time.Duration
	batch      int
	timeout    time.Duration
}

func NewEventProcessor(db *gorm.DB, handler Handler, sender Sender, dispatcher *Dispatcher) *EventProcessor {
	return &EventProcessor{
		db:         db,
		handler:    handler,
		sender:     sender,
		dispatcher: dispatcher,
		interval:   time.Second,
		batch:      50,
		timeout:    60 * time.Second,
	}
}

// Start polls until ctx is cancelled.
func (p *EventProcessor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.ProcessDue()
			}
		}
	}()
}

// ProcessDue claims due events in arrival order and submits them. It returns how
// many were claimed.
func (p *EventProcessor) ProcessDue() int {
	now := time.Now()

	var events []models.Event
	if err := p.db.
		Where("status = ?", models.EVENT_STATUS_PENDING).
		Where("channel = ?", models.EVENT_CHANNEL_WHATSAPP).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("id asc").
		Limit(p.batch).
		Find(&events).Error; err != nil {
		log.Printf("events worker: query error: %v", err)
		return 0
	}

	claimed := 0
	for _, ev := range events {
		// lock otimista: só processa se conseguir mudar status
		res := p.db.Model(&models.Event{}).
			Where("id = ? AND status = ?", ev.ID, models.EVENT_STATUS_PENDING).
			Update("status", models.EVENT_STATUS_PROCESSING)
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		claimed++

		id := ev.ID
		p.dispatcher.Submit(ev.Recipient, func() { p.handleEvent(id) })
	}
	return claimed
}

func (p *EventProcessor) handleEvent(eventID int64) {
	var ev models.Event
	if err := p.db.First(&ev, eventID).Error; err != nil {
		log.Printf("events worker: load event %d: %v", eventID, err)
		return
	}
	if ev.Status != models.EVENT_STATUS_PROCESSING {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	reply, ok := p.handler.Handle(ctx, dialogue.Inbound{
		SenderID: ev.Recipient,
		Body:     ev.Text,
		IsGroup:  ev.IsGroup,
	})
	if !ok {
		p.finish(ev.ID, models.EVENT_STATUS_IGNORED, "")
		return
	}

	if p.sender == nil {
		p.finish(ev.ID, models.EVENT_STATUS_DONE, reply)
		return
	}

	to, err := tools.NormalizeWhatsAppTo(ev.Recipient)
	if err != nil {
		to = strings.TrimSpace(ev.Recipient)
	}
	if err := p.sender.SendText(ctx, to, reply); err != nil {
		log.Printf("events worker: send whatsapp error (event %d): %v", ev.ID, err)
		p.finish(ev.ID, models.EVENT_STATUS_FAILED, reply)
		return
	}
	p.finish(ev.ID, models.EVENT_STATUS_DONE, reply)
}

func (p *EventProcessor) finish(id int64, status, reply string) {
	t := time.Now()
	err := p.db.Model(&models.Event{}).Where("id = ?", id).Updates(map[string]any{
		"status":       status,
		"processed_at": &t,
		"reply_text":   reply,
	}).Error
	if err != nil {
		log.Printf("events worker: update event %d: %v", id, err)
	}
}
