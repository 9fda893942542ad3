package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/monitoring"
	"github.com/originexpo/ticketing/internal/utils"
)

// OutboxStore is the slice of the persistence layer the dispatcher
// needs.  *repository.OutboxRepo satisfies it.
type OutboxStore interface {
	ClaimDue(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, final bool) error
}

const (
	defaultBatchSize = 25
	maxAttempts      = 5
	baseBackoff      = time.Minute
	maxBackoff       = 30 * time.Minute
)

// Dispatcher drains the email outbox.  Run starts a loop that polls on
// an interval and can be nudged through Wake so that a fresh enqueue is
// picked up without waiting for the next tick.
type Dispatcher struct {
	store    OutboxStore
	mailer   Mailer
	interval time.Duration
	wake     chan struct{}
}

// NewDispatcher wires a dispatcher over the given store and mailer.
func NewDispatcher(store OutboxStore, mailer Mailer, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		store:    store,
		mailer:   mailer,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Wake nudges the dispatcher to drain immediately.  Non-blocking; a
// pending nudge is enough, extra ones are dropped.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		case <-d.wake:
			d.drain(ctx)
		}
	}
}

// drain claims and delivers one batch of due messages.
func (d *Dispatcher) drain(ctx context.Context) {
	msgs, err := d.store.ClaimDue(ctx, defaultBatchSize)
	if err != nil {
		log.Printf("outbox: claim failed: %v", err)
		return
	}
	for _, m := range msgs {
		d.deliver(ctx, m)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, m model.OutboxMessage) {
	subject, body, err := renderMessage(m)
	if err != nil {
		// Unrenderable rows never succeed on retry, park them.
		log.Printf("outbox: message %s unrenderable: %v", m.ID, err)
		if err := d.store.MarkFailed(ctx, m.ID, time.Time{}, true); err != nil {
			log.Printf("outbox: mark failed failed for %s: %v", m.ID, err)
		}
		monitoring.OutboxDelivery("unrenderable")
		return
	}

	if err := d.mailer.Send(m.Recipient, subject, body); err != nil {
		attempts := m.Attempts + 1
		final := attempts >= maxAttempts
		log.Printf("outbox: delivery of %s to %s failed (attempt %d): %v", m.ID, m.Recipient, attempts, err)
		if markErr := d.store.MarkFailed(ctx, m.ID, time.Now().Add(backoffFor(attempts)), final); markErr != nil {
			log.Printf("outbox: mark failed failed for %s: %v", m.ID, markErr)
		}
		monitoring.OutboxDelivery("error")
		return
	}

	if err := d.store.MarkSent(ctx, m.ID); err != nil {
		log.Printf("outbox: mark sent failed for %s: %v", m.ID, err)
	}
	monitoring.OutboxDelivery("sent")
}

// backoffFor doubles the delay per attempt, capped at maxBackoff.
func backoffFor(attempts int) time.Duration {
	backoff := baseBackoff
	for i := 1; i < attempts && backoff < maxBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// renderMessage turns an outbox row into a subject and plain-text body.
func renderMessage(m model.OutboxMessage) (subject, body string, err error) {
	switch m.Kind {
	case model.OutboxTicketConfirmed:
		var p model.TicketConfirmedPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", m.Kind, err)
		}
		subject = "Your ticket is confirmed"
		body = fmt.Sprintf(
			"Dear %s,\n\n"+
				"Your payment has been received and your ticket is confirmed.\n\n"+
				"Ticket number: %d\n"+
				"Entry code: %s\n\n"+
				"Present the QR code below at the entrance:\n%s\n\n"+
				"We look forward to seeing you at the event.\n",
			p.FullName, p.TicketID, p.QRToken, utils.QRImageURL(p.QRToken, 300))
		return subject, body, nil

	case model.OutboxExhibitorReceipt:
		var p model.ExhibitorReceiptPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return "", "", fmt.Errorf("decode %s payload: %w", m.Kind, err)
		}
		subject = "Exhibitor registration received"
		body = fmt.Sprintf(
			"Dear %s,\n\n"+
				"We have received the exhibitor registration for %s.\n\n"+
				"Contact email: %s\n"+
				"Phone: %s\n"+
				"Country: %s\n\n"+
				"Our team will review the application and follow up with booth\n"+
				"assignment and payment details.\n",
			p.ContactName, p.CompanyName, p.ContactEmail, p.Phone, p.Country)
		return subject, body, nil

	default:
		return "", "", fmt.Errorf("unknown outbox kind %q", m.Kind)
	}
}
