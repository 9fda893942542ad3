package model

import (
	"encoding/json"
	"time"
)

// Outbox message kinds.  The dispatcher renders the email body from the
// kind plus the stored payload, so a row carries everything needed to
// deliver the notice long after the originating request finished.
const (
	OutboxTicketConfirmed  = "ticket_confirmed"
	OutboxExhibitorReceipt = "exhibitor_receipt"
)

// Outbox message statuses.
const (
	OutboxPending = "PENDING"
	OutboxSent    = "SENT"
	OutboxFailed  = "FAILED"
)

// OutboxMessage mirrors the `email_outbox` table.  Rows are inserted in
// the same transaction as the state change they announce and delivered
// asynchronously by the dispatcher, which retries with backoff until
// MaxAttempts is reached.
type OutboxMessage struct {
	ID            string // uuid
	Kind          string
	Recipient     string
	Payload       json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
	SentAt        *time.Time
}

// TicketConfirmedPayload is the payload stored for OutboxTicketConfirmed
// messages, one per ticket in the paid batch.
type TicketConfirmedPayload struct {
	TicketID uint64 `json:"ticket_id"`
	FullName string `json:"full_name"`
	QRToken  string `json:"qr_token"`
}

// ExhibitorReceiptPayload is the payload stored for
// OutboxExhibitorReceipt messages.
type ExhibitorReceiptPayload struct {
	CompanyName  string `json:"company_name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Country      string `json:"country"`
}
