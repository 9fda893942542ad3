package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates the lifecycle states of a ticket row.  Tickets
// are created PENDING before payment, move to PAID exactly once when the
// gateway confirms the purchase, and fall to ABANDONED when the reaper
// expires a stale pending batch.
type TicketStatus string

const (
	TicketPending   TicketStatus = "PENDING"
	TicketPaid      TicketStatus = "PAID"
	TicketAbandoned TicketStatus = "ABANDONED"
)

// TicketType is immutable reference data describing a purchasable
// ticket category.  Price is the unit price in currency-major units.
type TicketType struct {
	ID          uint64          // ticket_types.id
	Name        string          // ticket_types.name
	Price       decimal.Decimal // ticket_types.price
	Currency    string          // ticket_types.currency (e.g. ETB)
	Description string          // ticket_types.description
}

// Ticket mirrors the `tickets` table.  All tickets created by one
// checkout share a Reference and transition status together.  Amount is
// the unit price captured at purchase time, not the batch total.
// ChapaRef holds the gateway's own transaction identifier once known.
// QRToken is assigned only when the ticket becomes PAID and is the
// redeemable credential presented at the venue.
type Ticket struct {
	ID           uint64       // tickets.id
	TicketTypeID uint64       // tickets.ticket_type_id
	FullName     string       // tickets.full_name
	Email        string       // tickets.email
	Phone        string       // tickets.phone
	Status       TicketStatus // tickets.status
	Amount       decimal.Decimal
	Reference    string  // tickets.reference (batch key)
	ChapaRef     *string // tickets.chapa_ref (nullable)
	QRToken      *string // tickets.qr_token (nullable until PAID)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
