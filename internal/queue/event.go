// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published when a batch transitions to PAID and
// its QR credentials are issued.  It carries enough information for
// downstream consumers to log or trigger analytics without querying
// the primary database.
type TicketIssuedEvent struct {
	Reference  string `json:"reference"`
	GatewayRef string `json:"gateway_ref"`
	Tickets    int    `json:"tickets"`
	Buyer      string `json:"buyer"`
	Email      string `json:"email"`
	IssuedAt   string `json:"issued_at"`
}
