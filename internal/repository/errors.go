// Package repository persists tickets, exhibitor applications and the
// email outbox.  Sentinel values defined here let handlers distinguish
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrTicketTypeNotFound is returned when a checkout references an
// unknown ticket type.  Handlers translate it to HTTP 404.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrReferenceNotFound is returned when neither the local batch
// reference nor the gateway's transaction reference matches any
// tickets.  Handlers translate it to HTTP 404.
var ErrReferenceNotFound = errors.New("reference not found")

// ErrTicketNotFound is returned when a QR token does not resolve to a
// ticket.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrEmailTaken is returned when an exhibitor application already
// exists for the contact email.  Handlers translate it to HTTP 409.
var ErrEmailTaken = errors.New("an application with that email already exists")
