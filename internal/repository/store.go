package repository

import (
	"context"

	"github.com/originexpo/ticketing/internal/model"
)

// Store bundles the ticket and ticket-type repositories behind the
// single order-store port the service layer consumes.
type Store struct {
	*TicketRepo
	types *TicketTypeRepo
}

// NewStore combines the two repositories into one order store.
func NewStore(tickets *TicketRepo, types *TicketTypeRepo) *Store {
	return &Store{TicketRepo: tickets, types: types}
}

// TicketTypeByID loads a single ticket type.
func (s *Store) TicketTypeByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	return s.types.GetByID(ctx, id)
}

// ListTicketTypes returns all purchasable ticket types.
func (s *Store) ListTicketTypes(ctx context.Context) ([]model.TicketType, error) {
	return s.types.List(ctx)
}
