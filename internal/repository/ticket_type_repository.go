package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/originexpo/ticketing/internal/model"
)

// TicketTypeRepo reads the immutable ticket_types reference data.
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo returns a TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

// GetByID loads a single ticket type.  ErrTicketTypeNotFound is
// returned when the id does not exist.
func (r *TicketTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	const q = `SELECT id, name, price, currency, description FROM ticket_types WHERE id = ? LIMIT 1`
	var tt model.TicketType
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&tt.ID, &tt.Name, &tt.Price, &tt.Currency, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	tt.Description = desc.String
	return &tt, nil
}

// List returns all ticket types ordered by price ascending.
func (r *TicketTypeRepo) List(ctx context.Context) ([]model.TicketType, error) {
	const q = `SELECT id, name, price, currency, description FROM ticket_types ORDER BY price ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TicketType, 0)
	for rows.Next() {
		var tt model.TicketType
		var desc sql.NullString
		if err := rows.Scan(&tt.ID, &tt.Name, &tt.Price, &tt.Currency, &desc); err != nil {
			return nil, err
		}
		tt.Description = desc.String
		out = append(out, tt)
	}
	return out, rows.Err()
}
