package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/originexpo/ticketing/internal/model"
	"github.com/originexpo/ticketing/internal/utils"
)

// TicketRepo provides the order store for ticket batches.  All tickets
// created by one checkout share a reference and transition status
// together; multi-row writes run inside a single transaction so a
// partial batch is never visible.
type TicketRepo struct {
	db     *sql.DB
	outbox *OutboxRepo
}

// NewTicketRepo returns a TicketRepo bound to the given database.  The
// outbox repo is used to enqueue confirmation mails inside the PAID
// transition transaction.
func NewTicketRepo(db *sql.DB, outbox *OutboxRepo) *TicketRepo {
	return &TicketRepo{db: db, outbox: outbox}
}

// CreateBatch inserts all tickets of one checkout atomically.  Every
// ticket must carry the shared reference and status PENDING; qr_token
// stays NULL until the batch is paid.  Generated IDs are populated on
// the passed records.
func (r *TicketRepo) CreateBatch(ctx context.Context, tickets []*model.Ticket) error {
	if len(tickets) == 0 {
		return errors.New("empty ticket batch")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := `INSERT INTO tickets (ticket_type_id, full_name, email, phone, status, amount, reference, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(tickets)*7)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, NOW(), NOW())"
		args = append(args, t.TicketTypeID, t.FullName, t.Email, t.Phone, t.Status, t.Amount, t.Reference)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	// MySQL returns the first auto id of a multi-row insert; the rest
	// follow consecutively within one statement.
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, t := range tickets {
		t.ID = uint64(first) + uint64(i)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetGatewayRef stores the gateway's transaction identifier on every
// ticket of the batch.  Re-running it with the same value is a no-op,
// which keeps the checkout path safe to retry.
func (r *TicketRepo) SetGatewayRef(ctx context.Context, reference, gatewayRef string) error {
	const q = `UPDATE tickets SET chapa_ref = ?, updated_at = NOW() WHERE reference = ?`
	_, err := r.db.ExecContext(ctx, q, gatewayRef, reference)
	return err
}

// ResolveReference maps either the local batch reference or the
// gateway's own transaction reference to the local reference.  The
// fallback covers webhooks that only echo the provider's id.
func (r *TicketRepo) ResolveReference(ctx context.Context, ref string) (string, error) {
	const byLocal = `SELECT reference FROM tickets WHERE reference = ? LIMIT 1`
	var out string
	err := r.db.QueryRowContext(ctx, byLocal, ref).Scan(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	const byGateway = `SELECT reference FROM tickets WHERE chapa_ref = ? LIMIT 1`
	err = r.db.QueryRowContext(ctx, byGateway, ref).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrReferenceNotFound
	}
	if err != nil {
		return "", err
	}
	return out, nil
}

// ConfirmPaid performs the idempotent PAID transition for a batch in a
// single transaction: a conditional status update, lazy qr_token
// assignment for rows that lack one, and one outbox confirmation mail
// per ticket.  It returns the tickets issued by this call; an empty
// result means the batch was already PAID (or the reference matched no
// pending rows) and nothing was mutated, so callers must skip issuance.
func (r *TicketRepo) ConfirmPaid(ctx context.Context, reference, gatewayRef string) ([]model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// The status guard makes concurrent webhook deliveries safe: the
	// second caller observes zero affected rows and short-circuits.
	const mark = `UPDATE tickets SET status = 'PAID', chapa_ref = ?, updated_at = NOW()
	              WHERE reference = ? AND status <> 'PAID'`
	res, err := tx.ExecContext(ctx, mark, gatewayRef, reference)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, nil
	}

	// Assign qr tokens only where absent so re-confirmation can never
	// rotate an already issued credential.
	const sel = `SELECT id, qr_token FROM tickets WHERE reference = ?`
	rows, err := tx.QueryContext(ctx, sel, reference)
	if err != nil {
		return nil, err
	}
	type pending struct {
		id    uint64
		token sql.NullString
	}
	var ids []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.token); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range ids {
		if p.token.Valid && p.token.String != "" {
			continue
		}
		token, err := utils.NewQRToken()
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tickets SET qr_token = ? WHERE id = ?`, token, p.id); err != nil {
			return nil, err
		}
	}

	issued, err := listByReference(ctx, tx, reference)
	if err != nil {
		return nil, err
	}
	for _, t := range issued {
		if t.QRToken == nil {
			return nil, fmt.Errorf("ticket %d missing qr token after assignment", t.ID)
		}
		payload := model.TicketConfirmedPayload{
			TicketID: t.ID,
			FullName: t.FullName,
			QRToken:  *t.QRToken,
		}
		if err := r.outbox.EnqueueTx(ctx, tx, model.OutboxTicketConfirmed, t.Email, payload); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return issued, nil
}

// ListByReference returns every ticket of a batch, oldest first.
func (r *TicketRepo) ListByReference(ctx context.Context, reference string) ([]model.Ticket, error) {
	return listByReference(ctx, r.db, reference)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func listByReference(ctx context.Context, q querier, reference string) ([]model.Ticket, error) {
	const sel = `SELECT id, ticket_type_id, full_name, email, phone, status, amount, reference, chapa_ref, qr_token, created_at, updated_at
	           FROM tickets WHERE reference = ? ORDER BY id ASC`
	rows, err := q.QueryContext(ctx, sel, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByQRToken resolves a redeemable credential to its ticket.
func (r *TicketRepo) GetByQRToken(ctx context.Context, token string) (*model.Ticket, error) {
	const q = `SELECT id, ticket_type_id, full_name, email, phone, status, amount, reference, chapa_ref, qr_token, created_at, updated_at
	           FROM tickets WHERE qr_token = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, q, token)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ExpireStale marks PENDING tickets older than the ttl as ABANDONED and
// returns the number of rows affected.  The reaper calls this on a
// fixed interval.  The cutoff is computed in SQL so it uses the same
// clock and timezone as the NOW() values created_at was written with.
func (r *TicketRepo) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `UPDATE tickets SET status = 'ABANDONED', updated_at = NOW()
	           WHERE status = 'PENDING' AND created_at < NOW() - INTERVAL ? SECOND`
	res, err := r.db.ExecContext(ctx, q, int64(olderThan.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var t model.Ticket
	var chapaRef, qrToken sql.NullString
	err := row.Scan(
		&t.ID, &t.TicketTypeID, &t.FullName, &t.Email, &t.Phone,
		&t.Status, &t.Amount, &t.Reference, &chapaRef, &qrToken,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return model.Ticket{}, err
	}
	if chapaRef.Valid {
		v := chapaRef.String
		t.ChapaRef = &v
	}
	if qrToken.Valid {
		v := qrToken.String
		t.QRToken = &v
	}
	return t, nil
}
