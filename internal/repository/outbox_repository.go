package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/originexpo/ticketing/internal/model"
)

// OutboxRepo persists pending email notifications.  Rows are enqueued
// inside the transaction that produced the state change they announce,
// so a committed PAID transition always has its confirmation mails on
// record even if the process dies before dispatch.
type OutboxRepo struct {
	db *sql.DB
}

// NewOutboxRepo returns an OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// EnqueueTx inserts a PENDING outbox row within the caller's
// transaction.  The payload must be JSON-marshalable.
func (r *OutboxRepo) EnqueueTx(ctx context.Context, tx *sql.Tx, kind, recipient string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	const q = `INSERT INTO email_outbox (id, kind, recipient, payload, status, attempts, next_attempt_at, created_at)
	           VALUES (?, ?, ?, ?, 'PENDING', 0, NOW(), NOW())`
	_, err = tx.ExecContext(ctx, q, uuid.NewString(), kind, recipient, body)
	return err
}

// ClaimDue returns up to limit PENDING messages whose next attempt time
// has passed, oldest first.  The service runs a single dispatcher, so
// no row locking is needed here.
func (r *OutboxRepo) ClaimDue(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	const q = `SELECT id, kind, recipient, payload, status, attempts, next_attempt_at, created_at
	           FROM email_outbox
	           WHERE status = 'PENDING' AND next_attempt_at <= NOW()
	           ORDER BY next_attempt_at ASC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Kind, &m.Recipient, &m.Payload, &m.Status, &m.Attempts, &m.NextAttemptAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkSent records a successful delivery.
func (r *OutboxRepo) MarkSent(ctx context.Context, id string) error {
	const q = `UPDATE email_outbox SET status = 'SENT', sent_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// MarkFailed bumps the attempt counter and schedules the next try.
// When final is true the message is parked as FAILED and no longer
// claimed.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id string, next time.Time, final bool) error {
	if final {
		const q = `UPDATE email_outbox SET status = 'FAILED', attempts = attempts + 1 WHERE id = ?`
		_, err := r.db.ExecContext(ctx, q, id)
		return err
	}
	const q = `UPDATE email_outbox SET attempts = attempts + 1, next_attempt_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, next.UTC().Format("2006-01-02 15:04:05"), id)
	return err
}
