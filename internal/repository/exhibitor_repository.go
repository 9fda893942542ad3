package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/originexpo/ticketing/internal/model"
)

// ExhibitorRepo persists exhibitor applications together with their
// linked user accounts.  A new application, its user row and the
// receipt mail are committed in one transaction so an applicant never
// ends up with a user account but no application, or the reverse.
type ExhibitorRepo struct {
	db     *sql.DB
	outbox *OutboxRepo
}

// NewExhibitorRepo returns an ExhibitorRepo bound to the given database.
func NewExhibitorRepo(db *sql.DB, outbox *OutboxRepo) *ExhibitorRepo {
	return &ExhibitorRepo{db: db, outbox: outbox}
}

// RegisterApplication stores an exhibitor application.  When a user
// with the contact email already exists it is linked and forced back to
// inactive pending review; its password hash changes only when the
// applicant chose a password (providedHash non-empty).  Otherwise a
// fresh inactive EXHIBITOR user is created with providedHash, or with
// fallbackHash when no password was chosen.  ErrEmailTaken is returned
// when an application for the email already exists.  The receipt
// notification is enqueued in the same transaction.
func (r *ExhibitorRepo) RegisterApplication(ctx context.Context, ex *model.Exhibitor, providedHash, fallbackHash string) (exhibitorID, userID uint64, err error) {
	email := strings.ToLower(strings.TrimSpace(ex.ContactEmail))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Uniqueness of applications by contact email.
	var existing uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM exhibitors WHERE contact_email = ? LIMIT 1`, email).Scan(&existing)
	if err == nil {
		return 0, 0, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, err
	}

	// Link to an existing user or create a fresh inactive one.
	var uid uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ? LIMIT 1`, email).Scan(&uid)
	switch {
	case err == nil:
		// Existing account goes back to pending until approved.
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET is_active = 0, must_change_password = 1, updated_at = NOW() WHERE id = ?`, uid); err != nil {
			return 0, 0, err
		}
		if providedHash != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET password_hash = ? WHERE id = ?`, providedHash, uid); err != nil {
				return 0, 0, err
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		hash := providedHash
		if hash == "" {
			hash = fallbackHash
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (email, password_hash, name, role, email_verified, must_change_password, is_active, created_at, updated_at)
			 VALUES (?, ?, ?, 'EXHIBITOR', 0, 1, 0, NOW(), NOW())`,
			email, hash, ex.CompanyName)
		if err != nil {
			return 0, 0, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, 0, err
		}
		uid = uint64(id)
	default:
		return 0, 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO exhibitors (user_id, company_name, country, contact_name, contact_email, phone, status, booth_assigned, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'PENDING', NULL, ?, NOW(), NOW())`,
		uid, ex.CompanyName, ex.Country, ex.ContactName, email, ex.Phone, ex.Notes)
	if err != nil {
		return 0, 0, err
	}
	eid, err := res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	receipt := model.ExhibitorReceiptPayload{
		CompanyName:  ex.CompanyName,
		ContactName:  ex.ContactName,
		ContactEmail: email,
		Phone:        ex.Phone,
		Country:      ex.Country,
	}
	if err := r.outbox.EnqueueTx(ctx, tx, model.OutboxExhibitorReceipt, email, receipt); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	committed = true
	return uint64(eid), uid, nil
}
