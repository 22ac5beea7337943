package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `
	id, registration_id, amount, status,
	check_attempts, last_checked_at,
	transaction_id, verified_by, notes,
	created_at, updated_at
`

type PaymentFilter struct {
	RegistrationID uint64
	Status         string
	Limit          int32
	Offset         int32
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			registration_id, amount, status,
			check_attempts, last_checked_at,
			transaction_id, verified_by, notes,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		payment.RegistrationID,
		payment.Amount,
		payment.Status,
		payment.CheckAttempts,
		nullableTimeValue(payment.LastCheckedAt),
		nullableStringValue(payment.TransactionID),
		nullableStringValue(payment.VerifiedBy),
		nullableStringValue(payment.Notes),
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID)
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *PaymentRepository) FindPendingByRegistrationID(ctx context.Context, registrationID uint64) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE registration_id = $1 AND status = $2
		ORDER BY id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, registrationID, entity.PaymentStatusPending)
}

func (r *PaymentRepository) FindByRegistrationID(ctx context.Context, registrationID uint64) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE registration_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, registrationID)
}

func (r *PaymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.RegistrationID > 0 {
		args = append(args, filter.RegistrationID)
		conditions = append(conditions, "registration_id = $"+itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+itoa(len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + joinConditions(conditions)
	}

	args = append(args, filter.Limit)
	query += " ORDER BY id DESC LIMIT $" + itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// ClaimVerify atomically settles a pending payment. The status guard makes
// concurrent sweeps safe: only one caller observes claimed=true.
func (r *PaymentRepository) ClaimVerify(ctx context.Context, id uint64, transactionID, verifiedBy *string, now time.Time) (bool, error) {
	query := `
		UPDATE payments SET
			status = $1,
			transaction_id = COALESCE($2, transaction_id),
			verified_by = COALESCE($3, verified_by),
			updated_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.PaymentStatusVerified,
		nullableStringValue(transactionID),
		nullableStringValue(verifiedBy),
		now,
		id,
		entity.PaymentStatusPending,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ForceVerify overwrites verification fields regardless of current status.
// Manual admin path only; intentionally idempotent on already-verified rows.
func (r *PaymentRepository) ForceVerify(ctx context.Context, id uint64, transactionID, verifiedBy, notes *string, now time.Time) error {
	query := `
		UPDATE payments SET
			status = $1,
			transaction_id = COALESCE($2, transaction_id),
			verified_by = COALESCE($3, verified_by),
			notes = COALESCE($4, notes),
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.PaymentStatusVerified,
		nullableStringValue(transactionID),
		nullableStringValue(verifiedBy),
		nullableStringValue(notes),
		now,
		id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) RecordCheck(ctx context.Context, id uint64, attempts int32, now time.Time) error {
	query := `UPDATE payments SET check_attempts = $1, last_checked_at = $2, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, attempts, now, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Payment, error) {
	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, args...), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var lastCheckedAt sql.NullTime
	var transactionID sql.NullString
	var verifiedBy sql.NullString
	var notes sql.NullString

	err := scan.Scan(
		&payment.ID,
		&payment.RegistrationID,
		&payment.Amount,
		&payment.Status,
		&payment.CheckAttempts,
		&lastCheckedAt,
		&transactionID,
		&verifiedBy,
		&notes,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.LastCheckedAt = timePtrFromNull(lastCheckedAt)
	payment.TransactionID = stringPtrFromNull(transactionID)
	payment.VerifiedBy = stringPtrFromNull(verifiedBy)
	payment.Notes = stringPtrFromNull(notes)

	return nil
}
