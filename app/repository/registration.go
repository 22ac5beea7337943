package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

var (
	ErrRegistrationNotFound      = errors.New("registration not found")
	ErrRegistrationAlreadyExists = errors.New("registration already exists")
)

const registrationColumns = `
	id, registration_number, ticket_type,
	total_amount, discount_amount, final_amount,
	status, created_at, updated_at
`

type RegistrationRepository struct {
	db DBTX
}

func NewRegistrationRepository(db DBTX) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func (r *RegistrationRepository) Create(ctx context.Context, registration *entity.Registration) error {
	query := `
		INSERT INTO registrations (
			registration_number, ticket_type,
			total_amount, discount_amount, final_amount,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		registration.RegistrationNumber,
		registration.TicketType,
		registration.TotalAmount,
		registration.DiscountAmount,
		registration.FinalAmount,
		registration.Status,
		registration.CreatedAt,
		registration.UpdatedAt,
	).Scan(&registration.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRegistrationAlreadyExists
		}
		return err
	}

	return nil
}

func (r *RegistrationRepository) Update(ctx context.Context, registration *entity.Registration) error {
	query := `
		UPDATE registrations SET
			registration_number = $1,
			ticket_type = $2,
			total_amount = $3,
			discount_amount = $4,
			final_amount = $5,
			status = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		registration.RegistrationNumber,
		registration.TicketType,
		registration.TotalAmount,
		registration.DiscountAmount,
		registration.FinalAmount,
		registration.Status,
		registration.UpdatedAt,
		registration.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRegistrationNotFound
	}

	return nil
}

// UpdateStatus transitions status only when the registration currently holds
// fromStatus. Returns false without error when the guard does not hold.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id uint64, fromStatus, toStatus string, now time.Time) (bool, error) {
	query := `
		UPDATE registrations SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, toStatus, now, id, fromStatus)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, id uint64) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *RegistrationRepository) FindByNumber(ctx context.Context, number string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE registration_number = $1 LIMIT 1`
	return r.findOne(ctx, query, number)
}

func (r *RegistrationRepository) FindByNumberFold(ctx context.Context, number string) (*entity.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE LOWER(registration_number) = LOWER($1) LIMIT 1`
	return r.findOne(ctx, query, strings.TrimSpace(number))
}

func (r *RegistrationRepository) FindByPaymentID(ctx context.Context, paymentID uint64) (*entity.Registration, error) {
	query := `
		SELECT r.id, r.registration_number, r.ticket_type,
			r.total_amount, r.discount_amount, r.final_amount,
			r.status, r.created_at, r.updated_at
		FROM registrations r
		JOIN payments p ON p.registration_id = r.id
		WHERE p.id = $1
		LIMIT 1
	`
	return r.findOne(ctx, query, paymentID)
}

func (r *RegistrationRepository) FindByParticipantEmail(ctx context.Context, email string) (*entity.Registration, error) {
	query := `
		SELECT r.id, r.registration_number, r.ticket_type,
			r.total_amount, r.discount_amount, r.final_amount,
			r.status, r.created_at, r.updated_at
		FROM registrations r
		JOIN participants pt ON pt.registration_id = r.id
		WHERE LOWER(pt.email) = LOWER($1)
		ORDER BY r.id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, strings.TrimSpace(email))
}

func (r *RegistrationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Registration, error) {
	registration := &entity.Registration{}
	if err := scanRegistration(r.db.QueryRowContext(ctx, query, args...), registration); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return registration, nil
}

func scanRegistration(scan rowScanner, registration *entity.Registration) error {
	return scan.Scan(
		&registration.ID,
		&registration.RegistrationNumber,
		&registration.TicketType,
		&registration.TotalAmount,
		&registration.DiscountAmount,
		&registration.FinalAmount,
		&registration.Status,
		&registration.CreatedAt,
		&registration.UpdatedAt,
	)
}
