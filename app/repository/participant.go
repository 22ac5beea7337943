package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

var ErrParticipantNotFound = errors.New("participant not found")

const participantColumns = `
	id, registration_id, full_name, email, phone, qr_token, checked_in_at, created_at
`

type ParticipantRepository struct {
	db DBTX
}

func NewParticipantRepository(db DBTX) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, participant *entity.Participant) error {
	query := `
		INSERT INTO participants (
			registration_id, full_name, email, phone, qr_token, checked_in_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		participant.RegistrationID,
		participant.FullName,
		strings.TrimSpace(participant.Email),
		participant.Phone,
		participant.QRToken,
		nullableTimeValue(participant.CheckedInAt),
		participant.CreatedAt,
	).Scan(&participant.ID)
}

func (r *ParticipantRepository) ListByRegistration(ctx context.Context, registrationID uint64) ([]*entity.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE registration_id = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*entity.Participant, 0)
	for rows.Next() {
		item := &entity.Participant{}
		if err := scanParticipant(rows, item); err != nil {
			return nil, err
		}
		participants = append(participants, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *ParticipantRepository) FindByQRToken(ctx context.Context, qrToken string) (*entity.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE qr_token = $1 LIMIT 1`

	participant := &entity.Participant{}
	if err := scanParticipant(r.db.QueryRowContext(ctx, query, strings.TrimSpace(qrToken)), participant); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return participant, nil
}

// MarkCheckedIn stamps the participant once; a second call is a no-op and
// returns false.
func (r *ParticipantRepository) MarkCheckedIn(ctx context.Context, id uint64, now time.Time) (bool, error) {
	query := `UPDATE participants SET checked_in_at = $1 WHERE id = $2 AND checked_in_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanParticipant(scan rowScanner, participant *entity.Participant) error {
	var checkedInAt sql.NullTime

	err := scan.Scan(
		&participant.ID,
		&participant.RegistrationID,
		&participant.FullName,
		&participant.Email,
		&participant.Phone,
		&participant.QRToken,
		&checkedInAt,
		&participant.CreatedAt,
	)
	if err != nil {
		return err
	}

	participant.CheckedInAt = timePtrFromNull(checkedInAt)
	return nil
}
