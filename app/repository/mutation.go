package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

var ErrMutationNotFound = errors.New("mutation not found")

const mutationColumns = `
	id, mutation_id, bank_id, amount, description, type,
	mutation_date, raw_payload, status, created_at, updated_at
`

type MutationFilter struct {
	Status string
	BankID string
	Limit  int32
	Offset int32
}

type MutationRepository struct {
	db DBTX
}

func NewMutationRepository(db DBTX) *MutationRepository {
	return &MutationRepository{db: db}
}

// Upsert stores one observed ledger mutation keyed by its external id.
// A re-observed mutation whose recorded status is matched or processed is
// left untouched and stored=false is returned; otherwise the row is
// refreshed and its status reset to unprocessed for reconsideration.
func (r *MutationRepository) Upsert(ctx context.Context, mutation *entity.TransactionMutation) (bool, error) {
	query := `
		INSERT INTO transaction_mutations (
			mutation_id, bank_id, amount, description, type,
			mutation_date, raw_payload, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (mutation_id) DO UPDATE SET
			bank_id = EXCLUDED.bank_id,
			amount = EXCLUDED.amount,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			mutation_date = EXCLUDED.mutation_date,
			raw_payload = EXCLUDED.raw_payload,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		WHERE transaction_mutations.status NOT IN ($11, $12)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		mutation.MutationID,
		mutation.BankID,
		mutation.Amount,
		mutation.Description,
		mutation.Type,
		mutation.MutationDate,
		mutation.RawPayload,
		entity.MutationStatusUnprocessed,
		mutation.CreatedAt,
		mutation.UpdatedAt,
		entity.MutationStatusMatched,
		entity.MutationStatusProcessed,
	).Scan(&mutation.ID)
	if err == sql.ErrNoRows {
		// Already matched or processed; idempotent no-op.
		return false, nil
	}
	if err != nil {
		return false, err
	}

	mutation.Status = entity.MutationStatusUnprocessed
	return true, nil
}

func (r *MutationRepository) FindByMutationID(ctx context.Context, mutationID string) (*entity.TransactionMutation, error) {
	query := `SELECT ` + mutationColumns + ` FROM transaction_mutations WHERE mutation_id = $1`

	mutation := &entity.TransactionMutation{}
	if err := scanMutation(r.db.QueryRowContext(ctx, query, mutationID), mutation); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return mutation, nil
}

func (r *MutationRepository) UpdateStatus(ctx context.Context, mutationID, status string) error {
	query := `UPDATE transaction_mutations SET status = $1, updated_at = NOW() WHERE mutation_id = $2`

	result, err := r.db.ExecContext(ctx, query, status, mutationID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMutationNotFound
	}

	return nil
}

func (r *MutationRepository) List(ctx context.Context, filter MutationFilter) ([]*entity.TransactionMutation, error) {
	query := `SELECT ` + mutationColumns + ` FROM transaction_mutations`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+itoa(len(args)))
	}
	if filter.BankID != "" {
		args = append(args, filter.BankID)
		conditions = append(conditions, "bank_id = $"+itoa(len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + joinConditions(conditions)
	}

	args = append(args, filter.Limit)
	query += " ORDER BY mutation_date DESC, id DESC LIMIT $" + itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mutations := make([]*entity.TransactionMutation, 0)
	for rows.Next() {
		item := &entity.TransactionMutation{}
		if err := scanMutation(rows, item); err != nil {
			return nil, err
		}
		mutations = append(mutations, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return mutations, nil
}

func scanMutation(scan rowScanner, mutation *entity.TransactionMutation) error {
	return scan.Scan(
		&mutation.ID,
		&mutation.MutationID,
		&mutation.BankID,
		&mutation.Amount,
		&mutation.Description,
		&mutation.Type,
		&mutation.MutationDate,
		&mutation.RawPayload,
		&mutation.Status,
		&mutation.CreatedAt,
		&mutation.UpdatedAt,
	)
}
