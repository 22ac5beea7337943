package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/app/entity"
)

var ErrTaskNotFound = errors.New("scheduled task not found")

const taskColumns = `
	id, task_type, registration_id, run_at, status, result, created_at, updated_at
`

type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.ScheduledTask) error {
	query := `
		INSERT INTO scheduled_tasks (
			task_type, registration_id, run_at, status, result, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		task.TaskType,
		task.RegistrationID,
		task.RunAt,
		task.Status,
		nullableStringValue(task.Result),
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
}

// ClaimDue flips due pending tasks to processing and returns them. SKIP
// LOCKED keeps concurrent sweeps from claiming the same rows.
func (r *TaskRepository) ClaimDue(ctx context.Context, taskType string, now time.Time, limit int32) ([]*entity.ScheduledTask, error) {
	query := `
		UPDATE scheduled_tasks SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM scheduled_tasks
			WHERE task_type = $3 AND status = $4 AND run_at <= $2
			ORDER BY run_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns + `
	`

	rows, err := r.db.QueryContext(ctx, query,
		entity.TaskStatusProcessing,
		now,
		taskType,
		entity.TaskStatusPending,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*entity.ScheduledTask, 0)
	for rows.Next() {
		item := &entity.ScheduledTask{}
		if err := scanTask(rows, item); err != nil {
			return nil, err
		}
		tasks = append(tasks, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *TaskRepository) Finish(ctx context.Context, id uint64, status string, result *string, now time.Time) error {
	query := `UPDATE scheduled_tasks SET status = $1, result = $2, updated_at = $3 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query, status, nullableStringValue(result), now, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// HasOpenTask reports whether the registration already has a pending or
// processing task of the given type. Guards against duplicate scheduling.
func (r *TaskRepository) HasOpenTask(ctx context.Context, taskType string, registrationID uint64) (bool, error) {
	query := `
		SELECT 1 FROM scheduled_tasks
		WHERE task_type = $1 AND registration_id = $2 AND status IN ($3, $4)
		LIMIT 1
	`

	var one int
	err := r.db.QueryRowContext(ctx, query,
		taskType,
		registrationID,
		entity.TaskStatusPending,
		entity.TaskStatusProcessing,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func scanTask(scan rowScanner, task *entity.ScheduledTask) error {
	var result sql.NullString

	err := scan.Scan(
		&task.ID,
		&task.TaskType,
		&task.RegistrationID,
		&task.RunAt,
		&task.Status,
		&result,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return err
	}

	task.Result = stringPtrFromNull(result)
	return nil
}
