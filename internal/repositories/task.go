package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

const taskColumns = `id, user_id, title, status, priority, due_date, tags, created_at, updated_at`

// TaskRepository persists planner tasks per user.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Upsert inserts or replaces one of userID's tasks.
// Returns [shared.ErrGone] for a deleted id and [shared.ErrTaskNotFound] for another user's id.
func (r *TaskRepository) Upsert(userID string, t models.Task) (models.Task, error) {
	t.Tags = models.NormalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return models.Task{}, fmt.Errorf("validation failed: %w", err)
	}

	t.UserID = userID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	var (
		owner     string
		deletedAt sql.NullString
	)
	err = r.db.QueryRow(`SELECT user_id, deleted_at FROM tasks WHERE id = ?`, t.ID).Scan(&owner, &deletedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return t, r.insert(userID, t, string(tags))
	case err != nil:
		return models.Task{}, fmt.Errorf("failed to query task: %w", err)
	case owner != userID:
		return models.Task{}, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, t.ID)
	case deletedAt.Valid:
		return models.Task{}, fmt.Errorf("%w: task %s", shared.ErrGone, t.ID)
	}

	query := `
		UPDATE tasks
		SET title = ?, status = ?, priority = ?, due_date = ?, tags = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		t.Title,
		string(t.Status),
		string(t.Priority),
		nullString(t.DueDate),
		string(tags),
		shared.FormatTime(t.UpdatedAt),
		t.ID,
		userID,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if err := affected(result, shared.ErrTaskNotFound, t.ID); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (r *TaskRepository) insert(userID string, t models.Task, tags string) error {
	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO tasks (id, sequence, user_id, title, status, priority, due_date, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		t.ID,
		sequence,
		userID,
		t.Title,
		string(t.Status),
		string(t.Priority),
		nullString(t.DueDate),
		tags,
		shared.FormatTime(t.CreatedAt),
		shared.FormatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Get retrieves one of userID's tasks, excluding soft-deleted ones
func (r *TaskRepository) Get(userID, id string) (models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ? AND deleted_at IS NULL`
	t, err := r.scanOne(r.db.QueryRow(query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}
	return t, err
}

// ListByUser returns userID's tasks, newest first
func (r *TaskRepository) ListByUser(userID string) ([]models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, sequence DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tasks, nil
}

// Delete soft-deletes one of userID's tasks. Deleting an already deleted task succeeds.
func (r *TaskRepository) Delete(userID, id string) error {
	query := `
		UPDATE tasks
		SET deleted_at = COALESCE(deleted_at, ?)
		WHERE id = ? AND user_id = ?
	`

	result, err := r.db.Exec(query, shared.FormatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return affected(result, shared.ErrTaskNotFound, id)
}

func (r *TaskRepository) scanOne(row scanner) (models.Task, error) {
	var (
		t                    models.Task
		status, priority     string
		dueDate              sql.NullString
		tags                 string
		createdAt, updatedAt string
	)

	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &status, &priority, &dueDate, &tags, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("failed to query task: %w", err)
	}

	t.Status = models.TaskStatus(status)
	t.Priority = models.TaskPriority(priority)
	t.DueDate = dueDate.String
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return models.Task{}, fmt.Errorf("failed to decode tags for task %s: %w", t.ID, err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, err
	}
	return t, nil
}
