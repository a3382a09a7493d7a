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

const roadmapColumns = `id, user_id, name, description, videos, version, created_at, updated_at`

// RoadmapRepository persists roadmaps per user.
//
// Videos are stored as a JSON column; total_progress is written for reporting but recomputed on every read.
type RoadmapRepository struct {
	db *sql.DB
}

// NewRoadmapRepository creates a new RoadmapRepository with the given database connection
func NewRoadmapRepository(db *sql.DB) *RoadmapRepository {
	return &RoadmapRepository{db: db}
}

// Upsert stores rm for userID when rm.Version is newer than the stored version.
//
// Returns [shared.ErrStaleWrite] when the stored row is at the same or a newer version,
// [shared.ErrGone] when the id was deleted, and [shared.ErrRoadmapNotFound] when the id belongs to another user.
func (r *RoadmapRepository) Upsert(userID string, rm models.Roadmap) (models.Roadmap, error) {
	if err := rm.Validate(); err != nil {
		return models.Roadmap{}, fmt.Errorf("validation failed: %w", err)
	}

	rm = rm.Normalize()
	rm.UserID = userID
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = time.Now()
	}
	if rm.UpdatedAt.IsZero() {
		rm.UpdatedAt = rm.CreatedAt
	}

	videos, err := json.Marshal(rm.Videos)
	if err != nil {
		return models.Roadmap{}, fmt.Errorf("failed to encode videos: %w", err)
	}

	exists, err := r.exists(rm.ID)
	if err != nil {
		return models.Roadmap{}, err
	}

	if !exists {
		sequence, err := NextSequence(r.db, "roadmaps")
		if err != nil {
			return models.Roadmap{}, fmt.Errorf("failed to generate sequence: %w", err)
		}

		query := `
			INSERT INTO roadmaps (id, sequence, user_id, name, description, videos, total_progress, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`
		result, err := r.db.Exec(query,
			rm.ID,
			sequence,
			userID,
			rm.Name,
			rm.Description,
			string(videos),
			rm.TotalProgress,
			rm.Version,
			shared.FormatTime(rm.CreatedAt),
			shared.FormatTime(rm.UpdatedAt),
		)
		if err != nil {
			return models.Roadmap{}, fmt.Errorf("failed to insert roadmap: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 1 {
			return rm, nil
		}
		// lost an insert race; fall through to the guarded update
	}

	query := `
		UPDATE roadmaps
		SET name = ?, description = ?, videos = ?, total_progress = ?, version = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL AND version < ?
	`
	result, err := r.db.Exec(query,
		rm.Name,
		rm.Description,
		string(videos),
		rm.TotalProgress,
		rm.Version,
		shared.FormatTime(rm.UpdatedAt),
		rm.ID,
		userID,
		rm.Version,
	)
	if err != nil {
		return models.Roadmap{}, fmt.Errorf("failed to update roadmap: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return models.Roadmap{}, fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 1 {
		return rm, nil
	}

	return models.Roadmap{}, r.refusal(userID, rm)
}

// refusal explains why a guarded update changed nothing.
func (r *RoadmapRepository) refusal(userID string, rm models.Roadmap) error {
	var (
		owner     string
		version   int64
		deletedAt sql.NullString
	)
	err := r.db.QueryRow(`SELECT user_id, version, deleted_at FROM roadmaps WHERE id = ?`, rm.ID).Scan(&owner, &version, &deletedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", shared.ErrRoadmapNotFound, rm.ID)
	case err != nil:
		return fmt.Errorf("failed to query roadmap: %w", err)
	case owner != userID:
		return fmt.Errorf("%w: %s", shared.ErrRoadmapNotFound, rm.ID)
	case deletedAt.Valid:
		return fmt.Errorf("%w: roadmap %s", shared.ErrGone, rm.ID)
	default:
		return fmt.Errorf("%w: roadmap %s version %d is not newer than %d", shared.ErrStaleWrite, rm.ID, rm.Version, version)
	}
}

func (r *RoadmapRepository) exists(id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM roadmaps WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query roadmap: %w", err)
	}
	return exists, nil
}

// Get retrieves one of userID's roadmaps, excluding soft-deleted ones
func (r *RoadmapRepository) Get(userID, id string) (models.Roadmap, error) {
	query := `SELECT ` + roadmapColumns + ` FROM roadmaps WHERE id = ? AND user_id = ? AND deleted_at IS NULL`
	rm, err := r.scanOne(r.db.QueryRow(query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Roadmap{}, fmt.Errorf("%w: %s", shared.ErrRoadmapNotFound, id)
	}
	return rm, err
}

// ListByUser returns userID's roadmaps, most recently updated first
func (r *RoadmapRepository) ListByUser(userID string) ([]models.Roadmap, error) {
	query := `
		SELECT ` + roadmapColumns + `
		FROM roadmaps
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC, sequence DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roadmaps: %w", err)
	}
	defer rows.Close()

	roadmaps := []models.Roadmap{}
	for rows.Next() {
		rm, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		roadmaps = append(roadmaps, rm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return roadmaps, nil
}

// Delete soft-deletes one of userID's roadmaps. Deleting an already deleted roadmap succeeds.
func (r *RoadmapRepository) Delete(userID, id string) error {
	query := `
		UPDATE roadmaps
		SET deleted_at = COALESCE(deleted_at, ?)
		WHERE id = ? AND user_id = ?
	`

	result, err := r.db.Exec(query, shared.FormatTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete roadmap: %w", err)
	}
	return affected(result, shared.ErrRoadmapNotFound, id)
}

func (r *RoadmapRepository) scanOne(row scanner) (models.Roadmap, error) {
	var (
		rm                   models.Roadmap
		videos               string
		createdAt, updatedAt string
	)

	if err := row.Scan(&rm.ID, &rm.UserID, &rm.Name, &rm.Description, &videos, &rm.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Roadmap{}, err
		}
		return models.Roadmap{}, fmt.Errorf("failed to query roadmap: %w", err)
	}

	if err := json.Unmarshal([]byte(videos), &rm.Videos); err != nil {
		return models.Roadmap{}, fmt.Errorf("failed to decode videos for roadmap %s: %w", rm.ID, err)
	}

	var err error
	if rm.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Roadmap{}, err
	}
	if rm.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Roadmap{}, err
	}

	return rm.Normalize(), nil
}
