package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/studyflow/internal/models"
	"github.com/desertthunder/studyflow/internal/shared"
)

var errUserNotFound = fmt.Errorf("user %w", shared.ErrNotFound)

const userColumns = `id, sequence, email, name, provider, provider_id, created_at, updated_at, deleted_at`

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.User] = (*UserRepository)(nil)

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	user.SetID(id)
	user.SetSequence(sequence)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (id, sequence, email, name, provider, provider_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		user.Email(),
		user.Name(),
		user.Provider(),
		user.ProviderID(),
		shared.FormatTime(user.CreatedAt()),
		shared.FormatTime(user.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`
	user, err := r.scanOne(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errUserNotFound, id)
	}
	return user, err
}

// GetByProvider retrieves a user by identity provider and provider-scoped id
func (r *UserRepository) GetByProvider(provider, providerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider = ? AND provider_id = ? AND deleted_at IS NULL`
	user, err := r.scanOne(r.db.QueryRow(query, provider, providerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", errUserNotFound, provider, providerID)
	}
	return user, err
}

// GetByEmail retrieves the oldest active user with email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? AND deleted_at IS NULL ORDER BY sequence ASC LIMIT 1`
	user, err := r.scanOne(r.db.QueryRow(query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errUserNotFound, email)
	}
	return user, err
}

// FindOrCreate returns the user for provider/providerID, creating it on first sign-in.
// Email and name are refreshed when they changed upstream.
func (r *UserRepository) FindOrCreate(provider, providerID, email, name string) (*models.User, error) {
	user, err := r.GetByProvider(provider, providerID)
	if errors.Is(err, shared.ErrNotFound) {
		user = models.NewUser(0, email, name, provider, providerID)
		if err := r.Create(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if (email != "" && email != user.Email()) || (name != "" && name != user.Name()) {
		if email != "" {
			user.SetEmail(email)
		}
		if name != "" {
			user.SetName(name)
		}
		if err := r.Update(user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET email = ?, name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.Email(), user.Name(), shared.FormatTime(now), user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return affected(result, errUserNotFound, user.ID())
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, shared.FormatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return affected(result, errUserNotFound, id)
}

// List retrieves all users matching the given criteria, excluding soft-deleted users.
// Supported criteria: "email", "provider".
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}
	if provider, ok := criteria["provider"].(string); ok && provider != "" {
		query += " AND provider = ?"
		args = append(args, provider)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

func (r *UserRepository) scanOne(row scanner) (*models.User, error) {
	var (
		id, email, name, provider, providerID string
		sequence                              int
		createdAt, updatedAt                  string
		deletedAt                             sql.NullString
	)

	if err := row.Scan(&id, &sequence, &email, &name, &provider, &providerID, &createdAt, &updatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user := models.NewUser(sequence, email, name, provider, providerID)
	user.SetID(id)

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	deleted, err := parseNullTime(deletedAt)
	if err != nil {
		return nil, err
	}
	user.SetCreatedAt(created)
	user.SetUpdatedAt(updated)
	user.SetDeletedAt(deleted)

	return user, nil
}
