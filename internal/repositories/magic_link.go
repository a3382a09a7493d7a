package repositories

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/studyflow/internal/shared"
)

// MagicLinkRepository stores single-use sign-in tokens. Only bcrypt hashes are persisted.
type MagicLinkRepository struct {
	db   *sql.DB
	cost int
}

// NewMagicLinkRepository creates a new MagicLinkRepository with the given database connection
func NewMagicLinkRepository(db *sql.DB) *MagicLinkRepository {
	return &MagicLinkRepository{db: db, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost, e.g. [bcrypt.MinCost] in tests.
func (r *MagicLinkRepository) WithCost(cost int) *MagicLinkRepository {
	r.cost = cost
	return r
}

// Issue generates a random token for email, stores its hash with an expiry of now+ttl, and returns the plaintext token.
func (r *MagicLinkRepository) Issue(email string, ttl time.Duration, now time.Time) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), r.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	if err := r.Create(email, string(hash), now.Add(ttl), now); err != nil {
		return "", err
	}
	return token, nil
}

// Create stores a token hash for email.
func (r *MagicLinkRepository) Create(email, tokenHash string, expiresAt, now time.Time) error {
	query := `
		INSERT INTO magic_links (id, email, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		shared.GenerateID(),
		normalizeEmail(email),
		tokenHash,
		shared.FormatTime(expiresAt),
		shared.FormatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert magic link: %w", err)
	}
	return nil
}

// Consume redeems token for email. It fails with [shared.ErrAuthFailed] when no unexpired,
// unused link matches, so a token works at most once.
func (r *MagicLinkRepository) Consume(email, token string, now time.Time) error {
	query := `
		SELECT id, token_hash
		FROM magic_links
		WHERE email = ? AND consumed_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, normalizeEmail(email), shared.FormatTime(now))
	if err != nil {
		return fmt.Errorf("failed to query magic links: %w", err)
	}

	var matched string
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan magic link: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
			matched = id
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	if matched == "" {
		return fmt.Errorf("%w: invalid or expired sign-in link", shared.ErrAuthFailed)
	}

	result, err := r.db.Exec(`UPDATE magic_links SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL`, shared.FormatTime(now), matched)
	if err != nil {
		return fmt.Errorf("failed to consume magic link: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: sign-in link already used", shared.ErrAuthFailed)
	}
	return nil
}

// Purge removes links that expired or were consumed before cutoff.
func (r *MagicLinkRepository) Purge(cutoff time.Time) (int64, error) {
	ts := shared.FormatTime(cutoff)
	result, err := r.db.Exec(`DELETE FROM magic_links WHERE expires_at < ? OR consumed_at < ?`, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to purge magic links: %w", err)
	}
	return result.RowsAffected()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
