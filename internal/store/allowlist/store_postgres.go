package allowlist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"turnstile/internal/models"
)

// PostgresStore persists allowlist entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed allowlist store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, entry *models.AllowlistEntry) error {
	if entry == nil {
		return fmt.Errorf("allowlist entry is required")
	}
	query := `
		INSERT INTO gate_allowlist (id, entry_type, identifier, reason, expires_at, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entry_type, identifier) DO UPDATE SET
			reason = EXCLUDED.reason,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at,
			created_by = EXCLUDED.created_by
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		string(entry.Type),
		entry.Identifier,
		entry.Reason,
		entry.ExpiresAt,
		entry.CreatedAt,
		entry.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("add allowlist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, entryType models.AllowlistEntryType, identifier string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM gate_allowlist WHERE entry_type = $1 AND identifier = $2`,
		string(entryType), identifier)
	if err != nil {
		return fmt.Errorf("remove allowlist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Match(ctx context.Context, identity models.Identity) (*models.AllowlistEntry, error) {
	query := `
		SELECT id, entry_type, identifier, reason, expires_at, created_at, created_by
		FROM gate_allowlist
		WHERE (expires_at IS NULL OR expires_at > NOW())
		  AND (
			(entry_type = 'api_key' AND identifier = $1)
			OR (entry_type = 'user_id' AND identifier = $2)
			OR (entry_type = 'ip' AND identifier = $3)
		  )
		ORDER BY CASE entry_type WHEN 'api_key' THEN 0 WHEN 'user_id' THEN 1 ELSE 2 END
		LIMIT 1
	`
	entry, err := scanAllowlistEntry(s.db.QueryRowContext(ctx, query, identity.APIKeyID, identity.UserID, identity.IP))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("match allowlist: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.AllowlistEntry, error) {
	query := `
		SELECT id, entry_type, identifier, reason, expires_at, created_at, created_by
		FROM gate_allowlist
		WHERE expires_at IS NULL OR expires_at > NOW()
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list allowlist entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AllowlistEntry
	for rows.Next() {
		entry, err := scanAllowlistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allowlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowlist entries: %w", err)
	}
	return entries, nil
}

// StartCleanup runs periodic cleanup of expired entries until ctx is cancelled.
func (s *PostgresStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.db.ExecContext(ctx,
				`DELETE FROM gate_allowlist WHERE expires_at IS NOT NULL AND expires_at <= NOW()`); err != nil {
				return fmt.Errorf("cleanup allowlist entries: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAllowlistEntry(row scanner) (*models.AllowlistEntry, error) {
	var (
		entry     models.AllowlistEntry
		entryType string
		expiresAt sql.NullTime
	)
	if err := row.Scan(&entry.ID, &entryType, &entry.Identifier, &entry.Reason, &expiresAt, &entry.CreatedAt, &entry.CreatedBy); err != nil {
		return nil, err
	}
	entry.Type = models.AllowlistEntryType(entryType)
	if expiresAt.Valid {
		t := expiresAt.Time
		entry.ExpiresAt = &t
	}
	return &entry, nil
}
