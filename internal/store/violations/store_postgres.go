package violations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"turnstile/internal/models"
)

// PostgresStore persists violations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed violation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, v *models.Violation) error {
	if v == nil {
		return fmt.Errorf("violation is required")
	}

	var contextJSON []byte
	if v.Context != nil {
		var err error
		contextJSON, err = json.Marshal(v.Context)
		if err != nil {
			return fmt.Errorf("marshal violation context: %w", err)
		}
	}

	query := `
		INSERT INTO payment_violations (id, violation_type, severity, identity, ip, message, context, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID,
		string(v.Type),
		string(v.Severity),
		v.Identity,
		nullable(v.IP),
		v.Message,
		contextJSON,
		v.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Violation, error) {
	query := `
		SELECT id, violation_type, severity, identity, ip, message, context, occurred_at
		FROM payment_violations
		WHERE id = $1
	`
	v, err := scanViolation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get violation: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityKey string, limit, offset int) ([]*models.Violation, error) {
	query := `
		SELECT id, violation_type, severity, identity, ip, message, context, occurred_at
		FROM payment_violations
		WHERE identity = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, identityKey, limit, offset)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit, offset int) ([]*models.Violation, error) {
	query := `
		SELECT id, violation_type, severity, identity, ip, message, context, occurred_at
		FROM payment_violations
		ORDER BY occurred_at DESC
		LIMIT $1 OFFSET $2
	`
	return s.list(ctx, query, limit, offset)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Violation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var violations []*models.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return violations, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanViolation(row scanner) (*models.Violation, error) {
	var (
		v           models.Violation
		vtype       string
		severity    string
		ip          sql.NullString
		contextJSON []byte
	)
	if err := row.Scan(&v.ID, &vtype, &severity, &v.Identity, &ip, &v.Message, &contextJSON, &v.OccurredAt); err != nil {
		return nil, err
	}

	v.Type = models.ViolationType(vtype)
	v.Severity = models.Severity(severity)
	if ip.Valid {
		v.IP = ip.String
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &v.Context); err != nil {
			return nil, fmt.Errorf("unmarshal violation context: %w", err)
		}
	}
	return &v, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
