package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// EnsureAdmin seeds the reviewer account on first boot. A no-op once any
// admin exists.
func (s *PostgresStore) EnsureAdmin(ctx context.Context, user User) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE role='admin')`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return nil
	}
	return s.CreateUser(ctx, user)
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

func (s *PostgresStore) GetApplicationByUser(ctx context.Context, userID string) (Application, error) {
	const query = `
		SELECT id, user_id, profile, status, submitted_at, decided_by, decided_at, updated_at
		FROM applications
		WHERE user_id = $1
	`
	return scanApplication(s.db.QueryRowContext(ctx, query, userID))
}

func (s *PostgresStore) GetApplication(ctx context.Context, id string) (Application, error) {
	const query = `
		SELECT id, user_id, profile, status, submitted_at, decided_by, decided_at, updated_at
		FROM applications
		WHERE id = $1
	`
	return scanApplication(s.db.QueryRowContext(ctx, query, id))
}

// SaveDraft upserts the candidate's draft profile. Returns false when the
// application is no longer a draft (already submitted or decided).
func (s *PostgresStore) SaveDraft(ctx context.Context, id, userID string, profile Profile) (bool, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return false, fmt.Errorf("marshal profile: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, user_id, profile, status)
		VALUES ($1, $2, $3, 'draft')
		ON CONFLICT (user_id) DO UPDATE
			SET profile = EXCLUDED.profile, updated_at = NOW()
			WHERE applications.status = 'draft'
	`, id, userID, payload)
	if err != nil {
		return false, fmt.Errorf("save draft: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save draft rows: %w", err)
	}
	return affected > 0, nil
}

// SubmitApplication freezes the draft: it stores the confirmed profile and
// moves status draft -> pending in one guarded update. Returns false when the
// row was not a draft anymore.
func (s *PostgresStore) SubmitApplication(ctx context.Context, userID string, profile Profile, submittedAt time.Time) (Application, bool, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return Application{}, false, fmt.Errorf("marshal profile: %w", err)
	}

	const query = `
		UPDATE applications
		SET profile = $2, status = 'pending', submitted_at = $3, updated_at = NOW()
		WHERE user_id = $1 AND status = 'draft'
		RETURNING id, user_id, profile, status, submitted_at, decided_by, decided_at, updated_at
	`
	app, err := scanApplication(s.db.QueryRowContext(ctx, query, userID, payload, submittedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, false, nil
	}
	if err != nil {
		return Application{}, false, err
	}
	return app, true, nil
}

// ListSubmissions returns every submitted application, oldest first so the
// admin triage order is deterministic.
func (s *PostgresStore) ListSubmissions(ctx context.Context) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, profile, status, submitted_at, decided_by, decided_at, updated_at
		FROM applications
		WHERE status <> 'draft'
		ORDER BY submitted_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := make([]Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, app)
	}
	return items, rows.Err()
}

// DecideSubmission applies an admin decision. The guard restricts the update
// to pending rows, so a decision raced by another reviewer (or a retried
// request) affects zero rows and the caller re-reads the record.
func (s *PostgresStore) DecideSubmission(ctx context.Context, id, status, decidedBy string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, decided_by = $3, decided_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status, decidedBy)
	if err != nil {
		return false, fmt.Errorf("decide submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide submission rows: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (Application, error) {
	var (
		app     Application
		payload []byte
	)
	err := row.Scan(&app.ID, &app.UserID, &payload, &app.Status, &app.SubmittedAt, &app.DecidedBy, &app.DecidedAt, &app.UpdatedAt)
	if err != nil {
		return Application{}, err
	}
	if err := json.Unmarshal(payload, &app.Profile); err != nil {
		return Application{}, fmt.Errorf("decode profile: %w", err)
	}
	return app, nil
}
