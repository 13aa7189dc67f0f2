package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kaizen/internal/kaizen"
)

// CreateUser inserts the credential row and the profile together. A taken
// email returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, p kaizen.Profile, passwordHash string) (kaizen.Profile, error) {
	return s.insertUser(ctx, p, passwordHash, false)
}

// RegisterUser is CreateUser for self sign-up: the first profile ever
// inserted gets the admin role. The role is decided by the insert itself, so
// concurrent sign-ups on an empty database produce exactly one admin.
func (s *Store) RegisterUser(ctx context.Context, p kaizen.Profile, passwordHash string) (kaizen.Profile, error) {
	return s.insertUser(ctx, p, passwordHash, true)
}

func (s *Store) insertUser(ctx context.Context, p kaizen.Profile, passwordHash string, firstIsAdmin bool) (kaizen.Profile, error) {
	if p.ID == "" {
		p.ID = kaizen.NewID()
	}
	if p.Role == "" {
		p.Role = kaizen.RoleUser
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.CreatedAt = s.now().UTC()
	created := formatTime(p.CreatedAt)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			p.ID, p.Email, passwordHash, created); err != nil {
			return conflict(err)
		}
		if !firstIsAdmin {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO profiles (id, email, full_name, role, avatar_path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				p.ID, p.Email, p.FullName, string(p.Role), p.AvatarPath, created)
			return err
		}
		var role string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO profiles (id, email, full_name, role, avatar_path, created_at)
			SELECT ?, ?, ?, CASE WHEN EXISTS (SELECT 1 FROM profiles) THEN ? ELSE ? END, ?, ?
			RETURNING role`,
			p.ID, p.Email, p.FullName, string(p.Role), string(kaizen.RoleAdmin), p.AvatarPath, created).Scan(&role)
		p.Role = kaizen.Role(role)
		return err
	})
	if err != nil {
		s.logger.Error("create user failed", zap.String("email", p.Email), zap.Error(err))
		return kaizen.Profile{}, fmt.Errorf("failed to create user: %w", err)
	}
	return p, nil
}

// Credentials returns the profile and password hash for an email.
func (s *Store) Credentials(ctx context.Context, email string) (kaizen.Profile, string, error) {
	var hash string
	row := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.email, p.full_name, p.role, p.avatar_path, p.created_at, u.password_hash
		FROM users u JOIN profiles p ON p.id = u.id
		WHERE u.email = ?`, strings.ToLower(strings.TrimSpace(email)))
	p, err := scanProfile(row, &hash)
	if err != nil {
		return kaizen.Profile{}, "", notFound(err)
	}
	return p, hash, nil
}

func (s *Store) Profile(ctx context.Context, id string) (kaizen.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, role, avatar_path, created_at FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err != nil {
		return kaizen.Profile{}, notFound(err)
	}
	return p, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]kaizen.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, full_name, role, avatar_path, created_at FROM profiles ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []kaizen.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (s *Store) SetAvatar(ctx context.Context, userID, path string) error {
	err := mustAffect(s.db.ExecContext(ctx, `UPDATE profiles SET avatar_path = ? WHERE id = ?`, path, userID))
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(r scanner, extra ...any) (kaizen.Profile, error) {
	var p kaizen.Profile
	var role, created string
	dest := append([]any{&p.ID, &p.Email, &p.FullName, &role, &p.AvatarPath, &created}, extra...)
	if err := r.Scan(dest...); err != nil {
		return kaizen.Profile{}, err
	}
	p.Role = kaizen.Role(role)
	p.CreatedAt = parseTime(created)
	return p, nil
}
