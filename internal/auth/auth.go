// Package auth signs users up and in against the local store and issues the
// bearer tokens every other surface checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"kaizen/internal/kaizen"
	"kaizen/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrForbidden          = errors.New("auth: forbidden")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
	ErrInvalidInput       = errors.New("auth: invalid input")
)

const minPasswordLen = 8

// Session is what a successful sign-in hands back.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      kaizen.Profile `json:"user"`
}

type Service interface {
	SignUp(ctx context.Context, email, password, fullName string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	Verify(ctx context.Context, token string) (kaizen.Profile, error)
	// CreateUser provisions an account on behalf of an admin.
	CreateUser(ctx context.Context, caller kaizen.Profile, email, password, fullName string, role kaizen.Role) (kaizen.Profile, error)
}

// UserStore is the part of the store auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, p kaizen.Profile, passwordHash string) (kaizen.Profile, error)
	// RegisterUser inserts like CreateUser but makes the first account an admin.
	RegisterUser(ctx context.Context, p kaizen.Profile, passwordHash string) (kaizen.Profile, error)
	Credentials(ctx context.Context, email string) (kaizen.Profile, string, error)
	Profile(ctx context.Context, id string) (kaizen.Profile, error)
}

type Local struct {
	users  UserStore
	tokens *Tokens
	logger *zap.Logger
	cost   int
}

type Option func(*Local)

func WithLogger(l *zap.Logger) Option {
	return func(s *Local) { s.logger = l }
}

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Local) { s.cost = cost }
}

func NewLocal(users UserStore, tokens *Tokens, opts ...Option) *Local {
	s := &Local{users: users, tokens: tokens, logger: zap.NewNop(), cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp registers a user. The very first account becomes an admin.
func (s *Local) SignUp(ctx context.Context, email, password, fullName string) (Session, error) {
	p, err := s.create(ctx, email, password, fullName, kaizen.RoleUser, s.users.RegisterUser)
	if err != nil {
		return Session{}, err
	}
	return s.session(p)
}

func (s *Local) SignIn(ctx context.Context, email, password string) (Session, error) {
	p, hash, err := s.users.Credentials(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.logger.Info("sign in rejected", zap.String("email", p.Email))
		return Session{}, ErrInvalidCredentials
	}
	return s.session(p)
}

// Verify checks the token and loads the current profile, so role changes
// and deletions apply to live tokens.
func (s *Local) Verify(ctx context.Context, token string) (kaizen.Profile, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return kaizen.Profile{}, err
	}
	p, err := s.users.Profile(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return kaizen.Profile{}, ErrInvalidToken
	}
	return p, err
}

func (s *Local) CreateUser(ctx context.Context, caller kaizen.Profile, email, password, fullName string, role kaizen.Role) (kaizen.Profile, error) {
	if !caller.IsAdmin() {
		return kaizen.Profile{}, ErrForbidden
	}
	if role == "" {
		role = kaizen.RoleUser
	}
	if role != kaizen.RoleUser && role != kaizen.RoleAdmin {
		return kaizen.Profile{}, fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}
	p, err := s.create(ctx, email, password, fullName, role, s.users.CreateUser)
	if err != nil {
		return kaizen.Profile{}, err
	}
	s.logger.Info("user created", zap.String("by", caller.ID), zap.String("user", p.ID), zap.String("role", string(role)))
	return p, nil
}

type insertFunc func(ctx context.Context, p kaizen.Profile, passwordHash string) (kaizen.Profile, error)

func (s *Local) create(ctx context.Context, email, password, fullName string, role kaizen.Role, insert insertFunc) (kaizen.Profile, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return kaizen.Profile{}, fmt.Errorf("%w: email %q", ErrInvalidInput, email)
	}
	if len(password) < minPasswordLen {
		return kaizen.Profile{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return kaizen.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return insert(ctx, kaizen.Profile{Email: email, FullName: fullName, Role: role}, string(hash))
}

func (s *Local) session(p kaizen.Profile) (Session, error) {
	token, expires, err := s.tokens.Issue(p)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expires, User: p}, nil
}
