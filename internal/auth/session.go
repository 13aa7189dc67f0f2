package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kaizen/internal/kaizen"
)

// ErrNoSession means nobody is logged in on this machine.
var ErrNoSession = errors.New("not logged in (run `kaizen login`)")

// SaveSession stores the token for later CLI invocations.
func SaveSession(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func LoadSession(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

type ctxKey int

const userKey ctxKey = iota

// WithUser attaches the authenticated profile to ctx.
func WithUser(ctx context.Context, p kaizen.Profile) context.Context {
	return context.WithValue(ctx, userKey, p)
}

func UserFrom(ctx context.Context) (kaizen.Profile, bool) {
	p, ok := ctx.Value(userKey).(kaizen.Profile)
	return p, ok
}
