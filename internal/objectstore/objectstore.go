// Package objectstore keeps uploaded files in named buckets under a local
// directory and hands out URLs for them.
package objectstore

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	Avatars  = "avatars"
	FivesPic = "5s-photos"
)

var (
	ErrUnknownBucket = errors.New("objectstore: unknown bucket")
	ErrBadName       = errors.New("objectstore: invalid object name")
	ErrNotFound      = errors.New("objectstore: object not found")
	ErrBadSignature  = errors.New("objectstore: invalid or expired signature")
)

// public buckets are served without a token.
var buckets = map[string]bool{
	Avatars:  false,
	FivesPic: true,
}

func IsPublic(bucket string) bool { return buckets[bucket] }

type Store struct {
	root    string
	baseURL string
	secret  []byte
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates the bucket directories under root.
func New(root, baseURL string, secret []byte, opts ...Option) (*Store, error) {
	s := &Store{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for b := range buckets {
		if err := os.MkdirAll(filepath.Join(root, b), 0755); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", b, err)
		}
	}
	return s, nil
}

func (s *Store) path(bucket, name string) (string, error) {
	if _, ok := buckets[bucket]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return filepath.Join(s.root, bucket, name), nil
}

// Put writes r to bucket/name, replacing any existing object.
func (s *Store) Put(bucket, name string, r io.Reader) (string, error) {
	p, err := s.path(bucket, name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		s.logger.Error("object write failed", zap.String("bucket", bucket), zap.String("name", name), zap.Error(err))
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}
	s.logger.Debug("object stored", zap.String("bucket", bucket), zap.String("name", name))
	return bucket + "/" + name, nil
}

func (s *Store) Open(bucket, name string) (*os.File, error) {
	p, err := s.path(bucket, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

func (s *Store) Delete(bucket, name string) error {
	p, err := s.path(bucket, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *Store) PublicURL(bucket, name string) (string, error) {
	if _, err := s.path(bucket, name); err != nil {
		return "", err
	}
	return s.baseURL + "/" + bucket + "/" + url.PathEscape(name), nil
}

type objectClaims struct {
	jwt.RegisteredClaims
	Bucket string `json:"bkt"`
}

// SignedURL returns a download URL carrying a token valid for ttl.
func (s *Store) SignedURL(bucket, name string, ttl time.Duration) (string, error) {
	base, err := s.PublicURL(bucket, name)
	if err != nil {
		return "", err
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, objectClaims{
		Bucket: bucket,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign url: %w", err)
	}
	return base + "?token=" + url.QueryEscape(signed), nil
}

// VerifyToken checks that token grants access to bucket/name.
func (s *Store) VerifyToken(bucket, name, token string) error {
	claims := &objectClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return ErrBadSignature
	}
	if claims.Bucket != bucket || claims.Subject != name {
		return ErrBadSignature
	}
	return nil
}
