// Package api exposes the kaizen store over a small JSON HTTP surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"kaizen/internal/auth"
	"kaizen/internal/kaizen"
	"kaizen/internal/objectstore"
	"kaizen/internal/store"
)

const maxBody = 10 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type Server struct {
	store   *store.Store
	auth    auth.Service
	objects *objectstore.Store
	logger  *zap.Logger
	origins []string
	signTTL time.Duration
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

func WithSignedURLTTL(d time.Duration) Option {
	return func(s *Server) { s.signTTL = d }
}

func New(st *store.Store, svc auth.Service, objects *objectstore.Store, opts ...Option) *Server {
	s := &Server{
		store:   st,
		auth:    svc,
		objects: objects,
		logger:  zap.NewNop(),
		origins: []string{"*"},
		signTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", s.signUp)
	mux.HandleFunc("POST /auth/signin", s.signIn)

	mux.Handle("GET /me", s.authed(s.me))
	mux.Handle("GET /projects", s.authed(s.listProjects))
	mux.Handle("POST /projects", s.authed(s.createProject))
	mux.Handle("GET /projects/{id}", s.authed(s.getProject))
	mux.Handle("PATCH /projects/{id}", s.authed(s.updateProject))
	mux.Handle("DELETE /projects/{id}", s.authed(s.deleteProject))
	mux.Handle("GET /projects/{id}/members", s.authed(s.listMembers))
	mux.Handle("POST /projects/{id}/members", s.authed(s.addMember))
	mux.Handle("GET /projects/{id}/modules", s.authed(s.listModules))
	mux.Handle("POST /projects/{id}/modules", s.authed(s.createModule))
	mux.Handle("GET /modules/{id}/content", s.authed(s.getContent))
	mux.Handle("PUT /modules/{id}/content", s.authed(s.putContent))
	mux.Handle("GET /modules/{id}/summary", s.authed(s.summary))
	mux.Handle("GET /projects/{id}/actions", s.authed(s.listActions))
	mux.Handle("POST /projects/{id}/actions", s.authed(s.createAction))
	mux.Handle("GET /admin/stats", s.authed(s.stats))
	mux.Handle("POST /functions/create-user", s.authed(s.createUser))
	mux.Handle("POST /storage/{bucket}/{name}", s.authed(s.upload))
	mux.HandleFunc("GET /storage/{bucket}/{name}", s.download)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	})
	return c.Handler(mux)
}

type authedFunc func(w http.ResponseWriter, r *http.Request, user kaizen.Profile)

// authed checks the bearer token and passes the caller's profile on.
func (s *Server) authed(next authedFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.fail(w, r, auth.ErrInvalidToken)
			return
		}
		user, err := s.auth.Verify(r.Context(), token)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), user)), user)
	})
}

func (s *Server) projectAccess(ctx context.Context, user kaizen.Profile, projectID string) (kaizen.Project, error) {
	p, err := s.store.Project(ctx, projectID)
	if err != nil {
		return kaizen.Project{}, err
	}
	if user.IsAdmin() || p.OwnerID == user.ID {
		return p, nil
	}
	ok, err := s.store.IsMember(ctx, projectID, user.ID)
	if err != nil {
		return kaizen.Project{}, err
	}
	if !ok {
		return kaizen.Project{}, auth.ErrForbidden
	}
	return p, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid body: %v", err)
	}
	return nil
}

func (s *Server) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, objectstore.ErrBadName),
		errors.Is(err, objectstore.ErrUnknownBucket):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, objectstore.ErrBadSignature):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, objectstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
	}
	s.reply(w, status, errorBody{Error: msg})
}
