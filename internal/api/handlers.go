package api

import (
	"bytes"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"kaizen/internal/auth"
	"kaizen/internal/kaizen"
	"kaizen/internal/objectstore"
	"kaizen/internal/vsm"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, sess)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, sess)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	s.reply(w, http.StatusOK, user)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	scope := user.ID
	if user.IsAdmin() {
		scope = ""
	}
	projects, err := s.store.ListProjects(r.Context(), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if projects == nil {
		projects = []kaizen.Project{}
	}
	s.reply(w, http.StatusOK, projects)
}

type projectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	var req projectRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.fail(w, r, badRequest("title is required"))
		return
	}
	p, err := s.store.CreateProject(r.Context(), kaizen.Project{
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     user.ID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, p)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	p, err := s.projectAccess(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	var patch kaizen.ProjectPatch
	if err := decode(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		s.fail(w, r, badRequest("invalid status %q", *patch.Status))
		return
	}
	p, err := s.store.UpdateProject(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, p)
}

// deleteProject is limited to the owner and admins.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	p, err := s.projectAccess(r.Context(), user, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if p.OwnerID != user.ID && !user.IsAdmin() {
		s.fail(w, r, auth.ErrForbidden)
		return
	}
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	members, err := s.store.Members(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, members)
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	var m kaizen.Member
	if err := decode(r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	m.ProjectID = id
	if m.Role == "" {
		m.Role = kaizen.MemberMember
	}
	if m.Role != kaizen.MemberMember && m.Role != kaizen.MemberLeader {
		s.fail(w, r, badRequest("invalid member role %q", m.Role))
		return
	}
	if _, err := s.store.Profile(r.Context(), m.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.AddMember(r.Context(), m); err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, m)
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	modules, err := s.store.ListModules(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if modules == nil {
		modules = []kaizen.Module{}
	}
	s.reply(w, http.StatusOK, modules)
}

type moduleRequest struct {
	Type     kaizen.ModuleType `json:"type"`
	Quadrant kaizen.Quadrant   `json:"quadrant"`
	Title    string            `json:"title"`
	Position int               `json:"position"`
}

func (s *Server) createModule(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	var req moduleRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !req.Type.Valid() {
		s.fail(w, r, badRequest("invalid module type %q", req.Type))
		return
	}
	if !req.Quadrant.Valid() {
		s.fail(w, r, badRequest("invalid quadrant %q", req.Quadrant))
		return
	}
	m, err := s.store.CreateModule(r.Context(), kaizen.Module{
		ProjectID: id,
		Type:      req.Type,
		Quadrant:  req.Quadrant,
		Title:     req.Title,
		Position:  req.Position,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, m)
}

func (s *Server) moduleAccess(r *http.Request, user kaizen.Profile) (kaizen.Module, error) {
	m, err := s.store.Module(r.Context(), r.PathValue("id"))
	if err != nil {
		return kaizen.Module{}, err
	}
	if _, err := s.projectAccess(r.Context(), user, m.ProjectID); err != nil {
		return kaizen.Module{}, err
	}
	return m, nil
}

// getContent returns the stored JSON as-is, or null before the first save.
func (s *Server) getContent(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	m, err := s.moduleAccess(r, user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if len(m.Content) == 0 {
		w.Write([]byte("null\n"))
		return
	}
	w.Write(m.Content)
}

// putContent replaces the module content wholesale. Diagram and checklist
// content is validated before it is stored.
func (s *Server) putContent(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	m, err := s.moduleAccess(r, user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.fail(w, r, badRequest("failed to read body: %v", err))
		return
	}
	switch m.Type {
	case kaizen.ModuleVSM:
		if _, err := vsm.Decode(body); err != nil {
			s.fail(w, r, badRequest("%v", err))
			return
		}
	case kaizen.ModuleFiveS:
		if _, err := kaizen.DecodeChecklist(body); err != nil {
			s.fail(w, r, badRequest("%v", err))
			return
		}
	}
	if err := s.store.SaveContent(r.Context(), m.ID, body); err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// summary reports computed figures for module types that have them.
func (s *Server) summary(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	m, err := s.moduleAccess(r, user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	switch m.Type {
	case kaizen.ModuleVSM:
		d := vsm.NewEmpty()
		if len(m.Content) > 0 {
			if d, err = vsm.Decode(m.Content); err != nil {
				s.fail(w, r, err)
				return
			}
		}
		s.reply(w, http.StatusOK, vsm.ComputeMetrics(d))
	case kaizen.ModuleFiveS:
		c, err := kaizen.DecodeChecklist(m.Content)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.reply(w, http.StatusOK, c.Progress(time.Now()))
	default:
		s.fail(w, r, badRequest("module type %q has no summary", m.Type))
	}
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	actions, err := s.store.ListActions(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if actions == nil {
		actions = []kaizen.Action{}
	}
	s.reply(w, http.StatusOK, actions)
}

type actionRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	DueDate     *time.Time          `json:"dueDate,omitempty"`
	Status      kaizen.ActionStatus `json:"status,omitempty"`
	Assignees   []string            `json:"assignees,omitempty"`
}

func (s *Server) createAction(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	id := r.PathValue("id")
	if _, err := s.projectAccess(r.Context(), user, id); err != nil {
		s.fail(w, r, err)
		return
	}
	var req actionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.fail(w, r, badRequest("title is required"))
		return
	}
	if req.Status == "" {
		req.Status = kaizen.ActionTodo
	}
	if !req.Status.Valid() {
		s.fail(w, r, badRequest("invalid status %q", req.Status))
		return
	}
	a, err := s.store.CreateAction(r.Context(), kaizen.Action{
		ProjectID:   id,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Assignees:   req.Assignees,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, a)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	if !user.IsAdmin() {
		s.fail(w, r, auth.ErrForbidden)
		return
	}
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusOK, st)
}

type createUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"fullName,omitempty"`
	Role     kaizen.Role `json:"role,omitempty"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.auth.CreateUser(r.Context(), user, req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.reply(w, http.StatusCreated, p)
}

type uploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// upload stores an image. Photos are normalised to JPEG; an avatar named
// after the caller also becomes their profile picture.
func (s *Server) upload(w http.ResponseWriter, r *http.Request, user kaizen.Profile) {
	bucket, name := r.PathValue("bucket"), r.PathValue("name")
	data, err := objectstore.NormalizePhoto(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.fail(w, r, badRequest("%v", err))
		return
	}
	if bucket == objectstore.Avatars {
		name = user.ID + ".jpg"
	}
	key, err := s.objects.Put(bucket, name, bytes.NewReader(data))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var url string
	if objectstore.IsPublic(bucket) {
		url, err = s.objects.PublicURL(bucket, name)
	} else {
		if err = s.store.SetAvatar(r.Context(), user.ID, key); err == nil {
			url, err = s.objects.SignedURL(bucket, name, s.signTTL)
		}
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("object uploaded", zap.String("user", user.ID), zap.String("key", key))
	s.reply(w, http.StatusCreated, uploadResponse{Path: key, URL: url})
}

// download serves public buckets openly and private ones against a signed token.
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	bucket, name := r.PathValue("bucket"), r.PathValue("name")
	if !objectstore.IsPublic(bucket) {
		if err := s.objects.VerifyToken(bucket, name, r.URL.Query().Get("token")); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	f, err := s.objects.Open(bucket, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if path.Ext(name) == ".jpg" {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}
