package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"kaizen/internal/kaizen"
)

const projectColumns = `id, title, description, owner_id, status, step, created_at`

// CreateProject inserts the project and makes its owner the leader.
func (s *Store) CreateProject(ctx context.Context, p kaizen.Project) (kaizen.Project, error) {
	if p.ID == "" {
		p.ID = kaizen.NewID()
	}
	if p.Status == "" {
		p.Status = kaizen.StatusActive
	}
	p.Step = kaizen.StepPlan
	p.CreatedAt = s.now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Description, p.OwnerID, string(p.Status), string(p.Step), formatTime(p.CreatedAt)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
			p.ID, p.OwnerID, string(kaizen.MemberLeader))
		return err
	})
	if err != nil {
		s.logger.Error("create project failed", zap.String("title", p.Title), zap.Error(err))
		return kaizen.Project{}, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (s *Store) Project(ctx context.Context, id string) (kaizen.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return kaizen.Project{}, notFound(err)
	}
	return p, nil
}

// ListProjects returns the projects userID belongs to, newest first. An
// empty userID lists every project.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]kaizen.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC, id DESC`
	args := []any{}
	if userID != "" {
		query = `SELECT ` + projectColumns + ` FROM projects
			WHERE owner_id = ? OR id IN (SELECT project_id FROM project_members WHERE user_id = ?)
			ORDER BY created_at DESC, id DESC`
		args = append(args, userID, userID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []kaizen.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch kaizen.ProjectPatch) (kaizen.Project, error) {
	p, err := s.Project(ctx, id)
	if err != nil {
		return kaizen.Project{}, err
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, status = ? WHERE id = ?`,
		p.Title, p.Description, string(p.Status), id); err != nil {
		return kaizen.Project{}, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// DeleteProject removes the project; members, modules and actions cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if err := mustAffect(s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// RefreshStep recomputes the project's PDCA step from its modules.
func (s *Store) RefreshStep(ctx context.Context, projectID string) (kaizen.Step, error) {
	var step kaizen.Step
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		step, err = refreshStep(ctx, tx, projectID)
		return err
	})
	return step, err
}

// refreshStep runs inside the transaction that changed the project's modules.
func refreshStep(ctx context.Context, tx *sql.Tx, projectID string) (kaizen.Step, error) {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT quadrant FROM a3_modules WHERE project_id = ?`, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to read quadrants: %w", err)
	}
	defer rows.Close()

	var modules []kaizen.Module
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return "", err
		}
		modules = append(modules, kaizen.Module{Quadrant: kaizen.Quadrant(q)})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	step := kaizen.InferStep(kaizen.PopulatedQuadrants(modules))
	if err := mustAffect(tx.ExecContext(ctx, `UPDATE projects SET step = ? WHERE id = ?`, string(step), projectID)); err != nil {
		return "", fmt.Errorf("failed to update step: %w", err)
	}
	return step, nil
}

// AddMember adds or re-roles a project member.
func (s *Store) AddMember(ctx context.Context, m kaizen.Member) error {
	if m.Role == "" {
		m.Role = kaizen.MemberMember
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = excluded.role`,
		m.ProjectID, m.UserID, string(m.Role))
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (s *Store) Members(ctx context.Context, projectID string) ([]kaizen.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, user_id, role FROM project_members WHERE project_id = ? ORDER BY role, user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []kaizen.Member
	for rows.Next() {
		var m kaizen.Member
		var role string
		if err := rows.Scan(&m.ProjectID, &m.UserID, &role); err != nil {
			return nil, err
		}
		m.Role = kaizen.MemberRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// IsMember reports whether userID owns or belongs to the project.
func (s *Store) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM projects p
		WHERE p.id = ? AND (p.owner_id = ? OR EXISTS (
			SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.user_id = ?))`,
		projectID, userID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return n > 0, nil
}

func scanProject(r scanner) (kaizen.Project, error) {
	var p kaizen.Project
	var status, step, created string
	if err := r.Scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &status, &step, &created); err != nil {
		return kaizen.Project{}, err
	}
	p.Status = kaizen.ProjectStatus(status)
	p.Step = kaizen.Step(step)
	p.CreatedAt = parseTime(created)
	return p, nil
}
