package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kaizen/internal/kaizen"
)

// CreateAction inserts the action with its assignees.
func (s *Store) CreateAction(ctx context.Context, a kaizen.Action) (kaizen.Action, error) {
	if a.ID == "" {
		a.ID = kaizen.NewID()
	}
	if a.Status == "" {
		a.Status = kaizen.ActionTodo
	}
	a.CreatedAt = s.now().UTC()
	if a.Assignees == nil {
		a.Assignees = []string{}
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO actions (id, project_id, title, description, due_date, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.ProjectID, a.Title, a.Description, formatOptTime(a.DueDate), string(a.Status), formatTime(a.CreatedAt)); err != nil {
			return err
		}
		for _, uid := range a.Assignees {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO action_assignees (action_id, user_id) VALUES (?, ?)`, a.ID, uid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("create action failed", zap.String("project", a.ProjectID), zap.Error(err))
		return kaizen.Action{}, fmt.Errorf("failed to create action: %w", err)
	}
	return a, nil
}

func (s *Store) Action(ctx context.Context, id string) (kaizen.Action, error) {
	actions, err := s.queryActions(ctx, `WHERE a.id = ?`, id)
	if err != nil {
		return kaizen.Action{}, err
	}
	if len(actions) == 0 {
		return kaizen.Action{}, ErrNotFound
	}
	return actions[0], nil
}

// ListActions returns a project's actions ordered by due date, undated last.
// An empty projectID lists every action.
func (s *Store) ListActions(ctx context.Context, projectID string) ([]kaizen.Action, error) {
	if projectID == "" {
		return s.queryActions(ctx, "")
	}
	return s.queryActions(ctx, `WHERE a.project_id = ?`, projectID)
}

func (s *Store) SetActionStatus(ctx context.Context, id string, status kaizen.ActionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid action status %q", status)
	}
	if err := mustAffect(s.db.ExecContext(ctx, `UPDATE actions SET status = ? WHERE id = ?`, string(status), id)); err != nil {
		return fmt.Errorf("failed to update action: %w", err)
	}
	return nil
}

func (s *Store) queryActions(ctx context.Context, where string, args ...any) ([]kaizen.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.project_id, a.title, a.description, a.due_date, a.status, a.created_at,
			COALESCE((SELECT GROUP_CONCAT(user_id, ',') FROM action_assignees WHERE action_id = a.id), '')
		FROM actions a `+where+`
		ORDER BY a.due_date IS NULL, a.due_date, a.created_at, a.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var out []kaizen.Action
	for rows.Next() {
		var a kaizen.Action
		var due sql.NullString
		var status, created, assignees string
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Title, &a.Description, &due, &status, &created, &assignees); err != nil {
			return nil, err
		}
		a.DueDate = parseOptTime(due)
		a.Status = kaizen.ActionStatus(status)
		a.CreatedAt = parseTime(created)
		a.Assignees = []string{}
		if assignees != "" {
			a.Assignees = strings.Split(assignees, ",")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
