package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"kaizen/internal/kaizen"
)

const moduleColumns = `id, project_id, type, quadrant, title, position, content, updated_at`

// CreateModule places a module on the project grid and advances the
// project's step.
func (s *Store) CreateModule(ctx context.Context, m kaizen.Module) (kaizen.Module, error) {
	if m.ID == "" {
		m.ID = kaizen.NewID()
	}
	m.UpdatedAt = s.now().UTC()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO a3_modules (`+moduleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ProjectID, string(m.Type), string(m.Quadrant), m.Title, m.Position,
			nullContent(m.Content), formatTime(m.UpdatedAt)); err != nil {
			return err
		}
		_, err := refreshStep(ctx, tx, m.ProjectID)
		return err
	})
	if err != nil {
		s.logger.Error("create module failed", zap.String("project", m.ProjectID), zap.Error(err))
		return kaizen.Module{}, fmt.Errorf("failed to create module: %w", err)
	}
	return m, nil
}

func (s *Store) Module(ctx context.Context, id string) (kaizen.Module, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM a3_modules WHERE id = ?`, id)
	m, err := scanModule(row)
	if err != nil {
		return kaizen.Module{}, notFound(err)
	}
	return m, nil
}

// ListModules returns a project's modules by quadrant and position. An empty
// projectID lists every module.
func (s *Store) ListModules(ctx context.Context, projectID string) ([]kaizen.Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM a3_modules`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY quadrant, position, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var out []kaizen.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveContent replaces a module's content document. Every diagram autosave
// ends here.
func (s *Store) SaveContent(ctx context.Context, moduleID string, content []byte) error {
	if len(content) > 0 && !json.Valid(content) {
		return fmt.Errorf("failed to save module content: invalid json")
	}
	err := mustAffect(s.db.ExecContext(ctx,
		`UPDATE a3_modules SET content = ?, updated_at = ? WHERE id = ?`,
		nullContent(content), formatTime(s.now()), moduleID))
	if err != nil {
		s.logger.Error("save module content failed", zap.String("module", moduleID), zap.Error(err))
		return fmt.Errorf("failed to save module content: %w", err)
	}
	return nil
}

func (s *Store) DeleteModule(ctx context.Context, id string) error {
	m, err := s.Module(ctx, id)
	if err != nil {
		return err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := mustAffect(tx.ExecContext(ctx, `DELETE FROM a3_modules WHERE id = ?`, id)); err != nil {
			return err
		}
		_, err := refreshStep(ctx, tx, m.ProjectID)
		return err
	})
	if err != nil {
		s.logger.Error("delete module failed", zap.String("module", id), zap.Error(err))
		return fmt.Errorf("failed to delete module: %w", err)
	}
	return nil
}

// SaveFiveWhy creates or replaces the analysis of a five_why module.
func (s *Store) SaveFiveWhy(ctx context.Context, fw kaizen.FiveWhy) (kaizen.FiveWhy, error) {
	if fw.ID == "" {
		fw.ID = kaizen.NewID()
	}
	whys, err := json.Marshal(fw.Whys)
	if err != nil {
		return kaizen.FiveWhy{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO five_why_analyses (id, module_id, problem, whys, root_cause) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (module_id) DO UPDATE SET
			problem = excluded.problem, whys = excluded.whys, root_cause = excluded.root_cause
		RETURNING id`,
		fw.ID, fw.ModuleID, fw.Problem, string(whys), fw.RootCause)
	if err := row.Scan(&fw.ID); err != nil {
		s.logger.Error("save 5-why failed", zap.String("module", fw.ModuleID), zap.Error(err))
		return kaizen.FiveWhy{}, fmt.Errorf("failed to save 5-why: %w", err)
	}
	return fw, nil
}

func (s *Store) FiveWhy(ctx context.Context, moduleID string) (kaizen.FiveWhy, error) {
	var fw kaizen.FiveWhy
	var whys string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, module_id, problem, whys, root_cause FROM five_why_analyses WHERE module_id = ?`, moduleID).
		Scan(&fw.ID, &fw.ModuleID, &fw.Problem, &whys, &fw.RootCause)
	if err != nil {
		return kaizen.FiveWhy{}, notFound(err)
	}
	if err := json.Unmarshal([]byte(whys), &fw.Whys); err != nil {
		return kaizen.FiveWhy{}, fmt.Errorf("failed to decode whys: %w", err)
	}
	return fw, nil
}

func nullContent(content []byte) sql.NullString {
	if len(content) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(content), Valid: true}
}

func scanModule(r scanner) (kaizen.Module, error) {
	var m kaizen.Module
	var typ, quadrant, updated string
	var content sql.NullString
	if err := r.Scan(&m.ID, &m.ProjectID, &typ, &quadrant, &m.Title, &m.Position, &content, &updated); err != nil {
		return kaizen.Module{}, err
	}
	m.Type = kaizen.ModuleType(typ)
	m.Quadrant = kaizen.Quadrant(quadrant)
	if content.Valid {
		m.Content = json.RawMessage(content.String)
	}
	m.UpdatedAt = parseTime(updated)
	return m, nil
}
