package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kaizen/internal/auth"
	"kaizen/internal/vsm"
)

type cli struct {
	t      *testing.T
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, env := range []string{"KAIZEN_DB", "KAIZEN_JWT_SECRET", "KAIZEN_STORAGE_DIR", "KAIZEN_ADDR"} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()
	cfg := strings.Join([]string{
		"database:",
		"  path: " + filepath.Join(dir, "kaizen.db"),
		"auth:",
		"  jwt_secret: cli-test-secret-0123456789",
		"  session_file: " + filepath.Join(dir, "session"),
		"storage:",
		"  dir: " + filepath.Join(dir, "storage"),
		"logging:",
		"  level: error",
		"",
	}, "\n")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0600))
	return &cli{t: t, dir: dir, config: path}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	a := &app{}
	root := a.rootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", c.config}, args...))
	err := root.ExecuteContext(context.Background())
	a.close()
	return buf.String(), err
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "kaizen %s", strings.Join(args, " "))
	return out
}

// lastWord pulls the id out of "Created ... <id>".
func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func TestProjectWorkflow(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.ok("signup", "-e", "ann@example.com", "-p", "secret123", "-n", "Ann"), "(admin)")

	projectID := lastWord(c.ok("project", "create", "Reduce", "scrap", "-d", "Scrap on line 2 is 6%"))
	require.NotEmpty(t, projectID)

	moduleID := lastWord(c.ok("module", "add", projectID, "--type", "vsm", "--quadrant", "do", "--title", "Current state"))
	require.NotEmpty(t, moduleID)

	list := c.ok("project", "list")
	assert.Contains(t, list, "Reduce scrap")
	assert.Contains(t, list, "DO")

	show := c.ok("project", "show", projectID)
	assert.Contains(t, show, "Scrap on line 2 is 6%")
	assert.Contains(t, show, "Current state")

	_, err := c.run("module", "add", projectID, "--type", "kanban")
	assert.Error(t, err)

	_, err = c.run("project", "status", projectID, "paused")
	assert.Error(t, err)
	assert.Contains(t, c.ok("project", "status", projectID, "completed"), "completed")
}

func TestDiagramBackupAndExport(t *testing.T) {
	c := newCLI(t)
	c.ok("signup", "-e", "ann@example.com", "-p", "secret123")
	projectID := lastWord(c.ok("project", "create", "Flow"))
	moduleID := lastWord(c.ok("module", "add", projectID, "--title", "Line 2"))

	doc, err := vsm.Decode([]byte(c.ok("vsm", "export", moduleID)))
	require.NoError(t, err)
	assert.Empty(t, doc.Elements)
	assert.Equal(t, "Line 2", doc.Settings.Title)

	example := vsm.NewExample()
	data, err := vsm.Encode(example)
	require.NoError(t, err)
	backup := filepath.Join(c.dir, "backup.json")
	require.NoError(t, os.WriteFile(backup, data, 0644))
	assert.Contains(t, c.ok("vsm", "import", moduleID, backup), "Imported")

	doc, err = vsm.Decode([]byte(c.ok("vsm", "export", moduleID)))
	require.NoError(t, err)
	assert.Len(t, doc.Elements, len(example.Elements))

	assert.Contains(t, c.ok("module", "summary", moduleID), "Lead")

	svgPath := filepath.Join(c.dir, "map.svg")
	c.ok("vsm", "svg", moduleID, svgPath)
	svg, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	pngPath := filepath.Join(c.dir, "map.png")
	c.ok("vsm", "png", moduleID, pngPath)
	_, err = os.Stat(pngPath)
	assert.NoError(t, err)

	bad := filepath.Join(c.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0644))
	_, err = c.run("vsm", "import", moduleID, bad)
	assert.ErrorIs(t, err, vsm.ErrInvalidDocument)

	fiveWhy := lastWord(c.ok("module", "add", projectID, "--type", "five_why"))
	_, err = c.run("vsm", "export", fiveWhy)
	assert.Error(t, err, "not a diagram module")
}

func TestActionsAndFiveWhy(t *testing.T) {
	c := newCLI(t)
	c.ok("signup", "-e", "ann@example.com", "-p", "secret123", "-n", "Ann")
	projectID := lastWord(c.ok("project", "create", "Scrap"))

	actionID := lastWord(c.ok("action", "add", projectID, "Fix", "the", "die", "--due", "2020-01-01"))
	c.ok("action", "add", projectID, "Train operators")
	_, err := c.run("action", "add", projectID, "Later", "--due", "soon")
	assert.Error(t, err)

	list := c.ok("action", "list", projectID)
	assert.Contains(t, list, "2020-01-01 !")
	assert.Contains(t, list, "Train operators")

	c.ok("action", "done", actionID)
	csv := c.ok("action", "export", projectID)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "title,status,due_date,assignees,description", lines[0])
	assert.Contains(t, csv, "Fix the die,done,2020-01-01")

	stats := c.ok("stats")
	assert.Contains(t, stats, "1 done")
	assert.Contains(t, stats, "Completion: 50%")

	moduleID := lastWord(c.ok("module", "add", projectID, "--type", "five_why", "--title", "Why scrap"))
	c.ok("fivewhy", "set", moduleID, "-p", "Scrap", "-w", "Die worn", "-w", "No schedule", "-r", "No PM plan")
	c.ok("fivewhy", "set", moduleID, "-p", "Scrap 6%", "-w", "Die worn", "-r", "No PM plan")
	show := c.ok("fivewhy", "show", moduleID)
	assert.Contains(t, show, "Problem: Scrap 6%")
	assert.Contains(t, show, "Why 1: Die worn")
	assert.NotContains(t, show, "Why 2")
	assert.Contains(t, show, "Root cause: No PM plan")
}

func TestAccounts(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("project", "list")
	assert.ErrorIs(t, err, auth.ErrNoSession)

	c.ok("signup", "-e", "ann@example.com", "-p", "secret123")
	out := c.ok("user", "create", "-e", "bob@example.com", "-p", "secret456", "-n", "Bob")
	assert.Contains(t, out, "(user)")
	bobID := strings.Fields(out)[2]

	projectID := lastWord(c.ok("project", "create", "Ann's project"))

	c.ok("logout")
	_, err = c.run("login", "-e", "bob@example.com", "-p", "wrong-password")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Contains(t, c.ok("login", "-e", "bob@example.com", "-p", "secret456"), "bob@example.com")

	_, err = c.run("project", "show", projectID)
	assert.ErrorIs(t, err, auth.ErrForbidden)
	_, err = c.run("user", "create", "-e", "eve@example.com", "-p", "secret789")
	assert.ErrorIs(t, err, auth.ErrForbidden)
	_, err = c.run("stats")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	c.ok("logout")
	c.ok("login", "-e", "ann@example.com", "-p", "secret123")
	assert.Contains(t, c.ok("project", "members", projectID, "--add", bobID), "Bob")

	c.ok("logout")
	c.ok("login", "-e", "bob@example.com", "-p", "secret456")
	assert.Contains(t, c.ok("project", "show", projectID), "Ann's project")
	_, err = c.run("project", "delete", projectID)
	assert.ErrorIs(t, err, auth.ErrForbidden, "members cannot delete")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	done := make(chan error, 1)
	go func() { done <- serve(ctx, "127.0.0.1:0", handler, time.Second, zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
