// Command kaizen tracks A3 improvement projects and edits their value stream
// maps in the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaizen/internal/auth"
	"kaizen/internal/config"
	"kaizen/internal/kaizen"
	"kaizen/internal/logging"
	"kaizen/internal/store"
)

// app carries what the commands share. It is filled in by the root
// command's pre-run hook.
type app struct {
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kaizen",
		Short: "Kaizen tracks A3 improvement projects through PDCA",
		Long: `kaizen keeps A3 projects, their analysis modules, actions and 5-Why
analyses in a local database, and edits value stream maps in the terminal.

Start with 'kaizen signup', then 'kaizen project create'.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultPath(), "config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.editCmd(),
		a.vsmCmd(),
		a.projectCmd(),
		a.moduleCmd(),
		a.actionCmd(),
		a.fiveWhyCmd(),
		a.userCmd(),
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.statsCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads the config, builds the logger and opens the database. The
// editor owns the terminal, so its logs go to the log file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Logging.Level, Verbose: a.verbose}
	if cmd.Name() == "edit" {
		opts.File = cfg.Logging.File
	}
	if a.logger, err = logging.New(opts); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	a.store, err = store.Open(cmd.Context(), cfg.Database.Path, store.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.logger.Debug("database opened", zap.String("path", cfg.Database.Path))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
}

func (a *app) authService() (*auth.Local, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	tokens := auth.NewTokens([]byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.Issuer, a.cfg.SessionTTL())
	return auth.NewLocal(a.store, tokens, auth.WithLogger(a.logger)), nil
}

// currentUser resolves the saved session to a profile.
func (a *app) currentUser(ctx context.Context) (kaizen.Profile, error) {
	svc, err := a.authService()
	if err != nil {
		return kaizen.Profile{}, err
	}
	token, err := auth.LoadSession(a.cfg.Auth.SessionFile)
	if err != nil {
		return kaizen.Profile{}, err
	}
	p, err := svc.Verify(ctx, token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return kaizen.Profile{}, fmt.Errorf("session expired, run `kaizen login`: %w", err)
	}
	return p, err
}

// project loads a project the user may see: admins see all, others only
// what they own or are a member of.
func (a *app) project(ctx context.Context, user kaizen.Profile, id string) (kaizen.Project, error) {
	p, err := a.store.Project(ctx, id)
	if err != nil {
		return kaizen.Project{}, fmt.Errorf("project %s: %w", id, err)
	}
	if user.IsAdmin() || p.OwnerID == user.ID {
		return p, nil
	}
	ok, err := a.store.IsMember(ctx, id, user.ID)
	if err != nil {
		return kaizen.Project{}, err
	}
	if !ok {
		return kaizen.Project{}, auth.ErrForbidden
	}
	return p, nil
}

func (a *app) module(ctx context.Context, user kaizen.Profile, id string) (kaizen.Module, error) {
	m, err := a.store.Module(ctx, id)
	if err != nil {
		return kaizen.Module{}, fmt.Errorf("module %s: %w", id, err)
	}
	if _, err := a.project(ctx, user, m.ProjectID); err != nil {
		return kaizen.Module{}, err
	}
	return m, nil
}

// userAndModule is the common prologue of module commands.
func (a *app) userAndModule(ctx context.Context, id string) (kaizen.Profile, kaizen.Module, error) {
	user, err := a.currentUser(ctx)
	if err != nil {
		return kaizen.Profile{}, kaizen.Module{}, err
	}
	m, err := a.module(ctx, user, id)
	return user, m, err
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
