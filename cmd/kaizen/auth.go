package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kaizen/internal/auth"
	"kaizen/internal/kaizen"
)

type credentials struct {
	email    string
	password string
	name     string
}

func (c *credentials) flags(cmd *cobra.Command, withName bool) {
	cmd.Flags().StringVarP(&c.email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "password (read from stdin when omitted)")
	if withName {
		cmd.Flags().StringVarP(&c.name, "name", "n", "", "full name")
	}
	_ = cmd.MarkFlagRequired("email")
}

// readPassword falls back to the first line of stdin, so scripts can pipe
// the password instead of putting it on the command line.
func (c *credentials) readPassword(cmd *cobra.Command) error {
	if c.password != "" {
		return nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read password: %w", err)
	}
	c.password = strings.TrimRight(line, "\r\n")
	return nil
}

func (a *app) startSession(cmd *cobra.Command, sess auth.Session) error {
	if err := auth.SaveSession(a.cfg.Auth.SessionFile, sess.Token); err != nil {
		return err
	}
	a.logger.Info("signed in", zap.String("user", sess.User.ID), zap.Time("expires", sess.ExpiresAt))
	fmt.Fprintf(out(cmd), "Signed in as %s (%s), session valid until %s\n",
		sess.User.Email, sess.User.Role, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *app) signupCmd() *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in; the first account is the admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService()
			if err != nil {
				return err
			}
			if err := c.readPassword(cmd); err != nil {
				return err
			}
			sess, err := svc.SignUp(cmd.Context(), c.email, c.password, c.name)
			if err != nil {
				return err
			}
			return a.startSession(cmd, sess)
		},
	}
	c.flags(cmd, true)
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService()
			if err != nil {
				return err
			}
			if err := c.readPassword(cmd); err != nil {
				return err
			}
			sess, err := svc.SignIn(cmd.Context(), c.email, c.password)
			if err != nil {
				return err
			}
			return a.startSession(cmd, sess)
		},
	}
	c.flags(cmd, false)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ClearSession(a.cfg.Auth.SessionFile); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), "Signed out")
			return nil
		},
	}
}

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var (
		c    credentials
		role string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account for someone else (admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.authService()
			if err != nil {
				return err
			}
			caller, err := a.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.readPassword(cmd); err != nil {
				return err
			}
			p, err := svc.CreateUser(cmd.Context(), caller, c.email, c.password, c.name, kaizen.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created user %s (%s)\n", p.ID, p.Role)
			return nil
		},
	}
	c.flags(create, true)
	create.Flags().StringVar(&role, "role", string(kaizen.RoleUser), "user or admin")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.currentUser(cmd.Context()); err != nil {
				return err
			}
			profiles, err := a.store.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(out(cmd))
			fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE")
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Email, p.FullName, p.Role)
			}
			return tw.Flush()
		},
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s (%s)\n", p.ID, p.Email, p.Role)
			return nil
		},
	}

	cmd.AddCommand(create, list, whoami)
	return cmd
}
