package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"kaizen/internal/auth"
	"kaizen/internal/kaizen"
	"kaizen/internal/render"
	"kaizen/internal/vsm"
)

const dateLayout = "2006-01-02"

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func (a *app) projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Create and inspect A3 projects",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Start a project owned by you",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			p, err := a.store.CreateProject(cmd.Context(), kaizen.Project{
				Title:       strings.Join(args, " "),
				Description: description,
				OwnerID:     user.ID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created project %s\n", p.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "problem statement")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the projects you own or belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			scope := user.ID
			if user.IsAdmin() {
				scope = ""
			}
			projects, err := a.store.ListProjects(cmd.Context(), scope)
			if err != nil {
				return err
			}
			tw := table(out(cmd))
			fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSTEP\tCREATED")
			for _, p := range projects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Status, p.Step, p.CreatedAt.Format(dateLayout))
			}
			return tw.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project with its PDCA grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			modules, err := a.store.ListModules(ctx, p.ID)
			if err != nil {
				return err
			}
			actions, err := a.store.ListActions(ctx, p.ID)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "%s  [%s, %s]\n", p.Title, p.Status, p.Step)
			if p.Description != "" {
				fmt.Fprintf(w, "%s\n", p.Description)
			}
			for _, q := range []kaizen.Quadrant{kaizen.QuadrantPlan, kaizen.QuadrantDo, kaizen.QuadrantCheck, kaizen.QuadrantAct} {
				fmt.Fprintf(w, "\n%s\n", strings.ToUpper(string(q)))
				for _, m := range modules {
					if m.Quadrant == q {
						fmt.Fprintf(w, "  %s  %-9s %s\n", m.ID, m.Type, m.Title)
					}
				}
			}
			done, overdue := 0, 0
			now := time.Now()
			for _, act := range actions {
				if act.Status == kaizen.ActionDone {
					done++
				}
				if act.Overdue(now) {
					overdue++
				}
			}
			fmt.Fprintf(w, "\nActions: %d, %d done, %d overdue\n", len(actions), done, overdue)
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "status <project-id> <active|completed|archived>",
		Short: "Change a project's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			if _, err := a.project(ctx, user, args[0]); err != nil {
				return err
			}
			st := kaizen.ProjectStatus(args[1])
			if !st.Valid() {
				return fmt.Errorf("invalid status %q", args[1])
			}
			if _, err := a.store.UpdateProject(ctx, args[0], kaizen.ProjectPatch{Status: &st}); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Project %s is %s\n", args[0], st)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project with its modules and actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			if p.OwnerID != user.ID && !user.IsAdmin() {
				return auth.ErrForbidden
			}
			if err := a.store.DeleteProject(ctx, p.ID); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted project %s\n", p.ID)
			return nil
		},
	}

	var addUser, role string
	members := &cobra.Command{
		Use:   "members <project-id>",
		Short: "List project members, or add one with --add",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			if addUser != "" {
				r := kaizen.MemberRole(role)
				if r != kaizen.MemberMember && r != kaizen.MemberLeader {
					return fmt.Errorf("invalid member role %q", role)
				}
				if _, err := a.store.Profile(ctx, addUser); err != nil {
					return fmt.Errorf("user %s: %w", addUser, err)
				}
				if err := a.store.AddMember(ctx, kaizen.Member{ProjectID: p.ID, UserID: addUser, Role: r}); err != nil {
					return err
				}
			}
			list, err := a.store.Members(ctx, p.ID)
			if err != nil {
				return err
			}
			names, err := a.names(cmd)
			if err != nil {
				return err
			}
			tw := table(out(cmd))
			fmt.Fprintln(tw, "USER\tNAME\tROLE")
			for _, m := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.UserID, names[m.UserID], m.Role)
			}
			return tw.Flush()
		},
	}
	members.Flags().StringVar(&addUser, "add", "", "user id to add")
	members.Flags().StringVar(&role, "role", string(kaizen.MemberMember), "member or leader")

	cmd.AddCommand(create, list, show, update, remove, members)
	return cmd
}

// names maps user ids to display names.
func (a *app) names(cmd *cobra.Command) (map[string]string, error) {
	profiles, err := a.store.ListProfiles(cmd.Context())
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.FullName
		if p.FullName == "" {
			names[p.ID] = p.Email
		}
	}
	return names, nil
}

func (a *app) moduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "module",
		Aliases: []string{"modules"},
		Short:   "Place analysis modules on a project's PDCA grid",
	}

	var (
		typ      string
		quadrant string
		title    string
		position int
	)
	add := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a module; the project's step follows the furthest quadrant used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			t, q := kaizen.ModuleType(typ), kaizen.Quadrant(quadrant)
			if !t.Valid() {
				return fmt.Errorf("invalid module type %q (one of %v)", typ, kaizen.ModuleTypes)
			}
			if !q.Valid() {
				return fmt.Errorf("invalid quadrant %q", quadrant)
			}
			m, err := a.store.CreateModule(ctx, kaizen.Module{
				ProjectID: p.ID, Type: t, Quadrant: q, Title: title, Position: position,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created module %s\n", m.ID)
			return nil
		},
	}
	add.Flags().StringVarP(&typ, "type", "t", string(kaizen.ModuleVSM), "module type")
	add.Flags().StringVarP(&quadrant, "quadrant", "q", string(kaizen.QuadrantPlan), "plan, do, check or act")
	add.Flags().StringVar(&title, "title", "", "card title")
	add.Flags().IntVar(&position, "position", 0, "order within the quadrant")

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			modules, err := a.store.ListModules(ctx, p.ID)
			if err != nil {
				return err
			}
			tw := table(out(cmd))
			fmt.Fprintln(tw, "ID\tQUADRANT\tTYPE\tTITLE\tUPDATED")
			for _, m := range modules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Quadrant, m.Type, m.Title, m.UpdatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	summary := &cobra.Command{
		Use:   "summary <module-id>",
		Short: "Print the computed figures of a vsm or five_s module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := a.userAndModule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := out(cmd)
			switch m.Type {
			case kaizen.ModuleVSM:
				doc, err := a.diagram(cmd.Context(), m, false)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, render.MetricsSummary(vsm.ComputeMetrics(doc)))
			case kaizen.ModuleFiveS:
				c, err := kaizen.DecodeChecklist(m.Content)
				if err != nil {
					return err
				}
				p := c.Progress(time.Now())
				fmt.Fprintf(w, "%d/%d done (%.0f%%), %d overdue\n", p.Done, p.Total, p.Percent, p.Overdue)
				for _, pillar := range kaizen.Pillars {
					if pct, ok := p.Pillars[pillar]; ok {
						fmt.Fprintf(w, "  %-13s %3d%%\n", pillar, pct)
					}
				}
			default:
				return fmt.Errorf("%s modules have no summary", m.Type)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list, summary)
	return cmd
}

func (a *app) actionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "action",
		Aliases: []string{"actions"},
		Short:   "Track a project's countermeasures",
	}

	var (
		due         string
		description string
		assignees   []string
	)
	add := &cobra.Command{
		Use:   "add <project-id> <title>",
		Short: "Add an action",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			act := kaizen.Action{
				ProjectID:   p.ID,
				Title:       strings.Join(args[1:], " "),
				Description: description,
				Assignees:   assignees,
			}
			if due != "" {
				d, err := time.Parse(dateLayout, due)
				if err != nil {
					return fmt.Errorf("invalid due date %q, want YYYY-MM-DD", due)
				}
				act.DueDate = &d
			}
			act, err = a.store.CreateAction(ctx, act)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created action %s\n", act.ID)
			return nil
		},
	}
	add.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	add.Flags().StringVarP(&description, "description", "d", "", "details")
	add.Flags().StringSliceVarP(&assignees, "assignee", "a", nil, "user id, repeatable")

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List actions by due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			actions, err := a.store.ListActions(ctx, p.ID)
			if err != nil {
				return err
			}
			names, err := a.names(cmd)
			if err != nil {
				return err
			}
			now := time.Now()
			tw := table(out(cmd))
			fmt.Fprintln(tw, "ID\tSTATUS\tDUE\tTITLE\tASSIGNEES")
			for _, act := range actions {
				dueStr := "-"
				if act.DueDate != nil {
					dueStr = act.DueDate.Format(dateLayout)
					if act.Overdue(now) {
						dueStr += " !"
					}
				}
				who := make([]string, 0, len(act.Assignees))
				for _, id := range act.Assignees {
					who = append(who, names[id])
				}
				sort.Strings(who)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", act.ID, act.Status, dueStr, act.Title, strings.Join(who, ", "))
			}
			return tw.Flush()
		},
	}

	var status string
	done := &cobra.Command{
		Use:   "done <action-id>",
		Short: "Mark an action done, or set another status with --status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			act, err := a.store.Action(ctx, args[0])
			if err != nil {
				return fmt.Errorf("action %s: %w", args[0], err)
			}
			if _, err := a.project(ctx, user, act.ProjectID); err != nil {
				return err
			}
			if err := a.store.SetActionStatus(ctx, act.ID, kaizen.ActionStatus(status)); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Action %s is %s\n", act.ID, status)
			return nil
		},
	}
	done.Flags().StringVar(&status, "status", string(kaizen.ActionDone), "todo, in_progress or done")

	export := &cobra.Command{
		Use:   "export <project-id> [file.csv]",
		Short: "Export a project's actions as CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			p, err := a.project(ctx, user, args[0])
			if err != nil {
				return err
			}
			actions, err := a.store.ListActions(ctx, p.ID)
			if err != nil {
				return err
			}
			names, err := a.names(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return kaizen.WriteActionsCSV(out(cmd), actions, names)
			}
			path := a.cfg.ExportPath(args[1])
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			err = kaizen.WriteActionsCSV(f, actions, names)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Wrote %d actions to %s\n", len(actions), path)
			return nil
		},
	}

	cmd.AddCommand(add, list, done, export)
	return cmd
}

func (a *app) fiveWhyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fivewhy",
		Short: "Record the 5-Why analysis of a five_why module",
	}

	var (
		problem   string
		whys      []string
		rootCause string
	)
	set := &cobra.Command{
		Use:   "set <module-id>",
		Short: "Create or replace the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := a.userAndModule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if m.Type != kaizen.ModuleFiveWhy {
				return fmt.Errorf("module %s is a %s module, not a 5-Why", m.ID, m.Type)
			}
			if len(whys) > 5 {
				return fmt.Errorf("at most five whys, got %d", len(whys))
			}
			fw := kaizen.FiveWhy{ModuleID: m.ID, Problem: problem, RootCause: rootCause}
			if existing, err := a.store.FiveWhy(cmd.Context(), m.ID); err == nil {
				fw.ID = existing.ID
			}
			copy(fw.Whys[:], whys)
			if _, err := a.store.SaveFiveWhy(cmd.Context(), fw); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Saved 5-Why for module %s\n", m.ID)
			return nil
		},
	}
	set.Flags().StringVarP(&problem, "problem", "p", "", "problem statement")
	set.Flags().StringArrayVarP(&whys, "why", "w", nil, "answer to the next why, up to five")
	set.Flags().StringVarP(&rootCause, "root-cause", "r", "", "root cause")

	show := &cobra.Command{
		Use:   "show <module-id>",
		Short: "Print the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, m, err := a.userAndModule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fw, err := a.store.FiveWhy(cmd.Context(), m.ID)
			if err != nil {
				return fmt.Errorf("5-Why for module %s: %w", m.ID, err)
			}
			w := out(cmd)
			fmt.Fprintf(w, "Problem: %s\n", fw.Problem)
			for i, why := range fw.Whys {
				if why != "" {
					fmt.Fprintf(w, "Why %d: %s\n", i+1, why)
				}
			}
			fmt.Fprintf(w, "Root cause: %s\n", fw.RootCause)
			return nil
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the admin dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			if !user.IsAdmin() {
				return auth.ErrForbidden
			}
			s, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := out(cmd)
			fmt.Fprintf(w, "Users:     %d\n", s.Users)
			fmt.Fprintf(w, "Projects:  %d (%d active, %d completed, %d archived)\n", s.Projects,
				s.ProjectsBy[kaizen.StatusActive], s.ProjectsBy[kaizen.StatusCompleted], s.ProjectsBy[kaizen.StatusArchived])
			fmt.Fprintf(w, "Actions:   %d todo, %d in progress, %d done, %d overdue\n",
				s.ActionsBy[kaizen.ActionTodo], s.ActionsBy[kaizen.ActionInProgress], s.ActionsBy[kaizen.ActionDone], s.OverdueActions)
			fmt.Fprintf(w, "Completion: %.0f%%\n", s.CompletionRate)
			fmt.Fprintln(w, "Modules:")
			for _, t := range kaizen.ModuleTypes {
				fmt.Fprintf(w, "  %-9s %d\n", t, s.ModulesBy[t])
			}
			return nil
		},
	}
}
