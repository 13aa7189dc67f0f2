package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"kaizen/internal/kaizen"
)

// Stats loads the collections concurrently and aggregates them.
func (s *Store) Stats(ctx context.Context) (kaizen.Stats, error) {
	var (
		users    int
		projects []kaizen.Project
		modules  []kaizen.Module
		actions  []kaizen.Action
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		projects, err = s.ListProjects(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		modules, err = s.ListModules(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		actions, err = s.ListActions(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return kaizen.Stats{}, err
	}
	return kaizen.ComputeStats(users, projects, modules, actions, s.now()), nil
}
