package kaizen

import "time"

// Stats is the admin dashboard summary.
type Stats struct {
	Users          int                   `json:"users"`
	Projects       int                   `json:"projects"`
	ProjectsBy     map[ProjectStatus]int `json:"projectsByStatus"`
	ModulesBy      map[ModuleType]int    `json:"modulesByType"`
	ActionsBy      map[ActionStatus]int  `json:"actionsByStatus"`
	OverdueActions int                   `json:"overdueActions"`
	CompletionRate float64               `json:"completionRate"` // percent of actions done
}

// ComputeStats aggregates the collections. Callers load them; this only counts.
func ComputeStats(users int, projects []Project, modules []Module, actions []Action, now time.Time) Stats {
	s := Stats{
		Users:      users,
		Projects:   len(projects),
		ProjectsBy: map[ProjectStatus]int{},
		ModulesBy:  map[ModuleType]int{},
		ActionsBy:  map[ActionStatus]int{},
	}
	for _, p := range projects {
		s.ProjectsBy[p.Status]++
	}
	for _, m := range modules {
		s.ModulesBy[m.Type]++
	}
	for _, a := range actions {
		s.ActionsBy[a.Status]++
		if a.Overdue(now) {
			s.OverdueActions++
		}
	}
	if len(actions) > 0 {
		s.CompletionRate = float64(s.ActionsBy[ActionDone]) / float64(len(actions)) * 100
	}
	return s
}
