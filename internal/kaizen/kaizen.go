// Package kaizen holds the records of the improvement tracker: profiles,
// projects and their members, the analysis modules placed on a project's
// PDCA grid, actions, and 5-Why analyses.
package kaizen

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
)

// NewID returns a sortable unique row id.
func NewID() string {
	return ulid.Make().String()
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Role       Role      `json:"role"`
	AvatarPath string    `json:"avatarPath,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusCompleted ProjectStatus = "completed"
	StatusArchived  ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Step is the PDCA phase a project is in.
type Step string

const (
	StepPlan  Step = "PLAN"
	StepDo    Step = "DO"
	StepCheck Step = "CHECK"
	StepAct   Step = "ACT"
)

type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	OwnerID     string        `json:"ownerId"`
	Status      ProjectStatus `json:"status"`
	Step        Step          `json:"step"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ProjectPatch holds the fields of a project update; nil fields are kept.
type ProjectPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

type MemberRole string

const (
	MemberLeader MemberRole = "leader"
	MemberMember MemberRole = "member"
)

type Member struct {
	ProjectID string     `json:"projectId"`
	UserID    string     `json:"userId"`
	Role      MemberRole `json:"role"`
}

type ModuleType string

const (
	ModuleFiveWhy ModuleType = "five_why"
	ModuleSMART   ModuleType = "smart"
	ModuleThreeG  ModuleType = "three_g"
	ModuleFiveG   ModuleType = "five_g"
	ModuleFiveS   ModuleType = "five_s"
	ModuleVSM     ModuleType = "vsm"
	ModuleFree    ModuleType = "free"
)

var ModuleTypes = []ModuleType{
	ModuleFiveWhy, ModuleSMART, ModuleThreeG, ModuleFiveG, ModuleFiveS, ModuleVSM, ModuleFree,
}

func (t ModuleType) Valid() bool {
	for _, known := range ModuleTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Quadrant is the cell of the PDCA grid a module sits in.
type Quadrant string

const (
	QuadrantPlan  Quadrant = "plan"
	QuadrantDo    Quadrant = "do"
	QuadrantCheck Quadrant = "check"
	QuadrantAct   Quadrant = "act"
)

func (q Quadrant) Valid() bool {
	switch q {
	case QuadrantPlan, QuadrantDo, QuadrantCheck, QuadrantAct:
		return true
	}
	return false
}

// Module is one analysis card on a project. Content is kept opaque; its
// shape depends on Type.
type Module struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Type      ModuleType      `json:"type"`
	Quadrant  Quadrant        `json:"quadrant"`
	Title     string          `json:"title"`
	Position  int             `json:"position"`
	Content   json.RawMessage `json:"content,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type ActionStatus string

const (
	ActionTodo       ActionStatus = "todo"
	ActionInProgress ActionStatus = "in_progress"
	ActionDone       ActionStatus = "done"
)

func (s ActionStatus) Valid() bool {
	switch s {
	case ActionTodo, ActionInProgress, ActionDone:
		return true
	}
	return false
}

type Action struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Status      ActionStatus `json:"status"`
	Assignees   []string     `json:"assignees"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Overdue reports whether the action is still open past its due date.
func (a Action) Overdue(now time.Time) bool {
	return a.Status != ActionDone && a.DueDate != nil && a.DueDate.Before(now)
}

// FiveWhy is a root-cause analysis attached to a five_why module.
type FiveWhy struct {
	ID        string    `json:"id"`
	ModuleID  string    `json:"moduleId"`
	Problem   string    `json:"problem"`
	Whys      [5]string `json:"whys"`
	RootCause string    `json:"rootCause"`
}
