// Package roster is the read view of the people known to the school: students, teachers and admins.
package roster

import (
	"context"
	"time"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

var Roles = []string{RoleStudent, RoleTeacher, RoleAdmin}

type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role"`
	Disabled   bool      `json:"disabled"`
	PushHandle string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"` // UTC; roster order
}

func (e Entry) HasPushHandle() bool { return e.PushHandle != "" }
func (e Entry) IsTeacher() bool     { return e.Role == RoleTeacher }
func (e Entry) IsAdmin() bool       { return e.Role == RoleAdmin }

// Store is the roster as seen by the workflow.
// FindByRole returns entries in roster order (creation order); FindByID returns a *core.NotFoundError for unknown ids.
type Store interface {
	FindByRole(ctx context.Context, role string) ([]Entry, error)
	FindByID(ctx context.Context, id string) (Entry, error)
	// FindByIDs skips unknown ids and keeps the order of `ids`.
	FindByIDs(ctx context.Context, ids ...string) ([]Entry, error)
}

// Repository adds the writes needed to seed the roster and register devices.
type Repository interface {
	Store
	// CreateEntry inserts the entry, or updates it in place (keeping its roster position) when the id exists.
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	SetPushHandle(ctx context.Context, id, handle string) error
}
