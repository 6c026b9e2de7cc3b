// Package schedule holds classes and their weekly timetable.
package schedule

import (
	"context"
	"time"
)

type (
	Class struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		HODID      string   `json:"hod_id,omitempty"`
		StudentIDs []string `json:"student_ids"`
	}

	// Entry is one weekly slot of a class.
	// SubstituteID is empty when no substitute covers the slot.
	Entry struct {
		ID           string       `json:"id"`
		ClassID      string       `json:"class_id"`
		Day          time.Weekday `json:"day"`
		StartTime    string       `json:"start_time"` // "15:04"
		EndTime      string       `json:"end_time"`
		TeacherID    string       `json:"teacher_id"`
		SubstituteID string       `json:"substitute_id,omitempty"`
	}
)

// Store gives access to the class timetables.
// Entries are never deleted: a substitute is cleared by setting it back to "".
type Store interface {
	GetClass(ctx context.Context, id string) (Class, error)
	// GetScheduleForClass returns the entries ordered by day then start time.
	GetScheduleForClass(ctx context.Context, classID string) ([]Entry, error)
	SetSubstitute(ctx context.Context, entryID, substituteID string) error
}

type Repository interface {
	Store
	CreateClass(ctx context.Context, class Class) (Class, error)
	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
}

// TeacherIDs returns the distinct primary teachers of `entries`, in schedule order.
func TeacherIDs(entries []Entry) []string {
	seen := make(map[string]bool, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.TeacherID == "" || seen[e.TeacherID] {
			continue
		}
		seen[e.TeacherID] = true
		ids = append(ids, e.TeacherID)
	}
	return ids
}

// Covering returns the entries taught by `teacherID` on `day`.
func Covering(entries []Entry, teacherID string, day time.Weekday) []Entry {
	matched := make([]Entry, 0)
	for _, e := range entries {
		if e.Day == day && e.TeacherID == teacherID {
			matched = append(matched, e)
		}
	}
	return matched
}
