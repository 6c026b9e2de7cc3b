package substitute

import (
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
)

// Outcomes
const (
	OutcomeAssigned     = "assigned"
	OutcomeNoSchedule   = "no_schedule"   // the class has no timetable
	OutcomeNoSubstitute = "no_substitute" // every other teacher is disabled or absent that date
	OutcomeNotTeacher   = "not_teacher"
)

// Snapshot is everything a resolution reads, captured before deciding.
type Snapshot struct {
	Absence  absence.Record
	Entries  []schedule.Entry // the class schedule
	Teachers []roster.Entry   // roster order
	Absent   map[string]bool  // people absent on Absence.Date
}

type Decision struct {
	Outcome    string
	Substitute *roster.Entry
	Entries    []schedule.Entry // entries to assign Substitute to; may be empty
}

// Assigned reports whether the decision sets a substitute.
func (d Decision) Assigned() bool { return d.Outcome == OutcomeAssigned }

// Resolve picks the substitute for a teacher absence: the first teacher in roster order who is
// neither the absentee, disabled, nor absent on the same date.
// The substitute is chosen even when the absentee teaches no slot of the class that weekday;
// the decision then carries no entries.
func Resolve(snap Snapshot) Decision {
	if !snap.Absence.IsTeacher() {
		return Decision{Outcome: OutcomeNotTeacher}
	}
	if len(snap.Entries) == 0 {
		return Decision{Outcome: OutcomeNoSchedule}
	}

	pool := Candidates(snap)
	if len(pool) == 0 {
		return Decision{Outcome: OutcomeNoSubstitute}
	}
	sub := pool[0]
	return Decision{
		Outcome:    OutcomeAssigned,
		Substitute: &sub,
		Entries:    schedule.Covering(snap.Entries, snap.Absence.PersonID, snap.Absence.Weekday()),
	}
}

// Eligible reports whether `personID` may still cover the absence of the snapshot.
func Eligible(snap Snapshot, personID string) bool {
	for _, t := range Candidates(snap) {
		if t.ID == personID {
			return true
		}
	}
	return false
}

// Candidates returns the eligible pool, in roster order.
func Candidates(snap Snapshot) []roster.Entry {
	pool := make([]roster.Entry, 0, len(snap.Teachers))
	for _, t := range snap.Teachers {
		if !t.IsTeacher() || t.Disabled || t.ID == snap.Absence.PersonID || snap.Absent[t.ID] {
			continue
		}
		pool = append(pool, t)
	}
	return pool
}
