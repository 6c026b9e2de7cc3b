package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
)

type absenceRepository struct {
	db *DB
}

var _ absence.Repository = (*absenceRepository)(nil)

func NewAbsenceRepository(db *DB) absence.Repository {
	return &absenceRepository{db: db}
}

func (repo *absenceRepository) CreateAbsence(_ context.Context, rec absence.Record) (absence.Record, error) {
	repo.db.absences.Lock()
	defer repo.db.absences.Unlock()

	repo.db.absences.table[rec.ID] = &rec
	return rec, nil
}

func (repo *absenceRepository) GetAbsence(_ context.Context, id string) (absence.Record, error) {
	repo.db.absences.RLock()
	defer repo.db.absences.RUnlock()

	if rec, ok := repo.db.absences.table[id]; ok {
		return *rec, nil
	}
	return absence.Record{}, core.NewNotFoundError("absence", id)
}

func (repo *absenceRepository) FilterAbsences(_ context.Context, filter absence.Filter, orderings []core.DBOrdering) ([]absence.View, error) {
	repo.db.absences.RLock()
	views := make([]absence.View, 0)
	for _, rec := range repo.db.absences.table {
		if filter.Match(*rec) {
			views = append(views, absence.View{Record: *rec})
		}
	}
	repo.db.absences.RUnlock()

	repo.db.people.RLock()
	repo.db.classes.RLock()
	for i := range views {
		if p, ok := repo.db.people.table[views[i].PersonID]; ok {
			views[i].PersonName = p.Name
		}
		if c, ok := repo.db.classes.table[views[i].ClassID]; ok {
			views[i].ClassName = c.Name
		}
	}
	repo.db.classes.RUnlock()
	repo.db.people.RUnlock()

	sortViews(views, orderings)
	return views, nil
}

func (repo *absenceRepository) UpdateAbsenceStatus(_ context.Context, id, status string, updatedAt time.Time) (absence.Record, error) {
	repo.db.absences.Lock()
	defer repo.db.absences.Unlock()

	rec, ok := repo.db.absences.table[id]
	if !ok {
		return absence.Record{}, core.NewNotFoundError("absence", id)
	}
	rec.Status = status
	rec.UpdatedAt = updatedAt
	return *rec, nil
}

func (repo *absenceRepository) FindAbsentOnDate(_ context.Context, date time.Time) ([]string, error) {
	repo.db.absences.RLock()
	defer repo.db.absences.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, rec := range repo.db.absences.table {
		if rec.IsActive() && rec.Date.Equal(date) && !seen[rec.PersonID] {
			seen[rec.PersonID] = true
			ids = append(ids, rec.PersonID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// sortViews applies the orderings in sequence; the id breaks ties so that results are stable.
func sortViews(views []absence.View, orderings []core.DBOrdering) {
	sort.SliceStable(views, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareView(views[i], views[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return views[i].ID < views[j].ID
	})
}

func compareView(a, b absence.View, field string) int {
	switch field {
	case "date":
		return compareTime(a.Date, b.Date)
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "role":
		return strings.Compare(a.Role, b.Role)
	case "person_name":
		return strings.Compare(strings.ToLower(a.PersonName), strings.ToLower(b.PersonName))
	case "class_name":
		return strings.Compare(strings.ToLower(a.ClassName), strings.ToLower(b.ClassName))
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
