package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/schedule"
)

type scheduleRepository struct {
	classes *classTable
	entries *entryTable
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{classes: db.classes, entries: db.entries}
}

func (repo *scheduleRepository) CreateClass(_ context.Context, class schedule.Class) (schedule.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	class.StudentIDs = append([]string(nil), class.StudentIDs...)
	repo.classes.table[class.ID] = &class
	return class, nil
}

func (repo *scheduleRepository) GetClass(_ context.Context, id string) (schedule.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if c, ok := repo.classes.table[id]; ok {
		class := *c
		class.StudentIDs = append([]string(nil), c.StudentIDs...)
		return class, nil
	}
	return schedule.Class{}, core.NewNotFoundError("class", id)
}

func (repo *scheduleRepository) CreateEntry(_ context.Context, entry schedule.Entry) (schedule.Entry, error) {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if _, exists := repo.entries.table[entry.ID]; !exists {
		repo.entries.order = append(repo.entries.order, entry.ID)
	}
	repo.entries.table[entry.ID] = &entry
	return entry, nil
}

func (repo *scheduleRepository) GetScheduleForClass(_ context.Context, classID string) ([]schedule.Entry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	entries := make([]schedule.Entry, 0)
	for _, id := range repo.entries.order {
		if e := repo.entries.table[id]; e.ClassID == classID {
			entries = append(entries, *e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day < entries[j].Day
		}
		return entries[i].StartTime < entries[j].StartTime
	})
	return entries, nil
}

func (repo *scheduleRepository) SetSubstitute(_ context.Context, entryID, substituteID string) error {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	e, ok := repo.entries.table[entryID]
	if !ok {
		return core.NewNotFoundError("schedule entry", entryID)
	}
	e.SubstituteID = substituteID
	return nil
}
