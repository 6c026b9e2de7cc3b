package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/roster"
)

type rosterRepository struct {
	db *personTable
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db.people}
}

func (repo *rosterRepository) CreateEntry(_ context.Context, entry roster.Entry) (roster.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = core.NowFunc()
	}
	if _, exists := repo.db.table[entry.ID]; !exists {
		repo.db.order = append(repo.db.order, entry.ID)
	}
	repo.db.table[entry.ID] = &entry
	return entry, nil
}

func (repo *rosterRepository) FindByRole(_ context.Context, role string) ([]roster.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]roster.Entry, 0)
	for _, id := range repo.db.order {
		if e := repo.db.table[id]; e.Role == role {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (repo *rosterRepository) FindByID(_ context.Context, id string) (roster.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.table[id]; ok {
		return *e, nil
	}
	return roster.Entry{}, core.NewNotFoundError("person", id)
}

func (repo *rosterRepository) FindByIDs(_ context.Context, ids ...string) ([]roster.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]roster.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := repo.db.table[id]; ok {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

func (repo *rosterRepository) SetPushHandle(_ context.Context, id, handle string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	e, ok := repo.db.table[id]
	if !ok {
		return core.NewNotFoundError("person", id)
	}
	e.PushHandle = handle
	return nil
}
