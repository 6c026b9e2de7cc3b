package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/substitute"
)

type resolutionRepository struct {
	db *resolutionTable
}

var _ substitute.Repository = (*resolutionRepository)(nil)

func NewResolutionRepository(db *DB) substitute.Repository {
	return &resolutionRepository{db: db.resolutions}
}

func (repo *resolutionRepository) GetResolution(_ context.Context, absenceID string) (substitute.Resolution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if res, ok := repo.db.table[absenceID]; ok {
		return *res, nil
	}
	return substitute.Resolution{}, core.NewNotFoundError("resolution", absenceID)
}

func (repo *resolutionRepository) SaveResolution(_ context.Context, res substitute.Resolution) (substitute.Resolution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	res.EntryIDs = append([]string{}, res.EntryIDs...)
	repo.db.table[res.AbsenceID] = &res
	return res, nil
}
