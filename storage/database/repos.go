package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
	"github.com/trezcool/masomo-absences/core/substitute"
	inmemdb "github.com/trezcool/masomo-absences/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-absences/storage/database/sqlx"
)

// Repositories bundles the stores of one database engine.
type Repositories struct {
	Roster        roster.Repository
	Schedule      schedule.Repository
	Absences      absence.Repository
	Notifications notification.Repository
	Resolutions   substitute.Repository

	// DB is nil for the memory engine.
	DB *sqlx.DB

	close func() error
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// SetUp opens the configured engine: "memory" or postgres (created and migrated if needed).
func SetUp(conf *core.Config) (*Repositories, error) {
	if conf.Database.InMemory() {
		return NewInMemRepositories(inmemdb.Open()), nil
	}

	if err := CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := Open(conf)
	if err != nil {
		return nil, err
	}
	if err = Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Roster:        sqlxrepos.NewRosterRepository(db),
		Schedule:      sqlxrepos.NewScheduleRepository(db),
		Absences:      sqlxrepos.NewAbsenceRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
		Resolutions:   sqlxrepos.NewResolutionRepository(db),
		DB:            db,
		close:         func() error { return errors.Wrap(db.Close(), "closing database") },
	}, nil
}

func NewInMemRepositories(db *inmemdb.DB) *Repositories {
	return &Repositories{
		Roster:        inmemdb.NewRosterRepository(db),
		Schedule:      inmemdb.NewScheduleRepository(db),
		Absences:      inmemdb.NewAbsenceRepository(db),
		Notifications: inmemdb.NewNotificationRepository(db),
		Resolutions:   inmemdb.NewResolutionRepository(db),
	}
}
