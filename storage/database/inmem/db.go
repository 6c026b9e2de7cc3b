package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
	"github.com/trezcool/masomo-absences/core/substitute"
)

type (
	// DB is a process-local store; every table has its own lock.
	DB struct {
		people        *personTable
		classes       *classTable
		entries       *entryTable
		absences      *absenceTable
		notifications *notificationTable
		resolutions   *resolutionTable
	}

	personTable struct {
		sync.RWMutex
		table map[string]*roster.Entry
		order []string // roster order
	}

	classTable struct {
		sync.RWMutex
		table map[string]*schedule.Class
	}

	entryTable struct {
		sync.RWMutex
		table map[string]*schedule.Entry
		order []string
	}

	absenceTable struct {
		sync.RWMutex
		table map[string]*absence.Record
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Record
		order []string
	}

	resolutionTable struct {
		sync.RWMutex
		table map[string]*substitute.Resolution
	}
)

func Open() *DB {
	return &DB{
		people:        &personTable{table: make(map[string]*roster.Entry)},
		classes:       &classTable{table: make(map[string]*schedule.Class)},
		entries:       &entryTable{table: make(map[string]*schedule.Entry)},
		absences:      &absenceTable{table: make(map[string]*absence.Record)},
		notifications: &notificationTable{table: make(map[string]*notification.Record)},
		resolutions:   &resolutionTable{table: make(map[string]*substitute.Resolution)},
	}
}
