// Package absence is the ledger of absence submissions: the source of truth for who is absent on what date.
package absence

import (
	"context"
	"time"

	"github.com/google/uuid"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
)

const roleMismatchText = "does not match the person's role"

// OrderingFields maps the public ordering fields to their storage columns.
var OrderingFields = map[string]string{
	"date":        "date",
	"created_at":  "created_at",
	"status":      "status",
	"role":        "role",
	"person_name": "person_name",
	"class_name":  "class_name",
}

// DefaultOrdering lists the most recent absences first.
var DefaultOrdering = []core.DBOrdering{{Field: "date"}, {Field: "created_at"}}

type Repository interface {
	CreateAbsence(ctx context.Context, rec Record) (Record, error)
	GetAbsence(ctx context.Context, id string) (Record, error)
	// FilterAbsences applies AND on the set Filter fields and joins person/class names.
	FilterAbsences(ctx context.Context, filter Filter, orderings []core.DBOrdering) ([]View, error)
	UpdateAbsenceStatus(ctx context.Context, id, status string, updatedAt time.Time) (Record, error)
	// FindAbsentOnDate returns the ids of people holding a pending or approved absence on `date`.
	FindAbsentOnDate(ctx context.Context, date time.Time) ([]string, error)
}

type Ledger struct {
	repo       Repository
	classes    schedule.Store
	people     roster.Store
	validate   *validator.Validate
	translator ut.Translator
}

func NewLedger(
	repo Repository,
	classes schedule.Store,
	people roster.Store,
	validate *validator.Validate,
	translator ut.Translator,
) *Ledger {
	vala.BeginValidation().Validate(
		core.IsNotNil(repo, "repo"),
		core.IsNotNil(classes, "classes"),
		core.IsNotNil(people, "people"),
		core.IsNotNil(validate, "validate"),
		core.IsNotNil(translator, "translator"),
	).CheckAndPanic()

	return &Ledger{
		repo:       repo,
		classes:    classes,
		people:     people,
		validate:   validate,
		translator: translator,
	}
}

// Submit records a new pending absence.
// It fails with a *core.ValidationError on bad input and a *core.NotFoundError for unknown class or person.
func (l *Ledger) Submit(ctx context.Context, na NewAbsence) (Record, error) {
	if err := na.Validate(l.validate); err != nil {
		return Record{}, core.TranslateValidationErrors(err, l.translator)
	}
	date, err := core.ParseDate(na.Date)
	if err != nil { // already validated
		return Record{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}

	if _, err = l.classes.GetClass(ctx, na.ClassID); err != nil {
		if core.IsNotFound(err) {
			return Record{}, err
		}
		return Record{}, core.NewUpstreamError("schedule", errors.Wrap(err, "finding class"))
	}
	person, err := l.people.FindByID(ctx, na.PersonID)
	if err != nil {
		if core.IsNotFound(err) {
			return Record{}, err
		}
		return Record{}, core.NewUpstreamError("roster", errors.Wrap(err, "finding person"))
	}
	if person.Role != na.Role {
		return Record{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleMismatchText})
	}

	now := core.NowFunc()
	rec := Record{
		ID:          uuid.New().String(),
		PersonID:    person.ID,
		Role:        na.Role,
		ClassID:     na.ClassID,
		Reason:      na.Reason,
		Date:        date,
		Duration:    na.Duration,
		EvidenceRef: na.EvidenceRef,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rec, err = l.repo.CreateAbsence(ctx, rec)
	return rec, errors.Wrap(err, "creating absence")
}

func (l *Ledger) Get(ctx context.Context, id string) (Record, error) {
	return l.repo.GetAbsence(ctx, id)
}

// List returns the absences matching `filter`, joined with display names.
func (l *Ledger) List(ctx context.Context, filter Filter, orderings []core.DBOrdering) ([]View, error) {
	if err := filter.Clean(); err != nil {
		return nil, err
	}
	ords := core.AllowedOrderings(orderings, OrderingFields)
	if len(ords) == 0 {
		ords = DefaultOrdering
	}
	views, err := l.repo.FilterAbsences(ctx, filter, ords)
	return views, errors.Wrap(err, "filtering absences")
}

// SetStatus is the approval authority's action; no transition rule is enforced.
func (l *Ledger) SetStatus(ctx context.Context, id string, us UpdateStatus) (Record, error) {
	if err := us.Validate(l.validate); err != nil {
		return Record{}, core.TranslateValidationErrors(err, l.translator)
	}
	return l.repo.UpdateAbsenceStatus(ctx, id, us.Status, core.NowFunc())
}

// AbsentOnDate returns the set of people with a pending or approved absence on `date`.
func (l *Ledger) AbsentOnDate(ctx context.Context, date time.Time) (map[string]bool, error) {
	ids, err := l.repo.FindAbsentOnDate(ctx, core.DateOf(date))
	if err != nil {
		return nil, errors.Wrap(err, "finding absent people")
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ActiveTeacherAbsences lists the pending or approved teacher absences dated within [from, to].
func (l *Ledger) ActiveTeacherAbsences(ctx context.Context, from, to time.Time) ([]Record, error) {
	filter := Filter{
		Role:     RoleTeacher,
		Statuses: ActiveStatuses,
		From:     core.DateOf(from),
		To:       core.DateOf(to),
	}
	views, err := l.repo.FilterAbsences(ctx, filter, []core.DBOrdering{{Field: "date", Ascending: true}, {Field: "created_at", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "filtering teacher absences")
	}
	recs := make([]Record, 0, len(views))
	for _, v := range views {
		recs = append(recs, v.Record)
	}
	return recs, nil
}
