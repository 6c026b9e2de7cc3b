// Package substitute assigns cover teachers to the timetable slots of absent teachers.
package substitute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
)

type (
	// Resolution is the persisted result of resolving one absence, keyed by the absence id.
	Resolution struct {
		AbsenceID    string    `json:"absence_id"`
		ClassID      string    `json:"class_id"`
		Outcome      string    `json:"outcome"`
		SubstituteID string    `json:"substitute_id,omitempty"`
		EntryIDs     []string  `json:"entry_ids"`
		ResolvedAt   time.Time `json:"resolved_at"` // UTC
	}

	Result struct {
		Resolution
		Substitute *roster.Entry `json:"substitute,omitempty"`
		// Replayed is set when the absence had already been assigned a substitute: nothing was mutated.
		Replayed bool `json:"replayed"`
		// Reassigned is set when the previous substitute had become unavailable.
		Reassigned bool `json:"reassigned,omitempty"`
	}

	Repository interface {
		// GetResolution returns a *core.NotFoundError when the absence was never resolved.
		GetResolution(ctx context.Context, absenceID string) (Resolution, error)
		// SaveResolution inserts or replaces the resolution of res.AbsenceID.
		SaveResolution(ctx context.Context, res Resolution) (Resolution, error)
	}

	// AbsenceSource tells who is absent on a date; implemented by *absence.Ledger.
	AbsenceSource interface {
		AbsentOnDate(ctx context.Context, date time.Time) (map[string]bool, error)
	}

	Observer interface {
		ObserveResolution(outcome string, replayed bool)
	}
)

func (r Result) Assigned() bool { return r.Outcome == OutcomeAssigned }

// NewAssignment reports whether this call assigned a substitute (as opposed to replaying one).
func (r Result) NewAssignment() bool { return r.Assigned() && !r.Replayed }

type Service struct {
	repo      Repository
	schedules schedule.Store
	people    roster.Store
	absences  AbsenceSource
	logger    core.Logger
	observer  Observer
	locks     classLocks
}

func NewService(
	repo Repository,
	schedules schedule.Store,
	people roster.Store,
	absences AbsenceSource,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		core.IsNotNil(repo, "repo"),
		core.IsNotNil(schedules, "schedules"),
		core.IsNotNil(people, "people"),
		core.IsNotNil(absences, "absences"),
		core.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:      repo,
		schedules: schedules,
		people:    people,
		absences:  absences,
		logger:    logger,
	}
}

func (svc *Service) SetObserver(o Observer) {
	svc.observer = o
}

// Resolve assigns a substitute to the absent teacher's slots of the absence weekday.
// Resolving an already assigned absence replays the stored result, unless the stored substitute
// has since become absent or disabled: the absence is then resolved again over the same entries.
// The roster, schedule and ledger reads happen before taking the class lock; the lock covers the
// idempotency check and the schedule mutation.
// Roster/schedule failures are returned as *core.UpstreamError.
func (svc *Service) Resolve(ctx context.Context, rec absence.Record) (Result, error) {
	if !rec.IsTeacher() {
		return Result{Resolution: Resolution{AbsenceID: rec.ID, ClassID: rec.ClassID, Outcome: OutcomeNotTeacher}}, nil
	}

	snap, err := svc.snapshot(ctx, rec)
	if err != nil {
		return Result{}, err
	}

	unlock := svc.locks.lock(rec.ClassID)
	defer unlock()

	prev, err := svc.repo.GetResolution(ctx, rec.ID)
	if err != nil && !core.IsNotFound(err) {
		return Result{}, errors.Wrap(err, "getting previous resolution")
	}
	hadSubstitute := err == nil && prev.Outcome == OutcomeAssigned
	if hadSubstitute && Eligible(snap, prev.SubstituteID) {
		res := Result{Resolution: prev, Replayed: true, Substitute: findTeacher(snap.Teachers, prev.SubstituteID)}
		svc.observe(res)
		return res, nil
	}

	dec := Resolve(snap)
	res := Result{
		Resolution: Resolution{
			AbsenceID:  rec.ID,
			ClassID:    rec.ClassID,
			Outcome:    dec.Outcome,
			EntryIDs:   make([]string, 0, len(dec.Entries)),
			ResolvedAt: core.NowFunc(),
		},
		Substitute: dec.Substitute,
	}
	if hadSubstitute {
		res.Reassigned = true
		svc.logger.Info(fmt.Sprintf("substitute %s of absence %s is no longer available", prev.SubstituteID, rec.ID))
		if err = svc.release(ctx, prev, dec); err != nil {
			return Result{}, err
		}
	}

	if dec.Assigned() {
		res.SubstituteID = dec.Substitute.ID
		for _, e := range dec.Entries {
			if err = svc.schedules.SetSubstitute(ctx, e.ID, dec.Substitute.ID); err != nil {
				return Result{}, core.NewUpstreamError("schedule", errors.Wrapf(err, "setting substitute of entry %s", e.ID))
			}
			res.EntryIDs = append(res.EntryIDs, e.ID)
		}
	} else {
		svc.logger.Info(fmt.Sprintf("resolution skipped for absence %s: %s", rec.ID, dec.Outcome))
	}

	if res.Resolution, err = svc.repo.SaveResolution(ctx, res.Resolution); err != nil {
		return Result{}, errors.Wrap(err, "saving resolution")
	}
	svc.observe(res)
	return res, nil
}

func (svc *Service) snapshot(ctx context.Context, rec absence.Record) (Snapshot, error) {
	entries, err := svc.schedules.GetScheduleForClass(ctx, rec.ClassID)
	if err != nil && !core.IsNotFound(err) {
		return Snapshot{}, core.NewUpstreamError("schedule", errors.Wrap(err, "getting class schedule"))
	}
	teachers, err := svc.people.FindByRole(ctx, roster.RoleTeacher)
	if err != nil {
		return Snapshot{}, core.NewUpstreamError("roster", errors.Wrap(err, "finding teachers"))
	}
	absent, err := svc.absences.AbsentOnDate(ctx, rec.Date)
	if err != nil {
		return Snapshot{}, core.NewUpstreamError("absence ledger", errors.Wrap(err, "finding absent teachers"))
	}
	return Snapshot{Absence: rec, Entries: entries, Teachers: teachers, Absent: absent}, nil
}

// release clears the entries of a previous assignment that the new decision does not reassign.
func (svc *Service) release(ctx context.Context, prev Resolution, dec Decision) error {
	kept := make(map[string]bool, len(dec.Entries))
	for _, e := range dec.Entries {
		kept[e.ID] = true
	}
	for _, id := range prev.EntryIDs {
		if kept[id] {
			continue
		}
		if err := svc.schedules.SetSubstitute(ctx, id, ""); err != nil {
			return core.NewUpstreamError("schedule", errors.Wrapf(err, "clearing substitute of entry %s", id))
		}
	}
	return nil
}

func findTeacher(teachers []roster.Entry, id string) *roster.Entry {
	for _, t := range teachers {
		if t.ID == id {
			return &t
		}
	}
	return nil
}

func (svc *Service) observe(res Result) {
	if svc.observer != nil {
		svc.observer.ObserveResolution(res.Outcome, res.Replayed)
	}
}

// classLocks hands out one mutex per class.
type classLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (cl *classLocks) lock(classID string) (unlock func()) {
	cl.mu.Lock()
	if cl.locks == nil {
		cl.locks = make(map[string]*sync.Mutex)
	}
	m, ok := cl.locks[classID]
	if !ok {
		m = new(sync.Mutex)
		cl.locks[classID] = m
	}
	cl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
