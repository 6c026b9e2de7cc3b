// Package workflow ties the absence ledger, the substitute resolver and the notification fan-out together.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/substitute"
)

const notTeacherAbsenceText = "only teacher absences can be resolved"

type (
	Ledger interface {
		Submit(ctx context.Context, na absence.NewAbsence) (absence.Record, error)
		Get(ctx context.Context, id string) (absence.Record, error)
		ActiveTeacherAbsences(ctx context.Context, from, to time.Time) ([]absence.Record, error)
	}

	Resolver interface {
		Resolve(ctx context.Context, rec absence.Record) (substitute.Result, error)
	}

	Dispatcher interface {
		Dispatch(ctx context.Context, ev notification.Event) notification.Report
	}

	// Result of one unit of work. Resolution is nil for student absences.
	Result struct {
		Absence    absence.Record        `json:"absence"`
		Resolution *substitute.Result    `json:"resolution,omitempty"`
		Reports    []notification.Report `json:"-"`
	}

	Service struct {
		ledger   Ledger
		resolver Resolver
		fanout   Dispatcher
		logger   core.Logger
	}
)

func NewService(ledger Ledger, resolver Resolver, fanout Dispatcher, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		core.IsNotNil(ledger, "ledger"),
		core.IsNotNil(resolver, "resolver"),
		core.IsNotNil(fanout, "fanout"),
		core.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{ledger: ledger, resolver: resolver, fanout: fanout, logger: logger}
}

// SubmitAbsence records the absence, resolves a substitute for teachers, then notifies.
// Only the ledger write and the resolution can fail the call; fan-out problems end up in Result.Reports.
// When resolution fails the absence is still recorded and announced, and the error is returned with the Result.
func (svc *Service) SubmitAbsence(ctx context.Context, na absence.NewAbsence) (Result, error) {
	rec, err := svc.ledger.Submit(ctx, na)
	if err != nil {
		return Result{}, errors.Wrap(err, "submitting absence")
	}
	res := Result{Absence: rec}

	var resolveErr error
	if rec.IsTeacher() {
		resolution, err := svc.resolver.Resolve(ctx, rec)
		if err != nil {
			resolveErr = errors.Wrap(err, "resolving substitute")
			svc.logger.Error(fmt.Sprintf("resolving substitute for absence %s", rec.ID), resolveErr)
		} else {
			res.Resolution = &resolution
		}
	}

	events := []notification.Event{{
		Type:      notification.EventAbsenceSubmitted,
		Absence:   rec,
		Uncovered: res.Resolution != nil && res.Resolution.Outcome == substitute.OutcomeNoSubstitute,
	}}
	if res.Resolution != nil && res.Resolution.NewAssignment() {
		events = append(events, assignedEvent(rec, *res.Resolution))
	}
	res.Reports = svc.dispatch(ctx, events...)
	if rec.IsTeacher() {
		res.Reports = append(res.Reports, svc.releaseCover(ctx, rec)...)
	}

	return res, resolveErr
}

// releaseCover re-resolves the other teacher absences of the same date, so that the ones the new
// absentee was covering get another substitute. Absences still covered replay without notifications.
func (svc *Service) releaseCover(ctx context.Context, rec absence.Record) []notification.Report {
	others, err := svc.ledger.ActiveTeacherAbsences(ctx, rec.Date, rec.Date)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("listing absences covered by %s", rec.PersonID), err)
		return nil
	}

	var reports []notification.Report
	for _, other := range others {
		if other.ID == rec.ID || other.PersonID == rec.PersonID {
			continue
		}
		res, err := svc.Reresolve(ctx, other.ID)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("re-resolving absence %s", other.ID), err)
			continue
		}
		reports = append(reports, res.Reports...)
	}
	return reports
}

// Reresolve runs resolution again for a recorded teacher absence and announces a new assignment.
// An absence already assigned is replayed without notifications.
func (svc *Service) Reresolve(ctx context.Context, absenceID string) (Result, error) {
	rec, err := svc.ledger.Get(ctx, absenceID)
	if err != nil {
		return Result{}, errors.Wrap(err, "getting absence")
	}
	if !rec.IsTeacher() {
		return Result{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: notTeacherAbsenceText})
	}

	resolution, err := svc.resolver.Resolve(ctx, rec)
	if err != nil {
		return Result{Absence: rec}, errors.Wrap(err, "resolving substitute")
	}
	res := Result{Absence: rec, Resolution: &resolution}
	if resolution.NewAssignment() {
		res.Reports = svc.dispatch(ctx, assignedEvent(rec, resolution))
	}
	return res, nil
}

// Sweep re-resolves the active teacher absences dated within [from, to] and returns how many got a new substitute.
// A failing absence is logged and the sweep goes on.
func (svc *Service) Sweep(ctx context.Context, from, to time.Time) (int, error) {
	recs, err := svc.ledger.ActiveTeacherAbsences(ctx, from, to)
	if err != nil {
		return 0, errors.Wrap(err, "listing teacher absences")
	}

	var assigned int
	for _, rec := range recs {
		if ctx.Err() != nil {
			return assigned, ctx.Err()
		}
		res, err := svc.Reresolve(ctx, rec.ID)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("sweep: resolving absence %s", rec.ID), err)
			continue
		}
		if res.Resolution.NewAssignment() {
			assigned++
		}
	}
	return assigned, nil
}

// dispatch runs the fan-outs concurrently; they are independent of each other.
func (svc *Service) dispatch(ctx context.Context, events ...notification.Event) []notification.Report {
	reports := make([]notification.Report, len(events))
	g := new(errgroup.Group)
	for i, ev := range events {
		i, ev := i, ev
		g.Go(func() error {
			reports[i] = svc.fanout.Dispatch(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func assignedEvent(rec absence.Record, res substitute.Result) notification.Event {
	return notification.Event{
		Type:       notification.EventSubstituteAssigned,
		Absence:    rec,
		Substitute: res.Substitute,
	}
}
