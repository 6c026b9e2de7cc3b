// Package notification persists in-app notifications and pushes them to the recipients' devices.
package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
)

type (
	// Event triggers one fan-out.
	Event struct {
		Type    EventType
		Absence absence.Record
		// Substitute is the assigned teacher (substitute_assigned only).
		Substitute *roster.Entry
		// Uncovered marks a teacher absence no substitute could be found for.
		Uncovered bool
	}

	Options struct {
		Concurrency  int
		PushTimeout  time.Duration
		EmailEnabled bool
	}

	DeliveryObserver interface {
		ObserveDelivery(event EventType, outcome Outcome)
	}

	Fanout struct {
		repo      Repository
		people    roster.Store
		schedules schedule.Store
		push      core.PushGateway
		mailer    core.EmailService // optional
		logger    core.Logger
		observer  DeliveryObserver
		opts      Options
	}
)

func NewFanout(
	repo Repository,
	people roster.Store,
	schedules schedule.Store,
	push core.PushGateway,
	mailer core.EmailService,
	logger core.Logger,
	opts Options,
) *Fanout {
	vala.BeginValidation().Validate(
		core.IsNotNil(repo, "repo"),
		core.IsNotNil(people, "people"),
		core.IsNotNil(schedules, "schedules"),
		core.IsNotNil(push, "push"),
		core.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = 5 * time.Second
	}
	return &Fanout{
		repo:      repo,
		people:    people,
		schedules: schedules,
		push:      push,
		mailer:    mailer,
		logger:    logger,
		opts:      opts,
	}
}

func (f *Fanout) SetObserver(o DeliveryObserver) {
	f.observer = o
}

// Dispatch notifies every recipient of `ev`: one persisted record each, plus a push when a device is registered.
// It never fails; every problem is reported in the returned Report.
// Once started it runs to completion even if ctx is cancelled.
func (f *Fanout) Dispatch(ctx context.Context, ev Event) Report {
	ctx = context.WithoutCancel(ctx)
	rep := Report{Event: ev.Type, AbsenceID: ev.Absence.ID}
	if !ev.Type.Valid() {
		rep.Errors = append(rep.Errors, errors.Wrapf(errUnknownEvent, "%q", ev.Type))
		return rep
	}

	class, recipients, errs := f.recipients(ctx, ev)
	rep.Errors = append(rep.Errors, errs...)
	title, message := f.render(ctx, ev, class)
	payload := Payload{
		EventType: ev.Type,
		AbsenceID: ev.Absence.ID,
		ClassID:   ev.Absence.ClassID,
	}
	if ev.Type == EventSubstituteAssigned && ev.Substitute != nil {
		payload.SubstituteID = ev.Substitute.ID
	}

	rep.Outcomes = make([]Outcome, len(recipients))
	g := new(errgroup.Group)
	g.SetLimit(f.opts.Concurrency)
	for i, rcpt := range recipients {
		i, rcpt := i, rcpt
		g.Go(func() error {
			rep.Outcomes[i] = f.deliver(ctx, rcpt, title, message, payload)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range rep.Errors {
		f.logger.Error(fmt.Sprintf("%s fan-out for absence %s: building recipients", ev.Type, ev.Absence.ID), err)
	}
	f.logger.Info(fmt.Sprintf(
		"%s fan-out for absence %s: %d recipients, %d persisted, %d pushed, %d push failures",
		ev.Type, ev.Absence.ID, len(rep.Outcomes), rep.Persisted(), rep.Pushed(), rep.PushFailures(),
	))
	return rep
}

// Recipients computes the deduplicated recipient list of `ev` without notifying anyone.
func (f *Fanout) Recipients(ctx context.Context, ev Event) ([]roster.Entry, []error) {
	_, rcpts, errs := f.recipients(ctx, ev)
	return rcpts, errs
}

// recipients applies the per-event rules:
//   absence_submitted: HOD, the class teachers when a student is absent, admins
//   substitute_assigned: HOD, the substitute, the class students, admins
// A failing rule is reported and the remaining rules still apply.
func (f *Fanout) recipients(ctx context.Context, ev Event) (schedule.Class, []roster.Entry, []error) {
	var errs []error
	set := NewRecipientSet()

	class, err := f.schedules.GetClass(ctx, ev.Absence.ClassID)
	if err != nil {
		errs = append(errs, errors.Wrap(err, "getting class"))
	}

	ids := make([]string, 0)
	if class.HODID != "" {
		ids = append(ids, class.HODID)
	}
	switch ev.Type {
	case EventAbsenceSubmitted:
		if ev.Absence.Role == absence.RoleStudent {
			entries, err := f.schedules.GetScheduleForClass(ctx, ev.Absence.ClassID)
			if err != nil {
				errs = append(errs, errors.Wrap(err, "getting class schedule"))
			}
			ids = append(ids, schedule.TeacherIDs(entries)...)
		}
	case EventSubstituteAssigned:
		if ev.Substitute != nil {
			ids = append(ids, ev.Substitute.ID)
		}
		ids = append(ids, class.StudentIDs...)
	}

	if len(ids) > 0 {
		people, err := f.people.FindByIDs(ctx, ids...)
		if err != nil {
			errs = append(errs, errors.Wrap(err, "finding recipients"))
		}
		set.Add(people...)
	}

	admins, err := f.people.FindByRole(ctx, roster.RoleAdmin)
	if err != nil {
		errs = append(errs, errors.Wrap(err, "finding admins"))
	}
	set.Add(admins...)

	return class, set.Entries(), errs
}

func (f *Fanout) render(ctx context.Context, ev Event, class schedule.Class) (title, message string) {
	className := class.Name
	if className == "" {
		className = ev.Absence.ClassID
	}
	on := fmt.Sprintf("%s %s", ev.Absence.Weekday(), ev.Absence.Date.Format(core.DateLayout))

	switch ev.Type {
	case EventSubstituteAssigned:
		var subName string
		if ev.Substitute != nil {
			subName = ev.Substitute.Name
		}
		title = "Substitute Teacher Assigned"
		message = fmt.Sprintf("Substitute teacher %s assigned for class %s on %s.", subName, className, on)
	default:
		role := roleLabel(ev.Absence.Role)
		subject := role
		if person, err := f.people.FindByID(ctx, ev.Absence.PersonID); err == nil && person.Name != "" {
			subject = role + " " + person.Name
		}
		title = role + " Absence Application"
		message = fmt.Sprintf("%s submitted an absence application for class %s on %s.", subject, className, on)
		if ev.Uncovered {
			message += " No substitute available."
		}
	}
	return title, message
}

func (f *Fanout) deliver(ctx context.Context, rcpt roster.Entry, title, message string, payload Payload) Outcome {
	out := Outcome{RecipientID: rcpt.ID, Push: PushSkipped}

	// (a) persist
	rec, err := f.repo.CreateNotification(ctx, Record{
		ID:          uuid.New().String(),
		RecipientID: rcpt.ID,
		Type:        payload.EventType,
		Title:       title,
		Message:     message,
		Payload:     payload,
		CreatedAt:   core.NowFunc(),
	})
	if err != nil {
		out.PersistErr = errors.Wrap(err, "creating notification")
		f.logger.Warn(fmt.Sprintf("notification for %s not persisted", rcpt.ID), out.PersistErr)
	} else {
		out.Persisted = true
		out.NotificationID = rec.ID
	}

	// (b) push, independent of (a)
	if rcpt.HasPushHandle() {
		pctx, cancel := context.WithTimeout(ctx, f.opts.PushTimeout)
		err = f.push.Send(pctx, rcpt.PushHandle, title, message, payload.Map())
		cancel()
		if err != nil {
			out.Push = PushFailed
			out.PushErr = errors.Wrap(err, "sending push")
			f.logger.Warn(fmt.Sprintf("push to %s failed", rcpt.ID), out.PushErr)
		} else {
			out.Push = PushSent
		}
	}

	if f.opts.EmailEnabled && f.mailer != nil && rcpt.Email != "" {
		f.mailer.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: rcpt.Name, Address: rcpt.Email}},
			Subject: title,
			BodyStr: message,
		})
		out.EmailQueued = true
	}

	if f.observer != nil {
		f.observer.ObserveDelivery(payload.EventType, out)
	}
	return out
}

func roleLabel(role string) string {
	switch role {
	case absence.RoleTeacher:
		return "Teacher"
	case absence.RoleStudent:
		return "Student"
	}
	return "Staff"
}
