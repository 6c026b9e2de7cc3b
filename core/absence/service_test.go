package absence_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
	inmemdb "github.com/trezcool/masomo-absences/storage/database/inmem"
	"github.com/trezcool/masomo-absences/tests"
)

type fixture struct {
	ledger  *absence.Ledger
	people  roster.Repository
	classes schedule.Repository
	teacher roster.Entry
	student roster.Entry
	class   schedule.Class
}

func setup(t *testing.T) fixture {
	db := inmemdb.Open()
	people := inmemdb.NewRosterRepository(db)
	classes := inmemdb.NewScheduleRepository(db)
	validate, translator := testutil.NewValidator()

	f := fixture{
		ledger:  absence.NewLedger(inmemdb.NewAbsenceRepository(db), classes, people, validate, translator),
		people:  people,
		classes: classes,
		teacher: testutil.CreatePerson(t, people, "Teacher", roster.RoleTeacher, "", false),
		student: testutil.CreatePerson(t, people, "Student", roster.RoleStudent, "", false),
	}
	f.class = testutil.CreateClass(t, classes, "Form 3C", "", f.student.ID)
	return f
}

func newAbsence(personID, role, classID, date string) absence.NewAbsence {
	return absence.NewAbsence{PersonID: personID, Role: role, ClassID: classID, Reason: "sick", Date: date}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.True(t, core.IsValidation(err), "got %v", err)
	flds := make(map[string]string)
	for _, fe := range errors.Cause(err).(*core.ValidationError).Fields {
		flds[fe.Field] = fe.Error
	}
	return flds
}

func TestLedger_Submit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.ledger.Submit(ctx, absence.NewAbsence{
		PersonID: " " + f.teacher.ID + " ",
		Role:     "Teacher",
		ClassID:  f.class.ID,
		Reason:   "  family event ",
		Date:     "2024-03-04",
		Duration: 0.5,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, f.teacher.ID, rec.PersonID)
	assert.Equal(t, absence.RoleTeacher, rec.Role)
	assert.Equal(t, "family event", rec.Reason)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, 0.5, rec.Duration)
	assert.Equal(t, absence.StatusPending, rec.Status)
	assert.Equal(t, time.Monday, rec.Weekday())

	got, err := f.ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestLedger_Submit_errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		na         absence.NewAbsence
		wantFields []string
		notFound   bool
	}{
		{name: "empty", na: absence.NewAbsence{}, wantFields: []string{"person_id", "role", "class_id", "reason", "date"}},
		{name: "unknown role", na: newAbsence(f.student.ID, "parent", f.class.ID, "2024-03-04"), wantFields: []string{"role"}},
		{name: "bad date", na: newAbsence(f.student.ID, "student", f.class.ID, "2024-02-31"), wantFields: []string{"date"}},
		{name: "negative duration", na: absence.NewAbsence{
			PersonID: f.student.ID, Role: "student", ClassID: f.class.ID, Reason: "x", Date: "2024-03-04", Duration: -1,
		}, wantFields: []string{"duration"}},
		{name: "role mismatch", na: newAbsence(f.student.ID, "teacher", f.class.ID, "2024-03-04"), wantFields: []string{"role"}},
		{name: "unknown class", na: newAbsence(f.student.ID, "student", "nope", "2024-03-04"), notFound: true},
		{name: "unknown person", na: newAbsence("ghost", "student", f.class.ID, "2024-03-04"), notFound: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Submit(ctx, tt.na)
			if tt.notFound {
				assert.True(t, core.IsNotFound(err), "got %v", err)
				return
			}
			flds := fieldErrors(t, err)
			for _, fld := range tt.wantFields {
				assert.Contains(t, flds, fld)
			}
			assert.Len(t, flds, len(tt.wantFields))
		})
	}

	views, err := f.ledger.List(ctx, absence.Filter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, views)
}

type failingRoster struct {
	roster.Store
}

func (failingRoster) FindByID(context.Context, string) (roster.Entry, error) {
	return roster.Entry{}, errors.New("connection reset")
}

func TestLedger_Submit_rosterDown(t *testing.T) {
	f := setup(t)
	validate, translator := testutil.NewValidator()
	ledger := absence.NewLedger(inmemdb.NewAbsenceRepository(inmemdb.Open()), f.classes, failingRoster{f.people}, validate, translator)

	_, err := ledger.Submit(context.Background(), newAbsence(f.student.ID, "student", f.class.ID, "2024-03-04"))

	assert.True(t, core.IsUpstream(err), "got %v", err)
}

func TestLedger_List(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	submit := func(personID, role, date string) absence.Record {
		rec, err := f.ledger.Submit(ctx, newAbsence(personID, role, f.class.ID, date))
		require.NoError(t, err)
		return rec
	}
	a1 := submit(f.student.ID, "student", "2024-03-04")
	a2 := submit(f.teacher.ID, "teacher", "2024-03-05")
	a3 := submit(f.student.ID, "student", "2024-03-06")
	_, err := f.ledger.SetStatus(ctx, a3.ID, absence.UpdateStatus{Status: "rejected"})
	require.NoError(t, err)

	ids := func(views []absence.View) []string {
		out := make([]string, 0, len(views))
		for _, v := range views {
			out = append(out, v.ID)
		}
		return out
	}

	tests := []struct {
		name      string
		filter    absence.Filter
		orderings []core.DBOrdering
		want      []string
		wantErr   bool
	}{
		{name: "all, newest first", want: []string{a3.ID, a2.ID, a1.ID}},
		{name: "oldest first", orderings: []core.DBOrdering{{Field: "date", Ascending: true}}, want: []string{a1.ID, a2.ID, a3.ID}},
		{name: "unknown ordering ignored", orderings: []core.DBOrdering{{Field: "reason"}}, want: []string{a3.ID, a2.ID, a1.ID}},
		{name: "person", filter: absence.Filter{PersonID: f.student.ID}, want: []string{a3.ID, a1.ID}},
		{name: "role", filter: absence.Filter{Role: "TEACHER"}, want: []string{a2.ID}},
		{name: "class", filter: absence.Filter{ClassID: f.class.ID}, want: []string{a3.ID, a2.ID, a1.ID}},
		{name: "status", filter: absence.Filter{Statuses: []string{"pending"}}, want: []string{a2.ID, a1.ID}},
		{name: "date range", filter: absence.Filter{DateFrom: "2024-03-05", DateTo: "2024-03-06"}, want: []string{a3.ID, a2.ID}},
		{name: "bad date", filter: absence.Filter{DateTo: "soon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := f.ledger.List(ctx, tt.filter, tt.orderings)
			if tt.wantErr {
				assert.Contains(t, fieldErrors(t, err), "date_to")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(views))
		})
	}

	views, err := f.ledger.List(ctx, absence.Filter{PersonID: f.teacher.ID}, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Teacher", views[0].PersonName)
	assert.Equal(t, "Form 3C", views[0].ClassName)
}

func TestLedger_AbsentOnDate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	monday := testutil.Date(t, "2024-03-04")

	rec, err := f.ledger.Submit(ctx, newAbsence(f.teacher.ID, "teacher", f.class.ID, "2024-03-04"))
	require.NoError(t, err)
	_, err = f.ledger.Submit(ctx, newAbsence(f.student.ID, "student", f.class.ID, "2024-03-05"))
	require.NoError(t, err)

	absent, err := f.ledger.AbsentOnDate(ctx, monday.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{f.teacher.ID: true}, absent)

	// a rejected absence no longer counts
	_, err = f.ledger.SetStatus(ctx, rec.ID, absence.UpdateStatus{Status: absence.StatusRejected})
	require.NoError(t, err)
	absent, err = f.ledger.AbsentOnDate(ctx, monday)
	require.NoError(t, err)
	assert.Empty(t, absent)
}

func TestLedger_SetStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rec, err := f.ledger.Submit(ctx, newAbsence(f.student.ID, "student", f.class.ID, "2024-03-04"))
	require.NoError(t, err)

	_, err = f.ledger.SetStatus(ctx, rec.ID, absence.UpdateStatus{Status: "lost"})
	assert.Contains(t, fieldErrors(t, err), "status")

	_, err = f.ledger.SetStatus(ctx, "nope", absence.UpdateStatus{Status: "approved"})
	assert.True(t, core.IsNotFound(err))

	// no transition rule: rejected can go back to pending
	for _, status := range []string{absence.StatusRejected, absence.StatusPending, absence.StatusApproved} {
		got, err := f.ledger.SetStatus(ctx, rec.ID, absence.UpdateStatus{Status: status})
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}
}

func TestLedger_ActiveTeacherAbsences(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other := testutil.CreatePerson(t, f.people, "Other", roster.RoleTeacher, "", false)

	submit := func(personID, role, date string) absence.Record {
		rec, err := f.ledger.Submit(ctx, newAbsence(personID, role, f.class.ID, date))
		require.NoError(t, err)
		return rec
	}
	late := submit(f.teacher.ID, "teacher", "2024-03-06")
	early := submit(other.ID, "teacher", "2024-03-04")
	submit(f.student.ID, "student", "2024-03-05")
	submit(f.teacher.ID, "teacher", "2024-03-08") // out of range
	rejected := submit(other.ID, "teacher", "2024-03-05")
	_, err := f.ledger.SetStatus(ctx, rejected.ID, absence.UpdateStatus{Status: absence.StatusRejected})
	require.NoError(t, err)

	recs, err := f.ledger.ActiveTeacherAbsences(ctx, testutil.Date(t, "2024-03-04"), testutil.Date(t, "2024-03-07"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, early.ID, recs[0].ID)
	assert.Equal(t, late.ID, recs[1].ID)
}
