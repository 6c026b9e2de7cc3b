package tests

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-absences/core/absence"
	"github.com/trezcool/masomo-absences/core/notification"
	"github.com/trezcool/masomo-absences/core/roster"
	"github.com/trezcool/masomo-absences/core/schedule"
	"github.com/trezcool/masomo-absences/core/substitute"
	"github.com/trezcool/masomo-absences/tests"
)

const monday = "2024-03-04"

type school struct {
	t1, t2, t3, hod, s1, s2, admin roster.Entry
	class                          schedule.Class
	mon8, mon9, mon10, tue8        schedule.Entry
}

// newSchool seeds one class taught on monday by t1 (08:00, 10:00) and t3 (09:00), and on tuesday by t1.
func newSchool(t *testing.T, app testApp) school {
	var s school
	s.t1 = testutil.CreatePerson(t, app.repos.Roster, "Teacher One", roster.RoleTeacher, "tok-t1", false)
	s.t2 = testutil.CreatePerson(t, app.repos.Roster, "Teacher Two", roster.RoleTeacher, "tok-t2", false)
	s.t3 = testutil.CreatePerson(t, app.repos.Roster, "Teacher Three", roster.RoleTeacher, "", false)
	s.hod = testutil.CreatePerson(t, app.repos.Roster, "Head Teacher", roster.RoleTeacher, "tok-hod", false)
	s.s1 = testutil.CreatePerson(t, app.repos.Roster, "Student One", roster.RoleStudent, "tok-s1", false)
	s.s2 = testutil.CreatePerson(t, app.repos.Roster, "Student Two", roster.RoleStudent, "", false)
	s.admin = testutil.CreatePerson(t, app.repos.Roster, "Admin", roster.RoleAdmin, "tok-admin", false)

	s.class = testutil.CreateClass(t, app.repos.Schedule, "Form 1A", s.hod.ID, s.s1.ID, s.s2.ID)
	s.mon8 = testutil.CreateEntry(t, app.repos.Schedule, s.class.ID, s.t1.ID, time.Monday, "08:00", "09:00")
	s.mon10 = testutil.CreateEntry(t, app.repos.Schedule, s.class.ID, s.t1.ID, time.Monday, "10:00", "11:00")
	s.mon9 = testutil.CreateEntry(t, app.repos.Schedule, s.class.ID, s.t3.ID, time.Monday, "09:00", "10:00")
	s.tue8 = testutil.CreateEntry(t, app.repos.Schedule, s.class.ID, s.t1.ID, time.Tuesday, "08:00", "09:00")
	return s
}

type submitResponse struct {
	Absence    absence.Record     `json:"absence"`
	Resolution *substitute.Result `json:"resolution"`
}

func absenceBody(t *testing.T, personID, role, classID, date string) []byte {
	return marchallObj(t, absence.NewAbsence{
		PersonID: personID,
		Role:     role,
		ClassID:  classID,
		Reason:   "medical appointment",
		Date:     date,
	})
}

func submit(t *testing.T, app testApp, token string, body []byte) submitResponse {
	req, rec := newAuthRequest(http.MethodPost, "/v1/absences", token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res submitResponse
	unmarshal(t, rec, &res)
	return res
}

func scheduleOf(t *testing.T, app testApp, classID string) map[string]schedule.Entry {
	entries, err := app.repos.Schedule.GetScheduleForClass(context.Background(), classID)
	require.NoError(t, err)
	byID := make(map[string]schedule.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return byID
}

// notified groups the stored notifications by event type.
func notified(app testApp) map[notification.EventType][]string {
	got := make(map[notification.EventType][]string)
	for _, rec := range app.db.Notifications() {
		got[rec.Type] = append(got[rec.Type], rec.RecipientID)
	}
	return got
}

func messageFor(app testApp, event notification.EventType) string {
	for _, rec := range app.db.Notifications() {
		if rec.Type == event {
			return rec.Message
		}
	}
	return ""
}

func Test_absenceApi_submit_teacherSubstituteFound(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)

	res := submit(t, app, getToken(t, app, s.t1), absenceBody(t, "", "teacher", s.class.ID, monday))

	assert.Equal(t, s.t1.ID, res.Absence.PersonID)
	assert.Equal(t, absence.StatusPending, res.Absence.Status)
	assert.Equal(t, 1.0, res.Absence.Duration)
	require.NotNil(t, res.Resolution)
	assert.Equal(t, substitute.OutcomeAssigned, res.Resolution.Outcome)
	assert.Equal(t, s.t2.ID, res.Resolution.SubstituteID)
	assert.Equal(t, []string{s.mon8.ID, s.mon10.ID}, res.Resolution.EntryIDs)

	entries := scheduleOf(t, app, s.class.ID)
	assert.Equal(t, s.t2.ID, entries[s.mon8.ID].SubstituteID)
	assert.Equal(t, s.t2.ID, entries[s.mon10.ID].SubstituteID)
	assert.Empty(t, entries[s.mon9.ID].SubstituteID)
	assert.Empty(t, entries[s.tue8.ID].SubstituteID)

	got := notified(app)
	assert.ElementsMatch(t, []string{s.hod.ID, s.admin.ID}, got[notification.EventAbsenceSubmitted])
	assert.ElementsMatch(t, []string{s.hod.ID, s.t2.ID, s.s1.ID, s.s2.ID, s.admin.ID}, got[notification.EventSubstituteAssigned])
	assert.Equal(t, "Teacher Teacher One submitted an absence application for class Form 1A on Monday 2024-03-04.",
		messageFor(app, notification.EventAbsenceSubmitted))
	assert.Equal(t, "Substitute teacher Teacher Two assigned for class Form 1A on Monday 2024-03-04.",
		messageFor(app, notification.EventSubstituteAssigned))

	// recipients without a push handle are still persisted but never pushed
	assert.ElementsMatch(t, []string{"tok-hod", "tok-admin", "tok-hod", "tok-t2", "tok-s1", "tok-admin"}, app.push.SentTo())
	for _, p := range app.push.Sent() {
		pl, err := notification.PayloadFromMap(p.Data)
		require.NoError(t, err)
		assert.Equal(t, res.Absence.ID, pl.AbsenceID)
		assert.Equal(t, s.class.ID, pl.ClassID)
	}
}

func Test_absenceApi_submit_substituteAlsoAbsent(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)

	// t2 is away the same day; t2 teaches nothing in the class, t1 is picked with no slot to cover
	first := submit(t, app, getToken(t, app, s.t2), absenceBody(t, "", "teacher", s.class.ID, monday))
	require.NotNil(t, first.Resolution)
	assert.Equal(t, substitute.OutcomeAssigned, first.Resolution.Outcome)
	assert.Equal(t, s.t1.ID, first.Resolution.SubstituteID)
	assert.Empty(t, first.Resolution.EntryIDs)

	res := submit(t, app, getToken(t, app, s.t1), absenceBody(t, "", "teacher", s.class.ID, monday))

	require.NotNil(t, res.Resolution)
	assert.Equal(t, substitute.OutcomeAssigned, res.Resolution.Outcome)
	assert.Equal(t, s.t3.ID, res.Resolution.SubstituteID)
	assert.Equal(t, s.t3.ID, scheduleOf(t, app, s.class.ID)[s.mon8.ID].SubstituteID)
}

func Test_absenceApi_submit_substituteLaterAbsent(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)

	first := submit(t, app, getToken(t, app, s.t1), absenceBody(t, "", "teacher", s.class.ID, monday))
	require.Equal(t, s.t2.ID, first.Resolution.SubstituteID)

	// t2 falls sick too: t1's slots move to t3
	submit(t, app, getToken(t, app, s.t2), absenceBody(t, "", "teacher", s.class.ID, monday))

	entries := scheduleOf(t, app, s.class.ID)
	assert.Equal(t, s.t3.ID, entries[s.mon8.ID].SubstituteID)
	assert.Equal(t, s.t3.ID, entries[s.mon10.ID].SubstituteID)

	var toT3 int
	for _, rec := range app.db.Notifications() {
		if rec.Type == notification.EventSubstituteAssigned && rec.Payload.AbsenceID == first.Absence.ID && rec.Payload.SubstituteID == s.t3.ID {
			toT3++
		}
	}
	assert.Equal(t, 5, toT3) // hod, t3, s1, s2, admin

	req, rec := newAuthRequest(http.MethodPost, "/v1/absences/"+first.Absence.ID+"/resolve", getToken(t, app, s.admin))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got submitResponse
	unmarshal(t, rec, &got)
	assert.True(t, got.Resolution.Replayed)
	assert.Equal(t, s.t3.ID, got.Resolution.SubstituteID)
}

func Test_absenceApi_submit_noSubstitute(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)
	adminToken := getToken(t, app, s.admin)

	// t2 and the HOD are away (they teach no slot), t3 is disabled
	s.t3.Disabled = true
	_, err := app.repos.Roster.CreateEntry(context.Background(), s.t3)
	require.NoError(t, err)
	submit(t, app, adminToken, absenceBody(t, s.t2.ID, "teacher", s.class.ID, monday))
	submit(t, app, adminToken, absenceBody(t, s.hod.ID, "teacher", s.class.ID, monday))

	res := submit(t, app, adminToken, absenceBody(t, s.t1.ID, "teacher", s.class.ID, monday))

	require.NotNil(t, res.Resolution)
	assert.Equal(t, substitute.OutcomeNoSubstitute, res.Resolution.Outcome)
	assert.Empty(t, res.Resolution.SubstituteID)
	for _, e := range scheduleOf(t, app, s.class.ID) {
		assert.Empty(t, e.SubstituteID)
	}
	for _, rec := range app.db.Notifications() {
		if rec.Payload.AbsenceID == res.Absence.ID {
			assert.NotEqual(t, notification.EventSubstituteAssigned, rec.Type)
		}
	}

	var uncovered int
	for _, rec := range app.db.Notifications() {
		if rec.Payload.AbsenceID == res.Absence.ID {
			assert.True(t, strings.HasSuffix(rec.Message, " No substitute available."), rec.Message)
			uncovered++
		}
	}
	assert.Equal(t, 2, uncovered) // HOD + admin
}

func Test_absenceApi_submit_student(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)

	res := submit(t, app, getToken(t, app, s.s1), absenceBody(t, "", "student", s.class.ID, monday))

	assert.Nil(t, res.Resolution)
	got := notified(app)
	assert.ElementsMatch(t, []string{s.hod.ID, s.t1.ID, s.t3.ID, s.admin.ID}, got[notification.EventAbsenceSubmitted])
	assert.Empty(t, got[notification.EventSubstituteAssigned])
	assert.Equal(t, "Student Student One submitted an absence application for class Form 1A on Monday 2024-03-04.",
		messageFor(app, notification.EventAbsenceSubmitted))
	for _, e := range scheduleOf(t, app, s.class.ID) {
		assert.Empty(t, e.SubstituteID)
	}
}

func Test_absenceApi_submit_errors(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)
	studentToken := getToken(t, app, s.s1)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", token: "not-a-token", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Other person (non-admin)", token: studentToken, wantCode: http.StatusForbidden,
			body:     absenceBody(t, s.s2.ID, "student", s.class.ID, monday),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown class", token: studentToken, wantCode: http.StatusNotFound,
			body:     absenceBody(t, "", "student", "nope", monday),
			wantData: marchallObj(t, httpErr{Error: `class "nope" not found`}),
		},
		{
			name: "Unknown person (admin)", token: getToken(t, app, s.admin), wantCode: http.StatusNotFound,
			body:     absenceBody(t, "ghost", "student", s.class.ID, monday),
			wantData: marchallObj(t, httpErr{Error: `person "ghost" not found`}),
		},
		{
			name: "Role mismatch", token: studentToken, wantCode: http.StatusBadRequest,
			body: absenceBody(t, "", "teacher", s.class.ID, monday),
		},
		{
			name: "Bad date", token: studentToken, wantCode: http.StatusBadRequest,
			body: absenceBody(t, "", "student", s.class.ID, "2024-02-30"),
		},
		{
			name: "Blank reason", token: studentToken, wantCode: http.StatusBadRequest,
			body: []byte(fmt.Sprintf(`{"role":"student","class_id":%q,"reason":"   ","date":%q}`, s.class.ID, monday)),
		},
		{name: "Malformed body", token: studentToken, wantCode: http.StatusBadRequest, body: []byte(`{"role":`)},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/absences"
	}
	runTests(t, app, tests)

	assert.Empty(t, app.db.Notifications())
}

func Test_absenceApi_query(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)
	adminToken := getToken(t, app, s.admin)

	a1 := submit(t, app, adminToken, absenceBody(t, s.s1.ID, "student", s.class.ID, "2024-03-04")).Absence
	a2 := submit(t, app, adminToken, absenceBody(t, s.s2.ID, "student", s.class.ID, "2024-03-05")).Absence
	a3 := submit(t, app, adminToken, absenceBody(t, s.t1.ID, "teacher", s.class.ID, "2024-03-06")).Absence

	view := func(rec absence.Record, person roster.Entry) absence.View {
		return absence.View{Record: rec, PersonName: person.Name, ClassName: s.class.Name}
	}
	v1, v2, v3 := view(a1, s.s1), view(a2, s.s2), view(a3, s.t1)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/absences", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "All (newest date first)", path: "/v1/absences", token: adminToken, wantData: marchallList(t, v3, v2, v1)},
		{name: "Own only (non-admin)", path: "/v1/absences", token: getToken(t, app, s.s2), wantData: marchallList(t, v2)},
		{name: "role=teacher", path: "/v1/absences?role=teacher", token: adminToken, wantData: marchallList(t, v3)},
		{name: "person", path: "/v1/absences?person=" + s.s1.ID, token: adminToken, wantData: marchallList(t, v1)},
		{name: "status (none)", path: "/v1/absences?status=approved", token: adminToken, wantData: marchallList(t)},
		{
			name: "date range", path: "/v1/absences?date_from=2024-03-05&date_to=2024-03-06&ordering=date",
			token: adminToken, wantData: marchallList(t, v2, v3),
		},
		{name: "ordering person_name", path: "/v1/absences?ordering=person_name", token: adminToken, wantData: marchallList(t, v1, v2, v3)},
		{name: "bad date", path: "/v1/absences?date_from=yesterday", token: adminToken, wantCode: http.StatusBadRequest},
	}
	runTests(t, app, tests)
}

func Test_absenceApi_detail(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)
	adminToken := getToken(t, app, s.admin)
	ownerToken := getToken(t, app, s.t1)

	res := submit(t, app, ownerToken, absenceBody(t, "", "teacher", s.class.ID, monday))
	path := "/v1/absences/" + res.Absence.ID

	tests := []httpTest{
		{name: "Retrieve (owner)", path: path, token: ownerToken, wantData: marchallObj(t, res.Absence)},
		{name: "Retrieve (admin)", path: path, token: adminToken, wantData: marchallObj(t, res.Absence)},
		{
			name: "Retrieve (someone else)", path: path, token: getToken(t, app, s.s1), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "Retrieve (unknown)", path: "/v1/absences/nope", token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "Set status (owner)", method: http.MethodPut, path: path + "/status", token: ownerToken,
			body: []byte(`{"status":"approved"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "Set status (invalid)", method: http.MethodPut, path: path + "/status", token: adminToken,
			body: []byte(`{"status":"lost"}`), wantCode: http.StatusBadRequest,
		},
	}
	runTests(t, app, tests)

	t.Run("Set status (admin)", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path+"/status", adminToken, []byte(`{"status":"APPROVED"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got absence.Record
		unmarshal(t, rec, &got)
		assert.Equal(t, absence.StatusApproved, got.Status)
		assert.False(t, got.UpdatedAt.Before(res.Absence.UpdatedAt))
	})

	t.Run("Resolve again is a replay", func(t *testing.T) {
		before := len(app.db.Notifications())
		req, rec := newAuthRequest(http.MethodPost, path+"/resolve", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got submitResponse
		unmarshal(t, rec, &got)
		require.NotNil(t, got.Resolution)
		assert.True(t, got.Resolution.Replayed)
		assert.Equal(t, s.t2.ID, got.Resolution.SubstituteID)
		assert.Len(t, app.db.Notifications(), before)
	})
}

func Test_absenceApi_resolve_student(t *testing.T) {
	app := setup(t)
	s := newSchool(t, app)
	adminToken := getToken(t, app, s.admin)

	res := submit(t, app, adminToken, absenceBody(t, s.s1.ID, "student", s.class.ID, monday))

	runTests(t, app, []httpTest{{
		name: "Student absence", method: http.MethodPost, path: "/v1/absences/" + res.Absence.ID + "/resolve",
		token: adminToken, wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"role": "only teacher absences can be resolved"}),
	}})
}
