package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-absences/core/roster"
)

func TestPayload_Map(t *testing.T) {
	p := Payload{EventType: EventSubstituteAssigned, AbsenceID: "a1", ClassID: "c1", SubstituteID: "t2"}

	got, err := PayloadFromMap(p.Map())
	require.NoError(t, err)
	assert.Equal(t, p, got)

	submitted := Payload{EventType: EventAbsenceSubmitted, AbsenceID: "a1", ClassID: "c1"}
	assert.NotContains(t, submitted.Map(), "substituteId")

	_, err = PayloadFromMap(map[string]string{"eventType": "teacher_absence", "absenceId": "a1"})
	assert.Error(t, err)
	_, err = PayloadFromMap(map[string]string{"eventType": "absence_submitted"})
	assert.Error(t, err)
}

func TestRecipientSet(t *testing.T) {
	rs := NewRecipientSet()
	rs.Add(roster.Entry{ID: "hod", Name: "first"}, roster.Entry{ID: "t1"})
	rs.Add(roster.Entry{ID: "hod", Name: "second"}, roster.Entry{}, roster.Entry{ID: "adm"})

	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, []string{"hod", "t1", "adm"}, rs.IDs())
	assert.Equal(t, "first", rs.Entries()[0].Name)
	assert.True(t, rs.Has("adm"))
	assert.False(t, rs.Has(""))

	entries := rs.Entries()
	entries[0].ID = "changed"
	assert.Equal(t, "hod", rs.IDs()[0])
}

func TestReport(t *testing.T) {
	rep := Report{Outcomes: []Outcome{
		{RecipientID: "a", Persisted: true, Push: PushSent},
		{RecipientID: "b", Persisted: false, Push: PushFailed},
		{RecipientID: "c", Persisted: true, Push: PushSkipped},
	}}

	assert.Equal(t, []string{"a", "b", "c"}, rep.RecipientIDs())
	assert.Equal(t, 2, rep.Persisted())
	assert.Equal(t, 1, rep.PersistFailures())
	assert.Equal(t, 1, rep.Pushed())
	assert.Equal(t, 1, rep.PushFailures())
	assert.False(t, rep.Complete())
	assert.True(t, Report{Outcomes: rep.Outcomes[:1]}.Complete())
}
