package notification

import (
	"time"

	"github.com/pkg/errors"
)

type EventType string

// Event types
const (
	EventAbsenceSubmitted   EventType = "absence_submitted"
	EventSubstituteAssigned EventType = "substitute_assigned"
)

var errUnknownEvent = errors.New("unknown event type")

// Payload is carried unchanged by the persisted record and by the push data.
type Payload struct {
	EventType    EventType `json:"eventType"`
	AbsenceID    string    `json:"absenceId"`
	ClassID      string    `json:"classId"`
	SubstituteID string    `json:"substituteId,omitempty"`
}

// payload keys; push data only carries strings
const (
	keyEventType    = "eventType"
	keyAbsenceID    = "absenceId"
	keyClassID      = "classId"
	keySubstituteID = "substituteId"
)

// Map returns the push data form of the payload.
func (p Payload) Map() map[string]string {
	m := map[string]string{
		keyEventType: string(p.EventType),
		keyAbsenceID: p.AbsenceID,
		keyClassID:   p.ClassID,
	}
	if p.SubstituteID != "" {
		m[keySubstituteID] = p.SubstituteID
	}
	return m
}

// PayloadFromMap is the inverse of Payload.Map.
func PayloadFromMap(m map[string]string) (Payload, error) {
	p := Payload{
		EventType:    EventType(m[keyEventType]),
		AbsenceID:    m[keyAbsenceID],
		ClassID:      m[keyClassID],
		SubstituteID: m[keySubstituteID],
	}
	if !p.EventType.Valid() {
		return Payload{}, errors.Wrapf(errUnknownEvent, "%q", p.EventType)
	}
	if p.AbsenceID == "" {
		return Payload{}, errors.New("payload without absenceId")
	}
	return p, nil
}

func (et EventType) Valid() bool {
	return et == EventAbsenceSubmitted || et == EventSubstituteAssigned
}

type Record struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        EventType `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Payload     Payload   `json:"payload"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	Unread bool `query:"unread"`
}
