package notification

// Push statuses
const (
	PushSent    = "sent"
	PushFailed  = "failed"
	PushSkipped = "skipped" // no registered device
)

// Outcome is the per-recipient result of a fan-out.
type Outcome struct {
	RecipientID    string `json:"recipient_id"`
	NotificationID string `json:"notification_id,omitempty"`
	Persisted      bool   `json:"persisted"`
	PersistErr     error  `json:"-"`
	Push           string `json:"push"`
	PushErr        error  `json:"-"`
	EmailQueued    bool   `json:"email_queued"`
}

// Report describes a completed fan-out. Errors holds the failures met while building the recipient list.
type Report struct {
	Event     EventType `json:"event"`
	AbsenceID string    `json:"absence_id"`
	Outcomes  []Outcome `json:"outcomes"`
	Errors    []error   `json:"-"`
}

func (r Report) RecipientIDs() []string {
	ids := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		ids = append(ids, o.RecipientID)
	}
	return ids
}

func (r Report) Persisted() int {
	return r.count(func(o Outcome) bool { return o.Persisted })
}

func (r Report) PersistFailures() int {
	return r.count(func(o Outcome) bool { return !o.Persisted })
}

func (r Report) Pushed() int {
	return r.count(func(o Outcome) bool { return o.Push == PushSent })
}

func (r Report) PushFailures() int {
	return r.count(func(o Outcome) bool { return o.Push == PushFailed })
}

// Complete reports whether every recipient step succeeded.
func (r Report) Complete() bool {
	return len(r.Errors) == 0 && r.PersistFailures() == 0 && r.PushFailures() == 0
}

func (r Report) count(pred func(Outcome) bool) int {
	var n int
	for _, o := range r.Outcomes {
		if pred(o) {
			n++
		}
	}
	return n
}
