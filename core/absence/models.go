package absence

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-absences/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var (
	Statuses = []string{StatusPending, StatusApproved, StatusRejected}

	// ActiveStatuses mark a person as absent on the record's date.
	ActiveStatuses = []string{StatusPending, StatusApproved}
)

type Record struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	Role        string    `json:"role"`
	ClassID     string    `json:"class_id"`
	Reason      string    `json:"reason"`
	Date        time.Time `json:"date"` // UTC midnight
	Duration    float64   `json:"duration"`
	EvidenceRef string    `json:"evidence_ref,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (r Record) IsTeacher() bool { return r.Role == RoleTeacher }

// Weekday is the day of the week the absence falls on.
func (r Record) Weekday() time.Weekday { return r.Date.Weekday() }

// IsActive reports whether the record still makes its person absent (pending or approved).
func (r Record) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

// View is the read projection returned by listings.
type View struct {
	Record
	PersonName string `json:"person_name"`
	ClassName  string `json:"class_name"`
}

// Roles an absence can be submitted for.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type NewAbsence struct {
	PersonID    string  `json:"person_id" validate:"required"`
	Role        string  `json:"role" validate:"required,oneof=student teacher"`
	ClassID     string  `json:"class_id" validate:"required"`
	Reason      string  `json:"reason" validate:"required,notblank,max=1000"`
	Date        string  `json:"date" validate:"required,calendardate"`
	Duration    float64 `json:"duration" validate:"gte=0"`
	EvidenceRef string  `json:"evidence_ref" validate:"omitempty,max=512"`
}

func (na *NewAbsence) Clean() {
	na.PersonID = core.CleanString(na.PersonID)
	na.Role = core.CleanString(na.Role, true /* lower */)
	na.ClassID = core.CleanString(na.ClassID)
	na.Reason = core.CleanString(na.Reason)
	na.Date = core.CleanString(na.Date)
	na.EvidenceRef = core.CleanString(na.EvidenceRef)
	if na.Duration == 0 {
		na.Duration = 1
	}
}

func (na *NewAbsence) Validate(validate *validator.Validate) error {
	na.Clean()
	return validate.Struct(na)
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

// Filter narrows ListAbsences; zero values are ignored.
type Filter struct {
	PersonID string   `query:"person"`
	ClassID  string   `query:"class"`
	Role     string   `query:"role"`
	Statuses []string `query:"status"`
	DateFrom string   `query:"date_from"`
	DateTo   string   `query:"date_to"`

	// parsed by Clean
	From time.Time `query:"-"`
	To   time.Time `query:"-"`
}

// Clean normalizes the filter and parses its date bounds.
func (f *Filter) Clean() error {
	f.PersonID = core.CleanString(f.PersonID)
	f.ClassID = core.CleanString(f.ClassID)
	f.Role = core.CleanString(f.Role, true /* lower */)
	for i, s := range f.Statuses {
		f.Statuses[i] = core.CleanString(s, true /* lower */)
	}

	var flds []core.FieldError
	if f.DateFrom != "" {
		from, err := core.ParseDate(f.DateFrom)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "date_from", Error: "must be a valid date (YYYY-MM-DD)"})
		}
		f.From = from
	}
	if f.DateTo != "" {
		to, err := core.ParseDate(f.DateTo)
		if err != nil {
			flds = append(flds, core.FieldError{Field: "date_to", Error: "must be a valid date (YYYY-MM-DD)"})
		}
		f.To = to
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Match reports whether `r` satisfies the filter. Used by in-memory stores.
func (f Filter) Match(r Record) bool {
	if f.PersonID != "" && r.PersonID != f.PersonID {
		return false
	}
	if f.ClassID != "" && r.ClassID != f.ClassID {
		return false
	}
	if f.Role != "" && r.Role != f.Role {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, r.Status) {
		return false
	}
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
