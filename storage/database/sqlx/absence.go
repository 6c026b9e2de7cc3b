package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/absence"
)

const absenceColumns = "a.id, a.person_id, a.role, a.class_id, a.reason, a.date, a.duration, a.evidence_ref, a.status, a.created_at, a.updated_at"

// absenceOrderColumns maps ordering fields to SQL expressions.
var absenceOrderColumns = map[string]string{
	"date":        "a.date",
	"created_at":  "a.created_at",
	"status":      "a.status",
	"role":        "a.role",
	"person_name": "lower(p.name)",
	"class_name":  "lower(c.name)",
}

type (
	absenceRow struct {
		ID          string      `db:"id"`
		PersonID    string      `db:"person_id"`
		Role        string      `db:"role"`
		ClassID     string      `db:"class_id"`
		Reason      string      `db:"reason"`
		Date        time.Time   `db:"date"`
		Duration    float64     `db:"duration"`
		EvidenceRef null.String `db:"evidence_ref"`
		Status      string      `db:"status"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	absenceViewRow struct {
		absenceRow
		PersonName string `db:"person_name"`
		ClassName  string `db:"class_name"`
	}
)

func newAbsenceRow(rec absence.Record) absenceRow {
	return absenceRow{
		ID:          rec.ID,
		PersonID:    rec.PersonID,
		Role:        rec.Role,
		ClassID:     rec.ClassID,
		Reason:      rec.Reason,
		Date:        rec.Date,
		Duration:    rec.Duration,
		EvidenceRef: null.NewString(rec.EvidenceRef, rec.EvidenceRef != ""),
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func (row absenceRow) record() absence.Record {
	return absence.Record{
		ID:          row.ID,
		PersonID:    row.PersonID,
		Role:        row.Role,
		ClassID:     row.ClassID,
		Reason:      row.Reason,
		Date:        core.DateOf(row.Date),
		Duration:    row.Duration,
		EvidenceRef: row.EvidenceRef.String,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type absenceRepository struct {
	db *sqlx.DB
}

var _ absence.Repository = (*absenceRepository)(nil)

func NewAbsenceRepository(db *sqlx.DB) absence.Repository {
	return &absenceRepository{db: db}
}

func (repo *absenceRepository) CreateAbsence(ctx context.Context, rec absence.Record) (absence.Record, error) {
	q := `INSERT INTO absence (id, person_id, role, class_id, reason, date, duration, evidence_ref, status, created_at, updated_at)
		VALUES (:id, :person_id, :role, :class_id, :reason, :date, :duration, :evidence_ref, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, newAbsenceRow(rec)); err != nil {
		return absence.Record{}, errors.Wrap(err, "inserting absence")
	}
	return rec, nil
}

func (repo *absenceRepository) GetAbsence(ctx context.Context, id string) (absence.Record, error) {
	var row absenceRow
	q := "SELECT " + absenceColumns + " FROM absence a WHERE a.id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return absence.Record{}, core.NewNotFoundError("absence", id)
		}
		return absence.Record{}, errors.Wrap(err, "selecting absence")
	}
	return row.record(), nil
}

func (repo *absenceRepository) FilterAbsences(ctx context.Context, filter absence.Filter, orderings []core.DBOrdering) ([]absence.View, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.PersonID != "" {
		arg("a.person_id = $%d", filter.PersonID)
	}
	if filter.ClassID != "" {
		arg("a.class_id = $%d", filter.ClassID)
	}
	if filter.Role != "" {
		arg("a.role = $%d", filter.Role)
	}
	if len(filter.Statuses) > 0 {
		arg("a.status = ANY($%d)", pq.Array(filter.Statuses))
	}
	if !filter.From.IsZero() {
		arg("a.date >= $%d::date", filter.From.Format(core.DateLayout))
	}
	if !filter.To.IsZero() {
		arg("a.date <= $%d::date", filter.To.Format(core.DateLayout))
	}

	q := new(strings.Builder)
	q.WriteString("SELECT " + absenceColumns + ", p.name AS person_name, c.name AS class_name")
	q.WriteString(" FROM absence a JOIN person p ON p.id = a.person_id JOIN class c ON c.id = a.class_id")
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	ords := core.AllowedOrderings(orderings, absenceOrderColumns)
	ords = append(ords, core.DBOrdering{Field: "a.id", Ascending: true})
	orderBy := make([]string, 0, len(ords))
	for _, ord := range ords {
		orderBy = append(orderBy, ord.String())
	}
	q.WriteString(" ORDER BY " + strings.Join(orderBy, ", "))

	var rows []absenceViewRow
	if err := repo.db.SelectContext(ctx, &rows, q.String(), args...); err != nil {
		return nil, errors.Wrap(err, "selecting absences")
	}
	views := make([]absence.View, 0, len(rows))
	for _, row := range rows {
		views = append(views, absence.View{Record: row.record(), PersonName: row.PersonName, ClassName: row.ClassName})
	}
	return views, nil
}

func (repo *absenceRepository) UpdateAbsenceStatus(ctx context.Context, id, status string, updatedAt time.Time) (absence.Record, error) {
	var row absenceRow
	q := `UPDATE absence a SET status = $2, updated_at = $3 WHERE a.id = $1 RETURNING ` + absenceColumns
	if err := repo.db.GetContext(ctx, &row, q, id, status, updatedAt); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return absence.Record{}, core.NewNotFoundError("absence", id)
		}
		return absence.Record{}, errors.Wrap(err, "updating absence status")
	}
	return row.record(), nil
}

func (repo *absenceRepository) FindAbsentOnDate(ctx context.Context, date time.Time) ([]string, error) {
	ids := make([]string, 0)
	q := "SELECT DISTINCT person_id FROM absence WHERE date = $1::date AND status = ANY($2) ORDER BY person_id"
	if err := repo.db.SelectContext(ctx, &ids, q, date.Format(core.DateLayout), pq.Array(absence.ActiveStatuses)); err != nil {
		return nil, errors.Wrap(err, "selecting absent people")
	}
	return ids, nil
}
