package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/schedule"
)

type (
	classRow struct {
		ID    string      `db:"id"`
		Name  string      `db:"name"`
		HODID null.String `db:"hod_id"`
	}

	entryRow struct {
		ID           string      `db:"id"`
		ClassID      string      `db:"class_id"`
		Day          int         `db:"day"`
		StartTime    string      `db:"start_time"`
		EndTime      string      `db:"end_time"`
		TeacherID    string      `db:"teacher_id"`
		SubstituteID null.String `db:"substitute_id"`
	}
)

func (row entryRow) entry() schedule.Entry {
	return schedule.Entry{
		ID:           row.ID,
		ClassID:      row.ClassID,
		Day:          time.Weekday(row.Day),
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		TeacherID:    row.TeacherID,
		SubstituteID: row.SubstituteID.String,
	}
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateClass(ctx context.Context, class schedule.Class) (schedule.Class, error) {
	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Class{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	row := classRow{ID: class.ID, Name: class.Name, HODID: null.NewString(class.HODID, class.HODID != "")}
	if _, err = tx.NamedExecContext(ctx, "INSERT INTO class (id, name, hod_id) VALUES (:id, :name, :hod_id)", row); err != nil {
		return schedule.Class{}, errors.Wrap(err, "inserting class")
	}
	for _, sid := range class.StudentIDs {
		if _, err = tx.ExecContext(ctx, "INSERT INTO class_student (class_id, student_id) VALUES ($1, $2)", class.ID, sid); err != nil {
			return schedule.Class{}, errors.Wrap(err, "inserting class student")
		}
	}
	return class, errors.Wrap(tx.Commit(), "committing tx")
}

func (repo *scheduleRepository) GetClass(ctx context.Context, id string) (schedule.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, "SELECT id, name, hod_id FROM class WHERE id = $1", id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return schedule.Class{}, core.NewNotFoundError("class", id)
		}
		return schedule.Class{}, errors.Wrap(err, "selecting class")
	}

	studentIDs := make([]string, 0)
	q := "SELECT student_id FROM class_student WHERE class_id = $1 ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &studentIDs, q, id); err != nil {
		return schedule.Class{}, errors.Wrap(err, "selecting class students")
	}
	return schedule.Class{ID: row.ID, Name: row.Name, HODID: row.HODID.String, StudentIDs: studentIDs}, nil
}

func (repo *scheduleRepository) CreateEntry(ctx context.Context, entry schedule.Entry) (schedule.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	row := entryRow{
		ID:           entry.ID,
		ClassID:      entry.ClassID,
		Day:          int(entry.Day),
		StartTime:    entry.StartTime,
		EndTime:      entry.EndTime,
		TeacherID:    entry.TeacherID,
		SubstituteID: null.NewString(entry.SubstituteID, entry.SubstituteID != ""),
	}
	q := `INSERT INTO schedule_entry (id, class_id, day, start_time, end_time, teacher_id, substitute_id)
		VALUES (:id, :class_id, :day, :start_time, :end_time, :teacher_id, :substitute_id)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return schedule.Entry{}, errors.Wrap(err, "inserting schedule entry")
	}
	return entry, nil
}

func (repo *scheduleRepository) GetScheduleForClass(ctx context.Context, classID string) ([]schedule.Entry, error) {
	var rows []entryRow
	q := `SELECT id, class_id, day, start_time, end_time, teacher_id, substitute_id
		FROM schedule_entry WHERE class_id = $1 ORDER BY day, start_time`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "selecting schedule entries")
	}
	entries := make([]schedule.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo *scheduleRepository) SetSubstitute(ctx context.Context, entryID, substituteID string) error {
	q := "UPDATE schedule_entry SET substitute_id = $2 WHERE id = $1"
	res, err := repo.db.ExecContext(ctx, q, entryID, null.NewString(substituteID, substituteID != ""))
	if err != nil {
		return errors.Wrap(err, "updating substitute")
	}
	return checkAffected(res, "schedule entry", entryID)
}
