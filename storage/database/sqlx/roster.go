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
	"github.com/trezcool/masomo-absences/core/roster"
)

const personColumns = "id, name, email, role, disabled, push_handle, created_at"

type personRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	Email      string      `db:"email"`
	Role       string      `db:"role"`
	Disabled   bool        `db:"disabled"`
	PushHandle null.String `db:"push_handle"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (row personRow) entry() roster.Entry {
	return roster.Entry{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		Role:       row.Role,
		Disabled:   row.Disabled,
		PushHandle: row.PushHandle.String,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *sqlx.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CreateEntry(ctx context.Context, entry roster.Entry) (roster.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = core.NowFunc()
	}
	row := personRow{
		ID:         entry.ID,
		Name:       entry.Name,
		Email:      entry.Email,
		Role:       entry.Role,
		Disabled:   entry.Disabled,
		PushHandle: null.NewString(entry.PushHandle, entry.PushHandle != ""),
		CreatedAt:  entry.CreatedAt,
	}
	// upsert; seq (the roster order) is kept on update
	q := `INSERT INTO person (id, name, email, role, disabled, push_handle, created_at)
		VALUES (:id, :name, :email, :role, :disabled, :push_handle, :created_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role,
			disabled = EXCLUDED.disabled, push_handle = EXCLUDED.push_handle`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return roster.Entry{}, errors.Wrap(err, "saving person")
	}
	return entry, nil
}

func (repo *rosterRepository) FindByRole(ctx context.Context, role string) ([]roster.Entry, error) {
	var rows []personRow
	q := "SELECT " + personColumns + " FROM person WHERE role = $1 ORDER BY seq"
	if err := repo.db.SelectContext(ctx, &rows, q, role); err != nil {
		return nil, errors.Wrap(err, "selecting people by role")
	}
	entries := make([]roster.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo *rosterRepository) FindByID(ctx context.Context, id string) (roster.Entry, error) {
	var row personRow
	q := "SELECT " + personColumns + " FROM person WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return roster.Entry{}, core.NewNotFoundError("person", id)
		}
		return roster.Entry{}, errors.Wrap(err, "selecting person")
	}
	return row.entry(), nil
}

func (repo *rosterRepository) FindByIDs(ctx context.Context, ids ...string) ([]roster.Entry, error) {
	if len(ids) == 0 {
		return []roster.Entry{}, nil
	}
	q, args, err := sqlx.In("SELECT "+personColumns+" FROM person WHERE id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building IN query")
	}
	var rows []personRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting people by ids")
	}

	byID := make(map[string]personRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	entries := make([]roster.Entry, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			entries = append(entries, row.entry())
		}
	}
	return entries, nil
}

func (repo *rosterRepository) SetPushHandle(ctx context.Context, id, handle string) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE person SET push_handle = $2 WHERE id = $1", id, null.NewString(handle, handle != ""))
	if err != nil {
		return errors.Wrap(err, "updating push handle")
	}
	return checkAffected(res, "person", id)
}

func checkAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return core.NewNotFoundError(entity, id)
	}
	return nil
}
