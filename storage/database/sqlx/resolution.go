package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/substitute"
)

type resolutionRow struct {
	AbsenceID    string         `db:"absence_id"`
	ClassID      string         `db:"class_id"`
	Outcome      string         `db:"outcome"`
	SubstituteID null.String    `db:"substitute_id"`
	EntryIDs     pq.StringArray `db:"entry_ids"`
	ResolvedAt   time.Time      `db:"resolved_at"`
}

func (row resolutionRow) resolution() substitute.Resolution {
	entryIDs := []string(row.EntryIDs)
	if entryIDs == nil {
		entryIDs = []string{}
	}
	return substitute.Resolution{
		AbsenceID:    row.AbsenceID,
		ClassID:      row.ClassID,
		Outcome:      row.Outcome,
		SubstituteID: row.SubstituteID.String,
		EntryIDs:     entryIDs,
		ResolvedAt:   row.ResolvedAt.UTC(),
	}
}

type resolutionRepository struct {
	db *sqlx.DB
}

var _ substitute.Repository = (*resolutionRepository)(nil)

func NewResolutionRepository(db *sqlx.DB) substitute.Repository {
	return &resolutionRepository{db: db}
}

func (repo *resolutionRepository) GetResolution(ctx context.Context, absenceID string) (substitute.Resolution, error) {
	var row resolutionRow
	q := `SELECT absence_id, class_id, outcome, substitute_id, entry_ids, resolved_at
		FROM substitute_resolution WHERE absence_id = $1`
	if err := repo.db.GetContext(ctx, &row, q, absenceID); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return substitute.Resolution{}, core.NewNotFoundError("resolution", absenceID)
		}
		return substitute.Resolution{}, errors.Wrap(err, "selecting resolution")
	}
	return row.resolution(), nil
}

func (repo *resolutionRepository) SaveResolution(ctx context.Context, res substitute.Resolution) (substitute.Resolution, error) {
	row := resolutionRow{
		AbsenceID:    res.AbsenceID,
		ClassID:      res.ClassID,
		Outcome:      res.Outcome,
		SubstituteID: null.NewString(res.SubstituteID, res.SubstituteID != ""),
		EntryIDs:     pq.StringArray(res.EntryIDs),
		ResolvedAt:   res.ResolvedAt,
	}
	if row.EntryIDs == nil {
		row.EntryIDs = pq.StringArray{}
	}
	q := `INSERT INTO substitute_resolution (absence_id, class_id, outcome, substitute_id, entry_ids, resolved_at)
		VALUES (:absence_id, :class_id, :outcome, :substitute_id, :entry_ids, :resolved_at)
		ON CONFLICT (absence_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			substitute_id = EXCLUDED.substitute_id,
			entry_ids = EXCLUDED.entry_ids,
			resolved_at = EXCLUDED.resolved_at`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return substitute.Resolution{}, errors.Wrap(err, "upserting resolution")
	}
	return row.resolution(), nil
}
