package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/notification"
)

const notificationColumns = "id, recipient_id, type, title, message, payload, read, created_at"

type notificationRow struct {
	ID          string    `db:"id"`
	RecipientID string    `db:"recipient_id"`
	Type        string    `db:"type"`
	Title       string    `db:"title"`
	Message     string    `db:"message"`
	Payload     []byte    `db:"payload"`
	Read        bool      `db:"read"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row notificationRow) record() (notification.Record, error) {
	rec := notification.Record{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Type:        notification.EventType(row.Type),
		Title:       row.Title,
		Message:     row.Message,
		Read:        row.Read,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if err := json.Unmarshal(row.Payload, &rec.Payload); err != nil {
		return notification.Record{}, errors.Wrap(err, "decoding payload")
	}
	return rec, nil
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, rec notification.Record) (notification.Record, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return notification.Record{}, errors.Wrap(err, "encoding payload")
	}
	row := notificationRow{
		ID:          rec.ID,
		RecipientID: rec.RecipientID,
		Type:        string(rec.Type),
		Title:       rec.Title,
		Message:     rec.Message,
		Payload:     payload,
		Read:        rec.Read,
		CreatedAt:   rec.CreatedAt,
	}
	q := `INSERT INTO notification (id, recipient_id, type, title, message, payload, read, created_at)
		VALUES (:id, :recipient_id, :type, :title, :message, :payload, :read, :created_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return notification.Record{}, errors.Wrap(err, "inserting notification")
	}
	return rec, nil
}

func (repo *notificationRepository) ListForRecipient(ctx context.Context, recipientID string, filter notification.QueryFilter) ([]notification.Record, error) {
	q := "SELECT " + notificationColumns + " FROM notification WHERE recipient_id = $1"
	if filter.Unread {
		q += " AND NOT read"
	}
	q += " ORDER BY seq DESC"

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, q, recipientID); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	recs := make([]notification.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) (notification.Record, error) {
	var row notificationRow
	q := "UPDATE notification SET read = TRUE WHERE id = $1 AND recipient_id = $2 RETURNING " + notificationColumns
	if err := repo.db.GetContext(ctx, &row, q, id, recipientID); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return notification.Record{}, core.NewNotFoundError("notification", id)
		}
		return notification.Record{}, errors.Wrap(err, "marking notification read")
	}
	return row.record()
}
