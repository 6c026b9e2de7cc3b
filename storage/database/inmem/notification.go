package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-absences/core"
	"github.com/trezcool/masomo-absences/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notifications}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, rec notification.Record) (notification.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[rec.ID] = &rec
	repo.db.order = append(repo.db.order, rec.ID)
	return rec, nil
}

func (repo *notificationRepository) ListForRecipient(_ context.Context, recipientID string, filter notification.QueryFilter) ([]notification.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]notification.Record, 0)
	for i := len(repo.db.order) - 1; i >= 0; i-- { // newest first
		rec := repo.db.table[repo.db.order[i]]
		if rec.RecipientID != recipientID || (filter.Unread && rec.Read) {
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, id, recipientID string) (notification.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[id]
	if !ok || rec.RecipientID != recipientID {
		return notification.Record{}, core.NewNotFoundError("notification", id)
	}
	rec.Read = true
	return *rec, nil
}

// Notifications returns every stored notification in insertion order.
func (db *DB) Notifications() []notification.Record {
	db.notifications.RLock()
	defer db.notifications.RUnlock()

	recs := make([]notification.Record, 0, len(db.notifications.order))
	for _, id := range db.notifications.order {
		recs = append(recs, *db.notifications.table[id])
	}
	return recs
}
