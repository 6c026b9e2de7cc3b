package notification

import (
	"context"

	"github.com/pkg/errors"
)

type Repository interface {
	CreateNotification(ctx context.Context, rec Record) (Record, error)
	// ListForRecipient returns the recipient's notifications, newest first.
	ListForRecipient(ctx context.Context, recipientID string, filter QueryFilter) ([]Record, error)
	// MarkRead returns a *core.NotFoundError unless notification `id` belongs to `recipientID`.
	MarkRead(ctx context.Context, id, recipientID string) (Record, error)
}

// Service is the recipient side of notifications: the inbox.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context, recipientID string, filter QueryFilter) ([]Record, error) {
	recs, err := svc.repo.ListForRecipient(ctx, recipientID, filter)
	return recs, errors.Wrap(err, "listing notifications")
}

func (svc *Service) MarkRead(ctx context.Context, id, recipientID string) (Record, error) {
	return svc.repo.MarkRead(ctx, id, recipientID)
}
