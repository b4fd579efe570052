package usecase

import (
	"context"
	"fmt"

	"eventsaga/internal/domain/product"
	"eventsaga/internal/failure"
)

type GetPublishStatus struct {
	tracker StatusTracker
}

func NewGetPublishStatus(tracker StatusTracker) *GetPublishStatus {
	return &GetPublishStatus{tracker: tracker}
}

func (uc *GetPublishStatus) Execute(ctx context.Context, productID string) (product.PublishStatus, error) {
	if uc.tracker == nil {
		return "", fmt.Errorf("%w: async publish tracking is disabled", failure.ErrNotFound)
	}
	return uc.tracker.Status(ctx, productID)
}
