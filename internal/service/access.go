package service

import (
	"context"

	"github.com/noah-isme/regulars-api/internal/models"
	appErrors "github.com/noah-isme/regulars-api/pkg/errors"
)

type instructorBatchLister interface {
	IDsForInstructor(ctx context.Context, instructorID string) ([]string, error)
}

// authorizeBatch allows admins everywhere and instructors only on batches they are assigned to.
func authorizeBatch(actor models.Actor, batch *models.Batch) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == models.RoleInstructor && batch != nil && batch.HasInstructor(actor.ID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "batch is not assigned to you")
}

// batchScope returns the batch ids visible to the actor. A nil slice means unrestricted.
func batchScope(ctx context.Context, lister instructorBatchLister, actor models.Actor) ([]string, error) {
	if actor.IsAdmin() {
		return nil, nil
	}
	if actor.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role not permitted")
	}
	ids, err := lister.IDsForInstructor(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve assigned batches")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
