package scheduling

import (
	"context"
	"errors"

	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/database"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

// Update changes publishAt, notes or status of an owned item. A new publishAt
// is mirrored onto the content in the same transaction.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id string, req domain.UpdateRequest) (*domain.ScheduledItem, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, domain.Validation("No fields to update")
	}
	if req.PublishAt != nil && !req.PublishAt.After(s.now()) {
		return nil, domain.Validation("Publish date must be in the future")
	}
	if req.Status != nil && !req.Status.IsActive() {
		return nil, domain.Validation("Status must be PENDING or FAILED")
	}

	var updated *domain.ScheduledItem
	err := s.store.WithTx(ctx, func(tx database.Stores) error {
		item, err := s.lockOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if item.Status == domain.ScheduleStatusPublished {
			return domain.Validation("Published schedules cannot be changed")
		}

		moved := req.PublishAt != nil && !req.PublishAt.Equal(item.PublishAt)
		if req.PublishAt != nil {
			item.PublishAt = *req.PublishAt
		}
		if req.Notes != nil {
			item.Notes = *req.Notes
		}
		if req.Status != nil {
			item.Status = *req.Status
		}

		if err := tx.Schedules().Update(ctx, item); err != nil {
			return publishedMeanwhile(err)
		}
		if moved {
			if err := tx.Content(item.ContentType).SetScheduledAt(ctx, item.ContentID(), item.PublishAt); err != nil {
				return err
			}
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Schedule updated",
		infralogger.String("schedule_id", updated.ID),
		infralogger.Time("publish_at", updated.PublishAt),
		infralogger.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Cancel deletes an owned item. The content returns to DRAFT unless other
// active items remain for it, in which case it stays SCHEDULED for the
// earliest of them.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id string) error {
	if err := authorize(actor); err != nil {
		return err
	}

	var cancelled *domain.ScheduledItem
	err := s.store.WithTx(ctx, func(tx database.Stores) error {
		item, err := s.lockOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if item.Status == domain.ScheduleStatusPublished {
			return domain.Validation("Published schedules cannot be cancelled")
		}
		if err := tx.Schedules().Delete(ctx, item.ID); err != nil {
			return publishedMeanwhile(err)
		}
		cancelled = item

		next, err := tx.Schedules().NextActive(ctx, item.ContentType, item.ContentID())
		if err != nil {
			return err
		}
		content := tx.Content(item.ContentType)
		if next != nil {
			err = content.SetScheduledAt(ctx, item.ContentID(), *next)
		} else {
			err = content.ResetToDraft(ctx, item.ContentID())
		}
		if errors.Is(err, domain.ErrNotFound) {
			// Content removed upstream; nothing left to reset.
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Schedule cancelled",
		infralogger.String("schedule_id", cancelled.ID),
		infralogger.String("content_id", cancelled.ContentID()),
	)
	return nil
}

// lockOwned reads the item FOR UPDATE so a sweep cannot claim it until the
// transaction ends.
func (s *Service) lockOwned(ctx context.Context, tx database.Stores, actor domain.Actor, id string) (*domain.ScheduledItem, error) {
	item, err := tx.Schedules().LockOwned(ctx, id, actor.OwnerFilter())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Scheduled content not found")
	}
	return item, err
}

// publishedMeanwhile maps a guarded write that matched no row, meaning the
// sweep published the item after it was read, to a conflict.
func publishedMeanwhile(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Conflict("Schedule was published before the change could be applied")
	}
	return err
}

// List returns the actor's PENDING and FAILED items by publish time.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.ScheduledItemView, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return s.store.Schedules().ListActive(ctx, actor.OwnerFilter())
}

// AvailableContent groups schedulable content by type.
type AvailableContent struct {
	Videos []domain.Content `json:"videos"`
	Blogs  []domain.Content `json:"blogs"`
}

// Available returns the actor's DRAFT and PUBLISHED content with no active schedule.
func (s *Service) Available(ctx context.Context, actor domain.Actor) (*AvailableContent, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}

	videos, err := s.store.Content(domain.ContentTypeVideo).ListAvailable(ctx, actor.OwnerFilter())
	if err != nil {
		return nil, err
	}
	blogs, err := s.store.Content(domain.ContentTypeBlog).ListAvailable(ctx, actor.OwnerFilter())
	if err != nil {
		return nil, err
	}
	return &AvailableContent{Videos: videos, Blogs: blogs}, nil
}
