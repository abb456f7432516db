package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
)

type notificationRepo struct {
	s *Store
}

func (r *notificationRepo) Create(_ context.Context, notification *models.Notification) error {
	r.s.lock()
	defer r.s.unlock()

	r.s.stamp(&notification.BaseModel)
	r.s.data.notifications = append(r.s.data.notifications, *notification)
	return nil
}

func (r *notificationRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	r.s.lock()
	defer r.s.unlock()

	for _, n := range r.s.data.notifications {
		if n.ID == id {
			found := n
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *notificationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Notification, error) {
	r.s.lock()
	defer r.s.unlock()

	notifications := []models.Notification{}
	for _, n := range r.s.data.notifications {
		if n.UserID == userID {
			notifications = append(notifications, n)
		}
	}
	// Newest first; insertion order breaks ties.
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (r *notificationRepo) MarkAsRead(_ context.Context, id uuid.UUID, readAt time.Time) error {
	r.s.lock()
	defer r.s.unlock()

	for i := range r.s.data.notifications {
		if r.s.data.notifications[i].ID == id {
			at := readAt
			r.s.data.notifications[i].IsRead = true
			r.s.data.notifications[i].ReadAt = &at
			r.s.data.notifications[i].UpdatedAt = r.s.now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *notificationRepo) MarkAllAsRead(_ context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	r.s.lock()
	defer r.s.unlock()

	var updated int64
	for i := range r.s.data.notifications {
		n := &r.s.data.notifications[i]
		if n.UserID == userID && !n.IsRead {
			at := readAt
			n.IsRead = true
			n.ReadAt = &at
			n.UpdatedAt = r.s.now()
			updated++
		}
	}
	return updated, nil
}

func (r *notificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.lock()
	defer r.s.unlock()

	var count int64
	for _, n := range r.s.data.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
