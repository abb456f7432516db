package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
)

type applicationRepo struct {
	s *Store
}

func (r *applicationRepo) index(id uuid.UUID) int {
	for i := range r.s.data.applications {
		if r.s.data.applications[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *applicationRepo) Create(_ context.Context, application *models.Application) error {
	r.s.lock()
	defer r.s.unlock()

	for _, existing := range r.s.data.applications {
		if existing.ReferenceNumber == application.ReferenceNumber || existing.ID == application.ID {
			return repository.ErrDuplicate
		}
	}

	r.s.stamp(&application.BaseModel)
	if application.Status == "" {
		application.Status = models.ApplicationStatusPreValidation
	}
	r.s.data.applications = append(r.s.data.applications, cloneApplication(*application))
	return nil
}

func (r *applicationRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}

	application := cloneApplication(r.s.data.applications[i])
	for _, doc := range r.s.data.documents {
		if doc.ApplicationID == id {
			application.Documents = append(application.Documents, cloneDocument(doc))
		}
	}
	return &application, nil
}

func (r *applicationRepo) List(_ context.Context, filter repository.ApplicationFilter) ([]models.Application, int64, error) {
	r.s.lock()
	defer r.s.unlock()

	var matched []models.Application
	for _, a := range r.s.data.applications {
		if filter.ApplicantID != nil && a.ApplicantID != *filter.ApplicantID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Program != "" && a.Program != filter.Program {
			continue
		}
		if q := filter.Pagination.Search; q != "" &&
			!containsFold(a.ReferenceNumber, q) && !containsFold(a.LastName, q) && !containsFold(a.Email, q) {
			continue
		}
		matched = append(matched, cloneApplication(a))
	}

	sortByTime(matched, filter.Pagination,
		func(a models.Application) time.Time { return a.CreatedAt },
		func(a models.Application) time.Time { return a.UpdatedAt })

	return paginate(matched, filter.Pagination), int64(len(matched)), nil
}

func (r *applicationRepo) Update(_ context.Context, application *models.Application) error {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(application.ID)
	if i < 0 {
		return repository.ErrNotFound
	}

	stored := r.s.data.applications[i]
	updated := cloneApplication(*application)
	updated.Status = stored.Status
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = r.s.now()

	application.Status = stored.Status
	application.UpdatedAt = updated.UpdatedAt
	r.s.data.applications[i] = updated
	return nil
}

func (r *applicationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.ApplicationStatus) error {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	if r.s.data.applications[i].Status != from {
		return repository.ErrConflict
	}

	r.s.data.applications[i].Status = to
	r.s.data.applications[i].UpdatedAt = r.s.now()
	return nil
}

func (r *applicationRepo) CountByStatus(_ context.Context) (map[models.ApplicationStatus]int64, error) {
	r.s.lock()
	defer r.s.unlock()

	counts := make(map[models.ApplicationStatus]int64)
	for _, a := range r.s.data.applications {
		counts[a.Status]++
	}
	return counts, nil
}

func (r *applicationRepo) FindStale(_ context.Context, status models.ApplicationStatus, before time.Time) ([]models.Application, error) {
	r.s.lock()
	defer r.s.unlock()

	var stale []models.Application
	for _, a := range r.s.data.applications {
		if a.Status == status && a.UpdatedAt.Before(before) {
			stale = append(stale, cloneApplication(a))
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	return stale, nil
}
