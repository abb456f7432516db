package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

type documentRepo struct {
	s *Store
}

func (r *documentRepo) index(id uuid.UUID) int {
	for i := range r.s.data.documents {
		if r.s.data.documents[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *documentRepo) Create(_ context.Context, document *models.Document) error {
	r.s.lock()
	defer r.s.unlock()

	if document.ID != uuid.Nil && r.index(document.ID) >= 0 {
		return repository.ErrDuplicate
	}

	r.s.stamp(&document.BaseModel)
	if document.ValidationStatus == "" {
		document.ValidationStatus = models.DocumentValidationPending
	}
	r.s.data.documents = append(r.s.data.documents, cloneDocument(*document))
	return nil
}

func (r *documentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Document, error) {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	doc := cloneDocument(r.s.data.documents[i])
	return &doc, nil
}

func (r *documentRepo) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]models.Document, error) {
	r.s.lock()
	defer r.s.unlock()

	documents := []models.Document{}
	for _, doc := range r.s.data.documents {
		if doc.ApplicationID == applicationID {
			documents = append(documents, cloneDocument(doc))
		}
	}
	return documents, nil
}

func (r *documentRepo) List(_ context.Context, params utils.PaginationParams) ([]models.Document, int64, error) {
	r.s.lock()
	defer r.s.unlock()

	var matched []models.Document
	for _, doc := range r.s.data.documents {
		if params.Search != "" && !containsFold(doc.FileName, params.Search) {
			continue
		}
		matched = append(matched, cloneDocument(doc))
	}

	sortByTime(matched, params,
		func(d models.Document) time.Time { return d.CreatedAt },
		func(d models.Document) time.Time { return d.UpdatedAt })

	return paginate(matched, params), int64(len(matched)), nil
}

func (r *documentRepo) Update(_ context.Context, document *models.Document) error {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(document.ID)
	if i < 0 {
		return repository.ErrNotFound
	}

	document.CreatedAt = r.s.data.documents[i].CreatedAt
	document.UpdatedAt = r.s.now()
	r.s.data.documents[i] = cloneDocument(*document)
	return nil
}

func (r *documentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.documents = append(r.s.data.documents[:i:i], r.s.data.documents[i+1:]...)
	return nil
}

func (r *documentRepo) FindByContentHash(_ context.Context, hash string, excludeApplicationID uuid.UUID) ([]models.Document, error) {
	r.s.lock()
	defer r.s.unlock()

	var documents []models.Document
	for _, doc := range r.s.data.documents {
		if doc.ContentHash == hash && doc.ApplicationID != excludeApplicationID {
			documents = append(documents, cloneDocument(doc))
		}
	}
	return documents, nil
}

func (r *documentRepo) CountByValidationStatus(_ context.Context, status models.DocumentValidationStatus) (int64, error) {
	r.s.lock()
	defer r.s.unlock()

	var count int64
	for _, doc := range r.s.data.documents {
		if doc.ValidationStatus == status {
			count++
		}
	}
	return count, nil
}

func (r *documentRepo) CountCopies(_ context.Context) (int64, error) {
	r.s.lock()
	defer r.s.unlock()

	var count int64
	for _, doc := range r.s.data.documents {
		if doc.CopyDetected {
			count++
		}
	}
	return count, nil
}
