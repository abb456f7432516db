// Package memory is an in-process repository.Store used for local development
// and service tests. It honours the same contracts as the gorm store: unique
// usernames, emails and reference numbers, conditional status updates, and
// all-or-nothing transactions.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

type state struct {
	applications  []models.Application
	documents     []models.Document
	notifications []models.Notification
	users         []models.User
	reviews       []models.ReviewAssignment
	audit         []models.AuditLog
}

func (s *state) snapshot() state {
	return state{
		applications:  append([]models.Application(nil), s.applications...),
		documents:     append([]models.Document(nil), s.documents...),
		notifications: append([]models.Notification(nil), s.notifications...),
		users:         append([]models.User(nil), s.users...),
		reviews:       append([]models.ReviewAssignment(nil), s.reviews...),
		audit:         append([]models.AuditLog(nil), s.audit...),
	}
}

// Store serialises every operation on one mutex. A transaction holds the
// mutex for its whole duration and restores a snapshot when fn fails.
type Store struct {
	mu    *sync.Mutex
	data  *state
	clock *func() time.Time
	inTx  bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	now := time.Now
	return &Store{mu: &sync.Mutex{}, data: &state{}, clock: &now}
}

// SetClock overrides the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.lock()
	defer s.unlock()
	*s.clock = now
}

func (s *Store) now() time.Time {
	return (*s.clock)().UTC()
}

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.data.snapshot()
	tx := &Store{mu: s.mu, data: s.data, clock: s.clock, inTx: true}

	committed := false
	defer func() {
		if !committed {
			*s.data = saved
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Applications() repository.ApplicationRepository { return &applicationRepo{s} }
func (s *Store) Documents() repository.DocumentRepository       { return &documentRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepo{s}
}
func (s *Store) Users() repository.UserRepository     { return &userRepo{s} }
func (s *Store) Reviews() repository.ReviewRepository { return &reviewRepo{s} }
func (s *Store) Audit() repository.AuditRepository    { return &auditRepo{s} }

func (s *Store) stamp(base *models.BaseModel) {
	now := s.now()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func cloneStrings(in pq.StringArray) pq.StringArray {
	if in == nil {
		return nil
	}
	return append(pq.StringArray(nil), in...)
}

func cloneJSON(in models.JSONB) models.JSONB {
	if in == nil {
		return nil
	}
	out := make(models.JSONB, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneApplication(a models.Application) models.Application {
	a.FormData = cloneJSON(a.FormData)
	a.MissingFields = cloneStrings(a.MissingFields)
	a.Applicant = nil
	a.Documents = nil
	return a
}

func cloneDocument(d models.Document) models.Document {
	d.ValidationErrors = cloneStrings(d.ValidationErrors)
	d.Content = nil
	return d
}

func cloneUser(u models.User) models.User {
	u.Applications = nil
	return u
}

func cloneAudit(l models.AuditLog) models.AuditLog {
	l.OldValues = cloneJSON(l.OldValues)
	l.NewValues = cloneJSON(l.NewValues)
	return l
}

func paginate[T any](items []T, params utils.PaginationParams) []T {
	if params.Limit <= 0 {
		return items
	}
	offset := params.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortByTime[T any](items []T, params utils.PaginationParams, created, updated func(T) time.Time) {
	key := created
	if params.Sort == "updated_at" {
		key = updated
	}
	asc := params.Order == "asc"
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return key(items[i]).Before(key(items[j]))
		}
		return key(items[i]).After(key(items[j]))
	})
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
