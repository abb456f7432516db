package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

func newApplication(ref string) *models.Application {
	return &models.Application{
		ReferenceNumber: ref,
		ApplicantID:     uuid.New(),
		Status:          models.ApplicationStatusPreValidation,
		Program:         "Computer Science",
		AcademicYear:    "2026-2027",
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
	}
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Applications().Create(ctx, newApplication("REG-2026-AAAAAAAA")))
		require.NoError(t, tx.Users().Create(ctx, &models.User{Username: "jane", Email: "jane@example.com"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	apps, total, err := store.Applications().List(ctx, repository.ApplicationFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, apps)

	exists, err := store.Users().ExistsByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	app := newApplication("REG-2026-BBBBBBBB")

	err := store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Applications().Create(ctx, app); err != nil {
			return err
		}
		return tx.Documents().Create(ctx, &models.Document{ApplicationID: app.ID, Type: models.DocumentTypePhoto, FileName: "a.png"})
	})
	require.NoError(t, err)

	found, err := store.Applications().FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "REG-2026-BBBBBBBB", found.ReferenceNumber)
	require.Len(t, found.Documents, 1)
	assert.Equal(t, models.DocumentValidationPending, found.Documents[0].ValidationStatus)
}

func TestApplications_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	app := newApplication("REG-2026-CCCCCCCC")
	require.NoError(t, store.Applications().Create(ctx, app))

	require.NoError(t, store.Applications().UpdateStatus(ctx, app.ID,
		models.ApplicationStatusPreValidation, models.ApplicationStatusManualReview))

	err := store.Applications().UpdateStatus(ctx, app.ID,
		models.ApplicationStatusPreValidation, models.ApplicationStatusPending)
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = store.Applications().UpdateStatus(ctx, uuid.New(),
		models.ApplicationStatusPreValidation, models.ApplicationStatusPending)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplications_UpdateKeepsStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	app := newApplication("REG-2026-DDDDDDDD")
	require.NoError(t, store.Applications().Create(ctx, app))

	app.Status = models.ApplicationStatusApproved
	app.Program = "Mathematics"
	require.NoError(t, store.Applications().Update(ctx, app))

	found, err := store.Applications().FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", found.Program)
	assert.Equal(t, models.ApplicationStatusPreValidation, found.Status)
}

func TestApplications_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Applications().Create(ctx, newApplication("REG-2026-EEEEEEEE")))

	err := store.Applications().Create(ctx, newApplication("REG-2026-EEEEEEEE"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestApplications_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	applicant := uuid.New()

	for i, ref := range []string{"REG-2026-00000001", "REG-2026-00000002", "REG-2026-00000003"} {
		at := base.Add(time.Duration(i) * time.Hour)
		store.SetClock(func() time.Time { return at })
		app := newApplication(ref)
		app.ApplicantID = applicant
		require.NoError(t, store.Applications().Create(ctx, app))
	}
	require.NoError(t, store.Applications().Create(ctx, newApplication("REG-2026-00000004")))

	apps, total, err := store.Applications().List(ctx, repository.ApplicationFilter{
		ApplicantID: &applicant,
		Pagination:  utils.PaginationParams{Page: 1, Limit: 2, Order: "desc"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, apps, 2)
	assert.Equal(t, "REG-2026-00000003", apps[0].ReferenceNumber)
	assert.Equal(t, "REG-2026-00000002", apps[1].ReferenceNumber)
}

func TestApplications_FindStale(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	old := newApplication("REG-2026-OLD00001")
	old.Status = models.ApplicationStatusPending
	store.SetClock(func() time.Time { return now.Add(-72 * time.Hour) })
	require.NoError(t, store.Applications().Create(ctx, old))

	fresh := newApplication("REG-2026-NEW00001")
	fresh.Status = models.ApplicationStatusPending
	store.SetClock(func() time.Time { return now })
	require.NoError(t, store.Applications().Create(ctx, fresh))

	stale, err := store.Applications().FindStale(ctx, models.ApplicationStatusPending, now.Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
}

func TestDocuments_ContentHashExcludesOwnApplication(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first, second := uuid.New(), uuid.New()

	require.NoError(t, store.Documents().Create(ctx, &models.Document{ApplicationID: first, ContentHash: "abc"}))
	require.NoError(t, store.Documents().Create(ctx, &models.Document{ApplicationID: second, ContentHash: "abc"}))

	matches, err := store.Documents().FindByContentHash(ctx, "abc", first)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, second, matches[0].ApplicationID)

	err = store.Documents().Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUsers_Uniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Users().Create(ctx, &models.User{Username: "jane", Email: "jane@example.com"}))

	err := store.Users().Create(ctx, &models.User{Username: "jane", Email: "other@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = store.Users().Create(ctx, &models.User{Username: "other", Email: "JANE@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	users, err := store.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, models.UserRoleApplicant, users[0].Role)
}

func TestUsers_DeleteFreesUsername(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	user := &models.User{Username: "jane", Email: "jane@example.com"}
	require.NoError(t, store.Users().Create(ctx, user))

	require.NoError(t, store.Users().Delete(ctx, user.ID))
	exists, err := store.Users().ExistsByUsername(ctx, "jane")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Users().Create(ctx, &models.User{Username: "jane", Email: "jane@example.com"}))
	assert.ErrorIs(t, store.Users().Delete(ctx, user.ID), repository.ErrNotFound)
}

func TestNotifications_ReadState(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	user := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Notifications().Create(ctx, &models.Notification{
			UserID: user, Type: models.NotificationTypeSystem, Title: "t", Message: "m",
		}))
	}

	list, err := store.Notifications().ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 3)

	require.NoError(t, store.Notifications().MarkAsRead(ctx, list[0].ID, time.Now()))
	unread, err := store.Notifications().CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	updated, err := store.Notifications().MarkAllAsRead(ctx, user, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	assert.ErrorIs(t, store.Notifications().MarkAsRead(ctx, uuid.New(), time.Now()), repository.ErrNotFound)
}
