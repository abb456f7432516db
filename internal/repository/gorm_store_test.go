package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/javajoker/registration-backend/internal/models"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	return NewGormStore(db), mock
}

func TestGormNotifications_CountUnread(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.Notifications().CountUnread(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormNotifications_MarkAsReadMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.Notifications().MarkAsRead(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUsers_FindByUsernameNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	user, err := store.Users().FindByUsername(context.Background(), "ghost")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUsers_ExistsByEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := store.Users().ExistsByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUsers_DeleteIsSoft(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "deleted_at"=\$1 WHERE id = \$2 AND "users"."deleted_at" IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Users().Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUniqueIndexesCoverLiveRowsOnly(t *testing.T) {
	s, err := schema.Parse(&models.User{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	indexes := make(map[string]*schema.Index)
	for _, index := range s.ParseIndexes() {
		indexes[index.Name] = index
	}

	for name, column := range map[string]string{
		"idx_users_username_active": "username",
		"idx_users_email_active":    "email",
	} {
		index, ok := indexes[name]
		require.True(t, ok, name)
		assert.Equal(t, "UNIQUE", index.Class)
		assert.Equal(t, "deleted_at IS NULL", index.Where)
		require.Len(t, index.Fields, 1)
		assert.Equal(t, column, index.Fields[0].DBName)
	}
}

func TestGormApplications_CountByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 2).
			AddRow("APPROVED", 5))

	counts, err := store.Applications().CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.ApplicationStatusPending])
	assert.Equal(t, int64(5), counts[models.ApplicationStatusApproved])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormApplications_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		existing int
		wantErr  error
	}{
		{name: "applied", affected: 1},
		{name: "status moved on", affected: 0, existing: 1, wantErr: ErrConflict},
		{name: "unknown application", affected: 0, existing: 0, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "applications" SET`).WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()
			if tt.affected == 0 {
				mock.ExpectQuery(`SELECT count\(\*\) FROM "applications"`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.existing))
			}

			err := store.Applications().UpdateStatus(context.Background(), uuid.New(),
				models.ApplicationStatusManualReview, models.ApplicationStatusAgentValidated)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormApplications_FindStale(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "applications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_number", "status"}).
			AddRow(id.String(), "REG-2026-ABCDEFGH", "PENDING"))

	apps, err := store.Applications().FindStale(context.Background(), models.ApplicationStatusPending, time.Now())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, id, apps[0].ID)
	assert.Equal(t, models.ApplicationStatusPending, apps[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_WithTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Store) error {
		if _, err := tx.Users().ExistsByUsername(context.Background(), "jane"); err != nil {
			return err
		}
		// Nested calls join the open transaction.
		return tx.WithTx(context.Background(), func(Store) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), ErrDuplicate)

	other := errors.New("other")
	assert.Equal(t, other, translateError(other))
}
