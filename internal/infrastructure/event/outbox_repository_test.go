package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/freightbid/backend/internal/domain/shared"
	"github.com/freightbid/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.OutboxEntryModel{}))
	return db
}

func newTestEntry(t *testing.T, eventType string) *shared.OutboxEntry {
	t.Helper()
	return shared.NewOutboxEntry(newTestEvent(eventType), []byte(`{"data":"test data"}`))
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	first := newTestEntry(t, "bid_placed")
	second := newTestEntry(t, "auction_won")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, first, second))
	require.NoError(t, repo.Save(ctx))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, first.EventID, pending[0].EventID)
	assert.Equal(t, "bid_placed", pending[0].EventType)
	assert.JSONEq(t, `{"data":"test data"}`, string(pending[0].Payload))

	limited, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOutboxRepository_ClaimAndUpdate(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, "bid_placed")
	require.NoError(t, repo.Save(ctx, entry))

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	assert.Empty(t, again, "processing entries cannot be claimed twice")

	claimed[0].MarkFailed("notifier unavailable")
	require.NoError(t, repo.Update(ctx, claimed[0]))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	retryable, err := repo.FindRetryable(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, 1, retryable[0].RetryCount)
	assert.Equal(t, "notifier unavailable", retryable[0].LastError)

	notYet, err := repo.FindRetryable(ctx, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, notYet)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusFailed])
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	sent := newTestEntry(t, "bid_placed")
	pending := newTestEntry(t, "bid_placed")
	require.NoError(t, repo.Save(ctx, sent, pending))

	sent.MarkSent()
	require.NoError(t, repo.Update(ctx, sent))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusPending])
	assert.Zero(t, counts[shared.OutboxStatusSent])
}

func TestGormOutboxRepository_MarkProcessing_SkipsLockedRows(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, "bid_placed")
	rows := sqlmock.NewRows([]string{
		"id", "event_id", "event_type", "aggregate_id", "aggregate_type", "payload",
		"status", "retry_count", "max_retries", "last_error", "next_retry_at",
		"processed_at", "created_at", "updated_at",
	}).AddRow(
		entry.ID.String(), entry.EventID.String(), entry.EventType, entry.AggregateID.String(), entry.AggregateType, entry.Payload,
		string(shared.OutboxStatusPending), 0, 5, "", nil,
		nil, entry.CreatedAt, entry.UpdatedAt,
	)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE`) + `.*` + regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{entry.ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, entry.ID, claimed[0].ID)
	assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_MarkProcessing_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormOutboxRepository(db)

	claimed, err := repo.MarkProcessing(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
