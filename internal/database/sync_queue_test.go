package database

import (
	"context"
	"testing"
	"time"

	"tablebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{TaskType: "upsert", BookingID: "b1", Payload: `{"booking_id":"b1"}`}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)
	assert.Equal(t, models.SyncStatusPending, task.Status)

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b1", pending[0].BookingID)

	future := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, "boom", &future))

	pending, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "retry scheduled in the future must wait")

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, "gave up", nil))
	failed, err := db.GetFailedSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].RetryCount)
	require.NotNil(t, failed[0].LastError)
	assert.Equal(t, "gave up", *failed[0].LastError)
	assert.NotNil(t, failed[0].ProcessedAt)
}
