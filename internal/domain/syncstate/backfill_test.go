package syncstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackfillProgress_Lifecycle(t *testing.T) {
	progress := NewBackfillProgress(JobPaymentApplications)
	assert.False(t, progress.IsCompleted())
	assert.Empty(t, progress.LastProcessedRef)
	assert.Empty(t, progress.LastProcessedDocType)

	progress.Start(10)
	assert.Equal(t, 10, progress.TotalItems)
	assert.True(t, progress.IsRunning)
	assert.NotNil(t, progress.StartedAt)

	progress.ApplyBatch(4, 7, 0, 0, "000104", "Payment", "")
	assert.Equal(t, 4, progress.ItemsProcessed)
	assert.Equal(t, 7, progress.ApplicationsFound)
	assert.Equal(t, "000104", progress.LastProcessedRef)
	assert.Equal(t, "Payment", progress.LastProcessedDocType)
	assert.False(t, progress.IsRunning)

	progress.ApplyBatch(4, 2, 0, 1, "000108", "Prepayment", "detail fetch timed out")
	assert.Equal(t, 8, progress.ItemsProcessed)
	assert.Equal(t, 1, progress.ErrorsCount)
	assert.Equal(t, "Prepayment", progress.LastProcessedDocType)
	assert.Equal(t, "detail fetch timed out", progress.LastError)

	progress.ApplyBatch(2, 1, 0, 0, "000110", "Payment", "")
	progress.Complete()
	assert.Equal(t, 10, progress.ItemsProcessed)
	assert.True(t, progress.IsCompleted())
	// The sticky error survives completion.
	assert.Equal(t, "detail fetch timed out", progress.LastError)
}

func TestBackfillProgress_EmptyRefKeepsCursor(t *testing.T) {
	progress := NewBackfillProgress(JobPaymentAttachments)
	progress.Start(3)
	progress.ApplyBatch(3, 0, 5, 0, "000300", "Payment", "")
	progress.ApplyBatch(0, 0, 0, 0, "", "", "")
	assert.Equal(t, "000300", progress.LastProcessedRef)
	assert.Equal(t, "Payment", progress.LastProcessedDocType)
}

func TestJobType_IsValid(t *testing.T) {
	assert.True(t, JobPaymentApplications.IsValid())
	assert.True(t, JobPaymentAttachments.IsValid())
	assert.False(t, JobType("orders").IsValid())
}
