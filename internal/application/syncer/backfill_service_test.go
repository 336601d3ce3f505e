package syncer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/domain/syncstate"
)

type backfillFixture struct {
	gateway      *MockGateway
	payments     *fakePaymentRepo
	applications *fakeApplicationRepo
	attachments  *fakeAttachmentRepo
	changeLog    *fakeChangeLogRepo
	progress     *fakeBackfillRepo
	sut          *BackfillService
}

func newBackfillFixture(batchSize int) *backfillFixture {
	credential := syncstate.NewCredential("https://erp.example.com", "sync-user", "secret")
	credential.EndpointVersion = "24.200.001"

	f := &backfillFixture{
		gateway:      new(MockGateway),
		payments:     newFakePaymentRepo(),
		applications: newFakeApplicationRepo(),
		attachments:  newFakeAttachmentRepo(),
		changeLog:    newFakeChangeLogRepo(),
		progress:     newFakeBackfillRepo(),
	}

	sessions := NewSessionManager(newFakeCredentialRepo(credential), newFakeSessionRepo(), f.gateway, zap.NewNop(), WithRenewalWait(0))
	linker := NewApplicationLinker(f.gateway, f.applications, newFakeInvoiceRepo(), f.changeLog, zap.NewNop())

	f.sut = NewBackfillService(
		sessions, f.gateway, linker,
		f.payments, f.attachments, f.changeLog, f.progress,
		nil, zap.NewNop(),
		BackfillConfig{BatchSize: batchSize, ItemDelay: 0},
	)
	return f
}

// seedPayments inserts n closed payments with ascending reference numbers
// starting at 101.
func (f *backfillFixture) seedPayments(t *testing.T, n int) []string {
	t.Helper()
	refs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		payment := receivable.NewPayment(fmt.Sprintf("%d", 101+i), receivable.DocTypePayment)
		payment.Status = "Closed"
		require.NoError(t, f.payments.Create(context.Background(), payment))
		refs = append(refs, payment.ReferenceNbr)
	}
	return refs
}

func (f *backfillFixture) expectApplicationDetail(t *testing.T, refs ...string) {
	t.Helper()
	for _, ref := range refs {
		detail := decodeRecord(t, `{"ReferenceNbr": {"value": "`+ref+`"}}`)
		detail["ApplicationHistory"] = []any{
			map[string]any(applicationEntry(t, "600", "Invoice", "10")),
		}
		f.gateway.
			On("Detail", mock.Anything, mock.Anything, "cookie", "Payment", "Payment", ref, []string{"ApplicationHistory"}).
			Return(detail, nil).Once()
	}
}

func TestBackfillService_Resumability(t *testing.T) {
	f := newBackfillFixture(4)
	ctx := context.Background()
	refs := f.seedPayments(t, 10)

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie", nil)
	f.expectApplicationDetail(t, refs...)

	// First invocation: items 1-4.
	first := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, first.Success)
	assert.Equal(t, 4, first.BatchProcessed)
	assert.Equal(t, 4, first.ItemsProcessed)
	assert.Equal(t, 10, first.TotalItems)
	assert.Equal(t, refs[3], first.LastProcessedRef)
	assert.False(t, first.Completed)

	// Second invocation resumes from the cursor: items 5-8.
	second := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, second.Success)
	assert.Equal(t, 8, second.ItemsProcessed)
	assert.Equal(t, refs[7], second.LastProcessedRef)
	assert.False(t, second.Completed)

	// Third invocation drains the remainder and completes.
	third := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, third.Success)
	assert.Equal(t, 10, third.ItemsProcessed)
	assert.True(t, third.Completed)

	detailCalls := len(f.gateway.Calls)

	// Fourth invocation short-circuits with zero ERP calls.
	fourth := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, fourth.Success)
	assert.True(t, fourth.AlreadyCompleted)
	assert.Equal(t, 10, fourth.ItemsProcessed)
	assert.Equal(t, detailCalls, len(f.gateway.Calls))
}

func TestBackfillService_SharedRefAcrossDocTypes(t *testing.T) {
	// A reference number is only unique within a doc type. With a batch
	// boundary between two payments sharing a ref, the cursor must carry the
	// doc type so the second one is not skipped.
	f := newBackfillFixture(1)
	ctx := context.Background()

	for _, docType := range []receivable.DocType{receivable.DocTypePayment, receivable.DocTypePrepayment} {
		payment := receivable.NewPayment("000100", docType)
		payment.Status = "Closed"
		require.NoError(t, f.payments.Create(ctx, payment))

		detail := decodeRecord(t, `{"ReferenceNbr": {"value": "000100"}}`)
		detail["ApplicationHistory"] = []any{
			map[string]any(applicationEntry(t, "600", "Invoice", "10")),
		}
		f.gateway.
			On("Detail", mock.Anything, mock.Anything, "cookie", "Payment", docType.String(), "000100", []string{"ApplicationHistory"}).
			Return(detail, nil).Once()
	}
	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie", nil)

	first := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, first.Success)
	assert.Equal(t, 1, first.ItemsProcessed)
	assert.Equal(t, "000100", first.LastProcessedRef)
	assert.Equal(t, receivable.DocTypePayment.String(), first.LastProcessedDocType)
	assert.False(t, first.Completed)

	second := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, second.Success)
	assert.Equal(t, 2, second.ItemsProcessed)
	assert.Equal(t, "000100", second.LastProcessedRef)
	assert.Equal(t, receivable.DocTypePrepayment.String(), second.LastProcessedDocType)
	assert.False(t, second.Completed)

	third := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})
	require.True(t, third.Success)
	assert.True(t, third.Completed)
	assert.Equal(t, 2, third.ItemsProcessed)
	assert.Equal(t, 2, third.TotalItems)

	f.gateway.AssertExpectations(t)
}

func TestBackfillService_BatchSizeOverride(t *testing.T) {
	f := newBackfillFixture(4)
	ctx := context.Background()
	refs := f.seedPayments(t, 3)

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie", nil)
	f.expectApplicationDetail(t, refs...)

	two := 2
	summary := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{BatchSize: &two})
	require.True(t, summary.Success)
	assert.Equal(t, 2, summary.BatchProcessed)
	assert.False(t, summary.Completed)
}

func TestBackfillService_ItemFailureIsStickyNotFatal(t *testing.T) {
	f := newBackfillFixture(4)
	ctx := context.Background()
	refs := f.seedPayments(t, 2)

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie", nil)

	detail := decodeRecord(t, `{"ReferenceNbr": {"value": "`+refs[0]+`"}}`)
	detail["ApplicationHistory"] = []any{
		map[string]any(applicationEntry(t, "600", "Invoice", "10")),
	}
	f.gateway.
		On("Detail", mock.Anything, mock.Anything, "cookie", "Payment", "Payment", refs[0], []string{"ApplicationHistory"}).
		Return(detail, nil).Once()
	f.gateway.
		On("Detail", mock.Anything, mock.Anything, "cookie", "Payment", "Payment", refs[1], []string{"ApplicationHistory"}).
		Return(nil, fmt.Errorf("detail fetch timed out")).Once()

	summary := f.sut.Run(ctx, syncstate.JobPaymentApplications, BackfillRequest{})

	require.True(t, summary.Success)
	assert.Equal(t, 2, summary.BatchProcessed)
	assert.Equal(t, 1, summary.ErrorsCount)
	// The cursor advanced past the failed item rather than wedging on it.
	assert.Equal(t, refs[1], summary.LastProcessedRef)

	progress, err := f.progress.GetOrCreate(ctx, syncstate.JobPaymentApplications)
	require.NoError(t, err)
	assert.Contains(t, progress.LastError, "timed out")
}

func TestBackfillService_AttachmentsJobRecordsMetadata(t *testing.T) {
	f := newBackfillFixture(4)
	ctx := context.Background()
	refs := f.seedPayments(t, 1)

	f.gateway.On("Login", mock.Anything, mock.Anything).Return("cookie", nil)

	detail := decodeRecord(t, `{"ReferenceNbr": {"value": "`+refs[0]+`"}}`)
	detail["files"] = []any{
		map[string]any{"id": "file-1", "filename": "remittance.pdf", "href": "/entity/Default/24.200.001/files/file-1"},
	}
	f.gateway.
		On("Detail", mock.Anything, mock.Anything, "cookie", "Payment", "Payment", refs[0], []string{"files"}).
		Return(detail, nil).Once()

	summary := f.sut.Run(ctx, syncstate.JobPaymentAttachments, BackfillRequest{})

	require.True(t, summary.Success)
	assert.Equal(t, 1, summary.AttachmentsFound)

	stored, err := f.attachments.ListByReference(ctx, refs[0])
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "file-1", stored[0].FileID)
	assert.Equal(t, "remittance.pdf", stored[0].FileName)
	// No archive store configured: metadata only.
	assert.Empty(t, stored[0].StorageKey)

	entry := f.changeLog.last()
	require.NotNil(t, entry)
	assert.Equal(t, receivable.ActionAttachmentFetched, entry.ActionType)
}

func TestBackfillService_UnknownJobType(t *testing.T) {
	f := newBackfillFixture(4)

	summary := f.sut.Run(context.Background(), syncstate.JobType("orders"), BackfillRequest{})

	assert.False(t, summary.Success)
	assert.Contains(t, summary.Error, "unknown backfill job type")
}

func TestBackfillService_EmptyTableCompletesImmediately(t *testing.T) {
	f := newBackfillFixture(4)

	summary := f.sut.Run(context.Background(), syncstate.JobPaymentApplications, BackfillRequest{})

	require.True(t, summary.Success)
	assert.True(t, summary.Completed)
	assert.Equal(t, 0, summary.ItemsProcessed)
	assert.Equal(t, 0, summary.TotalItems)
	// No ERP session is opened for an empty batch.
	f.gateway.AssertNotCalled(t, "Login")
}
