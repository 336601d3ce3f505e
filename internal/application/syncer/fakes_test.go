package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// MockGateway is a mock implementation of ERPGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Login(ctx context.Context, creds acumatica.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Logout(ctx context.Context, baseURL, cookie string) error {
	args := m.Called(ctx, baseURL, cookie)
	return args.Error(0)
}

func (m *MockGateway) List(ctx context.Context, ep acumatica.Endpoint, cookie string, q *acumatica.Query) ([]acumatica.Record, error) {
	args := m.Called(ctx, ep, cookie, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]acumatica.Record), args.Error(1)
}

func (m *MockGateway) Detail(ctx context.Context, ep acumatica.Endpoint, cookie, entity, docType, refNbr string, expand ...string) (acumatica.Record, error) {
	args := m.Called(ctx, ep, cookie, entity, docType, refNbr, expand)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(acumatica.Record), args.Error(1)
}

func (m *MockGateway) GetFile(ctx context.Context, baseURL, cookie, href string) ([]byte, string, error) {
	args := m.Called(ctx, baseURL, cookie, href)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

// ---------------------------------------------------------------------------
// In-memory repositories. The reconciler and backfill properties are about
// state evolving across calls, which is simpler to assert against real
// in-memory state than against mock expectations.
// ---------------------------------------------------------------------------

type fakeCustomerRepo struct {
	mu   sync.Mutex
	rows map[string]*receivable.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{rows: make(map[string]*receivable.Customer)}
}

func (r *fakeCustomerRepo) FindByCustomerID(_ context.Context, customerID string) (*receivable.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[customerID]
	if !ok {
		return nil, receivable.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *receivable.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[customer.CustomerID]; ok {
		return receivable.ErrDuplicateKey
	}
	clone := *customer
	r.rows[customer.CustomerID] = &clone
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *receivable.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *customer
	r.rows[customer.CustomerID] = &clone
	return nil
}

func (r *fakeCustomerRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

type fakeInvoiceRepo struct {
	mu   sync.Mutex
	rows map[string]*receivable.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{rows: make(map[string]*receivable.Invoice)}
}

func invoiceKey(refNbr string, docType receivable.DocType) string {
	return refNbr + "|" + string(docType)
}

func (r *fakeInvoiceRepo) FindByNaturalKey(_ context.Context, refNbr string, docType receivable.DocType) (*receivable.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[invoiceKey(refNbr, docType)]
	if !ok {
		return nil, receivable.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *receivable.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := invoiceKey(invoice.ReferenceNbr, invoice.DocType)
	if _, ok := r.rows[key]; ok {
		return receivable.ErrDuplicateKey
	}
	clone := *invoice
	r.rows[key] = &clone
	return nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, invoice *receivable.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *invoice
	r.rows[invoiceKey(invoice.ReferenceNbr, invoice.DocType)] = &clone
	return nil
}

func (r *fakeInvoiceRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

type fakePaymentRepo struct {
	mu   sync.Mutex
	rows map[string]*receivable.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{rows: make(map[string]*receivable.Payment)}
}

func (r *fakePaymentRepo) FindByNaturalKey(_ context.Context, refNbr string, docType receivable.DocType) (*receivable.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[invoiceKey(refNbr, docType)]
	if !ok {
		return nil, receivable.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *receivable.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := invoiceKey(payment.ReferenceNbr, payment.DocType)
	if _, ok := r.rows[key]; ok {
		return receivable.ErrDuplicateKey
	}
	clone := *payment
	r.rows[key] = &clone
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, payment *receivable.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *payment
	r.rows[invoiceKey(payment.ReferenceNbr, payment.DocType)] = &clone
	return nil
}

func (r *fakePaymentRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

// ListAfterRef mirrors the keyset semantics of the GORM repository: rows
// ordered by (reference_nbr, doc_type), cursor comparison on the full
// natural key.
func (r *fakePaymentRepo) ListAfterRef(_ context.Context, afterRef string, afterDocType receivable.DocType, limit int) ([]receivable.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := make([]*receivable.Payment, 0, len(r.rows))
	for _, row := range r.rows {
		sorted = append(sorted, row)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ReferenceNbr != sorted[j].ReferenceNbr {
			return sorted[i].ReferenceNbr < sorted[j].ReferenceNbr
		}
		return sorted[i].DocType < sorted[j].DocType
	})
	out := make([]receivable.Payment, 0, limit)
	for _, row := range sorted {
		if afterRef != "" {
			if row.ReferenceNbr < afterRef {
				continue
			}
			if row.ReferenceNbr == afterRef && row.DocType <= afterDocType {
				continue
			}
		}
		out = append(out, *row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeApplicationRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID][]receivable.PaymentApplication
	orphans []receivable.PaymentApplication
}

func newFakeApplicationRepo() *fakeApplicationRepo {
	return &fakeApplicationRepo{rows: make(map[uuid.UUID][]receivable.PaymentApplication)}
}

func (r *fakeApplicationRepo) ReplaceForPayment(_ context.Context, paymentID uuid.UUID, applications []receivable.PaymentApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[paymentID] = append([]receivable.PaymentApplication(nil), applications...)
	return nil
}

func (r *fakeApplicationRepo) ListByPayment(_ context.Context, paymentID uuid.UUID) ([]receivable.PaymentApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]receivable.PaymentApplication(nil), r.rows[paymentID]...), nil
}

func (r *fakeApplicationRepo) ListOrphaned(_ context.Context, limit int) ([]receivable.PaymentApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.orphans) > limit {
		return r.orphans[:limit], nil
	}
	return r.orphans, nil
}

type fakeChangeLogRepo struct {
	mu      sync.Mutex
	entries []receivable.ChangeLogEntry
}

func newFakeChangeLogRepo() *fakeChangeLogRepo {
	return &fakeChangeLogRepo{}
}

func (r *fakeChangeLogRepo) Append(_ context.Context, entry *receivable.ChangeLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeChangeLogRepo) ListByReference(_ context.Context, entityType receivable.EntityType, refNbr string, limit int) ([]receivable.ChangeLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]receivable.ChangeLogEntry, 0)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].EntityType == entityType && r.entries[i].ReferenceNbr == refNbr {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

// last returns the most recent entry, nil when empty.
func (r *fakeChangeLogRepo) last() *receivable.ChangeLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	entry := r.entries[len(r.entries)-1]
	return &entry
}

type fakeAttachmentRepo struct {
	mu   sync.Mutex
	rows []receivable.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{}
}

func (r *fakeAttachmentRepo) Upsert(_ context.Context, attachment *receivable.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ReferenceNbr == attachment.ReferenceNbr && r.rows[i].FileID == attachment.FileID {
			r.rows[i] = *attachment
			return nil
		}
	}
	r.rows = append(r.rows, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByReference(_ context.Context, refNbr string) ([]receivable.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]receivable.Attachment, 0)
	for i := range r.rows {
		if r.rows[i].ReferenceNbr == refNbr {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

type fakeCredentialRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*syncstate.Credential
}

func newFakeCredentialRepo(active *syncstate.Credential) *fakeCredentialRepo {
	repo := &fakeCredentialRepo{rows: make(map[uuid.UUID]*syncstate.Credential)}
	if active != nil {
		repo.rows[active.ID] = active
	}
	return repo
}

func (r *fakeCredentialRepo) FindActive(_ context.Context) (*syncstate.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.IsActive {
			clone := *row
			return &clone, nil
		}
	}
	return nil, syncstate.ErrNoActiveCredential
}

func (r *fakeCredentialRepo) FindByID(_ context.Context, id uuid.UUID) (*syncstate.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, syncstate.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *fakeCredentialRepo) Save(_ context.Context, credential *syncstate.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *credential
	r.rows[credential.ID] = &clone
	return nil
}

func (r *fakeCredentialRepo) List(_ context.Context) ([]syncstate.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]syncstate.Credential, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, nil
}

type fakeSessionRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*syncstate.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[uuid.UUID]*syncstate.Session)}
}

func (r *fakeSessionRepo) FindUsable(_ context.Context, credentialID uuid.UUID) (*syncstate.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *syncstate.Session
	now := time.Now()
	for _, row := range r.rows {
		if row.CredentialID != credentialID || !row.Usable(now) {
			continue
		}
		if newest == nil || row.CreatedAt.After(newest.CreatedAt) {
			newest = row
		}
	}
	if newest == nil {
		return nil, syncstate.ErrNotFound
	}
	clone := *newest
	return &clone, nil
}

func (r *fakeSessionRepo) ListValid(_ context.Context, credentialID uuid.UUID) ([]syncstate.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]syncstate.Session, 0)
	for _, row := range r.rows {
		if row.CredentialID == credentialID && row.IsValid {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Save(_ context.Context, session *syncstate.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.rows[session.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) InvalidateAll(_ context.Context, credentialID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.CredentialID == credentialID {
			row.IsValid = false
		}
	}
	return nil
}

type fakeStatusRepo struct {
	mu   sync.Mutex
	rows map[string]*syncstate.SyncStatus
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{rows: make(map[string]*syncstate.SyncStatus)}
}

func (r *fakeStatusRepo) GetOrCreate(_ context.Context, entityType string, defaultLookbackMinutes int) (*syncstate.SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[entityType]
	if !ok {
		row = syncstate.NewSyncStatus(entityType, defaultLookbackMinutes)
		r.rows[entityType] = row
	}
	clone := *row
	return &clone, nil
}

func (r *fakeStatusRepo) Save(_ context.Context, status *syncstate.SyncStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *status
	r.rows[status.EntityType] = &clone
	return nil
}

func (r *fakeStatusRepo) List(_ context.Context) ([]syncstate.SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]syncstate.SyncStatus, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, nil
}

type fakeLogRepo struct {
	mu   sync.Mutex
	rows []syncstate.SyncLog
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Append(_ context.Context, log *syncstate.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *log)
	return nil
}

type fakeBackfillRepo struct {
	mu   sync.Mutex
	rows map[syncstate.JobType]*syncstate.BackfillProgress
}

func newFakeBackfillRepo() *fakeBackfillRepo {
	return &fakeBackfillRepo{rows: make(map[syncstate.JobType]*syncstate.BackfillProgress)}
}

func (r *fakeBackfillRepo) GetOrCreate(_ context.Context, jobType syncstate.JobType) (*syncstate.BackfillProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[jobType]
	if !ok {
		row = syncstate.NewBackfillProgress(jobType)
		r.rows[jobType] = row
	}
	clone := *row
	return &clone, nil
}

func (r *fakeBackfillRepo) Save(_ context.Context, progress *syncstate.BackfillProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *progress
	r.rows[progress.JobType] = &clone
	return nil
}
