package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/receivable"
	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// SyncConfig carries the tunables of an incremental sync run.
type SyncConfig struct {
	// DefaultLookbackMinutes seeds the incremental window of a fresh status
	// row. Per-run overrides and the persisted row take precedence.
	DefaultLookbackMinutes int
	// PageSize is the $top used when paginating list fetches.
	PageSize int
	// ItemDelay is the pause between per-record ERP calls, protecting the
	// upstream session from hammering.
	ItemDelay time.Duration
}

// DefaultSyncConfig returns the production defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		DefaultLookbackMinutes: 60,
		PageSize:               100,
		ItemDelay:              150 * time.Millisecond,
	}
}

// SyncService runs incremental entity syncs: customers, invoices and
// payments, each filtered to records modified within the lookback window.
// Each run is a stateless request/response unit; all cross-run state lives
// in the status rows.
type SyncService struct {
	sessions   *SessionManager
	gateway    ERPGateway
	reconciler *Reconciler
	linker     *ApplicationLinker
	statuses   syncstate.StatusRepository
	logs       syncstate.LogRepository
	logger     *zap.Logger
	config     SyncConfig
}

// NewSyncService creates a sync service.
func NewSyncService(
	sessions *SessionManager,
	gateway ERPGateway,
	reconciler *Reconciler,
	linker *ApplicationLinker,
	statuses syncstate.StatusRepository,
	logs syncstate.LogRepository,
	logger *zap.Logger,
	config SyncConfig,
) *SyncService {
	return &SyncService{
		sessions:   sessions,
		gateway:    gateway,
		reconciler: reconciler,
		linker:     linker,
		statuses:   statuses,
		logs:       logs,
		logger:     logger,
		config:     config,
	}
}

// SyncCustomers runs one incremental customer sync.
func (s *SyncService) SyncCustomers(ctx context.Context, req SyncRequest) *SyncSummary {
	return s.syncEntity(ctx, receivable.EntityCustomer, "Customer", req)
}

// SyncInvoices runs one incremental invoice sync.
func (s *SyncService) SyncInvoices(ctx context.Context, req SyncRequest) *SyncSummary {
	return s.syncEntity(ctx, receivable.EntityInvoice, "Invoice", req)
}

// SyncPayments runs one incremental payment sync, relinking each payment's
// application history after the upsert.
func (s *SyncService) SyncPayments(ctx context.Context, req SyncRequest) *SyncSummary {
	return s.syncEntity(ctx, receivable.EntityPayment, "Payment", req)
}

// SyncAll triggers the three entity syncs concurrently and returns all
// summaries. No ordering is guaranteed across entity types: a payment may
// arrive before the invoice it applies to, which the linker tolerates.
func (s *SyncService) SyncAll(ctx context.Context, req SyncRequest) []*SyncSummary {
	type run struct {
		index int
		fn    func(context.Context, SyncRequest) *SyncSummary
	}
	runs := []run{
		{0, s.SyncCustomers},
		{1, s.SyncInvoices},
		{2, s.SyncPayments},
	}

	summaries := make([]*SyncSummary, len(runs))
	var wg sync.WaitGroup
	for _, r := range runs {
		wg.Add(1)
		go func(r run) {
			defer wg.Done()
			summaries[r.index] = r.fn(ctx, req)
		}(r)
	}
	wg.Wait()
	return summaries
}

// Statuses returns the current per-entity-type status rows.
func (s *SyncService) Statuses(ctx context.Context) ([]StatusView, error) {
	rows, err := s.statuses.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]StatusView, 0, len(rows))
	for i := range rows {
		views = append(views, newStatusView(&rows[i]))
	}
	return views, nil
}

func newStatusView(status *syncstate.SyncStatus) StatusView {
	errs := syncstate.TruncateErrors(status.Errors, syncstate.MaxReturnedErrors)
	if errs == nil {
		errs = []string{}
	}
	return StatusView{
		EntityType:      status.EntityType,
		State:           status.State,
		LookbackMinutes: status.LookbackMinutes,
		LastRunAt:       status.LastRunAt,
		LastSuccessAt:   status.LastSuccessAt,
		Created:         status.Created,
		Updated:         status.Updated,
		TotalFetched:    status.TotalFetched,
		Errors:          errs,
		LastError:       status.LastError,
		DurationMs:      status.DurationMs,
	}
}

// ---------------------------------------------------------------------------
// Run core
// ---------------------------------------------------------------------------

func (s *SyncService) syncEntity(ctx context.Context, entityType receivable.EntityType, erpEntity string, req SyncRequest) *SyncSummary {
	start := time.Now()

	status, err := s.statuses.GetOrCreate(ctx, string(entityType), s.config.DefaultLookbackMinutes)
	if err != nil {
		return newFailedSummary(string(entityType), fmt.Errorf("failed to load sync status: %w", err), time.Since(start))
	}

	lookback := status.LookbackMinutes
	if req.LookbackMinutes != nil {
		lookback = *req.LookbackMinutes
	}
	pageSize := s.config.PageSize
	if req.BatchSize != nil {
		pageSize = *req.BatchSize
	}

	status.BeginRun()
	if err := s.statuses.Save(ctx, status); err != nil {
		return newFailedSummary(string(entityType), fmt.Errorf("failed to persist running status: %w", err), time.Since(start))
	}

	counts, errs, runErr := s.runFetchLoop(ctx, entityType, erpEntity, lookback, pageSize, req)
	duration := time.Since(start)

	summary := &SyncSummary{
		Success:      runErr == nil,
		EntityType:   string(entityType),
		Created:      counts.created,
		Updated:      counts.updated,
		TotalFetched: counts.fetched,
		Errors:       syncstate.TruncateErrors(errs, syncstate.MaxReturnedErrors),
		DurationMs:   duration.Milliseconds(),
		TestMode:     req.TestMode,
	}
	if summary.Errors == nil {
		summary.Errors = []string{}
	}
	if runErr != nil {
		summary.Error = runErr.Error()
		status.FailRun(runErr, duration)
	} else {
		status.CompleteRun(counts.created, counts.updated, counts.fetched, errs, duration)
	}

	if err := s.statuses.Save(ctx, status); err != nil {
		s.logger.Error("Failed to persist final sync status",
			zap.String("entity_type", string(entityType)),
			zap.Error(err),
		)
	}
	if err := s.logs.Append(ctx, syncstate.NewSyncLog(
		string(entityType), runErr == nil,
		counts.created, counts.updated, counts.fetched, len(errs),
		duration, req.TestMode,
	)); err != nil {
		s.logger.Warn("Failed to append sync log", zap.Error(err))
	}

	s.logger.Info("Sync run finished",
		zap.String("entity_type", string(entityType)),
		zap.Bool("success", summary.Success),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("total_fetched", summary.TotalFetched),
		zap.Int("error_count", len(errs)),
		zap.Duration("duration", duration),
		zap.Bool("test_mode", req.TestMode),
	)
	return summary
}

type runCounts struct {
	created int
	updated int
	fetched int
}

// runFetchLoop paginates the incremental fetch and reconciles records one at
// a time. Per-record failures are collected, never fatal; only auth/config
// level failures abort the run.
func (s *SyncService) runFetchLoop(ctx context.Context, entityType receivable.EntityType, erpEntity string, lookback, pageSize int, req SyncRequest) (runCounts, []string, error) {
	var counts runCounts
	var errs []string

	var session *syncstate.Session
	var cookie string
	var ep acumatica.Endpoint

	if req.Credentials != nil {
		creds := req.Credentials.toGatewayCredentials()
		oneOff, err := s.sessions.EphemeralSession(ctx, creds)
		if err != nil {
			return counts, errs, err
		}
		cookie = oneOff
		ep = acumatica.Endpoint{BaseURL: creds.BaseURL, Version: creds.EndpointVersion}
		defer func() {
			if err := s.gateway.Logout(ctx, creds.BaseURL, oneOff); err != nil {
				s.logger.Warn("Logout of one-off session failed", zap.Error(err))
			}
		}()
	} else {
		cached, credential, err := s.sessions.GetSession(ctx, false)
		if err != nil {
			return counts, errs, err
		}
		session = cached
		cookie = cached.Cookie
		ep = acumatica.Endpoint{BaseURL: credential.BaseURL, Version: credential.EndpointVersion}
	}

	cutoff := time.Now().Add(-time.Duration(lookback) * time.Minute)
	skip := req.Skip
	renewed := false

	for {
		query := acumatica.NewQuery(erpEntity).ModifiedSince(cutoff).Page(pageSize, skip)
		if entityType == receivable.EntityPayment {
			query = query.Expand("ApplicationHistory")
		}

		records, err := s.gateway.List(ctx, ep, cookie, query)
		if err != nil {
			// One renewal per run on a rejected cookie; a second 401 is a
			// real auth failure. One-off sessions are never renewed.
			if errors.Is(err, acumatica.ErrUnauthorized) && !renewed && session != nil {
				renewed = true
				if invErr := s.sessions.Invalidate(ctx, session); invErr != nil {
					s.logger.Warn("Failed to invalidate rejected session", zap.Error(invErr))
				}
				var credential *syncstate.Credential
				session, credential, err = s.sessions.GetSession(ctx, false)
				if err != nil {
					return counts, errs, err
				}
				cookie = session.Cookie
				ep = acumatica.Endpoint{BaseURL: credential.BaseURL, Version: credential.EndpointVersion}
				continue
			}
			return counts, errs, err
		}

		for i, record := range records {
			counts.fetched++
			if req.TestMode {
				continue
			}

			action, err := s.processRecord(ctx, entityType, ep, cookie, record)
			if err != nil {
				if len(errs) < syncstate.MaxStoredErrors {
					errs = append(errs, err.Error())
				}
				s.logger.Warn("Record failed",
					zap.String("entity_type", string(entityType)),
					zap.Error(err),
				)
				continue
			}
			switch action {
			case ActionCreated:
				counts.created++
			case ActionUpdated:
				counts.updated++
			}

			if s.config.ItemDelay > 0 && i < len(records)-1 {
				select {
				case <-ctx.Done():
					return counts, errs, ctx.Err()
				case <-time.After(s.config.ItemDelay):
				}
			}
		}

		if len(records) < pageSize {
			return counts, errs, nil
		}
		skip += pageSize
	}
}

// processRecord maps, reconciles and (for payments) relinks one record.
func (s *SyncService) processRecord(ctx context.Context, entityType receivable.EntityType, ep acumatica.Endpoint, cookie string, record acumatica.Record) (Action, error) {
	normalized := MapRecord(record, entityType)

	switch entityType {
	case receivable.EntityCustomer:
		customer, err := BuildCustomer(normalized)
		if err != nil {
			return "", err
		}
		result, err := s.reconciler.ReconcileCustomer(ctx, customer)
		if err != nil {
			return "", err
		}
		return result.Action, nil

	case receivable.EntityInvoice:
		invoice, err := BuildInvoice(normalized)
		if err != nil {
			return "", err
		}
		result, err := s.reconciler.ReconcileInvoice(ctx, invoice)
		if err != nil {
			return "", err
		}
		return result.Action, nil

	case receivable.EntityPayment:
		payment, err := BuildPayment(normalized)
		if err != nil {
			return "", err
		}
		persisted, result, err := s.reconciler.ReconcilePayment(ctx, payment)
		if err != nil {
			return "", err
		}
		if _, err := s.linker.Relink(ctx, ep, cookie, persisted, record); err != nil {
			// The upsert stands; the stale links refresh on the next run.
			return "", fmt.Errorf("payment %s: %w", persisted.ReferenceNbr, err)
		}
		return result.Action, nil

	default:
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
}
