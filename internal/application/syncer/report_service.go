package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/receivable"
)

// defaultOrphanLimit bounds the diagnostics report size.
const defaultOrphanLimit = 500

// ReportService produces sync diagnostics. The orphan report lists payment
// applications whose invoice has not been synced locally yet; a non-empty
// report that persists across runs points at an invoice-sync gap rather
// than the ordinary sync-ordering race.
type ReportService struct {
	applications receivable.ApplicationRepository
	logger       *zap.Logger
}

// NewReportService creates a report service.
func NewReportService(applications receivable.ApplicationRepository, logger *zap.Logger) *ReportService {
	return &ReportService{applications: applications, logger: logger}
}

// OrphanedApplications returns applications referencing invoices with no
// local row, up to limit (capped at the default when zero or oversized).
func (s *ReportService) OrphanedApplications(ctx context.Context, limit int) (*OrphanReport, error) {
	if limit <= 0 || limit > defaultOrphanLimit {
		limit = defaultOrphanLimit
	}

	orphans, err := s.applications.ListOrphaned(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned applications: %w", err)
	}

	rows := make([]OrphanedApplication, 0, len(orphans))
	for i := range orphans {
		rows = append(rows, OrphanedApplication{
			PaymentRefNbr:   orphans[i].PaymentRefNbr,
			InvoiceRefNbr:   orphans[i].InvoiceRefNbr,
			DocType:         orphans[i].DocType.String(),
			AmountPaid:      orphans[i].AmountPaid,
			ApplicationDate: orphans[i].ApplicationDate,
		})
	}
	return &OrphanReport{Count: len(rows), Orphans: rows}, nil
}
