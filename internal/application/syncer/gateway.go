package syncer

import (
	"context"

	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// ERPGateway is the slice of the Acumatica client the sync services consume.
// Narrowed to an interface so service tests can substitute a mock without a
// live HTTP server.
type ERPGateway interface {
	Login(ctx context.Context, creds acumatica.Credentials) (string, error)
	Logout(ctx context.Context, baseURL, cookie string) error
	List(ctx context.Context, ep acumatica.Endpoint, cookie string, q *acumatica.Query) ([]acumatica.Record, error)
	Detail(ctx context.Context, ep acumatica.Endpoint, cookie, entity, docType, refNbr string, expand ...string) (acumatica.Record, error)
	GetFile(ctx context.Context, baseURL, cookie, href string) ([]byte, string, error)
}

var _ ERPGateway = (*acumatica.Client)(nil)
