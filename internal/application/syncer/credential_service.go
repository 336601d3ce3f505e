package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/syncstate"
	"github.com/arflow/backend/internal/infrastructure/acumatica"
)

// CredentialInput is the admin payload for creating or updating a
// credential set.
type CredentialInput struct {
	BaseURL         string `json:"baseUrl" binding:"required,url"`
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	Company         string `json:"company,omitempty"`
	Branch          string `json:"branch,omitempty"`
	EndpointVersion string `json:"endpointVersion" binding:"required"`
}

// toGatewayCredentials maps the input onto the ERP client's credential shape.
func (in CredentialInput) toGatewayCredentials() acumatica.Credentials {
	return acumatica.Credentials{
		BaseURL:         in.BaseURL,
		Username:        in.Username,
		Password:        in.Password,
		Company:         in.Company,
		Branch:          in.Branch,
		EndpointVersion: in.EndpointVersion,
	}
}

// CredentialView is a credential set with the password redacted.
type CredentialView struct {
	ID              uuid.UUID `json:"id"`
	BaseURL         string    `json:"baseUrl"`
	Username        string    `json:"username"`
	Company         string    `json:"company,omitempty"`
	Branch          string    `json:"branch,omitempty"`
	EndpointVersion string    `json:"endpointVersion"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CredentialService manages Acumatica credential sets. Activating a new set
// deactivates the rest: exactly one active credential is used per sync run.
type CredentialService struct {
	credentials syncstate.CredentialRepository
	gateway     ERPGateway
	logger      *zap.Logger
}

// NewCredentialService creates a credential service.
func NewCredentialService(credentials syncstate.CredentialRepository, gateway ERPGateway, logger *zap.Logger) *CredentialService {
	return &CredentialService{credentials: credentials, gateway: gateway, logger: logger}
}

// List returns every credential set, active first, passwords redacted.
func (s *CredentialService) List(ctx context.Context) ([]CredentialView, error) {
	rows, err := s.credentials.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]CredentialView, 0, len(rows))
	for i := range rows {
		views = append(views, newCredentialView(&rows[i]))
	}
	return views, nil
}

// Create stores a new credential set and makes it the active one,
// deactivating any prior active set.
func (s *CredentialService) Create(ctx context.Context, input CredentialInput) (*CredentialView, error) {
	existing, err := s.credentials.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].IsActive {
			existing[i].Deactivate()
			if err := s.credentials.Save(ctx, &existing[i]); err != nil {
				return nil, fmt.Errorf("failed to deactivate prior credential: %w", err)
			}
		}
	}

	credential := syncstate.NewCredential(input.BaseURL, input.Username, input.Password)
	credential.Company = input.Company
	credential.Branch = input.Branch
	credential.EndpointVersion = input.EndpointVersion
	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, err
	}

	s.logger.Info("Credential set created",
		zap.String("credential_id", credential.ID.String()),
		zap.String("base_url", credential.BaseURL),
	)
	view := newCredentialView(credential)
	return &view, nil
}

// Deactivate marks a credential set unusable for future runs.
func (s *CredentialService) Deactivate(ctx context.Context, id uuid.UUID) error {
	credential, err := s.credentials.FindByID(ctx, id)
	if err != nil {
		return err
	}
	credential.Deactivate()
	credential.Touch()
	return s.credentials.Save(ctx, credential)
}

// TestConnection verifies a credential set against the ERP with a
// login/logout round trip, without persisting anything.
func (s *CredentialService) TestConnection(ctx context.Context, input CredentialInput) error {
	cookie, err := s.gateway.Login(ctx, input.toGatewayCredentials())
	if err != nil {
		return err
	}
	if err := s.gateway.Logout(ctx, input.BaseURL, cookie); err != nil {
		s.logger.Warn("Logout after connection test failed", zap.Error(err))
	}
	return nil
}

func newCredentialView(credential *syncstate.Credential) CredentialView {
	return CredentialView{
		ID:              credential.ID,
		BaseURL:         credential.BaseURL,
		Username:        credential.Username,
		Company:         credential.Company,
		Branch:          credential.Branch,
		EndpointVersion: credential.EndpointVersion,
		IsActive:        credential.IsActive,
		CreatedAt:       credential.CreatedAt,
		UpdatedAt:       credential.UpdatedAt,
	}
}
