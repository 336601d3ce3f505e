package syncstate

import (
	"github.com/arflow/backend/internal/domain/shared"
)

// Credential holds the connection settings for one Acumatica instance.
// Exactly one active credential set is used per sync run. Credentials are
// created and edited by an administrator and are never deleted, only
// deactivated.
type Credential struct {
	shared.BaseEntity

	// BaseURL is the Acumatica instance root, e.g. "https://erp.example.com".
	BaseURL  string
	Username string
	Password string
	// Company and Branch are optional tenant selectors sent with login.
	Company string
	Branch  string
	// EndpointVersion is the contract version segment of entity URLs,
	// e.g. "24.200.001".
	EndpointVersion string
	IsActive        bool
}

// NewCredential creates an active credential set.
func NewCredential(baseURL, username, password string) *Credential {
	return &Credential{
		BaseEntity: shared.NewBaseEntity(),
		BaseURL:    baseURL,
		Username:   username,
		Password:   password,
		IsActive:   true,
	}
}

// Deactivate marks the credential set unusable for future runs.
func (c *Credential) Deactivate() {
	c.IsActive = false
}
