package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/arflow/backend/internal/domain/syncstate"
)

// CredentialModel is the persistence model for Acumatica credential sets.
type CredentialModel struct {
	BaseModel
	BaseURL         string `gorm:"type:varchar(500);not null"`
	Username        string `gorm:"type:varchar(100);not null"`
	Password        string `gorm:"type:varchar(500);not null"`
	Company         string `gorm:"type:varchar(100)"`
	Branch          string `gorm:"type:varchar(100)"`
	EndpointVersion string `gorm:"type:varchar(30);not null"`
	IsActive        bool   `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "acumatica_sync_credentials"
}

// ToDomain converts the persistence model to a domain Credential.
func (m *CredentialModel) ToDomain() *syncstate.Credential {
	return &syncstate.Credential{
		BaseEntity:      m.BaseModel.ToDomain(),
		BaseURL:         m.BaseURL,
		Username:        m.Username,
		Password:        m.Password,
		Company:         m.Company,
		Branch:          m.Branch,
		EndpointVersion: m.EndpointVersion,
		IsActive:        m.IsActive,
	}
}

// FromDomain populates the persistence model from a domain Credential.
func (m *CredentialModel) FromDomain(c *syncstate.Credential) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.BaseURL = c.BaseURL
	m.Username = c.Username
	m.Password = c.Password
	m.Company = c.Company
	m.Branch = c.Branch
	m.EndpointVersion = c.EndpointVersion
	m.IsActive = c.IsActive
}

// SessionModel is the persistence model for cached Acumatica sessions.
type SessionModel struct {
	BaseModel
	CredentialID uuid.UUID `gorm:"type:uuid;not null;index"`
	Cookie       string    `gorm:"type:text;not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	IsValid      bool      `gorm:"not null;default:true;index"`
	LastUsedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SessionModel) TableName() string {
	return "acumatica_session_cache"
}

// ToDomain converts the persistence model to a domain Session.
func (m *SessionModel) ToDomain() *syncstate.Session {
	return &syncstate.Session{
		BaseEntity:   m.BaseModel.ToDomain(),
		CredentialID: m.CredentialID,
		Cookie:       m.Cookie,
		ExpiresAt:    m.ExpiresAt,
		IsValid:      m.IsValid,
		LastUsedAt:   m.LastUsedAt,
	}
}

// FromDomain populates the persistence model from a domain Session.
func (m *SessionModel) FromDomain(s *syncstate.Session) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.CredentialID = s.CredentialID
	m.Cookie = s.Cookie
	m.ExpiresAt = s.ExpiresAt
	m.IsValid = s.IsValid
	m.LastUsedAt = s.LastUsedAt
}

// SyncStatusModel is the persistence model for the per-entity-type status
// row. The bounded error list is stored as a JSON array.
type SyncStatusModel struct {
	BaseModel
	EntityType      string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_status_entity_type"`
	State           string     `gorm:"type:varchar(20);not null"`
	LookbackMinutes int        `gorm:"not null;default:60"`
	LastRunAt       *time.Time `gorm:""`
	LastSuccessAt   *time.Time `gorm:""`
	Created         int        `gorm:"not null;default:0"`
	Updated         int        `gorm:"not null;default:0"`
	TotalFetched    int        `gorm:"not null;default:0"`
	Errors          string     `gorm:"type:jsonb"`
	LastError       string     `gorm:"type:text"`
	DurationMs      int64      `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SyncStatusModel) TableName() string {
	return "sync_status"
}

// ToDomain converts the persistence model to a domain SyncStatus.
func (m *SyncStatusModel) ToDomain() *syncstate.SyncStatus {
	var errs []string
	if m.Errors != "" {
		// A corrupt list degrades to empty rather than failing the read.
		_ = json.Unmarshal([]byte(m.Errors), &errs)
	}
	return &syncstate.SyncStatus{
		BaseEntity:      m.BaseModel.ToDomain(),
		EntityType:      m.EntityType,
		State:           syncstate.RunState(m.State),
		LookbackMinutes: m.LookbackMinutes,
		LastRunAt:       m.LastRunAt,
		LastSuccessAt:   m.LastSuccessAt,
		Created:         m.Created,
		Updated:         m.Updated,
		TotalFetched:    m.TotalFetched,
		Errors:          errs,
		LastError:       m.LastError,
		DurationMs:      m.DurationMs,
	}
}

// FromDomain populates the persistence model from a domain SyncStatus.
func (m *SyncStatusModel) FromDomain(s *syncstate.SyncStatus) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.EntityType = s.EntityType
	m.State = string(s.State)
	m.LookbackMinutes = s.LookbackMinutes
	m.LastRunAt = s.LastRunAt
	m.LastSuccessAt = s.LastSuccessAt
	m.Created = s.Created
	m.Updated = s.Updated
	m.TotalFetched = s.TotalFetched
	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	if b, err := json.Marshal(errs); err == nil {
		m.Errors = string(b)
	} else {
		m.Errors = "[]"
	}
	m.LastError = s.LastError
	m.DurationMs = s.DurationMs
}

// SyncLogModel is the persistence model for the append-only invocation log.
type SyncLogModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	EntityType   string    `gorm:"type:varchar(20);not null;index"`
	Success      bool      `gorm:"not null"`
	Created      int       `gorm:"not null;default:0"`
	Updated      int       `gorm:"not null;default:0"`
	TotalFetched int       `gorm:"not null;default:0"`
	ErrorCount   int       `gorm:"not null;default:0"`
	DurationMs   int64     `gorm:"not null;default:0"`
	TestMode     bool      `gorm:"not null;default:false"`
	RanAt        time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// FromDomain populates the persistence model from a domain SyncLog.
func (m *SyncLogModel) FromDomain(l *syncstate.SyncLog) {
	m.ID = l.ID
	m.EntityType = l.EntityType
	m.Success = l.Success
	m.Created = l.Created
	m.Updated = l.Updated
	m.TotalFetched = l.TotalFetched
	m.ErrorCount = l.ErrorCount
	m.DurationMs = l.DurationMs
	m.TestMode = l.TestMode
	m.RanAt = l.RanAt
}

// BackfillProgressModel is the persistence model for backfill job progress.
type BackfillProgressModel struct {
	BaseModel
	JobType              string     `gorm:"type:varchar(40);not null;uniqueIndex:idx_backfill_progress_job_type"`
	TotalItems           int        `gorm:"not null;default:0"`
	LastProcessedRef     string     `gorm:"type:varchar(20)"`
	LastProcessedDocType string     `gorm:"type:varchar(30)"`
	ItemsProcessed       int        `gorm:"not null;default:0"`
	ApplicationsFound    int        `gorm:"not null;default:0"`
	AttachmentsFound     int        `gorm:"not null;default:0"`
	ErrorsCount          int        `gorm:"not null;default:0"`
	LastError            string     `gorm:"type:text"`
	IsRunning            bool       `gorm:"not null;default:false"`
	StartedAt            *time.Time `gorm:""`
	CompletedAt          *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (BackfillProgressModel) TableName() string {
	return "backfill_progress"
}

// ToDomain converts the persistence model to a domain BackfillProgress.
func (m *BackfillProgressModel) ToDomain() *syncstate.BackfillProgress {
	return &syncstate.BackfillProgress{
		BaseEntity:           m.BaseModel.ToDomain(),
		JobType:              syncstate.JobType(m.JobType),
		TotalItems:           m.TotalItems,
		LastProcessedRef:     m.LastProcessedRef,
		LastProcessedDocType: m.LastProcessedDocType,
		ItemsProcessed:       m.ItemsProcessed,
		ApplicationsFound:    m.ApplicationsFound,
		AttachmentsFound:     m.AttachmentsFound,
		ErrorsCount:          m.ErrorsCount,
		LastError:            m.LastError,
		IsRunning:            m.IsRunning,
		StartedAt:            m.StartedAt,
		CompletedAt:          m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain BackfillProgress.
func (m *BackfillProgressModel) FromDomain(p *syncstate.BackfillProgress) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.JobType = string(p.JobType)
	m.TotalItems = p.TotalItems
	m.LastProcessedRef = p.LastProcessedRef
	m.LastProcessedDocType = p.LastProcessedDocType
	m.ItemsProcessed = p.ItemsProcessed
	m.ApplicationsFound = p.ApplicationsFound
	m.AttachmentsFound = p.AttachmentsFound
	m.ErrorsCount = p.ErrorsCount
	m.LastError = p.LastError
	m.IsRunning = p.IsRunning
	m.StartedAt = p.StartedAt
	m.CompletedAt = p.CompletedAt
}
