package receivable

import (
	"time"

	"github.com/arflow/backend/internal/domain/shared"
)

// Attachment records a file attached to an Acumatica document, discovered by
// the attachment backfill. The bytes themselves live in object storage under
// StorageKey; this row is the metadata index.
type Attachment struct {
	shared.BaseEntity

	EntityType EntityType
	// ReferenceNbr is the normalized reference number of the owning document.
	ReferenceNbr string
	DocType      DocType
	// FileID is the Acumatica file identifier.
	FileID string
	// FileName is the upstream file name.
	FileName string
	// StorageKey is the object-storage key the bytes were archived under.
	// Empty when archiving is disabled and only metadata is kept.
	StorageKey string
	SizeBytes  int64
	FetchedAt  time.Time
}

// NewAttachment creates an attachment metadata row.
func NewAttachment(entityType EntityType, refNbr string, docType DocType, fileID, fileName string) *Attachment {
	return &Attachment{
		BaseEntity:   shared.NewBaseEntity(),
		EntityType:   entityType,
		ReferenceNbr: NormalizeRefNbr(refNbr),
		DocType:      docType,
		FileID:       fileID,
		FileName:     fileName,
		FetchedAt:    time.Now(),
	}
}
