package domain

import (
	"context"

	"github.com/simp-lee/pagination"
)

// DocumentType is the kind of proof a technician uploads.
type DocumentType string

const (
	DocumentIDCard      DocumentType = "ID_CARD"
	DocumentCertificate DocumentType = "CERTIFICATE"
	DocumentInsurance   DocumentType = "INSURANCE"
	DocumentOther       DocumentType = "OTHER"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentIDCard, DocumentCertificate, DocumentInsurance, DocumentOther:
		return true
	}
	return false
}

// DocumentStatus is the moderation state of a document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "PENDING"
	DocumentApproved DocumentStatus = "APPROVED"
	DocumentRejected DocumentStatus = "REJECTED"
)

// TechnicianDocument is a file a technician submits for verification.
type TechnicianDocument struct {
	BaseModel
	TechnicianID uint           `gorm:"not null;index" json:"technician_id"`
	Type         DocumentType   `gorm:"size:20;not null" json:"type"`
	FileURL      string         `gorm:"size:500;not null" json:"file_url"`
	FileName     string         `gorm:"size:255" json:"file_name"`
	StoredName   string         `gorm:"size:255;not null" json:"-"`
	MimeType     string         `gorm:"size:100" json:"mime_type"`
	Size         int64          `json:"size"`
	Status       DocumentStatus `gorm:"size:20;not null;index" json:"status"`
	ReviewNote   string         `gorm:"size:500" json:"review_note,omitempty"`
}

// DocumentRepository defines the data access interface for technician documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *TechnicianDocument) error
	GetByID(ctx context.Context, id uint) (*TechnicianDocument, error)
	ListByTechnician(ctx context.Context, technicianID uint) ([]TechnicianDocument, error)
	List(ctx context.Context, req PageRequest) (*pagination.Pagination[TechnicianDocument], error)
	Update(ctx context.Context, doc *TechnicianDocument) error
	Delete(ctx context.Context, id uint) error
	CountByStatus(ctx context.Context, status DocumentStatus) (int64, error)
}
