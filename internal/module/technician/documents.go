package technician

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/storage"
)

func (s *technicianService) ListDocuments(ctx context.Context, userID uint) ([]domain.TechnicianDocument, error) {
	return s.Documents.ListByTechnician(ctx, userID)
}

// UploadDocument stores a verification document. Only PDFs and images are
// accepted.
func (s *technicianService) UploadDocument(ctx context.Context, userID uint, docType domain.DocumentType, fh *multipart.FileHeader) (*domain.TechnicianDocument, error) {
	if !docType.Valid() {
		return nil, domain.Validation("type must be one of ID_CARD, CERTIFICATE, INSURANCE, OTHER")
	}

	file, err := s.Files.Save(ctx, fh, storage.DocumentTypes...)
	if err != nil {
		return nil, err
	}

	doc := &domain.TechnicianDocument{
		TechnicianID: userID,
		Type:         docType,
		FileURL:      file.URL,
		FileName:     file.Name,
		StoredName:   file.StoredName,
		MimeType:     file.MimeType,
		Size:         file.Size,
		Status:       domain.DocumentPending,
	}
	if err := s.Documents.Create(ctx, doc); err != nil {
		s.Files.Delete(ctx, file.StoredName)
		return nil, err
	}

	slog.InfoContext(ctx, "technician document uploaded",
		slog.Uint64("technician_id", uint64(userID)),
		slog.Uint64("document_id", uint64(doc.ID)),
		slog.String("type", string(docType)),
	)
	return doc, nil
}

// DeleteDocument removes a document that has not been reviewed yet.
func (s *technicianService) DeleteDocument(ctx context.Context, userID, docID uint) error {
	doc, err := s.Documents.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.TechnicianID != userID {
		return domain.NotFound("document")
	}
	if doc.Status != domain.DocumentPending {
		return domain.Conflict("only pending documents can be deleted")
	}

	if err := s.Documents.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.Files.Delete(ctx, doc.StoredName); err != nil {
		slog.WarnContext(ctx, "document file not removed", slog.String("stored_name", doc.StoredName), slog.Any("error", err))
	}
	return nil
}
