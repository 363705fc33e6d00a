package file

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/simp-lee/allobricolage/internal/storage"
)

// Service stores generic uploads such as payment proofs and chat
// attachments.
type Service interface {
	Upload(ctx context.Context, userID uint, fh *multipart.FileHeader) (*storage.File, error)
}

type fileService struct {
	store storage.Store
}

// NewService creates the upload service on top of store.
func NewService(store storage.Store) Service {
	return &fileService{store: store}
}

func (s *fileService) Upload(ctx context.Context, userID uint, fh *multipart.FileHeader) (*storage.File, error) {
	f, err := s.store.Save(ctx, fh)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "file uploaded",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("stored_name", f.StoredName),
		slog.String("mime_type", f.MimeType),
		slog.Int64("size", f.Size),
	)
	return f, nil
}
