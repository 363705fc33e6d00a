// Package storage keeps uploaded files on the local disk. Files are served
// back by the HTTP layer under a public URL prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/simp-lee/allobricolage/internal/domain"
)

// ImageTypes are the MIME types accepted for avatars.
var ImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// DocumentTypes are the MIME types accepted for technician documents.
var DocumentTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

// File describes a stored upload.
type File struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	StoredName string `json:"stored_name"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
}

// Store saves and removes uploads. Local is the only implementation.
type Store interface {
	Save(ctx context.Context, fh *multipart.FileHeader, only ...string) (*File, error)
	Delete(ctx context.Context, storedName string) error
	StoredName(url string) string
}

// Options configures a Local store.
type Options struct {
	Dir          string
	PublicPrefix string
	MaxBytes     int64
	AllowedTypes []string
}

// Local stores files in a single directory under random names.
type Local struct {
	dir      string
	prefix   string
	maxBytes int64
	allowed  []string
}

// NewLocal creates the upload directory if needed.
func NewLocal(opts Options) (*Local, error) {
	if opts.Dir == "" {
		return nil, errors.New("storage: upload dir is required")
	}
	if opts.MaxBytes <= 0 {
		return nil, errors.New("storage: max size must be positive")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", err)
	}
	prefix := "/" + strings.Trim(opts.PublicPrefix, "/")
	return &Local{
		dir:      opts.Dir,
		prefix:   prefix,
		maxBytes: opts.MaxBytes,
		allowed:  opts.AllowedTypes,
	}, nil
}

// Dir returns the directory files are written to.
func (s *Local) Dir() string { return s.dir }

// PublicPrefix returns the URL path under which files are served.
func (s *Local) PublicPrefix() string { return s.prefix }

// Save validates and writes fh. The type is sniffed from the content, never
// taken from the client; it must be allowed by the store and, when given,
// be one of only.
func (s *Local) Save(ctx context.Context, fh *multipart.FileHeader, only ...string) (*File, error) {
	if fh == nil {
		return nil, domain.Validation("file is required")
	}
	if fh.Size > s.maxBytes {
		return nil, domain.Validation(fmt.Sprintf("file exceeds the %d MB limit", s.maxBytes>>20))
	}

	src, err := fh.Open()
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to open upload", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to read upload", err)
	}
	if !s.accepts(mtype, only) {
		return nil, domain.Validation("file type " + mtype.String() + " is not allowed")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to read upload", err)
	}

	name := uuid.NewString() + mtype.Extension()
	target := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to store upload", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil || written > s.maxBytes {
		os.Remove(target)
		if err != nil {
			return nil, domain.NewAppError(domain.CodeInternal, "failed to store upload", err)
		}
		return nil, domain.Validation(fmt.Sprintf("file exceeds the %d MB limit", s.maxBytes>>20))
	}

	slog.InfoContext(ctx, "file stored",
		slog.String("stored_name", name),
		slog.String("mime_type", mtype.String()),
		slog.Int64("size", written),
	)

	return &File{
		URL:        path.Join(s.prefix, name),
		Name:       filepath.Base(fh.Filename),
		StoredName: name,
		MimeType:   baseType(mtype.String()),
		Size:       written,
	}, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *Local) Delete(ctx context.Context, storedName string) error {
	if storedName == "" || storedName != filepath.Base(storedName) {
		return domain.Validation("invalid file name")
	}
	err := os.Remove(filepath.Join(s.dir, storedName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "file delete failed", slog.String("stored_name", storedName), slog.Any("error", err))
		return domain.NewAppError(domain.CodeInternal, "failed to delete file", err)
	}
	return nil
}

// StoredName extracts the stored file name from a URL returned by Save. It
// returns "" for URLs outside the public prefix.
func (s *Local) StoredName(url string) string {
	rest, ok := strings.CutPrefix(url, s.prefix+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}

// accepts reports whether the sniffed type, or one of its aliases, is in
// the store allow-list and in only when only is set.
func (s *Local) accepts(mtype *mimetype.MIME, only []string) bool {
	if len(s.allowed) > 0 && !slices.ContainsFunc(s.allowed, mtype.Is) {
		return false
	}
	if len(only) > 0 && !slices.ContainsFunc(only, mtype.Is) {
		return false
	}
	return true
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(m string) string {
	base, _, _ := strings.Cut(m, ";")
	return strings.TrimSpace(base)
}
