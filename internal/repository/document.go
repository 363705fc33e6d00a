package repository

import (
	"context"

	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/allobricolage/internal/domain"
	"github.com/simp-lee/allobricolage/internal/pkg"
)

var (
	documentSortFields   = []string{"id", "created_at", "status", "type"}
	documentFilterFields = []string{"status", "type", "technician_id"}
)

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a DocumentRepository backed by db.
func NewDocumentRepository(db *gorm.DB) domain.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.TechnicianDocument) error {
	return mapError(r.db.WithContext(ctx).Create(doc).Error)
}

func (r *documentRepository) GetByID(ctx context.Context, id uint) (*domain.TechnicianDocument, error) {
	var doc domain.TechnicianDocument
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, notFound(err, "document")
	}
	return &doc, nil
}

func (r *documentRepository) ListByTechnician(ctx context.Context, technicianID uint) ([]domain.TechnicianDocument, error) {
	docs := []domain.TechnicianDocument{}
	err := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Order("id DESC").
		Find(&docs).Error
	if err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

func (r *documentRepository) List(ctx context.Context, req domain.PageRequest) (*pagination.Pagination[domain.TechnicianDocument], error) {
	query := r.db.WithContext(ctx).Model(&domain.TechnicianDocument{}).
		Scopes(pkg.Filter(req, documentFilterFields))

	page, err := pkg.FindPage[domain.TechnicianDocument](ctx, query, req, documentSortFields, "id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	return page, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *domain.TechnicianDocument) error {
	return mapError(r.db.WithContext(ctx).Save(doc).Error)
}

func (r *documentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.TechnicianDocument{}, id)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("document")
	}
	return nil
}

func (r *documentRepository) CountByStatus(ctx context.Context, status domain.DocumentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.TechnicianDocument{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, mapError(err)
}
