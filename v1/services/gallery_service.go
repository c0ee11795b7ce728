package services

import (
	"context"
	"strings"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
)

// GalleryService handles event photos
type GalleryService struct {
	db      *gorm.DB
	auditor audit.Auditor
}

// NewGalleryService creates a new gallery service
func NewGalleryService(db *gorm.DB, auditor audit.Auditor) *GalleryService {
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	return &GalleryService{db: db, auditor: auditor}
}

// ListPhotos lists photos newest first, optionally for one category
func (s *GalleryService) ListPhotos(ctx context.Context, category string) (models.CollectionResponse[models.GalleryPhoto], error) {
	query := s.db.WithContext(ctx).Model(&models.GalleryPhoto{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var photos []models.GalleryPhoto
	if err := query.Order("created_at DESC").Find(&photos).Error; err != nil {
		return models.CollectionResponse[models.GalleryPhoto]{}, apperrors.DatabaseError("list gallery", err)
	}
	return models.NewCollection(photos), nil
}

// GetPhoto returns a photo by id
func (s *GalleryService) GetPhoto(ctx context.Context, id string) (*models.GalleryPhoto, error) {
	var photo models.GalleryPhoto
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error; err != nil {
		return nil, apperrors.HandleDatabaseError(err, "Photo", "get photo")
	}
	return &photo, nil
}

// CreatePhoto stores a new photo
func (s *GalleryService) CreatePhoto(ctx context.Context, caller *models.AuthenticatedUser, req *models.CreateGalleryPhotoRequest) (*models.GalleryPhoto, error) {
	photo := &models.GalleryPhoto{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Category:    req.Category,
		EventDate:   req.EventDate,
	}
	if photo.Title == "" {
		return nil, apperrors.ValidationError("MISSING_TITLE", "title is required")
	}
	if photo.ImageURL == "" {
		return nil, apperrors.ValidationError("MISSING_IMAGE_URL", "image_url is required")
	}

	err := s.db.WithContext(ctx).Create(photo).Error
	if err != nil {
		err = apperrors.HandleDatabaseError(err, "Photo", "create photo")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionCreate,
		audit.TargetTypeGalleryPhoto, photo.ID, err, map[string]interface{}{"title": photo.Title})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// UpdatePhoto applies a partial update
func (s *GalleryService) UpdatePhoto(ctx context.Context, caller *models.AuthenticatedUser, id string, patch models.GalleryPatch) (*models.GalleryPhoto, error) {
	photo, err := s.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	changes, err := patch.Apply(photo)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return photo, nil
	}
	err = s.db.WithContext(ctx).Model(&models.GalleryPhoto{}).Where("id = ?", id).Updates(map[string]interface{}(changes)).Error
	if err != nil {
		err = apperrors.HandleDatabaseError(err, "Photo", "update photo")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionUpdate,
		audit.TargetTypeGalleryPhoto, id, err, map[string]interface{}{"columns": changes.Columns()})
	if err != nil {
		return nil, err
	}
	return s.GetPhoto(ctx, id)
}

// DeletePhoto removes a photo
func (s *GalleryService) DeletePhoto(ctx context.Context, caller *models.AuthenticatedUser, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GalleryPhoto{})
	var err error
	switch {
	case result.Error != nil:
		err = apperrors.DatabaseError("delete photo", result.Error)
	case result.RowsAffected == 0:
		return apperrors.NotFoundError("Photo")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionDelete,
		audit.TargetTypeGalleryPhoto, id, err, nil)
	return err
}
