package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/storage"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
)

// FileService manages the members' document repository
type FileService struct {
	db       *gorm.DB
	uploader storage.Uploader
	auditor  audit.Auditor
}

// NewFileService creates a new file service. uploader may be nil, in which
// case stored assets are left in place when a record is deleted.
func NewFileService(db *gorm.DB, uploader storage.Uploader, auditor audit.Auditor) *FileService {
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	return &FileService{db: db, uploader: uploader, auditor: auditor}
}

// ListFiles lists repository files newest first
func (s *FileService) ListFiles(ctx context.Context, filter models.ListFilesFilter) (models.CollectionResponse[models.RepositoryFile], error) {
	query := s.db.WithContext(ctx).Model(&models.RepositoryFile{})
	if filter.Folder != "" {
		query = query.Where("folder = ?", filter.Folder)
	}
	if filter.Department != "" {
		query = query.Where("LOWER(department) = ?", strings.ToLower(filter.Department))
	}
	var files []models.RepositoryFile
	if err := query.Order("created_at DESC").Find(&files).Error; err != nil {
		return models.CollectionResponse[models.RepositoryFile]{}, apperrors.DatabaseError("list files", err)
	}
	return models.NewCollection(files), nil
}

// CreateFile registers an uploaded file. The department defaults to the
// caller's; filing elsewhere needs file:delete there. A public_id must come
// from one of the caller's own uploads and may back only one record.
func (s *FileService) CreateFile(ctx context.Context, caller *models.AuthenticatedUser, req *models.CreateFileRequest) (*models.RepositoryFile, error) {
	file := &models.RepositoryFile{
		Name:       strings.TrimSpace(req.Name),
		URL:        strings.TrimSpace(req.URL),
		PublicID:   strings.TrimSpace(req.PublicID),
		Folder:     req.Folder,
		Format:     req.Format,
		Size:       req.Size,
		Department: strings.TrimSpace(req.Department),
		UploadedBy: caller.IdentityID,
	}
	if file.Name == "" {
		return nil, apperrors.ValidationError("MISSING_NAME", "name is required")
	}
	if file.URL == "" {
		return nil, apperrors.ValidationError("MISSING_URL", "url is required")
	}
	if file.Department == "" {
		file.Department = caller.Department
	} else if !strings.EqualFold(file.Department, caller.Department) {
		if decision := caller.Authorize(models.PermissionDeleteAnyFile, file.Department); !decision.Allowed {
			return nil, forbidden(decision)
		}
	}
	if file.PublicID != "" {
		if err := s.claimUpload(ctx, caller, file.PublicID); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Create(file).Error
	if err != nil {
		err = apperrors.HandleDatabaseError(err, "File", "create file")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionCreate,
		audit.TargetTypeFile, file.ID, err, map[string]interface{}{"name": file.Name})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// DeleteFile removes a file record and its stored asset. The uploader may
// always delete; otherwise file:delete within the file's department is needed.
func (s *FileService) DeleteFile(ctx context.Context, caller *models.AuthenticatedUser, id string) error {
	var file models.RepositoryFile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		return apperrors.HandleDatabaseError(err, "File", "get file")
	}
	if file.UploadedBy != caller.IdentityID {
		if decision := caller.Authorize(models.PermissionDeleteAnyFile, file.Department); !decision.Allowed {
			return forbidden(decision)
		}
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RepositoryFile{}).Error; err != nil {
		err = apperrors.DatabaseError("delete file", err)
		recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionDelete,
			audit.TargetTypeFile, id, err, nil)
		return err
	}

	if file.PublicID != "" && s.uploader != nil {
		s.releaseAsset(ctx, id, file.PublicID)
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionDelete,
		audit.TargetTypeFile, id, nil, map[string]interface{}{"name": file.Name})
	return nil
}

func (s *FileService) claimUpload(ctx context.Context, caller *models.AuthenticatedUser, publicID string) error {
	db := s.db.WithContext(ctx)
	var upload models.StoredUpload
	err := db.Where("public_id = ?", publicID).First(&upload).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && upload.UploadedBy != caller.IdentityID) {
		return apperrors.ForbiddenError("Insufficient permissions: public_id is not one of your uploads")
	}
	if err != nil {
		return apperrors.DatabaseError("get upload", err)
	}

	var count int64
	if err := db.Model(&models.RepositoryFile{}).Where("public_id = ?", publicID).Count(&count).Error; err != nil {
		return apperrors.DatabaseError("check file", err)
	}
	if count > 0 {
		return apperrors.ConflictError("This upload is already registered as a file")
	}
	return nil
}

// releaseAsset destroys the stored asset unless another record still uses it
func (s *FileService) releaseAsset(ctx context.Context, fileID, publicID string) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.RepositoryFile{}).Where("public_id = ?", publicID).Count(&count).Error; err != nil || count > 0 {
		slog.Warn("Stored asset kept", "fileId", fileID, "publicId", publicID, "references", count, "error", err)
		return
	}
	if err := s.uploader.Destroy(ctx, publicID); err != nil {
		slog.Warn("File record deleted but stored asset was not", "fileId", fileID, "publicId", publicID, "error", err)
		return
	}
	if err := db.Where("public_id = ?", publicID).Delete(&models.StoredUpload{}).Error; err != nil {
		slog.Warn("Stored asset removed but upload record was not", "publicId", publicID, "error", err)
	}
}
