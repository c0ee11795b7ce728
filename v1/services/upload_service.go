package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/storage"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
)

// DefaultMaxUploadBytes caps a decoded upload
const DefaultMaxUploadBytes = 10 << 20

// uploadEnvelopeBytes leaves room for the data URI header and the other
// request fields around the base64 payload.
const uploadEnvelopeBytes = 64 << 10

var folderSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UploadService stores base64 payloads in object storage and remembers
// who uploaded each asset
type UploadService struct {
	db         *gorm.DB
	uploader   storage.Uploader
	baseFolder string
	maxBytes   int
}

// NewUploadService creates a new upload service. A nil uploader means storage
// is not configured and every upload fails with a configuration error.
func NewUploadService(db *gorm.DB, uploader storage.Uploader, baseFolder string, maxBytes int) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{db: db, uploader: uploader, baseFolder: strings.Trim(baseFolder, "/"), maxBytes: maxBytes}
}

// MaxRequestBytes is the largest JSON body that can carry an upload within
// the decoded size limit
func (s *UploadService) MaxRequestBytes() int64 {
	return int64(base64.StdEncoding.EncodedLen(s.maxBytes)) + uploadEnvelopeBytes
}

// Upload decodes and stores a file
func (s *UploadService) Upload(ctx context.Context, caller *models.AuthenticatedUser, req *models.UploadRequest) (*models.UploadResponse, error) {
	if s.uploader == nil {
		return nil, apperrors.ConfigurationError("File storage is not configured")
	}

	payload, mimeType, err := decodePayload(req.File)
	if err != nil {
		return nil, err
	}
	if len(payload) > s.maxBytes {
		return nil, apperrors.ValidationError("FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes))
	}
	if t := strings.TrimSpace(req.Type); t != "" {
		mimeType = t
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(payload)
	}
	folder, err := s.folderFor(req.Folder)
	if err != nil {
		return nil, err
	}

	stored, err := s.uploader.Upload(ctx, storage.Asset{
		DataURI: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(payload),
		Folder:  folder,
	})
	monitoring.RecordBusinessEvent(ctx, "upload", err == nil)
	if err != nil {
		return nil, apperrors.UpstreamError("storage", "upload failed", err)
	}

	if err := s.recordOwner(ctx, caller, stored); err != nil {
		return nil, err
	}

	size := stored.Size
	if size == 0 {
		size = len(payload)
	}
	return &models.UploadResponse{
		URL:      stored.URL,
		PublicID: stored.PublicID,
		Format:   stored.Format,
		Size:     size,
	}, nil
}

// recordOwner ties the stored asset to the caller. The asset is removed
// again when that fails, since nobody could register it afterwards.
func (s *UploadService) recordOwner(ctx context.Context, caller *models.AuthenticatedUser, stored *storage.StoredAsset) error {
	if s.db == nil || caller == nil || stored.PublicID == "" {
		return nil
	}
	err := s.db.WithContext(ctx).Create(&models.StoredUpload{
		PublicID:   stored.PublicID,
		URL:        stored.URL,
		UploadedBy: caller.IdentityID,
	}).Error
	if err == nil {
		return nil
	}
	if destroyErr := s.uploader.Destroy(ctx, stored.PublicID); destroyErr != nil {
		slog.Warn("Upload owner not recorded and asset not removed", "publicId", stored.PublicID, "error", destroyErr)
	}
	return apperrors.DatabaseError("record upload", err)
}

// decodePayload accepts raw base64 or a base64 data URI
func decodePayload(file string) ([]byte, string, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, "", apperrors.ValidationError("MISSING_FILE", "file is required")
	}

	var mimeType string
	if strings.HasPrefix(file, "data:") {
		header, data, ok := strings.Cut(file, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", apperrors.ValidationError("INVALID_FILE", "file must be a base64 data URI")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		file = data
	}

	payload, err := base64.StdEncoding.DecodeString(file)
	if err != nil {
		payload, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(file, "="))
	}
	if err != nil {
		return nil, "", apperrors.ValidationError("INVALID_FILE", "file is not valid base64")
	}
	if len(payload) == 0 {
		return nil, "", apperrors.ValidationError("EMPTY_FILE", "file is empty")
	}
	return payload, mimeType, nil
}

// folderFor places uploads under the base folder. Only plain path segments are accepted.
func (s *UploadService) folderFor(folder string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return s.baseFolder, nil
	}
	for _, seg := range strings.Split(folder, "/") {
		if !folderSegment.MatchString(seg) {
			return "", apperrors.ValidationError("INVALID_FOLDER", "folder may only contain letters, digits, '-', '_' and '/'")
		}
	}
	if s.baseFolder == "" {
		return folder, nil
	}
	return path.Join(s.baseFolder, folder), nil
}
