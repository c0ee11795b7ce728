package services

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
)

// WhitelistService manages pre-approved registrations. Entries are never
// consumed automatically; an entry and a profile may exist for the same email.
type WhitelistService struct {
	db         *gorm.DB
	classifier *models.PositionClassifier
	auditor    audit.Auditor
}

// NewWhitelistService creates a new whitelist service
func NewWhitelistService(db *gorm.DB, classifier *models.PositionClassifier, auditor audit.Auditor) *WhitelistService {
	if classifier == nil {
		classifier = models.NewPositionClassifier(nil, nil)
	}
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	return &WhitelistService{db: db, classifier: classifier, auditor: auditor}
}

// CreateEntry pre-approves an email with a role derived from its position
func (s *WhitelistService) CreateEntry(ctx context.Context, caller *models.AuthenticatedUser, req *models.CreateWhitelistRequest) (*models.WhitelistEntry, error) {
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, apperrors.ValidationError("MISSING_FULL_NAME", "full_name is required")
	}
	position := strings.TrimSpace(req.Position)
	if position == "" {
		return nil, apperrors.ValidationError("MISSING_POSITION", "position is required")
	}
	department := strings.TrimSpace(req.Department)

	if decision := caller.Authorize(models.PermissionManageWhitelist, department); !decision.Allowed {
		return nil, forbidden(decision)
	}
	classification := s.classifier.Classify(position)
	if !caller.CanGrant(classification) {
		return nil, apperrors.ForbiddenError("Insufficient permissions: only organization-wide managers may pre-approve admin positions")
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.DatabaseError("check existing user", err)
	}
	if count > 0 {
		return nil, apperrors.ConflictError("A user with this email is already registered")
	}
	if err := db.Model(&models.WhitelistEntry{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.DatabaseError("check whitelist", err)
	}
	if count > 0 {
		return nil, apperrors.ConflictError("Email is already whitelisted")
	}

	entry := &models.WhitelistEntry{
		Email:       email,
		FullName:    fullName,
		Department:  department,
		Position:    position,
		Degree:      req.Degree,
		StudentYear: req.StudentYear,
		Role:        classification.Role,
		CreatedBy:   actorID(caller),
	}
	err := db.Create(entry).Error
	if err != nil {
		err = apperrors.HandleDatabaseError(err, "Whitelist entry", "create whitelist entry")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeWhitelist, audit.ActionCreate,
		audit.TargetTypeWhitelistEntry, entry.ID, err, map[string]interface{}{
			"email":      email,
			"role":       string(classification.Role),
			"department": department,
		})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEntries lists entries visible to the caller
func (s *WhitelistService) ListEntries(ctx context.Context, caller *models.AuthenticatedUser) ([]models.WhitelistEntry, error) {
	if !caller.HasPermission(models.PermissionReadWhitelist) || caller.Scope == models.ScopeNone {
		return nil, apperrors.ForbiddenError("Insufficient permissions")
	}
	query := s.db.WithContext(ctx).Model(&models.WhitelistEntry{})
	if !caller.IsSuperScoped() {
		if caller.Department == "" {
			return []models.WhitelistEntry{}, nil
		}
		query = query.Where("LOWER(department) = ?", strings.ToLower(caller.Department))
	}
	var entries []models.WhitelistEntry
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, apperrors.DatabaseError("list whitelist", err)
	}
	return entries, nil
}

// RemoveEntry deletes an entry addressed by id or, when key contains "@", by email
func (s *WhitelistService) RemoveEntry(ctx context.Context, caller *models.AuthenticatedUser, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperrors.ValidationError("MISSING_KEY", "whitelist id or email is required")
	}

	db := s.db.WithContext(ctx)
	query := db.Where("id = ?", key)
	if strings.Contains(key, "@") {
		query = db.Where("email = ?", normalizeEmail(key))
	}
	var entry models.WhitelistEntry
	if err := query.First(&entry).Error; err != nil {
		return apperrors.HandleDatabaseError(err, "Whitelist entry", "get whitelist entry")
	}
	if decision := caller.Authorize(models.PermissionManageWhitelist, entry.Department); !decision.Allowed {
		return forbidden(decision)
	}

	err := db.Where("id = ?", entry.ID).Delete(&models.WhitelistEntry{}).Error
	if err != nil {
		err = apperrors.DatabaseError("delete whitelist entry", err)
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeWhitelist, audit.ActionDelete,
		audit.TargetTypeWhitelistEntry, entry.ID, err, map[string]interface{}{"email": entry.Email})
	return err
}

// LookupByEmail reports whether an email is pre-approved, for the public
// registration page
func (s *WhitelistService) LookupByEmail(ctx context.Context, email string) (*models.WhitelistCheckResponse, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.ValidationError("MISSING_EMAIL", "email is required")
	}
	var entry models.WhitelistEntry
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.WhitelistCheckResponse{Whitelisted: false}, nil
	}
	if err != nil {
		return nil, apperrors.DatabaseError("check whitelist", err)
	}
	return &models.WhitelistCheckResponse{
		Whitelisted: true,
		Role:        entry.Role,
		Department:  entry.Department,
		Position:    entry.Position,
	}, nil
}
