package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/gmaiocc/itic-website-sub000/notification"
	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
)

const (
	maxContactNameLength    = 200
	maxContactSubjectLength = 300
	maxContactMessageLength = 5000
)

// ContactService stores contact form messages and notifies the club
type ContactService struct {
	db       *gorm.DB
	notifier notification.Notifier
	auditor  audit.Auditor
}

// NewContactService creates a new contact service
func NewContactService(db *gorm.DB, notifier notification.Notifier, auditor audit.Auditor) *ContactService {
	if notifier == nil {
		notifier = notification.Disabled{}
	}
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	return &ContactService{db: db, notifier: notifier, auditor: auditor}
}

// SubmitContact persists a message and then sends the notification email.
// A failed notification does not fail the submission.
func (s *ContactService) SubmitContact(ctx context.Context, req *models.ContactRequest) (*models.Contact, error) {
	contact := &models.Contact{
		Name:    strings.TrimSpace(req.Name),
		Email:   normalizeEmail(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
		Status:  models.ContactStatusNew,
	}
	if contact.Name == "" {
		return nil, apperrors.ValidationError("MISSING_NAME", "name is required")
	}
	if err := validateEmail(contact.Email); err != nil {
		return nil, err
	}
	if contact.Message == "" {
		return nil, apperrors.ValidationError("MISSING_MESSAGE", "message is required")
	}
	if utf8.RuneCountInString(contact.Name) > maxContactNameLength ||
		utf8.RuneCountInString(contact.Subject) > maxContactSubjectLength ||
		utf8.RuneCountInString(contact.Message) > maxContactMessageLength {
		return nil, apperrors.ValidationError("FIELD_TOO_LONG", "name, subject or message is too long")
	}

	if err := s.db.WithContext(ctx).Create(contact).Error; err != nil {
		monitoring.RecordBusinessEvent(ctx, "contact_submit", false)
		return nil, apperrors.HandleDatabaseError(err, "Contact", "create contact")
	}
	monitoring.RecordBusinessEvent(ctx, "contact_submit", true)

	if err := s.notifier.NotifyContact(ctx, contact); err != nil {
		slog.Warn("Contact stored but notification failed", "contactId", contact.ID, "error", err)
		monitoring.RecordBusinessEvent(ctx, "contact_notify", false)
	} else {
		monitoring.RecordBusinessEvent(ctx, "contact_notify", true)
	}
	return contact, nil
}

// ListContacts returns messages newest first
func (s *ContactService) ListContacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, apperrors.DatabaseError("list contacts", err)
	}
	return contacts, nil
}

// UpdateStatus moves a message through triage
func (s *ContactService) UpdateStatus(ctx context.Context, caller *models.AuthenticatedUser, id string, status models.ContactStatus) (*models.Contact, error) {
	if !status.IsValid() {
		return nil, apperrors.ValidationError("INVALID_STATUS", "status must be one of new, read, archived")
	}
	db := s.db.WithContext(ctx)
	result := db.Model(&models.Contact{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return nil, apperrors.DatabaseError("update contact", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.NotFoundError("Contact")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionUpdate,
		audit.TargetTypeContact, id, nil, map[string]interface{}{"status": string(status)})

	var contact models.Contact
	if err := db.Where("id = ?", id).First(&contact).Error; err != nil {
		return nil, apperrors.HandleDatabaseError(err, "Contact", "get contact")
	}
	return &contact, nil
}

// DeleteContact removes a message
func (s *ContactService) DeleteContact(ctx context.Context, caller *models.AuthenticatedUser, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Contact{})
	if result.Error != nil {
		return apperrors.DatabaseError("delete contact", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFoundError("Contact")
	}
	recordAudit(ctx, s.auditor, caller, audit.EventTypeContent, audit.ActionDelete,
		audit.TargetTypeContact, id, nil, nil)
	return nil
}
