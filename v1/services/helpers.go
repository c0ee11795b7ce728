package services

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gmaiocc/itic-website-sub000/idp"
	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
)

// MinPasswordLength matches the identity provider's minimum
const MinPasswordLength = 6

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail checks that email is present and a bare address
func validateEmail(email string) error {
	if email == "" {
		return apperrors.ValidationError("MISSING_EMAIL", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.ValidationError("INVALID_EMAIL", "email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperrors.ValidationError("MISSING_PASSWORD", "password is required")
	}
	if len(password) < MinPasswordLength {
		return apperrors.ValidationError("WEAK_PASSWORD", "password must be at least 6 characters")
	}
	return nil
}

// providerError maps an identity provider failure onto the taxonomy.
// Client-side rejections keep their status; the rest are upstream errors.
func providerError(err error) *apperrors.APIError {
	var pe *idp.ProviderError
	if errors.As(err, &pe) {
		msg := pe.Message
		if msg == "" {
			msg = "request failed"
		}
		switch pe.StatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return apperrors.ValidationError("IDENTITY_REJECTED", msg)
		case http.StatusConflict:
			return apperrors.ConflictError(msg)
		case http.StatusNotFound:
			return apperrors.NotFoundError("Identity")
		}
		return apperrors.UpstreamError("identity provider", msg, err)
	}
	return apperrors.UpstreamError("identity provider", "request failed", err)
}

func forbidden(decision models.Decision) *apperrors.APIError {
	if decision.Reason == "" {
		return apperrors.ForbiddenError("Insufficient permissions")
	}
	return apperrors.ForbiddenError("Insufficient permissions: " + decision.Reason)
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func actorType(caller *models.AuthenticatedUser) string {
	if caller == nil {
		return audit.ActorTypeSystem
	}
	switch caller.Role {
	case models.RoleAdmin:
		return audit.ActorTypeAdmin
	case models.RoleDepartmentHead:
		return audit.ActorTypeDepartmentHead
	default:
		return audit.ActorTypeMember
	}
}

func actorID(caller *models.AuthenticatedUser) string {
	if caller == nil {
		return "system"
	}
	if caller.Email != "" {
		return caller.Email
	}
	return caller.IdentityID
}

// recordAudit emits an audit event for a management action
func recordAudit(ctx context.Context, auditor audit.Auditor, caller *models.AuthenticatedUser,
	eventType, action, targetType, targetID string, err error, metadata map[string]interface{}) {
	if auditor == nil || !auditor.IsEnabled() {
		return
	}
	auditor.LogEvent(ctx, audit.NewEvent(eventType, action, audit.StatusFor(err),
		actorType(caller), actorID(caller), targetType, targetID, metadata))
}
