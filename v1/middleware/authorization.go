package middleware

import (
	"log/slog"
	"net/http"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	authutils "github.com/gmaiocc/itic-website-sub000/v1/utils"
)

// RequirePermission rejects callers whose effective role lacks permission.
// Department scoping is decided later against the target resource.
func RequirePermission(permission models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authutils.GetAuthenticatedUser(r.Context())
			if err != nil {
				utils.RespondWithAPIError(w, r, apperrors.UnauthorizedError("Authentication required"))
				return
			}
			if !user.HasPermission(permission) {
				slog.Warn("Permission denied",
					"userID", user.IdentityID,
					"role", user.Role,
					"permission", permission,
					"path", r.URL.Path)
				utils.RespondWithAPIError(w, r, apperrors.ForbiddenError("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
