package handlers

import (
	"net/http"
	"time"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/notification"
	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/shared/utils"
	"github.com/gmaiocc/itic-website-sub000/storage"
	"github.com/gmaiocc/itic-website-sub000/v1/middleware"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/gmaiocc/itic-website-sub000/v1/services"
	authutils "github.com/gmaiocc/itic-website-sub000/v1/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Dependencies are the clients the V1 API is built from. Uploader and
// Notifier may be nil when the provider is not configured.
type Dependencies struct {
	DB               *gorm.DB
	IdentityProvider idp.IdentityProviderAPI
	Verifier         *middleware.TokenVerifier
	Classifier       *models.PositionClassifier
	Auditor          audit.Auditor
	Uploader         storage.Uploader
	Notifier         notification.Notifier
	ContactLimiter   middleware.Limiter
	UploadFolder     string
	MaxUploadBytes   int
}

// V1Handler handles all V1 API routes
type V1Handler struct {
	userService      *services.UserService
	whitelistService *services.WhitelistService
	reportService    *services.ReportService
	galleryService   *services.GalleryService
	contactService   *services.ContactService
	fileService      *services.FileService
	uploadService    *services.UploadService

	auth           *middleware.JWTAuthMiddleware
	contactLimiter middleware.Limiter
}

// NewV1Handler creates a new V1 handler
func NewV1Handler(deps Dependencies) *V1Handler {
	classifier := deps.Classifier
	if classifier == nil {
		classifier = models.NewPositionClassifier(nil, nil)
	}
	limiter := deps.ContactLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(5, time.Minute)
	}

	userService := services.NewUserService(deps.DB, deps.IdentityProvider, classifier, deps.Auditor)
	return &V1Handler{
		userService:      userService,
		whitelistService: services.NewWhitelistService(deps.DB, classifier, deps.Auditor),
		reportService:    services.NewReportService(deps.DB, deps.Auditor),
		galleryService:   services.NewGalleryService(deps.DB, deps.Auditor),
		contactService:   services.NewContactService(deps.DB, deps.Notifier, deps.Auditor),
		fileService:      services.NewFileService(deps.DB, deps.Uploader, deps.Auditor),
		uploadService:    services.NewUploadService(deps.DB, deps.Uploader, deps.UploadFolder, deps.MaxUploadBytes),
		auth:             middleware.NewJWTAuthMiddleware(deps.Verifier, userService, classifier),
		contactLimiter:   limiter,
	}
}

// RegisterRoutes configures all V1 API routes on r
func (h *V1Handler) RegisterRoutes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	r.Get("/team", h.listTeam)
	r.Get("/departments", h.listDepartments)
	r.Get("/reports", h.listReports)
	r.Get("/reports/{id}", h.getReport)
	r.Get("/gallery", h.listPhotos)
	r.Get("/gallery/{id}", h.getPhoto)
	r.Get("/whitelist/check", h.checkWhitelist)
	r.With(middleware.RateLimitMiddleware(h.contactLimiter)).Post("/contact", h.submitContact)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(h.auth.AuthenticateJWT)

		r.With(middleware.RequirePermission(models.PermissionManageSelf)).Get("/me", h.getSelf)
		r.With(middleware.RequirePermission(models.PermissionManageSelf)).Put("/me", h.updateSelf)

		r.With(middleware.RequirePermission(models.PermissionReadUsers)).Get("/users", h.listUsers)
		r.With(middleware.RequirePermission(models.PermissionReadUsers)).Get("/users/{id}", h.getUser)
		r.With(middleware.RequirePermission(models.PermissionManageUsers)).Post("/users", h.createUser)
		r.With(middleware.RequirePermission(models.PermissionManageUsers)).Put("/users/{id}", h.updateUser)
		r.With(middleware.RequirePermission(models.PermissionManageUsers)).Delete("/users/{id}", h.deleteUser)

		r.With(middleware.RequirePermission(models.PermissionReadWhitelist)).Get("/whitelist", h.listWhitelist)
		r.With(middleware.RequirePermission(models.PermissionManageWhitelist)).Post("/whitelist", h.createWhitelistEntry)
		r.With(middleware.RequirePermission(models.PermissionManageWhitelist)).Delete("/whitelist/{key}", h.removeWhitelistEntry)

		r.With(middleware.RequirePermission(models.PermissionWriteReports)).Post("/reports", h.createReport)
		r.With(middleware.RequirePermission(models.PermissionWriteReports)).Put("/reports/{id}", h.updateReport)
		r.With(middleware.RequirePermission(models.PermissionWriteReports)).Delete("/reports/{id}", h.deleteReport)

		r.With(middleware.RequirePermission(models.PermissionWriteGallery)).Post("/gallery", h.createPhoto)
		r.With(middleware.RequirePermission(models.PermissionWriteGallery)).Put("/gallery/{id}", h.updatePhoto)
		r.With(middleware.RequirePermission(models.PermissionWriteGallery)).Delete("/gallery/{id}", h.deletePhoto)

		r.With(middleware.RequirePermission(models.PermissionReadContacts)).Get("/contact", h.listContacts)
		r.With(middleware.RequirePermission(models.PermissionReadContacts)).Patch("/contact/{id}", h.updateContactStatus)
		r.With(middleware.RequirePermission(models.PermissionReadContacts)).Delete("/contact/{id}", h.deleteContact)

		r.With(middleware.RequirePermission(models.PermissionReadFiles)).Get("/files", h.listFiles)
		r.With(middleware.RequirePermission(models.PermissionWriteFiles)).Post("/files", h.createFile)
		r.With(middleware.RequirePermission(models.PermissionWriteFiles)).Delete("/files/{id}", h.deleteFile)

		r.With(middleware.RequirePermission(models.PermissionUpload)).Post("/upload", h.upload)
	})
}

// currentUser returns the caller stored by the authentication middleware
func currentUser(w http.ResponseWriter, r *http.Request) (*models.AuthenticatedUser, bool) {
	user, err := authutils.GetAuthenticatedUser(r.Context())
	if err != nil {
		utils.RespondWithAPIError(w, r, apperrors.UnauthorizedError("Authentication required"))
		return nil, false
	}
	return user, true
}

func respondDeleted(w http.ResponseWriter, id string) {
	utils.RespondWithJSON(w, http.StatusOK, models.SuccessResponse{Success: true, ID: id})
}
