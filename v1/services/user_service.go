package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gmaiocc/itic-website-sub000/idp"
	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"gorm.io/gorm"
)

const (
	workflowCreateUser = "create-user"
	stepCreateIdentity = "create-identity"
	stepInsertProfile  = "insert-profile"
)

// UserService keeps identities and profiles in step
type UserService struct {
	db         *gorm.DB
	idp        idp.IdentityProviderAPI
	classifier *models.PositionClassifier
	auditor    audit.Auditor
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, idpClient idp.IdentityProviderAPI, classifier *models.PositionClassifier, auditor audit.Auditor) *UserService {
	if classifier == nil {
		classifier = models.NewPositionClassifier(nil, nil)
	}
	if auditor == nil {
		auditor = audit.NoopAuditor{}
	}
	return &UserService{db: db, idp: idpClient, classifier: classifier, auditor: auditor}
}

// CreateUser provisions an identity and its profile. If the profile cannot be
// stored the identity is deleted again.
func (s *UserService) CreateUser(ctx context.Context, caller *models.AuthenticatedUser, req *models.CreateUserRequest) (*models.Profile, error) {
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.IsValid() {
		return nil, apperrors.ValidationError("INVALID_ROLE", "role must be one of member, department_head, admin")
	}
	authProvider := req.AuthProvider
	if authProvider == "" {
		authProvider = models.AuthProviderLocal
	}
	if !authProvider.IsValid() {
		return nil, apperrors.ValidationError("INVALID_AUTH_PROVIDER", "auth_provider must be one of local, sso, azure, google, github")
	}

	department := strings.TrimSpace(req.Department)
	if decision := caller.Authorize(models.PermissionManageUsers, department); !decision.Allowed {
		return nil, forbidden(decision)
	}
	if !caller.CanGrant(s.classifier.Access(role, req.Position)) {
		return nil, apperrors.ForbiddenError("Insufficient permissions: only organization-wide managers may grant admin")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, apperrors.DatabaseError("check existing user", err)
	}
	if existing > 0 {
		return nil, apperrors.ConflictError("A user with this email already exists")
	}

	profile := &models.Profile{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Department:   department,
		Position:     strings.TrimSpace(req.Position),
		Degree:       req.Degree,
		StudentYear:  req.StudentYear,
		Bio:          req.Bio,
		AvatarURL:    req.AvatarURL,
		LinkedInURL:  req.LinkedInURL,
		AuthProvider: authProvider,
	}

	wf := &Workflow{
		Name: workflowCreateUser,
		Steps: []Step{
			{
				Name: stepCreateIdentity,
				Do: func(ctx context.Context) error {
					info, err := s.idp.CreateUser(ctx, &idp.User{
						Email:          email,
						Password:       req.Password,
						FullName:       profile.FullName,
						EmailConfirmed: true,
						AppMetadata:    map[string]interface{}{"role": string(role)},
					})
					if err != nil {
						return providerError(err)
					}
					if info == nil || info.Id == "" {
						return apperrors.UpstreamError("identity provider", "no identity id returned", nil)
					}
					profile.ID = info.Id
					return nil
				},
				Undo: func(ctx context.Context) error {
					return s.idp.DeleteUser(ctx, profile.ID)
				},
			},
			{
				Name: stepInsertProfile,
				Do: func(ctx context.Context) error {
					if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
						return apperrors.HandleDatabaseError(err, "User profile", "create user profile")
					}
					return nil
				},
			},
		},
	}

	err := wf.Run(ctx)
	monitoring.RecordBusinessEvent(ctx, "user_create", err == nil)
	recordAudit(ctx, s.auditor, caller, audit.EventTypeUserManagement, audit.ActionCreate,
		audit.TargetTypeUser, profile.ID, err, map[string]interface{}{
			"email":      email,
			"role":       string(role),
			"department": department,
		})
	if err != nil {
		return nil, err
	}

	slog.Info("Created user", "userId", profile.ID, "role", role, "department", department)
	return profile, nil
}

// GetUser returns a profile visible to the caller. Everyone may read their own.
func (s *UserService) GetUser(ctx context.Context, caller *models.AuthenticatedUser, id string) (*models.Profile, error) {
	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IdentityID == id {
		return profile, nil
	}
	if decision := caller.Authorize(models.PermissionReadUsers, profile.Department); !decision.Allowed {
		return nil, forbidden(decision)
	}
	return profile, nil
}

// ListUsers lists profiles. Department-scoped callers only see their department.
func (s *UserService) ListUsers(ctx context.Context, caller *models.AuthenticatedUser, filter models.ListUsersFilter) ([]models.Profile, error) {
	if !caller.HasPermission(models.PermissionReadUsers) || caller.Scope == models.ScopeNone {
		return nil, apperrors.ForbiddenError("Insufficient permissions")
	}

	query := s.db.WithContext(ctx).Model(&models.Profile{})
	if caller.IsSuperScoped() {
		if filter.Department != "" {
			query = query.Where("LOWER(department) = ?", strings.ToLower(filter.Department))
		}
	} else {
		if caller.Department == "" {
			return []models.Profile{}, nil
		}
		query = query.Where("LOWER(department) = ?", strings.ToLower(caller.Department))
	}
	if filter.Role != "" {
		if !filter.Role.IsValid() {
			return nil, apperrors.ValidationError("INVALID_ROLE", "role must be one of member, department_head, admin")
		}
		query = query.Where("role = ?", filter.Role)
	}

	var profiles []models.Profile
	if err := query.Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, apperrors.DatabaseError("list users", err)
	}
	return profiles, nil
}

// UpdateUser updates the profile first and then the identity. An identity
// failure after the profile commit is reported as a partial update.
func (s *UserService) UpdateUser(ctx context.Context, caller *models.AuthenticatedUser, id string, req *models.UpdateUserRequest) (*models.Profile, error) {
	profile, err := s.loadProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if decision := caller.Authorize(models.PermissionManageUsers, profile.Department); !decision.Allowed {
		return nil, forbidden(decision)
	}
	if req.Department != nil && !strings.EqualFold(strings.TrimSpace(*req.Department), profile.Department) {
		if decision := caller.Authorize(models.PermissionManageUsers, *req.Department); !decision.Allowed {
			return nil, forbidden(decision)
		}
	}
	if s.classifier.Access(profile.Role, profile.Position).IsSuperScoped() && !caller.IsSuperScoped() {
		return nil, apperrors.ForbiddenError("Insufficient permissions: admins can only be changed by organization-wide managers")
	}
	if req.Role != nil || req.Position != nil {
		role, position := profile.Role, profile.Position
		if req.Role != nil && req.Role.IsValid() {
			role = *req.Role
		}
		if req.Position != nil {
			position = *req.Position
		}
		if !caller.CanGrant(s.classifier.Access(role, position)) {
			return nil, apperrors.ForbiddenError("Insufficient permissions: only organization-wide managers may grant admin")
		}
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return nil, err
		}
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != profile.Email {
			var taken int64
			if err := s.db.WithContext(ctx).Model(&models.Profile{}).
				Where("email = ? AND id <> ?", email, id).Count(&taken).Error; err != nil {
				return nil, apperrors.DatabaseError("check existing user", err)
			}
			if taken > 0 {
				return nil, apperrors.ConflictError("A user with this email already exists")
			}
		}
	}

	changes, err := req.ProfilePatch.Apply(profile)
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		result := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(map[string]interface{}(changes))
		if result.Error != nil {
			err := apperrors.HandleDatabaseError(result.Error, "User profile", "update user profile")
			s.auditUpdate(ctx, caller, id, changes, err)
			return nil, err
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.NotFoundError("User")
		}
	}

	update := &idp.UserUpdate{Password: req.Password}
	if changes.Has("email") {
		update.Email = &profile.Email
	}
	if !update.IsEmpty() {
		if _, err := s.idp.UpdateUser(ctx, id, update); err != nil {
			var apiErr error
			if len(changes) > 0 {
				slog.Error("Profile updated but identity update failed",
					"userId", id, "columns", changes.Columns(), "error", err)
				apiErr = apperrors.PartialUpdateError("profile saved but identity credentials were not updated", err)
			} else {
				apiErr = providerError(err)
			}
			s.auditUpdate(ctx, caller, id, changes, apiErr)
			return nil, apiErr
		}
	}

	s.auditUpdate(ctx, caller, id, changes, nil)
	return s.loadProfile(ctx, id)
}

func (s *UserService) auditUpdate(ctx context.Context, caller *models.AuthenticatedUser, id string, changes models.Changes, err error) {
	monitoring.RecordBusinessEvent(ctx, "user_update", err == nil)
	recordAudit(ctx, s.auditor, caller, audit.EventTypeUserManagement, audit.ActionUpdate,
		audit.TargetTypeUser, id, err, map[string]interface{}{"columns": changes.Columns()})
}

// DeleteUser removes the identity and then the profile. A failed identity
// delete leaves the profile untouched; a failed profile delete is only logged.
func (s *UserService) DeleteUser(ctx context.Context, caller *models.AuthenticatedUser, id string) error {
	if caller.IdentityID == id {
		return apperrors.ValidationError("SELF_DELETE", "you cannot delete your own account")
	}

	profile, err := s.loadProfile(ctx, id)
	switch {
	case err == nil:
		if decision := caller.Authorize(models.PermissionManageUsers, profile.Department); !decision.Allowed {
			return forbidden(decision)
		}
		if s.classifier.Access(profile.Role, profile.Position).IsSuperScoped() && !caller.IsSuperScoped() {
			return apperrors.ForbiddenError("Insufficient permissions: admins can only be removed by organization-wide managers")
		}
	case apperrors.IsType(err, apperrors.ErrorTypeNotFound) && caller.IsSuperScoped():
		// identity without a profile; organization-wide managers may still clean it up
		profile = nil
	default:
		return err
	}

	if err := s.idp.DeleteUser(ctx, id); err != nil {
		if !errors.Is(err, idp.ErrUserNotFound) || profile == nil {
			apiErr := providerError(err)
			s.auditDelete(ctx, caller, id, apiErr)
			return apiErr
		}
		slog.Warn("Identity already absent, removing profile", "userId", id)
	}

	if profile != nil {
		if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			slog.Warn("Identity deleted but profile delete failed", "userId", id, "error", err)
		}
	}

	s.auditDelete(ctx, caller, id, nil)
	return nil
}

func (s *UserService) auditDelete(ctx context.Context, caller *models.AuthenticatedUser, id string, err error) {
	monitoring.RecordBusinessEvent(ctx, "user_delete", err == nil)
	recordAudit(ctx, s.auditor, caller, audit.EventTypeUserManagement, audit.ActionDelete,
		audit.TargetTypeUser, id, err, nil)
}

// GetSelf returns the caller's own profile
func (s *UserService) GetSelf(ctx context.Context, caller *models.AuthenticatedUser) (*models.Profile, error) {
	return s.loadProfile(ctx, caller.IdentityID)
}

// UpdateSelf applies a self-service patch to the caller's own profile
func (s *UserService) UpdateSelf(ctx context.Context, caller *models.AuthenticatedUser, patch models.SelfPatch) (*models.Profile, error) {
	profile, err := s.loadProfile(ctx, caller.IdentityID)
	if err != nil {
		return nil, err
	}
	changes, err := patch.ToProfilePatch().Apply(profile)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return profile, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", caller.IdentityID).Updates(map[string]interface{}(changes)).Error; err != nil {
		return nil, apperrors.HandleDatabaseError(err, "User profile", "update own profile")
	}
	return s.loadProfile(ctx, caller.IdentityID)
}

// ListTeam returns the public roster, optionally for one department
func (s *UserService) ListTeam(ctx context.Context, department string) ([]models.TeamMember, error) {
	query := s.db.WithContext(ctx).Model(&models.Profile{})
	if department = strings.TrimSpace(department); department != "" {
		query = query.Where("LOWER(department) = ?", strings.ToLower(department))
	}
	var profiles []models.Profile
	if err := query.Order("department ASC").Order("full_name ASC").Find(&profiles).Error; err != nil {
		return nil, apperrors.DatabaseError("list team", err)
	}
	team := make([]models.TeamMember, 0, len(profiles))
	for i := range profiles {
		team = append(team, profiles[i].ToTeamMember())
	}
	return team, nil
}

// ListDepartments returns the configured department names
func (s *UserService) ListDepartments() []string {
	departments := s.classifier.Departments()
	if departments == nil {
		return []string{}
	}
	return departments
}

// FindProfile returns the profile for an identity, or nil when it has none
func (s *UserService) FindProfile(ctx context.Context, identityID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("id = ?", identityID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.DatabaseError("get user", err)
	}
	return &profile, nil
}

func (s *UserService) loadProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, apperrors.HandleDatabaseError(err, "User", "get user")
	}
	return &profile, nil
}
