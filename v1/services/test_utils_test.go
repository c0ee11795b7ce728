package services

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/storage"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLiteTestDB opens a migrated in-memory database
func setupSQLiteTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// setupMockDB returns a postgres-dialect GORM handle backed by sqlmock
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

// MockIDP is a fake identity provider for testing
type MockIDP struct {
	CreateUserFunc func(ctx context.Context, user *idp.User) (*idp.UserInfo, error)
	GetUserFunc    func(ctx context.Context, userID string) (*idp.UserInfo, error)
	UpdateUserFunc func(ctx context.Context, userID string, update *idp.UserUpdate) (*idp.UserInfo, error)
	DeleteUserFunc func(ctx context.Context, userID string) error

	mu      sync.Mutex
	Created []*idp.User
	Updated []string
	Deleted []string
}

func (m *MockIDP) CreateUser(ctx context.Context, user *idp.User) (*idp.UserInfo, error) {
	m.mu.Lock()
	m.Created = append(m.Created, user)
	m.mu.Unlock()
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, user)
	}
	return &idp.UserInfo{Id: "idp_123", Email: user.Email}, nil
}

func (m *MockIDP) GetUser(ctx context.Context, userID string) (*idp.UserInfo, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, userID)
	}
	return &idp.UserInfo{Id: userID}, nil
}

func (m *MockIDP) UpdateUser(ctx context.Context, userID string, update *idp.UserUpdate) (*idp.UserInfo, error) {
	m.mu.Lock()
	m.Updated = append(m.Updated, userID)
	m.mu.Unlock()
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, userID, update)
	}
	return &idp.UserInfo{Id: userID}, nil
}

func (m *MockIDP) DeleteUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, userID)
	m.mu.Unlock()
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, userID)
	}
	return nil
}

// recordingAuditor keeps events in memory
type recordingAuditor struct {
	mu     sync.Mutex
	events []*audit.AuditLogRequest
}

func (a *recordingAuditor) LogEvent(_ context.Context, event *audit.AuditLogRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAuditor) IsEnabled() bool { return true }

func (a *recordingAuditor) last() *audit.AuditLogRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) == 0 {
		return nil
	}
	return a.events[len(a.events)-1]
}

// fakeUploader records calls instead of talking to a storage provider
type fakeUploader struct {
	UploadFunc  func(ctx context.Context, asset storage.Asset) (*storage.StoredAsset, error)
	DestroyFunc func(ctx context.Context, publicID string) error

	uploaded  []storage.Asset
	destroyed []string
}

func (f *fakeUploader) Upload(ctx context.Context, asset storage.Asset) (*storage.StoredAsset, error) {
	f.uploaded = append(f.uploaded, asset)
	if f.UploadFunc != nil {
		return f.UploadFunc(ctx, asset)
	}
	return &storage.StoredAsset{URL: "https://cdn.example.com/a.png", PublicID: "itic/a", Format: "png"}, nil
}

func (f *fakeUploader) Destroy(ctx context.Context, publicID string) error {
	f.destroyed = append(f.destroyed, publicID)
	if f.DestroyFunc != nil {
		return f.DestroyFunc(ctx, publicID)
	}
	return nil
}

func adminCaller() *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		IdentityID: "admin-1",
		Email:      "president@itic.pt",
		Role:       models.RoleAdmin,
		Position:   "President",
		Scope:      models.ScopeAll,
		HasProfile: true,
	}
}

func headCaller(department string) *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		IdentityID: "head-1",
		Email:      "head@itic.pt",
		Role:       models.RoleDepartmentHead,
		Department: department,
		Position:   "Head of " + department,
		Scope:      models.ScopeDepartment,
		HasProfile: true,
	}
}

func memberCaller(id, department string) *models.AuthenticatedUser {
	return &models.AuthenticatedUser{
		IdentityID: id,
		Email:      id + "@itic.pt",
		Role:       models.RoleMember,
		Department: department,
		Scope:      models.ScopeNone,
		HasProfile: true,
	}
}

func seedProfile(t *testing.T, db *gorm.DB, p models.Profile) models.Profile {
	t.Helper()
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	if p.AuthProvider == "" {
		p.AuthProvider = models.AuthProviderLocal
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}
