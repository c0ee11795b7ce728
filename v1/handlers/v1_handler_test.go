package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/storage"
	"github.com/gmaiocc/itic-website-sub000/v1/middleware"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "handler-test-secret"

// fakeIdentityStore keeps identities in memory, keyed by id
type fakeIdentityStore struct {
	mu         sync.Mutex
	identities map[string]string
	nextID     func(email string) string
	deleteErr  error
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{identities: map[string]string{}}
}

func (f *fakeIdentityStore) CreateUser(_ context.Context, user *idp.User) (*idp.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("idp-%d", len(f.identities)+1)
	if f.nextID != nil {
		id = f.nextID(user.Email)
	}
	f.identities[id] = user.Email
	return &idp.UserInfo{Id: id, Email: user.Email}, nil
}

func (f *fakeIdentityStore) GetUser(_ context.Context, userID string) (*idp.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.identities[userID]
	if !ok {
		return nil, idp.ErrUserNotFound
	}
	return &idp.UserInfo{Id: userID, Email: email}, nil
}

func (f *fakeIdentityStore) UpdateUser(_ context.Context, userID string, update *idp.UserUpdate) (*idp.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if update.Email != nil {
		f.identities[userID] = *update.Email
	}
	return &idp.UserInfo{Id: userID, Email: f.identities[userID]}, nil
}

func (f *fakeIdentityStore) DeleteUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.identities[userID]; !ok {
		return idp.ErrUserNotFound
	}
	delete(f.identities, userID)
	return nil
}

func (f *fakeIdentityStore) hasEmail(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.identities {
		if e == email {
			return true
		}
	}
	return false
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) NotifyContact(context.Context, *models.Contact) error {
	n.calls++
	return errors.New("email provider unavailable")
}

type testEnv struct {
	db       *gorm.DB
	idp      *fakeIdentityStore
	notifier *failingNotifier
	router   http.Handler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWith(t, nil)
}

// setupTestEnvWith lets a test adjust the handler dependencies before routing
func setupTestEnvWith(t *testing.T, configure func(*Dependencies)) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	verifier, err := middleware.NewTokenVerifier(middleware.JWTAuthConfig{Secret: testSecret})
	require.NoError(t, err)

	env := &testEnv{db: db, idp: newFakeIdentityStore(), notifier: &failingNotifier{}}
	deps := Dependencies{
		DB:               db,
		IdentityProvider: env.idp,
		Verifier:         verifier,
		Classifier:       models.NewPositionClassifier(nil, nil),
		Notifier:         env.notifier,
		ContactLimiter:   middleware.NewRateLimiter(100, time.Minute),
	}
	if configure != nil {
		configure(&deps)
	}
	h := NewV1Handler(deps)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	env.router = r

	env.seedProfile(t, models.Profile{ID: "admin-1", Email: "president@itic.pt", FullName: "Ana", Role: models.RoleAdmin, Position: "President"})
	env.identity("admin-1", "president@itic.pt")
	return env
}

func (e *testEnv) seedProfile(t *testing.T, p models.Profile) {
	t.Helper()
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	if p.AuthProvider == "" {
		p.AuthProvider = models.AuthProviderLocal
	}
	require.NoError(t, e.db.Create(&p).Error)
}

func (e *testEnv) identity(id, email string) {
	e.idp.mu.Lock()
	defer e.idp.mu.Unlock()
	e.idp.identities[id] = email
}

func tokenFor(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@itic.pt",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"role":  "authenticated",
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestRouting_UnknownRouteAndMethod(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Not found")

	rr = env.do(t, http.MethodPatch, "/reports", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAuthentication(t *testing.T) {
	env := setupTestEnv(t)
	env.seedProfile(t, models.Profile{ID: "member-1", Email: "member-1@itic.pt", Department: "Markets"})

	t.Run("missing token", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unsigned bearer value", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/users", "anything", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("member lacks permission", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/users", tokenFor(t, "member-1"), nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("member reads own profile", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/me", tokenFor(t, "member-1"), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "member-1@itic.pt", decode[models.Profile](t, rr).Email)
	})

	t.Run("admin lists users", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/users", tokenFor(t, "admin-1"), nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 2, decode[models.CollectionResponse[models.Profile]](t, rr).Total)
	})
}

func TestSubmitContact_NotificationFailureKeepsRecord(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/contact", "", models.ContactRequest{
		Name:    "Rita",
		Email:   "rita@example.com",
		Message: "Hello",
	})

	require.Equal(t, http.StatusCreated, rr.Code)
	resp := decode[models.SuccessResponse](t, rr)
	assert.True(t, resp.Success)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, 1, env.notifier.calls)

	var stored models.Contact
	require.NoError(t, env.db.First(&stored, "id = ?", resp.ID).Error)
	assert.Equal(t, "Hello", stored.Message)
}

func TestSubmitContact_Validation(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/contact", "", models.ContactRequest{Name: "Rita", Email: "not-an-email", Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/contact", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListContacts_AdminOnly(t *testing.T) {
	env := setupTestEnv(t)
	env.seedProfile(t, models.Profile{ID: "head-1", Email: "head@itic.pt", Role: models.RoleDepartmentHead, Department: "Markets", Position: "Head of Markets"})

	rr := env.do(t, http.MethodGet, "/contact", tokenFor(t, "head-1"), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodGet, "/contact", tokenFor(t, "admin-1"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, rr.Body.String())
}

func TestUpdateUser_HeadCannotTakeOrganizationWidePosition(t *testing.T) {
	env := setupTestEnv(t)
	env.seedProfile(t, models.Profile{ID: "head-1", Email: "head@itic.pt", Role: models.RoleDepartmentHead, Department: "Markets", Position: "Head of Markets"})
	token := tokenFor(t, "head-1")

	rr := env.do(t, http.MethodPut, "/users/head-1", token, map[string]string{"position": "President"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// still department-scoped afterwards
	rr = env.do(t, http.MethodGet, "/contact", token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCreateUser_InvalidRoleCreatesNothing(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/users", tokenFor(t, "admin-1"), map[string]string{
		"email":    "new@itic.pt",
		"password": "secret123",
		"role":     "superuser",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, env.idp.hasEmail("new@itic.pt"))
	var count int64
	env.db.Model(&models.Profile{}).Where("email = ?", "new@itic.pt").Count(&count)
	assert.Zero(t, count)
}

func TestCreateUser_ProfileFailureRemovesIdentity(t *testing.T) {
	env := setupTestEnv(t)
	env.seedProfile(t, models.Profile{ID: "taken", Email: "old@itic.pt"})
	env.idp.nextID = func(string) string { return "taken" }

	rr := env.do(t, http.MethodPost, "/users", tokenFor(t, "admin-1"), map[string]string{
		"email":    "fresh@itic.pt",
		"password": "secret123",
		"role":     "member",
	})

	assert.GreaterOrEqual(t, rr.Code, 400)
	assert.False(t, env.idp.hasEmail("fresh@itic.pt"))
}

func TestCreateUser_Success(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/users", tokenFor(t, "admin-1"), map[string]string{
		"email":      "New@ITIC.pt",
		"password":   "secret123",
		"role":       "department_head",
		"department": "Markets",
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	profile := decode[models.Profile](t, rr)
	assert.Equal(t, "new@itic.pt", profile.Email)
	assert.Equal(t, models.RoleDepartmentHead, profile.Role)
	assert.True(t, env.idp.hasEmail("new@itic.pt"))
}

func TestDeleteUser(t *testing.T) {
	t.Run("removes identity and profile", func(t *testing.T) {
		env := setupTestEnv(t)
		env.seedProfile(t, models.Profile{ID: "u-1", Email: "u1@itic.pt"})
		env.identity("u-1", "u1@itic.pt")

		rr := env.do(t, http.MethodDelete, "/users/u-1", tokenFor(t, "admin-1"), nil)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.JSONEq(t, `{"success":true,"id":"u-1"}`, rr.Body.String())
		assert.False(t, env.idp.hasEmail("u1@itic.pt"))
		var count int64
		env.db.Model(&models.Profile{}).Where("id = ?", "u-1").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("identity failure leaves profile", func(t *testing.T) {
		env := setupTestEnv(t)
		env.seedProfile(t, models.Profile{ID: "u-2", Email: "u2@itic.pt", FullName: "Before"})
		env.identity("u-2", "u2@itic.pt")
		env.idp.deleteErr = &idp.ProviderError{Operation: "delete user", StatusCode: http.StatusBadGateway}

		rr := env.do(t, http.MethodDelete, "/users/u-2", tokenFor(t, "admin-1"), nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var profile models.Profile
		require.NoError(t, env.db.First(&profile, "id = ?", "u-2").Error)
		assert.Equal(t, "Before", profile.FullName)
	})
}

func seedReport(t *testing.T, db *gorm.DB, title, description, category string, created time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.Report{
		Title:       title,
		Description: description,
		Category:    category,
		BaseModel:   models.BaseModel{CreatedAt: created, UpdatedAt: created},
	}).Error)
}

func TestListReports_CategoryAndSearch(t *testing.T) {
	env := setupTestEnv(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedReport(t, env.db, "Oldest equity", "Banks outlook", "Equity", base)
	seedReport(t, env.db, "Newest equity", "Retail", "Equity", base.Add(48*time.Hour))
	seedReport(t, env.db, "Lowercase category", "Energy", "equity", base.Add(24*time.Hour))
	seedReport(t, env.db, "Macro note", "Inflation and BANKS", "Macro", base.Add(72*time.Hour))

	t.Run("category is exact and newest first", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/reports?category=Equity", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[models.CollectionResponse[models.Report]](t, rr)
		require.Equal(t, 2, got.Total)
		assert.Equal(t, "Newest equity", got.Items[0].Title)
		assert.Equal(t, "Oldest equity", got.Items[1].Title)
	})

	t.Run("search matches title or description", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/reports?search=banks", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[models.CollectionResponse[models.Report]](t, rr)
		require.Equal(t, 2, got.Total)
		assert.Equal(t, "Macro note", got.Items[0].Title)
	})

	t.Run("unmatched search is empty", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/reports?search=crypto", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"items":[],"total":0}`, rr.Body.String())
	})

	t.Run("unknown sort column", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/reports?sortBy=password", "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestListPhotos_Category(t *testing.T) {
	env := setupTestEnv(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []string{"Events", "events", "Events"} {
		require.NoError(t, env.db.Create(&models.GalleryPhoto{
			Title:     fmt.Sprintf("photo-%d", i),
			ImageURL:  "https://cdn.example.com/p.png",
			Category:  c,
			BaseModel: models.BaseModel{CreatedAt: base.Add(time.Duration(i) * time.Hour)},
		}).Error)
	}

	rr := env.do(t, http.MethodGet, "/gallery?category=Events", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[models.CollectionResponse[models.GalleryPhoto]](t, rr)
	require.Equal(t, 2, got.Total)
	assert.Equal(t, "photo-2", got.Items[0].Title)
	assert.Equal(t, "photo-0", got.Items[1].Title)
}

func TestReportLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	token := tokenFor(t, "admin-1")

	rr := env.do(t, http.MethodPost, "/reports", token, models.CreateReportRequest{Title: "Q1", Category: "Equity"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[models.Report](t, rr)

	rr = env.do(t, http.MethodPut, "/reports/"+created.ID, token, map[string]string{"title": "Q1 revised"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Q1 revised", decode[models.Report](t, rr).Title)

	rr = env.do(t, http.MethodDelete, "/reports/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/reports/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWhitelist(t *testing.T) {
	env := setupTestEnv(t)
	token := tokenFor(t, "admin-1")

	t.Run("existing profile is rejected", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/whitelist", token, models.CreateWhitelistRequest{
			Email: "president@itic.pt", FullName: "Ana", Position: "Analyst",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("novel email is created and removed by id", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/whitelist", token, models.CreateWhitelistRequest{
			Email: "joao@itic.pt", FullName: "Joao", Position: "Head of Markets", Department: "Markets",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		entry := decode[models.WhitelistEntry](t, rr)
		assert.Equal(t, models.RoleDepartmentHead, entry.Role)

		rr = env.do(t, http.MethodGet, "/whitelist/check?email=joao@itic.pt", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[models.WhitelistCheckResponse](t, rr).Whitelisted)

		rr = env.do(t, http.MethodDelete, "/whitelist/"+entry.ID, token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		rr = env.do(t, http.MethodGet, "/whitelist/check?email=joao@itic.pt", "", nil)
		assert.False(t, decode[models.WhitelistCheckResponse](t, rr).Whitelisted)
	})

	t.Run("novel email is removed by email", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/whitelist", token, models.CreateWhitelistRequest{
			Email: "maria@itic.pt", FullName: "Maria", Position: "Analyst",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = env.do(t, http.MethodDelete, "/whitelist/maria@itic.pt", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		rr = env.do(t, http.MethodDelete, "/whitelist/maria@itic.pt", token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUpload_NotConfigured(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/upload", tokenFor(t, "admin-1"), models.UploadRequest{File: "aGVsbG8="})

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type stubUploader struct{ uploads int }

func (u *stubUploader) Upload(context.Context, storage.Asset) (*storage.StoredAsset, error) {
	u.uploads++
	return &storage.StoredAsset{URL: "https://cdn.example.com/f", PublicID: fmt.Sprintf("itic/f%d", u.uploads)}, nil
}

func (u *stubUploader) Destroy(context.Context, string) error { return nil }

func TestUpload_BodyLimitFollowsUploadLimit(t *testing.T) {
	const maxBytes = 2 << 20
	uploader := &stubUploader{}
	env := setupTestEnvWith(t, func(d *Dependencies) {
		d.Uploader = uploader
		d.MaxUploadBytes = maxBytes
	})
	token := tokenFor(t, "admin-1")
	file := func(n int) models.UploadRequest {
		return models.UploadRequest{File: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{'x'}, n))}
	}

	// larger than the default JSON body limit but within the upload limit
	rr := env.do(t, http.MethodPost, "/upload", token, file(maxBytes-1024))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, uploader.uploads)

	var upload models.StoredUpload
	require.NoError(t, env.db.First(&upload, "public_id = ?", "itic/f1").Error)
	assert.Equal(t, "admin-1", upload.UploadedBy)

	rr = env.do(t, http.MethodPost, "/upload", token, file(maxBytes+1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "byte limit")
	assert.NotContains(t, rr.Body.String(), "Invalid request body")

	rr = env.do(t, http.MethodPost, "/upload", token, file(2*maxBytes))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, 1, uploader.uploads)
}

func TestTeamAndDepartments(t *testing.T) {
	env := setupTestEnv(t)
	env.seedProfile(t, models.Profile{ID: "m-1", Email: "m1@itic.pt", FullName: "Bruno", Department: "Markets"})

	rr := env.do(t, http.MethodGet, "/team?department=Markets", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "m1@itic.pt")
	assert.Equal(t, 1, decode[models.CollectionResponse[models.TeamMember]](t, rr).Total)

	rr = env.do(t, http.MethodGet, "/departments", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
