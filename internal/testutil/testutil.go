package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/pkg/crypto"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates a migrated in-memory SQLite database. The pool is
// pinned to one connection because every ":memory:" connection is its own
// database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// SetupTestCache returns a cache facade backed by miniredis.
func SetupTestCache(t *testing.T) (*cache.Facade, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return cache.New(client, cache.Options{}), mr
}

// CreateTestEncryptor returns an encryptor with a throwaway key.
func CreateTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	enc, err := crypto.NewEncryptor("")
	if err != nil {
		t.Fatalf("failed to create encryptor: %v", err)
	}
	return enc
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestWorkspace inserts a workspace. webhook is sealed with enc when both are set.
func CreateTestWorkspace(t *testing.T, db *gorm.DB, name, timezone string, enc *crypto.Encryptor, webhook string) *models.Workspace {
	t.Helper()

	var sealed string
	if enc != nil && webhook != "" {
		var err error
		sealed, err = enc.Seal(webhook)
		if err != nil {
			t.Fatalf("failed to seal webhook: %v", err)
		}
	}

	ws := &models.Workspace{
		Name:         name,
		SlackWebhook: sealed,
		Timezone:     timezone,
	}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// CreateTestUser inserts an active user in ws (nil for none) together with
// the mirrored birthday row.
func CreateTestUser(t *testing.T, db *gorm.DB, ws *models.Workspace, dob time.Time) *models.User {
	t.Helper()
	return createUser(t, db, ws, dob, false)
}

// CreateTestSuperuser inserts a superuser without a workspace.
func CreateTestSuperuser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return createUser(t, db, nil, Date(1980, time.January, 1), true)
}

func createUser(t *testing.T, db *gorm.DB, ws *models.Workspace, dob time.Time, superuser bool) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         "Test User " + uuid.New().String()[:4],
		DateOfBirth:  dob,
		IsActive:     true,
		IsSuperuser:  superuser,
	}
	if ws != nil {
		id := ws.ID
		user.WorkspaceID = &id
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	userID := user.ID
	b := &models.Birthday{
		UserID:      &userID,
		Name:        user.DisplayName(),
		DateOfBirth: dob,
		WorkspaceID: user.WorkspaceID,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("failed to create test user birthday: %v", err)
	}

	return user
}

// CreateTestBirthday inserts a birthday with no linked user.
func CreateTestBirthday(t *testing.T, db *gorm.DB, ws *models.Workspace, name string, dob time.Time) *models.Birthday {
	t.Helper()

	b := &models.Birthday{
		Name:        name,
		DateOfBirth: dob,
	}
	if ws != nil {
		id := ws.ID
		b.WorkspaceID = &id
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("failed to create test birthday: %v", err)
	}
	return b
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	Cache      *cache.Facade
	Redis      *miniredis.Miniredis
	Encryptor  *crypto.Encryptor
	JWTService *auth.JWTService
	Workspace  *models.Workspace
	User       *models.User
	Token      string
	Admin      *models.User
	AdminToken string
}

// NewTestContext creates a DB, cache, one workspace with a member, and a superuser.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	c, mr := SetupTestCache(t)
	enc := CreateTestEncryptor(t)
	jwtService := CreateTestJWTService()
	ws := CreateTestWorkspace(t, db, "Test Workspace", "UTC", enc, "")
	user := CreateTestUser(t, db, ws, Date(1992, time.November, 20))
	admin := CreateTestSuperuser(t, db)

	return &TestSetup{
		DB:         db,
		Cache:      c,
		Redis:      mr,
		Encryptor:  enc,
		JWTService: jwtService,
		Workspace:  ws,
		User:       user,
		Token:      GenerateTestToken(t, jwtService, user),
		Admin:      admin,
		AdminToken: GenerateTestToken(t, jwtService, admin),
	}
}
