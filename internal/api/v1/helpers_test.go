package v1

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/orbit-cloud/orbit-backend/internal/config"
	"github.com/orbit-cloud/orbit-backend/internal/db/models"
)

var userColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name",
	"is_staff", "is_active", "profile_image_url", "date_joined", "updated_at",
}

var orgColumns = []string{"id", "name", "owner_id", "created_at", "updated_at"}

var projectColumns = []string{"id", "name", "organization_id", "created_at", "updated_at"}

var fileColumns = []string{"id", "filename", "filetype", "bucket", "location"}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWT.AccessTTL = 15 * time.Minute
	cfg.Auth.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.Storage.ProfileImagesBucket = "profile-images"
	cfg.Storage.UploadURLTTL = 15 * time.Minute
	cfg.Storage.DownloadURLTTL = time.Hour
	return cfg
}

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

// asUser simulates what the auth middleware sets after validating a token
func asUser(userID string, isStaff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", &models.User{ID: userID, Username: "u-" + userID, IsStaff: isStaff, IsActive: true})
		c.Set("user_id", userID)
		c.Set("is_staff", isStaff)
		c.Next()
	}
}

// fakeStore is an in-memory storage.Storage whose presign calls can be forced
// to fail, for exercising the soft-failure path.
type fakeStore struct {
	failPresign bool
}

func (f *fakeStore) EnsureBucket(_ context.Context, _ string) error { return nil }

func (f *fakeStore) PresignUpload(_ context.Context, bucket, key, _ string, _ time.Duration) (string, error) {
	if f.failPresign {
		return "", errors.New("object store unavailable")
	}
	return "https://store.example.com/" + bucket + "/" + key + "?sig=upload", nil
}

func (f *fakeStore) PresignDownload(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	if f.failPresign {
		return "", errors.New("object store unavailable")
	}
	return "https://store.example.com/" + bucket + "/" + key + "?sig=download", nil
}

// expectRole mocks the single-query role resolution for an organization
func expectRole(mock sqlmock.Sqlmock, role string) {
	mock.ExpectQuery("SELECT CASE").
		WillReturnRows(sqlmock.NewRows([]string{"case"}).AddRow(role))
}

// expectMissingOrgRole mocks role resolution for an organization that does not exist
func expectMissingOrgRole(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT CASE").
		WillReturnRows(sqlmock.NewRows([]string{"case"}))
}

// expectOrgDetail mocks the GetDetail query sequence: the organization row,
// then its admin and member ID sets.
func expectOrgDetail(mock sqlmock.Sqlmock, orgID, name, ownerID string, admins, members []string) {
	now := time.Now()
	mock.ExpectQuery("SELECT id, name, owner_id").
		WillReturnRows(sqlmock.NewRows(orgColumns).AddRow(orgID, name, ownerID, now, now))

	adminRows := sqlmock.NewRows([]string{"user_id"})
	for _, id := range admins {
		adminRows.AddRow(id)
	}
	mock.ExpectQuery("FROM organization_admins").WillReturnRows(adminRows)

	memberRows := sqlmock.NewRows([]string{"user_id"})
	for _, id := range members {
		memberRows.AddRow(id)
	}
	mock.ExpectQuery("FROM organization_members").WillReturnRows(memberRows)
}
