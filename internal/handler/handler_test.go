package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studisys/docshare-api/internal/middleware"
	"github.com/studisys/docshare-api/internal/models"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID:   "u1",
		Email:    "teacher@example.com",
		FullName: "Teacher One",
		Role:     models.RoleTeacher,
	})

	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "teacher@example.com", envelope.Data.Email)
	assert.Equal(t, models.RoleTeacher, envelope.Data.Role)
}

func TestAuthHandlerMeMissingClaims(t *testing.T) {
	handler := NewAuthHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Request = req

	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessRequestHandlerCreateInvalidBody(t *testing.T) {
	handler := NewAccessRequestHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodPost, "/access-requests", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccessRequestHandlerRespondMissingClaims(t *testing.T) {
	handler := NewAccessRequestHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodPost, "/access-requests/req1/respond", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Respond(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDistributionHandlerCreateMissingClaims(t *testing.T) {
	handler := NewDistributionHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodPost, "/distributions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDistributionHandlerUploadFileMissingFormFile(t *testing.T) {
	handler := NewDistributionHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodPost, "/distributions/d1/files/upload", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "ml1", Role: models.RoleModuleLeader})

	handler.UploadFile(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDistributionHandlerDownloadFileMissingClaims(t *testing.T) {
	handler := NewDistributionHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodGet, "/distributions/d1/files/f1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "d1"}, {Key: "file_id", Value: "f1"}}

	handler.DownloadFile(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDistributionHandlerTrackAccessInvalidBody(t *testing.T) {
	handler := NewDistributionHandler(nil)
	c, w := testContext(t)
	req, _ := http.NewRequest(http.MethodPost, "/distributions/d1/access", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})

	handler.TrackAccess(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
