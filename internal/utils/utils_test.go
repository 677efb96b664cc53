package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/config"
	"surgical-records-server/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          apperr.Validation("x"),
		http.StatusConflict:            apperr.Duplicate("x"),
		http.StatusNotFound:            apperr.NotFound("x"),
		http.StatusInternalServerError: apperr.Storage("x", errors.New("db down")),
	}
	for want, err := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.ReferentialConflict("x")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("raw")))
}

func TestRespondErrorHidesStorageDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, apperr.Storage("x", errors.New("pq: password authentication failed")))

	var body ResponseData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, body.Status)
	assert.NotContains(t, body.Error, "pq:")
}

func TestRespondErrorUsesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, apperr.Duplicate("El cirujano ya existe"))

	var body ResponseData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "El cirujano ya existe", body.Error)
}

func TestTokensRoundTrip(t *testing.T) {
	cfg := config.JWTConfig{Secret: "a", RefreshSecret: "b", AccessTTL: time.Hour, RefreshTTL: 2 * time.Hour}
	user := &models.User{Username: "dr", Role: models.RoleSurgeon}
	user.ID = "u-1"

	pair, err := GenerateTokens(user, cfg, time.Now())
	require.NoError(t, err)

	claims, err := ValidateToken(pair.AccessToken, cfg.Secret)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleSurgeon, claims.Role)

	_, err = ValidateToken(pair.AccessToken, cfg.RefreshSecret)
	assert.Error(t, err)
	_, err = ValidateToken(pair.RefreshToken, cfg.RefreshSecret)
	assert.NoError(t, err)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	cfg := config.JWTConfig{Secret: "a", RefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Minute}
	pair, err := GenerateTokens(&models.User{}, cfg, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ValidateToken(pair.AccessToken, cfg.Secret)
	assert.Error(t, err)
}

func TestParsePage(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&page_size=500", nil)

	p := ParsePage(c, 50, 200)
	assert.Equal(t, Page{Page: 3, PageSize: 200}, p)
	assert.Equal(t, 400, p.Offset())

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-1&page_size=abc", nil)
	assert.Equal(t, Page{Page: 1, PageSize: 50}, ParsePage(c, 50, 200))
}
