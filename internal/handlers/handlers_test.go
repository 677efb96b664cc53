package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"surgical-records-server/internal/catalog"
	"surgical-records-server/internal/config"
	"surgical-records-server/internal/metrics"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/routes"
	"surgical-records-server/internal/storage"
	"surgical-records-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	cfg    *config.Config
	store  *storage.LocalStore
	token  string
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), models.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	registry := catalog.DefaultRegistry()
	require.NoError(t, models.Migrate(db, zap.NewNop()))
	require.NoError(t, catalog.Migrate(db, registry))

	store, err := storage.NewLocalStore(t.TempDir(), "/static")
	require.NoError(t, err)

	cfg := &config.Config{
		Server:  config.ServerConfig{Environment: "test"},
		JWT:     config.JWTConfig{Secret: "access", RefreshSecret: "refresh", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour},
		Storage: config.StorageConfig{Backend: config.StorageLocal, MaxUploadBytes: 1 << 20},
		Report:  config.ReportConfig{PhysicianName: "Dr. Test", Specialty: "Cirugía", License: "MP 1"},
	}

	router := gin.New()
	routes.SetupRoutes(router, routes.Dependencies{
		DB:       db,
		Config:   cfg,
		Log:      zap.NewNop(),
		Metrics:  metrics.NewCollector("test"),
		Store:    store,
		Registry: registry,
	})

	s := &testServer{t: t, db: db, router: router, cfg: cfg, store: store}
	s.token = s.tokenFor(models.RoleAdmin)
	return s
}

func (s *testServer) tokenFor(role models.Role) string {
	s.t.Helper()
	user := models.User{Username: "user-" + uuid.NewString()[:8], Role: role, Active: true}
	require.NoError(s.t, user.SetPassword("password123"))
	require.NoError(s.t, s.db.Create(&user).Error)
	pair, err := utils.GenerateTokens(&user, s.cfg.JWT, time.Now())
	require.NoError(s.t, err)
	return pair.AccessToken
}

func (s *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	return s.do(method, path, r, "application/json")
}

type upload struct {
	field, name, contentType string
	content                  []byte
}

func (s *testServer) multipart(method, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(s.t, err)
		_, err = part.Write(f.content)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())
	return s.do(method, path, &buf, w.FormDataContentType())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// seed creates a catalog entry through the API and returns its id.
func (s *testServer) seed(slug, name string) string {
	s.t.Helper()
	rec := s.json(http.MethodPost, "/bases/"+slug+"/", map[string]string{"name": name})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var it item
	decode(s.t, rec, &it)
	return it.ID
}

func (s *testServer) createPatient(name, dni string) string {
	s.t.Helper()
	rec := s.json(http.MethodPost, "/pacientes/", map[string]any{"fullName": name, "nationalId": dni, "birthDate": "1980-05-20"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var p struct {
		ID string `json:"id"`
	}
	decode(s.t, rec, &p)
	return p.ID
}
