package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/models"
	"surgical-records-server/internal/storage"
	"surgical-records-server/internal/utils"
)

// HealthHandler reports liveness of the process and its dependencies.
type HealthHandler struct {
	DB    *gorm.DB
	Store storage.Store
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *gorm.DB, store storage.Store) *HealthHandler {
	return &HealthHandler{DB: db, Store: store}
}

// Health answers while the process is up.
func (h *HealthHandler) Health(c *gin.Context) {
	utils.Success(c, "Server is healthy", gin.H{"status": "ok"})
}

func (h *HealthHandler) check(c *gin.Context, name string, probe func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := probe(ctx); err != nil {
		_ = c.Error(err)
		utils.Error(c, http.StatusServiceUnavailable, name+" unavailable")
		return
	}
	utils.Success(c, name+" is healthy", gin.H{"status": "ok"})
}

// Database pings the database.
func (h *HealthHandler) Database(c *gin.Context) {
	h.check(c, "database", func(ctx context.Context) error { return models.Ping(ctx, h.DB) })
}

// Storage pings the attachment store.
func (h *HealthHandler) Storage(c *gin.Context) {
	h.check(c, "storage", h.Store.Ping)
}
