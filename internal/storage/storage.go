// Package storage keeps clinical attachments (study files, pathology
// reports, surgical photos) in an S3-compatible bucket or on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"surgical-records-server/internal/config"
)

var (
	ErrEmptyKey           = errors.New("storage key is required")
	ErrInvalidKey         = errors.New("storage key is invalid")
	ErrObjectNotFound     = errors.New("object not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// AllowedContentTypes lists the attachment types the practice uploads.
var AllowedContentTypes = map[string]bool{
	"application/pdf":          true,
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"image/heic":               true,
	"image/gif":                true,
	"application/octet-stream": true,
	"application/msword":       true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Store is implemented by S3Store and LocalStore.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
	// URL returns a link the browser can open: presigned for S3, a static
	// path for local disk.
	URL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

// New builds the store selected by configuration.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.StorageS3:
		return NewS3Store(ctx, cfg)
	case config.StorageLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBasePath)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// BuildKey returns {prefix}/{id}/{hex uuid}_{file name}. An empty id is
// omitted.
func BuildKey(prefix, id, filename string) string {
	name := CleanFileName(filename)
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")
	parts := []string{strings.Trim(prefix, "/")}
	if id != "" {
		parts = append(parts, id)
	}
	parts = append(parts, uid+"_"+name)
	return strings.Join(parts, "/")
}

// CleanFileName keeps only the base name of an uploaded file.
func CleanFileName(filename string) string {
	name := strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" || name == "" || name == ".." {
		return "archivo"
	}
	return name
}

// NormalizeContentType defaults empty types and drops parameters.
func NormalizeContentType(ct string) string {
	ct = strings.TrimSpace(strings.ToLower(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

// CheckUpload validates size and content type before anything is written.
func CheckUpload(size, max int64, contentType string) error {
	if max > 0 && size > max {
		return ErrFileTooLarge
	}
	if !AllowedContentTypes[NormalizeContentType(contentType)] {
		return ErrInvalidContentType
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
