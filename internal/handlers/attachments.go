package handlers

import (
	"context"
	"errors"
	"mime/multipart"

	"go.uber.org/zap"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/metrics"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/storage"
)

// Uploader stores multipart files and removes them again when the row that
// should reference them cannot be written.
type Uploader struct {
	Store    storage.Store
	Metrics  *metrics.Collector
	Log      *zap.Logger
	MaxBytes int64
}

// Put validates and stores one uploaded file under prefix/id.
func (u *Uploader) Put(ctx context.Context, prefix, id string, fh *multipart.FileHeader) (models.Attachment, error) {
	contentType := storage.NormalizeContentType(fh.Header.Get("Content-Type"))
	if err := storage.CheckUpload(fh.Size, u.MaxBytes, contentType); err != nil {
		u.Metrics.Upload(prefix, fh.Size, err)
		if errors.Is(err, storage.ErrFileTooLarge) {
			return models.Attachment{}, apperr.Validation("El archivo supera el tamaño máximo permitido")
		}
		return models.Attachment{}, apperr.Validation("Tipo de archivo no permitido")
	}

	f, err := fh.Open()
	if err != nil {
		return models.Attachment{}, apperr.Validation("No se pudo leer el archivo")
	}
	defer f.Close()

	name := storage.CleanFileName(fh.Filename)
	obj, err := u.Store.Put(ctx, storage.BuildKey(prefix, id, name), f, fh.Size, contentType)
	u.Metrics.Upload(prefix, fh.Size, err)
	if err != nil {
		u.Log.Error("attachment upload failed", zap.String("prefix", prefix), zap.String("file", name), zap.Error(err))
		return models.Attachment{}, apperr.Storage("No se pudo guardar el archivo", err)
	}
	return models.Attachment{FileKey: obj.Key, FileName: name, ContentType: obj.ContentType, FileSize: obj.Size}, nil
}

// Discard deletes a stored object, logging failures.
func (u *Uploader) Discard(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := u.Store.Delete(ctx, key); err != nil {
		u.Log.Warn("attachment cleanup failed", zap.String("key", key), zap.Error(err))
	}
}

// URL returns a browser link for key.
func (u *Uploader) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperr.NotFound("El registro no tiene archivo adjunto")
	}
	url, err := u.Store.URL(ctx, key)
	if err != nil {
		return "", apperr.Storage("No se pudo generar el enlace del archivo", err)
	}
	return url, nil
}
