// Package catalog manages the named lookup lists (surgeons, techniques,
// diagnoses, insurers...) that transactional records reference by id.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
)

// Outcome tells a successful Create apart from a reactivation.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeReactivated Outcome = "reactivated"

	outcomeRenamed     = "renamed"
	outcomeDeactivated = "deactivated"
	outcomeDeleted     = "deleted"
	outcomeDuplicate   = "duplicate"
	outcomeInUse       = "in_use"
)

const DefaultSearchLimit = 50

// Recorder receives one event per catalog mutation.
type Recorder interface {
	CatalogOp(catalog, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) CatalogOp(string, string) {}

// Manager implements create, rename, deactivate and guarded delete over
// any catalog described by a Definition.
type Manager struct {
	db  *gorm.DB
	log *zap.Logger
	rec Recorder
}

func NewManager(db *gorm.DB, log *zap.Logger, rec Recorder) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Manager{db: db, log: log, rec: rec}
}

// List returns the active entries ordered by normalized name. Storage
// failures are logged and yield an empty list.
func (m *Manager) List(ctx context.Context, def Definition) []Entry {
	var entries []Entry
	err := m.db.WithContext(ctx).Table(def.Table).
		Where("active = ?", true).
		Order("name_key ASC").
		Find(&entries).Error
	if err != nil {
		m.log.Warn("listing catalog failed", zap.String("catalog", def.Slug), zap.Error(err))
		return []Entry{}
	}
	return entries
}

// Search returns up to limit active entries whose normalized name contains
// the normalized query.
func (m *Manager) Search(ctx context.Context, def Definition, query string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}
	q := m.db.WithContext(ctx).Table(def.Table).Where("active = ?", true)
	if key := NormalizeName(query); key != "" {
		q = q.Where("name_key LIKE ? ESCAPE '!'", "%"+escapeLike(key)+"%")
	}

	var entries []Entry
	if err := q.Order("name_key ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, m.storageErr(def, "search", err)
	}
	return entries, nil
}

// Create inserts name as a new active entry, or reactivates an inactive
// entry with the same normalized name. A reactivated entry keeps its stored
// name.
func (m *Manager) Create(ctx context.Context, def Definition, name string) (Entry, Outcome, error) {
	clean := CleanName(name)
	key := NormalizeName(clean)
	if key == "" {
		return Entry{}, "", apperr.Validation(def.RequiredMessage())
	}

	var (
		result  Entry
		outcome Outcome
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var match Entry
		err := tx.Table(def.Table).
			Where("name_key = ?", key).
			Order("active DESC").Order("updated_at DESC").
			First(&match).Error
		switch {
		case err == nil:
			if match.Active {
				return apperr.Duplicate(def.DuplicateMessage())
			}
			now := time.Now()
			if err := tx.Table(def.Table).Where("id = ?", match.ID).Updates(map[string]any{
				"active":     true,
				"active_key": key,
				"updated_at": now,
			}).Error; err != nil {
				return err
			}
			match.Active = true
			match.ActiveKey = &key
			match.UpdatedAt = now
			result, outcome = match, OutcomeReactivated
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry := Entry{Name: clean, NameKey: key, ActiveKey: &key, Active: true}
			if err := tx.Table(def.Table).Create(&entry).Error; err != nil {
				return err
			}
			result, outcome = entry, OutcomeCreated
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return Entry{}, "", m.translate(def, "create", err)
	}

	m.rec.CatalogOp(def.Slug, string(outcome))
	m.log.Info("catalog entry saved",
		zap.String("catalog", def.Slug), zap.String("id", result.ID), zap.String("outcome", string(outcome)))
	return result, outcome, nil
}

// Rename changes the stored name of an entry. A name held by another active
// entry is a duplicate. A name held only by inactive entries is rejected
// too, so histories are never merged through a rename.
func (m *Manager) Rename(ctx context.Context, def Definition, id, name string) (Entry, error) {
	clean := CleanName(name)
	key := NormalizeName(clean)
	if key == "" {
		return Entry{}, apperr.Validation(def.RequiredMessage())
	}

	var target Entry
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(def.Table).Where("id = ?", id).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(def.NotFoundMessage())
			}
			return err
		}

		var other Entry
		err := tx.Table(def.Table).
			Where("name_key = ? AND id <> ?", key, id).
			Order("active DESC").
			First(&other).Error
		switch {
		case err == nil && other.Active:
			return apperr.Duplicate(def.DuplicateMessage())
		case err == nil:
			return apperr.Duplicate(def.HistoricalNameMessage())
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		updates := map[string]any{
			"name":       clean,
			"name_key":   key,
			"updated_at": time.Now(),
		}
		if target.Active {
			updates["active_key"] = key
		}
		if err := tx.Table(def.Table).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		target.Name = clean
		target.NameKey = key
		if target.Active {
			target.ActiveKey = &key
		}
		return nil
	})
	if err != nil {
		return Entry{}, m.translate(def, "rename", err)
	}

	m.rec.CatalogOp(def.Slug, outcomeRenamed)
	return target, nil
}

// Deactivate marks an entry inactive. Deactivating an inactive entry is a
// no-op. Referencing rows are left untouched.
func (m *Manager) Deactivate(ctx context.Context, def Definition, id string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry Entry
		if err := tx.Table(def.Table).Where("id = ?", id).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(def.NotFoundMessage())
			}
			return err
		}
		if !entry.Active {
			return nil
		}
		return tx.Table(def.Table).Where("id = ?", id).Updates(map[string]any{
			"active":     false,
			"active_key": nil,
			"updated_at": time.Now(),
		}).Error
	})
	if err != nil {
		return m.translate(def, "deactivate", err)
	}

	m.rec.CatalogOp(def.Slug, outcomeDeactivated)
	return nil
}

// Delete removes an entry the way its catalog's policy says: soft catalogs
// deactivate, hard catalogs delete the row unless a transactional row still
// references it.
func (m *Manager) Delete(ctx context.Context, def Definition, id string) error {
	if def.Policy != PolicyHardDelete {
		return m.Deactivate(ctx, def, id)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry Entry
		if err := tx.Table(def.Table).Where("id = ?", id).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(def.NotFoundMessage())
			}
			return err
		}

		var total int64
		for _, ref := range def.References {
			var n int64
			if err := tx.Table(ref.Table).Where(ref.Column+" = ?", id).Count(&n).Error; err != nil {
				return err
			}
			total += n
		}
		if total > 0 {
			return apperr.ReferentialConflict(def.InUseMessage(total))
		}

		return tx.Table(def.Table).Where("id = ?", id).Delete(&Entry{}).Error
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindReferentialConflict {
			m.rec.CatalogOp(def.Slug, outcomeInUse)
		}
		return m.translate(def, "delete", err)
	}

	m.rec.CatalogOp(def.Slug, outcomeDeleted)
	return nil
}

// Get returns an entry whether active or not.
func (m *Manager) Get(ctx context.Context, def Definition, id string) (Entry, error) {
	var entry Entry
	if err := m.db.WithContext(ctx).Table(def.Table).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Entry{}, apperr.NotFound(def.NotFoundMessage())
		}
		return Entry{}, m.storageErr(def, "get", err)
	}
	return entry, nil
}

// Resolve returns the display name for an optional reference, or "" when
// id is empty or unknown. Inactive entries still resolve.
func (m *Manager) Resolve(ctx context.Context, def Definition, id *string) string {
	if id == nil || *id == "" {
		return ""
	}
	entry, err := m.Get(ctx, def, *id)
	if err != nil {
		return ""
	}
	return entry.Name
}

// Names maps ids to display names for bulk lookups.
func (m *Manager) Names(ctx context.Context, def Definition, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var entries []Entry
	if err := m.db.WithContext(ctx).Table(def.Table).Where("id IN ?", ids).Find(&entries).Error; err != nil {
		return nil, m.storageErr(def, "names", err)
	}
	for _, e := range entries {
		out[e.ID] = e.Name
	}
	return out, nil
}

// translate maps transaction errors onto the apperr taxonomy. Unique
// violations from a concurrent writer become duplicates.
func (m *Manager) translate(def Definition, op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Kind == apperr.KindDuplicate {
			m.rec.CatalogOp(def.Slug, outcomeDuplicate)
		}
		return appErr
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		m.rec.CatalogOp(def.Slug, outcomeDuplicate)
		return apperr.Duplicate(def.DuplicateMessage())
	}
	return m.storageErr(def, op, err)
}

func (m *Manager) storageErr(def Definition, op string, err error) error {
	m.log.Error("catalog storage failure",
		zap.String("catalog", def.Slug), zap.String("op", op), zap.Error(err))
	return apperr.Storage("Error interno al acceder al catálogo", err)
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
