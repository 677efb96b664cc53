package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
)

type recorded struct {
	ops []string
}

func (r *recorded) CatalogOp(catalog, outcome string) {
	r.ops = append(r.ops, catalog+":"+outcome)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), models.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db, zap.NewNop()))
	require.NoError(t, Migrate(db, DefaultRegistry()))
	return db
}

func newTestManager(t *testing.T) (*Manager, *gorm.DB, *recorded) {
	t.Helper()
	db := newTestDB(t)
	rec := &recorded{}
	return NewManager(db, zap.NewNop(), rec), db, rec
}

var (
	surgeons = DefaultRegistry().MustLookup("cirujanos")
	labs     = DefaultRegistry().MustLookup("laboratorio")
	insurers = DefaultRegistry().MustLookup("coberturas")
)

func countActive(t *testing.T, db *gorm.DB, def Definition, key string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(def.Table).Where("active = ? AND name_key = ?", true, key).Count(&n).Error)
	return n
}

func TestCreateNewEntry(t *testing.T) {
	m, _, rec := newTestManager(t)
	ctx := context.Background()

	e, outcome, err := m.Create(ctx, surgeons, "  Dr. Smith ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Dr. Smith", e.Name)
	assert.True(t, e.Active)
	assert.Equal(t, []string{"cirujanos:created"}, rec.ops)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	m, db, _ := newTestManager(t)

	for _, name := range []string{"", "   ", "\t\n"} {
		_, _, err := m.Create(context.Background(), surgeons, name)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
	var n int64
	require.NoError(t, db.Table(surgeons.Table).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDuplicateRejection(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	first, _, err := m.Create(ctx, labs, "X")
	require.NoError(t, err)

	_, _, err = m.Create(ctx, labs, "x")
	require.ErrorIs(t, err, apperr.ErrDuplicate)
	assert.Equal(t, "El laboratorio ya existe", apperr.MessageOf(err, ""))

	got, err := m.Get(ctx, labs, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", got.Name)
	assert.True(t, got.Active)
	assert.Equal(t, int64(1), countActive(t, db, labs, "x"))
}

func TestCaseAndWhitespaceNormalization(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.Create(ctx, surgeons, "  Juan   Pérez ")
	require.NoError(t, err)

	_, _, err = m.Create(ctx, surgeons, "juan perez")
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestReactivationRoundTrip(t *testing.T) {
	m, _, rec := newTestManager(t)
	ctx := context.Background()

	created, _, err := m.Create(ctx, surgeons, "Dr. Smith")
	require.NoError(t, err)
	require.NoError(t, m.Deactivate(ctx, surgeons, created.ID))

	again, outcome, err := m.Create(ctx, surgeons, "dr.  smith")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReactivated, outcome)
	assert.Equal(t, created.ID, again.ID)
	assert.True(t, again.Active)
	assert.Equal(t, "Dr. Smith", again.Name, "reactivation keeps the stored name")
	assert.Contains(t, rec.ops, "cirujanos:reactivated")

	list := m.List(ctx, surgeons)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestReactivationPrefersMostRecentInactive(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	a, _, err := m.Create(ctx, labs, "Glucemia")
	require.NoError(t, err)
	require.NoError(t, m.Deactivate(ctx, labs, a.ID))
	b, outcome, err := m.Create(ctx, labs, "GLUCEMIA")
	require.NoError(t, err)
	require.Equal(t, OutcomeReactivated, outcome)
	require.Equal(t, a.ID, b.ID)

	// two inactive rows with the same key are allowed
	require.NoError(t, m.Deactivate(ctx, labs, a.ID))
	extra := Entry{Name: "glucemia", NameKey: "glucemia", Active: true}
	require.NoError(t, db.Table(labs.Table).Create(&extra).Error)
	require.NoError(t, db.Table(labs.Table).Where("id = ?", extra.ID).Update("active", false).Error)
	var inactive int64
	require.NoError(t, db.Table(labs.Table).Where("name_key = ? AND active = ?", "glucemia", false).Count(&inactive).Error)
	assert.Equal(t, int64(2), inactive)

	_, _, err = m.Create(ctx, labs, "Glucemia")
	require.NoError(t, err)
	assert.Equal(t, int64(1), countActive(t, db, labs, "glucemia"))
}

func TestIdempotentDeactivation(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	e, _, err := m.Create(ctx, surgeons, "Dra. López")
	require.NoError(t, err)

	require.NoError(t, m.Deactivate(ctx, surgeons, e.ID))
	require.NoError(t, m.Deactivate(ctx, surgeons, e.ID))

	got, err := m.Get(ctx, surgeons, e.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Empty(t, m.List(ctx, surgeons))
}

func TestRenameCollision(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	a, _, err := m.Create(ctx, labs, "Foo")
	require.NoError(t, err)
	b, _, err := m.Create(ctx, labs, "Bar")
	require.NoError(t, err)

	_, err = m.Rename(ctx, labs, b.ID, "foo")
	require.ErrorIs(t, err, apperr.ErrDuplicate)

	gotA, err := m.Get(ctx, labs, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Foo", gotA.Name)
	gotB, err := m.Get(ctx, labs, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bar", gotB.Name)
}

func TestRenameOntoInactiveNameIsRejected(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	old, _, err := m.Create(ctx, labs, "Urocultivo")
	require.NoError(t, err)
	require.NoError(t, m.Deactivate(ctx, labs, old.ID))
	other, _, err := m.Create(ctx, labs, "Orina completa")
	require.NoError(t, err)

	_, err = m.Rename(ctx, labs, other.ID, "UROCULTIVO")
	require.ErrorIs(t, err, apperr.ErrDuplicate)
	assert.Contains(t, apperr.MessageOf(err, ""), "Nuevo")
}

func TestRenameUpdatesNameAndKey(t *testing.T) {
	m, _, rec := newTestManager(t)
	ctx := context.Background()

	e, _, err := m.Create(ctx, labs, "Hemograma")
	require.NoError(t, err)

	renamed, err := m.Rename(ctx, labs, e.ID, " Hemograma completo ")
	require.NoError(t, err)
	assert.Equal(t, e.ID, renamed.ID)
	assert.Equal(t, "Hemograma completo", renamed.Name)

	// own name in a different casing is not a collision
	_, err = m.Rename(ctx, labs, e.ID, "HEMOGRAMA COMPLETO")
	require.NoError(t, err)

	// the old name is free again
	_, _, err = m.Create(ctx, labs, "Hemograma")
	require.NoError(t, err)
	assert.Contains(t, rec.ops, "laboratorio:renamed")
}

func TestRenameValidation(t *testing.T) {
	m, _, _ := newTestManager(t)
	e, _, err := m.Create(context.Background(), labs, "Hemograma")
	require.NoError(t, err)

	_, err = m.Rename(context.Background(), labs, e.ID, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestNotFoundHandling(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := m.Rename(ctx, surgeons, missing, "Nadie")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Cirujano no encontrado", apperr.MessageOf(err, ""))

	assert.ErrorIs(t, m.Deactivate(ctx, surgeons, missing), apperr.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, insurers, missing), apperr.ErrNotFound)

	var n int64
	require.NoError(t, db.Table(surgeons.Table).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUniquenessIsEnforcedByTheDatabase(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.Create(ctx, labs, "Hemograma")
	require.NoError(t, err)

	key := "hemograma"
	err = db.Table(labs.Table).Create(&Entry{Name: "hemograma", NameKey: key, ActiveKey: &key, Active: true}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	translated := m.translate(labs, "create", err)
	assert.ErrorIs(t, translated, apperr.ErrDuplicate)
	assert.Equal(t, int64(1), countActive(t, db, labs, key))
}

func TestOneActiveEntryPerNameAcrossLifecycle(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	names := []string{"Ecografía", "ecografia", " ECOGRAFÍA ", "Eco grafía"}
	var ids []string
	for _, n := range names {
		if e, _, err := m.Create(ctx, labs, n); err == nil {
			ids = append(ids, e.ID)
		}
	}
	for _, id := range ids {
		_ = m.Deactivate(ctx, labs, id)
		for _, n := range names {
			_, _, _ = m.Create(ctx, labs, n)
		}
	}

	type row struct {
		NameKey string
		N       int64
	}
	var rows []row
	require.NoError(t, db.Table(labs.Table).
		Select("name_key, COUNT(*) AS n").
		Where("active = ?", true).
		Group("name_key").
		Scan(&rows).Error)
	for _, r := range rows {
		assert.Equal(t, int64(1), r.N, "normalized name %q is active more than once", r.NameKey)
	}
}

func TestListOrderingAndDegradation(t *testing.T) {
	m, db, _ := newTestManager(t)
	ctx := context.Background()

	for _, n := range []string{"zeta", "Álvarez", "beta"} {
		_, _, err := m.Create(ctx, surgeons, n)
		require.NoError(t, err)
	}
	list := m.List(ctx, surgeons)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Álvarez", "beta", "zeta"}, []string{list[0].Name, list[1].Name, list[2].Name})

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Equal(t, []Entry{}, m.List(ctx, surgeons))
}

func TestSearch(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	diagnoses := DefaultRegistry().MustLookup("diagnosticos")

	for _, n := range []string{"Apendicitis aguda", "Colecistitis aguda", "Hernia inguinal", "100% raro"} {
		_, _, err := m.Create(ctx, diagnoses, n)
		require.NoError(t, err)
	}

	got, err := m.Search(ctx, diagnoses, "AGUDA", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Apendicitis aguda", got[0].Name)

	got, err = m.Search(ctx, diagnoses, "%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% raro", got[0].Name)

	got, err = m.Search(ctx, diagnoses, "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestHardDeleteGuardedByReferences(t *testing.T) {
	m, db, rec := newTestManager(t)
	ctx := context.Background()

	used, _, err := m.Create(ctx, insurers, "OSDE")
	require.NoError(t, err)
	free, _, err := m.Create(ctx, insurers, "PAMI")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Patient{FullName: "Ana", InsurerID: &used.ID, Active: true}).Error)

	err = m.Delete(ctx, insurers, used.ID)
	require.ErrorIs(t, err, apperr.ErrReferentialConflict)
	_, err = m.Get(ctx, insurers, used.ID)
	assert.NoError(t, err)

	require.NoError(t, m.Delete(ctx, insurers, free.ID))
	_, err = m.Get(ctx, insurers, free.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, rec.ops, "coberturas:in_use")
	assert.Contains(t, rec.ops, "coberturas:deleted")
}

func TestSoftDeleteKeepsReferencesResolvable(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	e, _, err := m.Create(ctx, surgeons, "Dr. House")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, surgeons, e.ID))

	assert.Equal(t, "Dr. House", m.Resolve(ctx, surgeons, &e.ID))
	assert.Equal(t, "", m.Resolve(ctx, surgeons, nil))

	names, err := m.Names(ctx, surgeons, []string{e.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{e.ID: "Dr. House"}, names)
}
