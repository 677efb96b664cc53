package catalog

import (
	"fmt"

	"gorm.io/gorm"

	"surgical-records-server/internal/models"
)

// Entry is a row of any catalog table. ActiveKey mirrors NameKey while the
// entry is active and is NULL otherwise; its unique index lets the database
// reject a second active entry with the same normalized name while keeping
// any number of inactive ones.
type Entry struct {
	models.BaseModel
	Name      string  `gorm:"size:255;not null" json:"name"`
	NameKey   string  `gorm:"size:255;not null" json:"-"`
	ActiveKey *string `gorm:"size:255" json:"-"`
	Active    bool    `gorm:"not null;default:true" json:"active"`
}

// Item is the client view of an entry.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (e Entry) Item() Item {
	return Item{ID: e.ID, Name: e.Name}
}

func Items(entries []Entry) []Item {
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Item())
	}
	return out
}

// Migrate creates every catalog table of the registry with its indexes.
func Migrate(db *gorm.DB, reg *Registry) error {
	for _, def := range reg.All() {
		if err := migrateTable(db, def.Table); err != nil {
			return fmt.Errorf("migrating catalog %s: %w", def.Slug, err)
		}
	}
	return nil
}

func migrateTable(db *gorm.DB, table string) error {
	if err := db.Table(table).AutoMigrate(&Entry{}); err != nil {
		return err
	}

	indexes := []struct {
		name   string
		unique bool
		column string
	}{
		{name: "idx_" + table + "_name_key", column: "name_key"},
		{name: "uq_" + table + "_active_key", unique: true, column: "active_key"},
	}
	m := db.Table(table).Migrator()
	for _, idx := range indexes {
		if m.HasIndex(&Entry{}, idx.name) {
			continue
		}
		stmt := "CREATE INDEX %s ON %s (%s)"
		if idx.unique {
			stmt = "CREATE UNIQUE INDEX %s ON %s (%s)"
		}
		if err := db.Exec(fmt.Sprintf(stmt, idx.name, table, idx.column)).Error; err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}
	return nil
}
