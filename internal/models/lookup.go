package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sex is a fixed lookup list.
type Sex struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
}

// SurgeryType is a fixed lookup list; 1 urgent, 2 scheduled.
type SurgeryType struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:50;not null;uniqueIndex" json:"name"`
}

const (
	SurgeryTypeUrgent    = 1
	SurgeryTypeScheduled = 2
)

var (
	defaultSexes = []Sex{
		{ID: 1, Name: "Masculino"},
		{ID: 2, Name: "Femenino"},
		{ID: 3, Name: "Otro"},
	}
	defaultSurgeryTypes = []SurgeryType{
		{ID: SurgeryTypeUrgent, Name: "Urgencia"},
		{ID: SurgeryTypeScheduled, Name: "Programada"},
	}
)

func seedLookups(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaultSexes).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaultSurgeryTypes).Error
	})
}
