package models

// Consultation is an office visit of a patient.
type Consultation struct {
	BaseModel
	PatientID string `gorm:"size:36;not null;index" json:"patientId"`
	ReasonID  string `gorm:"size:36;not null;index" json:"reasonId"`
	Date      Date   `gorm:"not null" json:"date"`

	Evolutions []Evolution `gorm:"foreignKey:ConsultationID" json:"evolutions,omitempty"`
}

// Evolution is a follow-up note attached to a consultation.
type Evolution struct {
	BaseModel
	ConsultationID string `gorm:"size:36;not null;index" json:"consultationId"`
	Date           Date   `gorm:"not null" json:"date"`
	Content        string `gorm:"type:text;not null" json:"content"`
}
