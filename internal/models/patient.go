package models

// Patient is a person in the clinical registry.
type Patient struct {
	BaseModel
	FullName      string  `gorm:"size:255;not null;index" json:"fullName"`
	NationalID    *string `gorm:"size:32;uniqueIndex" json:"nationalId"`
	BirthDate     Date    `json:"birthDate"`
	SexID         *int    `json:"sexId"`
	InsurerID     *string `gorm:"size:36;index" json:"insurerId"`
	BenefitNumber string  `gorm:"size:100" json:"benefitNumber"`
	NationalityID *string `gorm:"size:36;index" json:"nationalityId"`
	LocalityID    *string `gorm:"size:36;index" json:"localityId"`
	Phone         string  `gorm:"size:100" json:"phone"`
	Email         string  `gorm:"size:255" json:"email"`
	Notes         string  `gorm:"type:text" json:"notes"`
	Active        bool    `gorm:"not null;default:true;index" json:"active"`
}

// MedicalHistory holds a patient's background ("antecedentes"); one row
// per patient.
type MedicalHistory struct {
	BaseModel
	PatientID       string `gorm:"size:36;not null;uniqueIndex" json:"patientId"`
	Medical         string `gorm:"type:text" json:"medical"`
	Surgical        string `gorm:"type:text" json:"surgical"`
	Allergic        string `gorm:"type:text" json:"allergic"`
	Toxic           string `gorm:"type:text" json:"toxic"`
	Family          string `gorm:"type:text" json:"family"`
	GynecoObstetric string `gorm:"type:text" json:"gynecoObstetric"`
}
