package models

// StudyKind is the family of a complementary study.
type StudyKind string

const (
	StudyLaboratory StudyKind = "laboratory"
	StudyImaging    StudyKind = "imaging"
	StudyOther      StudyKind = "other"
)

// Attachment is the optional file stored next to a clinical record.
type Attachment struct {
	FileKey     string `gorm:"size:512" json:"fileKey,omitempty"`
	FileName    string `gorm:"size:255" json:"fileName,omitempty"`
	ContentType string `gorm:"size:100" json:"contentType,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
}

func (a Attachment) HasFile() bool { return a.FileKey != "" }

// StudyRecord is a laboratory, imaging or other complementary study of a
// patient. CatalogID points at the catalog matching Kind.
type StudyRecord struct {
	BaseModel
	PatientID   string    `gorm:"size:36;not null;index" json:"patientId"`
	Kind        StudyKind `gorm:"size:20;not null;index" json:"kind"`
	CatalogID   string    `gorm:"size:36;not null;index" json:"catalogId"`
	Date        Date      `gorm:"not null" json:"date"`
	Description string    `gorm:"type:text" json:"description"`
	Attachment  `gorm:"embedded"`
}

// Interconsultation is a referral to another specialty.
type Interconsultation struct {
	BaseModel
	PatientID   string `gorm:"size:36;not null;index" json:"patientId"`
	Date        Date   `gorm:"not null" json:"date"`
	SpecialtyID string `gorm:"size:36;not null;index" json:"specialtyId"`
	Description string `gorm:"type:text;not null" json:"description"`
	Attachment  `gorm:"embedded"`
}
