package models

// PathologyReport is a pathology result for a patient, optionally tied to
// the procedure that produced the specimen.
type PathologyReport struct {
	BaseModel
	PatientID       string  `gorm:"size:36;not null;index" json:"patientId"`
	BaseProcedureID string  `gorm:"size:36;not null;index" json:"baseProcedureId"`
	ProcedureID     *string `gorm:"size:36;index" json:"procedureId"`
	Date            Date    `gorm:"not null" json:"date"`
	ProcedureDate   Date    `json:"procedureDate"`
	ReportText      string  `gorm:"type:text" json:"reportText"`
	ReportFileKey   string  `gorm:"size:512" json:"reportFileKey,omitempty"`
	RecordType      string  `gorm:"size:50" json:"recordType"`

	Colonoscopy *PathologyColonoscopy `gorm:"foreignKey:PathologyID" json:"colonoscopy,omitempty"`
}

// PathologyColonoscopy holds the video-colonoscopy detail of a report.
type PathologyColonoscopy struct {
	BaseModel
	PathologyID string `gorm:"size:36;not null;uniqueIndex" json:"pathologyId"`
	Screening   bool   `gorm:"not null;default:false" json:"screening"`
	Adenomas    bool   `gorm:"not null;default:false" json:"adenomas"`
}

// PathologyPhoto is a macroscopic specimen image.
type PathologyPhoto struct {
	BaseModel
	PathologyID string `gorm:"size:36;not null;index" json:"pathologyId"`
	FileKey     string `gorm:"size:512;not null" json:"fileKey"`
	FileName    string `gorm:"size:255" json:"fileName"`
}
