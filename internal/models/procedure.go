package models

import "time"

// Procedure is a surgery performed on a patient. The surgical report
// ("parte") hangs off it one to one.
type Procedure struct {
	BaseModel
	PatientID       string `gorm:"size:36;not null;index" json:"patientId"`
	BaseProcedureID string `gorm:"size:36;not null;index" json:"baseProcedureId"`
	InstitutionID   string `gorm:"size:36;not null;index" json:"institutionId"`
	SurgeryTypeID   int    `gorm:"not null;default:1" json:"surgeryTypeId"`
	Date            Date   `gorm:"not null;index" json:"date"`
	Pathology       bool   `gorm:"not null;default:false" json:"pathology"`
	Culture         bool   `gorm:"not null;default:false" json:"culture"`

	Report *SurgicalReport `gorm:"foreignKey:ProcedureID" json:"report,omitempty"`
}

// SurgicalReport is the operative report of a procedure.
type SurgicalReport struct {
	BaseModel
	ProcedureID        string     `gorm:"size:36;not null;uniqueIndex" json:"procedureId"`
	StartTime          *time.Time `json:"startTime"`
	EndTime            *time.Time `json:"endTime"`
	DiagnosisID        *string    `gorm:"size:36;index" json:"diagnosisId"`
	DiagnosisAnnex     string     `gorm:"type:text" json:"diagnosisAnnex"`
	TechniqueID        *string    `gorm:"size:36;index" json:"techniqueId"`
	TechniqueAnnex     string     `gorm:"type:text" json:"techniqueAnnex"`
	TechniqueDetail    string     `gorm:"type:text" json:"techniqueDetail"`
	SurgeonID          *string    `gorm:"size:36;index" json:"surgeonId"`
	Assistant1ID       *string    `gorm:"size:36" json:"assistant1Id"`
	Assistant2ID       *string    `gorm:"size:36" json:"assistant2Id"`
	Assistant3ID       *string    `gorm:"size:36" json:"assistant3Id"`
	AnesthesiologistID *string    `gorm:"size:36;index" json:"anesthesiologistId"`
	InstrumentatorID   *string    `gorm:"size:36;index" json:"instrumentatorId"`
	CirculatingNurse   string     `gorm:"size:255" json:"circulatingNurse"`
	AnesthesiaTypeID   *string    `gorm:"size:36;index" json:"anesthesiaTypeId"`
}

// SurgicalPhoto is an intraoperative image.
type SurgicalPhoto struct {
	BaseModel
	ProcedureID string `gorm:"size:36;not null;index" json:"procedureId"`
	FileKey     string `gorm:"size:512;not null" json:"fileKey"`
	FileName    string `gorm:"size:255;not null" json:"fileName"`
	ContentType string `gorm:"size:100" json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

// BillingRole is the team position a billing code is charged for.
type BillingRole string

const (
	BillingSurgeon    BillingRole = "cirujano"
	BillingAssistant1 BillingRole = "ayudante1"
	BillingAssistant2 BillingRole = "ayudante2"
	BillingAssistant3 BillingRole = "ayudante3"
)

var BillingRoles = []BillingRole{BillingSurgeon, BillingAssistant1, BillingAssistant2, BillingAssistant3}

func ValidBillingRole(r BillingRole) bool {
	for _, known := range BillingRoles {
		if r == known {
			return true
		}
	}
	return false
}

// BillingCode is one nomenclator code charged for a procedure.
type BillingCode struct {
	BaseModel
	ProcedureID string      `gorm:"size:36;not null;index" json:"procedureId"`
	Role        BillingRole `gorm:"size:20;not null" json:"role"`
	Code        string      `gorm:"size:50" json:"code"`
	Percentage  *int        `json:"percentage"`
	Row         int         `gorm:"column:code_row;not null;default:1" json:"row"`
}

// TechniqueTemplate is reusable technique text for a surgical technique.
type TechniqueTemplate struct {
	BaseModel
	TechniqueID string `gorm:"size:36;not null;index" json:"techniqueId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Body        string `gorm:"type:text;not null" json:"body"`
}
