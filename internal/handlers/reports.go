package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/config"
	"surgical-records-server/internal/metrics"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/pdf"
	"surgical-records-server/internal/utils"
)

// ReportHandler renders the operative report and the clinical summary.
type ReportHandler struct {
	DB        *gorm.DB
	Catalogs  Catalogs
	Physician pdf.Physician
	Metrics   *metrics.Collector
	now       func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(db *gorm.DB, cs Catalogs, rc config.ReportConfig, m *metrics.Collector) *ReportHandler {
	return &ReportHandler{
		DB:        db,
		Catalogs:  cs,
		Physician: pdf.Physician{Name: rc.PhysicianName, Specialty: rc.Specialty, License: rc.License},
		Metrics:   m,
		now:       time.Now,
	}
}

func (h *ReportHandler) patient(ctx context.Context, id string) (models.Patient, error) {
	var p models.Patient
	if err := h.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, apperr.NotFound(msgPatientNotFound)
		}
		return p, err
	}
	return p, nil
}

// surgicalReportData gathers everything printed on an operative report.
func (h *ReportHandler) surgicalReportData(ctx context.Context, procedureID string) (pdf.SurgicalReportData, error) {
	var p models.Procedure
	if err := h.DB.WithContext(ctx).Preload("Report").First(&p, "id = ?", procedureID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pdf.SurgicalReportData{}, apperr.NotFound(msgProcedureNotFound)
		}
		return pdf.SurgicalReportData{}, err
	}
	patient, err := h.patient(ctx, p.PatientID)
	if err != nil {
		return pdf.SurgicalReportData{}, err
	}

	cs := h.Catalogs
	data := pdf.SurgicalReportData{
		PatientName:   patient.FullName,
		Age:           pdf.Age(patient.BirthDate.Time, p.Date.Time),
		Insurer:       cs.name(ctx, slugInsurers, patient.InsurerID),
		BenefitNumber: patient.BenefitNumber,
		Date:          p.Date.Time,
		Institution:   cs.nameOf(ctx, slugInstitutions, p.InstitutionID),
		SurgeryType:   surgeryTypeName(ctx, h.DB, p.SurgeryTypeID),
		Procedure:     cs.nameOf(ctx, slugBaseProcedures, p.BaseProcedureID),
		Pathology:     p.Pathology,
		Culture:       p.Culture,
	}
	if patient.NationalID != nil {
		data.NationalID = *patient.NationalID
	}
	if r := p.Report; r != nil {
		data.StartTime = r.StartTime
		data.EndTime = r.EndTime
		data.Diagnosis = cs.name(ctx, slugDiagnoses, r.DiagnosisID)
		data.DiagnosisAnnex = r.DiagnosisAnnex
		if technique := cs.name(ctx, slugTechniques, r.TechniqueID); technique != "" {
			data.Procedure = technique
		}
		data.ProcedureAnnex = r.TechniqueAnnex
		data.AnesthesiaType = cs.name(ctx, slugAnesthesiaTypes, r.AnesthesiaTypeID)
		data.TechniqueDetail = r.TechniqueDetail
		data.Surgeon = cs.name(ctx, slugSurgeons, r.SurgeonID)
		data.Assistant1 = cs.name(ctx, slugSurgeons, r.Assistant1ID)
		data.Assistant2 = cs.name(ctx, slugSurgeons, r.Assistant2ID)
		data.Assistant3 = cs.name(ctx, slugSurgeons, r.Assistant3ID)
		data.Anesthesiologist = cs.name(ctx, slugAnesthesiologists, r.AnesthesiologistID)
		data.Instrumentator = cs.name(ctx, slugInstrumentators, r.InstrumentatorID)
		data.CirculatingNurse = r.CirculatingNurse
	}
	return data, nil
}

// SurgicalReportJSON returns the operative report data for client-side
// rendering.
func (h *ReportHandler) SurgicalReportJSON(c *gin.Context) {
	data, err := h.surgicalReportData(c.Request.Context(), c.Param("procedureId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Surgical report data fetched successfully", data)
}

// SurgicalReportPDF renders the operative report.
func (h *ReportHandler) SurgicalReportPDF(c *gin.Context) {
	procedureID := c.Param("procedureId")
	data, err := h.surgicalReportData(c.Request.Context(), procedureID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	body, err := pdf.SurgicalReport(data, h.Physician, h.now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.Metrics.PDFGenerated("surgical_report")
	sendPDF(c, fmt.Sprintf("parte_%s.pdf", procedureID), body)
}

// clinicalSummaryData gathers a patient's whole record.
func (h *ReportHandler) clinicalSummaryData(ctx context.Context, patientID string) (pdf.ClinicalSummaryData, error) {
	patient, err := h.patient(ctx, patientID)
	if err != nil {
		return pdf.ClinicalSummaryData{}, err
	}
	cs := h.Catalogs
	db := h.DB.WithContext(ctx)

	data := pdf.ClinicalSummaryData{Patient: pdf.PatientInfo{
		Name:          patient.FullName,
		BirthDate:     patient.BirthDate.Time,
		Insurer:       cs.name(ctx, slugInsurers, patient.InsurerID),
		BenefitNumber: patient.BenefitNumber,
		Nationality:   cs.name(ctx, slugNationalities, patient.NationalityID),
		Locality:      cs.name(ctx, slugLocalities, patient.LocalityID),
		Phone:         patient.Phone,
		Email:         patient.Email,
	}}
	if patient.NationalID != nil {
		data.Patient.NationalID = *patient.NationalID
	}
	if patient.SexID != nil {
		var sex models.Sex
		if err := db.First(&sex, *patient.SexID).Error; err == nil {
			data.Patient.Sex = sex.Name
		}
	}

	var history models.MedicalHistory
	if err := db.Where("patient_id = ?", patientID).First(&history).Error; err == nil {
		data.History = pdf.HistoryInfo{
			Medical: history.Medical, Surgical: history.Surgical, Allergic: history.Allergic,
			Toxic: history.Toxic, Family: history.Family, GynecoObstetric: history.GynecoObstetric,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return data, err
	}

	var studies []models.StudyRecord
	if err := db.Where("patient_id = ?", patientID).Order("date DESC").Find(&studies).Error; err != nil {
		return data, err
	}
	kindLabels := map[models.StudyKind]struct{ label, slug string }{
		models.StudyLaboratory: {"Laboratorio", slugLaboratory},
		models.StudyImaging:    {"Imágenes", slugImaging},
		models.StudyOther:      {"Otros", slugOtherStudies},
	}
	for _, s := range studies {
		k := kindLabels[s.Kind]
		data.Studies = append(data.Studies, pdf.StudyLine{
			Date: s.Date.Time, Kind: k.label, Name: cs.nameOf(ctx, k.slug, s.CatalogID), Description: s.Description,
		})
	}

	var procedures []models.Procedure
	if err := db.Preload("Report").Where("patient_id = ?", patientID).Order("date DESC").Find(&procedures).Error; err != nil {
		return data, err
	}
	for _, p := range procedures {
		line := pdf.ProcedureLine{
			Date:        p.Date.Time,
			Name:        cs.nameOf(ctx, slugBaseProcedures, p.BaseProcedureID),
			Institution: cs.nameOf(ctx, slugInstitutions, p.InstitutionID),
		}
		if p.Report != nil {
			line.Diagnosis = cs.name(ctx, slugDiagnoses, p.Report.DiagnosisID)
		}
		data.Procedures = append(data.Procedures, line)
	}

	var interconsultations []models.Interconsultation
	if err := db.Where("patient_id = ?", patientID).Order("date DESC").Find(&interconsultations).Error; err != nil {
		return data, err
	}
	for _, ic := range interconsultations {
		data.Interconsultations = append(data.Interconsultations, pdf.InterconsultationLine{
			Date: ic.Date.Time, Specialty: cs.nameOf(ctx, slugSpecialties, ic.SpecialtyID), Description: ic.Description,
		})
	}

	var consultations []models.Consultation
	err = db.Preload("Evolutions", func(tx *gorm.DB) *gorm.DB { return tx.Order("date ASC") }).
		Where("patient_id = ?", patientID).Order("date DESC").Find(&consultations).Error
	if err != nil {
		return data, err
	}
	for _, co := range consultations {
		line := pdf.ConsultationLine{Date: co.Date.Time, Reason: cs.nameOf(ctx, slugReasons, co.ReasonID)}
		for _, ev := range co.Evolutions {
			line.Evolutions = append(line.Evolutions, pdf.EvolutionLine{Date: ev.Date.Time, Content: ev.Content})
		}
		data.Consultations = append(data.Consultations, line)
	}
	return data, nil
}

// ClinicalSummaryPDF renders a patient's clinical-history summary.
func (h *ReportHandler) ClinicalSummaryPDF(c *gin.Context) {
	patientID := c.Param("patientId")
	data, err := h.clinicalSummaryData(c.Request.Context(), patientID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	body, err := pdf.ClinicalSummary(data, h.Physician, h.now())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.Metrics.PDFGenerated("clinical_summary")
	sendPDF(c, fmt.Sprintf("resumen_hc_%s.pdf", patientID), body)
}

func sendPDF(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
