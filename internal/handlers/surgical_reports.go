package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

// SurgicalReportHandler handles operative reports ("partes") and technique
// templates.
type SurgicalReportHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
	Uploader *Uploader
}

// NewSurgicalReportHandler creates a new SurgicalReportHandler.
func NewSurgicalReportHandler(db *gorm.DB, cs Catalogs, up *Uploader) *SurgicalReportHandler {
	return &SurgicalReportHandler{DB: db, Catalogs: cs, Uploader: up}
}

// SurgicalReportRequest creates or replaces a procedure header together
// with its report. Times are HH:MM on the procedure date.
type SurgicalReportRequest struct {
	ProcedureRequest
	StartTime          string  `json:"startTime"`
	EndTime            string  `json:"endTime"`
	DiagnosisID        *string `json:"diagnosisId"`
	DiagnosisAnnex     string  `json:"diagnosisAnnex"`
	TechniqueID        *string `json:"techniqueId"`
	TechniqueAnnex     string  `json:"techniqueAnnex"`
	TechniqueDetail    string  `json:"techniqueDetail"`
	SurgeonID          *string `json:"surgeonId"`
	Assistant1ID       *string `json:"assistant1Id"`
	Assistant2ID       *string `json:"assistant2Id"`
	Assistant3ID       *string `json:"assistant3Id"`
	AnesthesiologistID *string `json:"anesthesiologistId"`
	InstrumentatorID   *string `json:"instrumentatorId"`
	CirculatingNurse   string  `json:"circulatingNurse" binding:"max=255"`
	AnesthesiaTypeID   *string `json:"anesthesiaTypeId"`
}

// clockOn parses HH:MM on day; blank yields nil.
func clockOn(day models.Date, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return nil, apperr.Validation("Hora inválida, se espera HH:MM")
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	return &at, nil
}

func (h *SurgicalReportHandler) applyReport(ctx context.Context, req SurgicalReportRequest, day models.Date, r *models.SurgicalReport) error {
	start, err := clockOn(day, req.StartTime)
	if err != nil {
		return err
	}
	end, err := clockOn(day, req.EndTime)
	if err != nil {
		return err
	}

	refs := []struct {
		slug string
		id   **string
		in   *string
	}{
		{slugDiagnoses, &r.DiagnosisID, req.DiagnosisID},
		{slugTechniques, &r.TechniqueID, req.TechniqueID},
		{slugSurgeons, &r.SurgeonID, req.SurgeonID},
		{slugSurgeons, &r.Assistant1ID, req.Assistant1ID},
		{slugSurgeons, &r.Assistant2ID, req.Assistant2ID},
		{slugSurgeons, &r.Assistant3ID, req.Assistant3ID},
		{slugAnesthesiologists, &r.AnesthesiologistID, req.AnesthesiologistID},
		{slugInstrumentators, &r.InstrumentatorID, req.InstrumentatorID},
		{slugAnesthesiaTypes, &r.AnesthesiaTypeID, req.AnesthesiaTypeID},
	}
	for _, ref := range refs {
		id := optionalID(ref.in)
		if err := h.Catalogs.requireOptional(ctx, ref.slug, id); err != nil {
			return err
		}
		*ref.id = id
	}

	r.StartTime = start
	r.EndTime = end
	r.DiagnosisAnnex = req.DiagnosisAnnex
	r.TechniqueAnnex = req.TechniqueAnnex
	r.TechniqueDetail = req.TechniqueDetail
	r.CirculatingNurse = strings.TrimSpace(req.CirculatingNurse)
	return nil
}

// SurgicalReportView is a procedure and its report with every reference
// resolved to a display name.
type SurgicalReportView struct {
	ProcedureView
	PatientName          string `json:"patientName"`
	Assistant1Name       string `json:"assistant1Name,omitempty"`
	Assistant2Name       string `json:"assistant2Name,omitempty"`
	Assistant3Name       string `json:"assistant3Name,omitempty"`
	AnesthesiologistName string `json:"anesthesiologistName,omitempty"`
	InstrumentatorName   string `json:"instrumentatorName,omitempty"`
	AnesthesiaTypeName   string `json:"anesthesiaTypeName,omitempty"`
}

func (h *SurgicalReportHandler) view(ctx context.Context, p models.Procedure) SurgicalReportView {
	v := SurgicalReportView{ProcedureView: procedureView(ctx, h.DB, h.Catalogs, p)}
	var patient models.Patient
	if err := h.DB.WithContext(ctx).Select("full_name").First(&patient, "id = ?", p.PatientID).Error; err == nil {
		v.PatientName = patient.FullName
	}
	if r := p.Report; r != nil {
		v.Assistant1Name = h.Catalogs.name(ctx, slugSurgeons, r.Assistant1ID)
		v.Assistant2Name = h.Catalogs.name(ctx, slugSurgeons, r.Assistant2ID)
		v.Assistant3Name = h.Catalogs.name(ctx, slugSurgeons, r.Assistant3ID)
		v.AnesthesiologistName = h.Catalogs.name(ctx, slugAnesthesiologists, r.AnesthesiologistID)
		v.InstrumentatorName = h.Catalogs.name(ctx, slugInstrumentators, r.InstrumentatorID)
		v.AnesthesiaTypeName = h.Catalogs.name(ctx, slugAnesthesiaTypes, r.AnesthesiaTypeID)
	}
	return v
}

// save validates req and writes procedure and report in one transaction.
func (h *SurgicalReportHandler) save(ctx context.Context, req SurgicalReportRequest, p *models.Procedure) error {
	if err := applyProcedure(ctx, h.DB, h.Catalogs, req.ProcedureRequest, p); err != nil {
		return err
	}
	report := p.Report
	if report == nil {
		report = &models.SurgicalReport{}
	}
	if err := h.applyReport(ctx, req, p.Date, report); err != nil {
		return err
	}
	return h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveProcedure(tx, p); err != nil {
			return err
		}
		report.ProcedureID = p.ID
		if err := tx.Save(report).Error; err != nil {
			return err
		}
		p.Report = report
		return nil
	})
}

// CreateSurgicalReport creates a procedure header and its report atomically.
func (h *SurgicalReportHandler) CreateSurgicalReport(c *gin.Context) {
	var req SurgicalReportRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var p models.Procedure
	if err := h.save(ctx, req, &p); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Surgical report created successfully", h.view(ctx, p))
}

func (h *SurgicalReportHandler) find(c *gin.Context) (models.Procedure, bool) {
	var p models.Procedure
	return p, first(c, h.DB.Preload("Report"), &p, c.Param("procedureId"), msgProcedureNotFound)
}

// GetSurgicalReport returns a procedure with its report and resolved names.
func (h *SurgicalReportHandler) GetSurgicalReport(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	utils.Success(c, "Surgical report fetched successfully", h.view(c.Request.Context(), p))
}

// UpdateSurgicalReport replaces a procedure header and its report.
func (h *SurgicalReportHandler) UpdateSurgicalReport(c *gin.Context) {
	var req SurgicalReportRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	p, ok := h.find(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.save(ctx, req, &p); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Surgical report updated successfully", h.view(ctx, p))
}

// DeleteSurgicalReport removes the report and its procedure header.
func (h *SurgicalReportHandler) DeleteSurgicalReport(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var keys []string
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = deleteProcedure(tx, p.ID)
		return err
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	for _, k := range keys {
		h.Uploader.Discard(ctx, k)
	}
	utils.Success(c, "Surgical report deleted successfully", gin.H{"ok": true})
}

// ReportSummary is one line of the report summary.
type ReportSummary struct {
	ProcedureID     string     `json:"procedureId"`
	ReportID        string     `json:"reportId,omitempty"`
	PatientID       string     `json:"patientId"`
	Date            string     `json:"date"`
	ProcedureName   string     `json:"procedureName"`
	TechniqueName   string     `json:"techniqueName,omitempty"`
	SurgeryTypeName string     `json:"surgeryTypeName"`
	InstitutionName string     `json:"institutionName"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
}

// ListSummaries returns compact report lines of one patient (id_paciente)
// or the latest reports overall.
func (h *SurgicalReportHandler) ListSummaries(c *gin.Context) {
	ctx := c.Request.Context()
	q := h.DB.WithContext(ctx).Preload("Report").Order("date DESC").Order("created_at DESC")
	if patientID := c.Query("id_paciente"); patientID != "" {
		q = q.Where("patient_id = ?", patientID)
	} else {
		q = q.Limit(utils.ParsePage(c, 50, 200).PageSize)
	}
	var procedures []models.Procedure
	if err := q.Find(&procedures).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	var baseIDs, institutionIDs, techniqueIDs []string
	for _, p := range procedures {
		baseIDs = append(baseIDs, p.BaseProcedureID)
		institutionIDs = append(institutionIDs, p.InstitutionID)
		if p.Report != nil && p.Report.TechniqueID != nil {
			techniqueIDs = append(techniqueIDs, *p.Report.TechniqueID)
		}
	}
	cs := h.Catalogs
	baseNames, err := cs.Manager.Names(ctx, cs.def(slugBaseProcedures), baseIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	institutionNames, err := cs.Manager.Names(ctx, cs.def(slugInstitutions), institutionIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	techniqueNames, err := cs.Manager.Names(ctx, cs.def(slugTechniques), techniqueIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var surgeryTypes []models.SurgeryType
	if err := h.DB.WithContext(ctx).Find(&surgeryTypes).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	typeNames := make(map[int]string, len(surgeryTypes))
	for _, st := range surgeryTypes {
		typeNames[st.ID] = st.Name
	}

	out := make([]ReportSummary, 0, len(procedures))
	for _, p := range procedures {
		line := ReportSummary{
			ProcedureID:     p.ID,
			PatientID:       p.PatientID,
			Date:            p.Date.String(),
			ProcedureName:   baseNames[p.BaseProcedureID],
			SurgeryTypeName: typeNames[p.SurgeryTypeID],
			InstitutionName: institutionNames[p.InstitutionID],
		}
		if r := p.Report; r != nil {
			line.ReportID = r.ID
			line.StartTime = r.StartTime
			line.EndTime = r.EndTime
			if r.TechniqueID != nil {
				line.TechniqueName = techniqueNames[*r.TechniqueID]
			}
		}
		out = append(out, line)
	}
	utils.Success(c, "Surgical report summary fetched successfully", out)
}

// TemplateRequest is the body of template create and update.
type TemplateRequest struct {
	TechniqueID string `json:"techniqueId" binding:"required"`
	Title       string `json:"title" binding:"required,max=255"`
	Body        string `json:"body" binding:"required"`
}

// ListTemplates returns technique templates, optionally of one technique
// (tecnica).
func (h *SurgicalReportHandler) ListTemplates(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).Order("title ASC")
	if techniqueID := c.Query("tecnica"); techniqueID != "" {
		q = q.Where("technique_id = ?", techniqueID)
	}
	var templates []models.TechniqueTemplate
	if err := q.Find(&templates).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Templates fetched successfully", templates)
}

func (h *SurgicalReportHandler) applyTemplate(ctx context.Context, req TemplateRequest, t *models.TechniqueTemplate) error {
	if err := h.Catalogs.require(ctx, slugTechniques, req.TechniqueID); err != nil {
		return err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Body) == "" {
		return apperr.Validation("Título y texto de la plantilla son obligatorios")
	}
	t.TechniqueID = req.TechniqueID
	t.Title = title
	t.Body = req.Body
	return nil
}

// CreateTemplate adds a technique template.
func (h *SurgicalReportHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var t models.TechniqueTemplate
	if err := h.applyTemplate(ctx, req, &t); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(ctx).Create(&t).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Template created successfully", t)
}

// UpdateTemplate replaces a technique template.
func (h *SurgicalReportHandler) UpdateTemplate(c *gin.Context) {
	var req TemplateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	var t models.TechniqueTemplate
	if !first(c, h.DB, &t, c.Param("id"), "Plantilla no encontrada") {
		return
	}
	ctx := c.Request.Context()
	if err := h.applyTemplate(ctx, req, &t); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(ctx).Save(&t).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Template updated successfully", t)
}

// DeleteTemplate removes a technique template.
func (h *SurgicalReportHandler) DeleteTemplate(c *gin.Context) {
	res := h.DB.WithContext(c.Request.Context()).Delete(&models.TechniqueTemplate{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		utils.RespondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, apperr.NotFound("Plantilla no encontrada"))
		return
	}
	utils.Success(c, "Template deleted successfully", gin.H{"ok": true})
}
