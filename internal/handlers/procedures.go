package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

// ProcedureHandler handles surgical procedures, their billing codes and
// their photos.
type ProcedureHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
	Uploader *Uploader
}

// NewProcedureHandler creates a new ProcedureHandler.
func NewProcedureHandler(db *gorm.DB, cs Catalogs, up *Uploader) *ProcedureHandler {
	return &ProcedureHandler{DB: db, Catalogs: cs, Uploader: up}
}

// ProcedureRequest is the header of a procedure.
type ProcedureRequest struct {
	PatientID       string      `json:"patientId"`
	BaseProcedureID string      `json:"baseProcedureId" binding:"required"`
	InstitutionID   string      `json:"institutionId" binding:"required"`
	SurgeryTypeID   int         `json:"surgeryTypeId"`
	Date            models.Date `json:"date"`
	Pathology       bool        `json:"pathology"`
	Culture         bool        `json:"culture"`
}

// ProcedureView is a procedure with its report and resolved names.
type ProcedureView struct {
	models.Procedure
	ProcedureName   string `json:"procedureName"`
	InstitutionName string `json:"institutionName"`
	SurgeryTypeName string `json:"surgeryTypeName"`
	DiagnosisName   string `json:"diagnosisName,omitempty"`
	TechniqueName   string `json:"techniqueName,omitempty"`
	SurgeonName     string `json:"surgeonName,omitempty"`
}

func surgeryTypeName(ctx context.Context, db *gorm.DB, id int) string {
	var st models.SurgeryType
	if err := db.WithContext(ctx).First(&st, id).Error; err != nil {
		return ""
	}
	return st.Name
}

func procedureView(ctx context.Context, db *gorm.DB, cs Catalogs, p models.Procedure) ProcedureView {
	v := ProcedureView{
		Procedure:       p,
		ProcedureName:   cs.nameOf(ctx, slugBaseProcedures, p.BaseProcedureID),
		InstitutionName: cs.nameOf(ctx, slugInstitutions, p.InstitutionID),
		SurgeryTypeName: surgeryTypeName(ctx, db, p.SurgeryTypeID),
	}
	if r := p.Report; r != nil {
		v.DiagnosisName = cs.name(ctx, slugDiagnoses, r.DiagnosisID)
		v.TechniqueName = cs.name(ctx, slugTechniques, r.TechniqueID)
		v.SurgeonName = cs.name(ctx, slugSurgeons, r.SurgeonID)
	}
	return v
}

// applyProcedure validates a procedure header and copies it onto p. The
// patient of an existing procedure never changes.
func applyProcedure(ctx context.Context, db *gorm.DB, cs Catalogs, req ProcedureRequest, p *models.Procedure) error {
	if p.PatientID == "" {
		ok, err := exists(ctx, db, &models.Patient{}, req.PatientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation(msgPatientNotFound)
		}
		p.PatientID = req.PatientID
	}
	if err := cs.require(ctx, slugBaseProcedures, req.BaseProcedureID); err != nil {
		return err
	}
	if err := cs.require(ctx, slugInstitutions, req.InstitutionID); err != nil {
		return err
	}
	surgeryType := req.SurgeryTypeID
	if surgeryType == 0 {
		surgeryType = models.SurgeryTypeScheduled
	}
	var n int64
	if err := db.WithContext(ctx).Model(&models.SurgeryType{}).Where("id = ?", surgeryType).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Validation("Tipo de cirugía inválido")
	}
	if req.Date.IsZero() {
		return apperr.Validation("La fecha del procedimiento es obligatoria")
	}

	p.BaseProcedureID = req.BaseProcedureID
	p.InstitutionID = req.InstitutionID
	p.SurgeryTypeID = surgeryType
	p.Date = req.Date
	p.Pathology = req.Pathology
	p.Culture = req.Culture
	return nil
}

func saveProcedure(tx *gorm.DB, p *models.Procedure) error {
	return tx.Omit("Report").Save(p).Error
}

// deleteProcedure removes a procedure with its report, photos and billing
// codes, detaching pathology reports. It returns the photo keys to remove
// from storage once the transaction commits.
func deleteProcedure(tx *gorm.DB, id string) ([]string, error) {
	var photos []models.SurgicalPhoto
	if err := tx.Where("procedure_id = ?", id).Find(&photos).Error; err != nil {
		return nil, err
	}
	for _, model := range []any{&models.SurgicalPhoto{}, &models.BillingCode{}, &models.SurgicalReport{}} {
		if err := tx.Where("procedure_id = ?", id).Delete(model).Error; err != nil {
			return nil, err
		}
	}
	if err := tx.Model(&models.PathologyReport{}).Where("procedure_id = ?", id).Update("procedure_id", nil).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.Procedure{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(photos))
	for _, ph := range photos {
		keys = append(keys, ph.FileKey)
	}
	return keys, nil
}

// CreateProcedure records a procedure header without a report.
func (h *ProcedureHandler) CreateProcedure(c *gin.Context) {
	var req ProcedureRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var p models.Procedure
	if err := applyProcedure(ctx, h.DB, h.Catalogs, req, &p); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error { return saveProcedure(tx, &p) }); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Procedure created successfully", procedureView(ctx, h.DB, h.Catalogs, p))
}

// ListPatientProcedures returns a patient's procedures, newest first, with
// their report data.
func (h *ProcedureHandler) ListPatientProcedures(c *gin.Context) {
	ctx := c.Request.Context()
	var procedures []models.Procedure
	err := h.DB.WithContext(ctx).Preload("Report").
		Where("patient_id = ?", c.Param("patientId")).
		Order("date DESC").Order("created_at DESC").
		Find(&procedures).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]ProcedureView, 0, len(procedures))
	for _, p := range procedures {
		views = append(views, procedureView(ctx, h.DB, h.Catalogs, p))
	}
	utils.Success(c, "Procedures fetched successfully", views)
}

func (h *ProcedureHandler) find(c *gin.Context, id string) (models.Procedure, bool) {
	var p models.Procedure
	return p, first(c, h.DB.Preload("Report"), &p, id, msgProcedureNotFound)
}

// GetProcedure returns one procedure.
func (h *ProcedureHandler) GetProcedure(c *gin.Context) {
	p, ok := h.find(c, c.Param("id"))
	if !ok {
		return
	}
	utils.Success(c, "Procedure fetched successfully", procedureView(c.Request.Context(), h.DB, h.Catalogs, p))
}

// UpdateProcedure replaces a procedure header.
func (h *ProcedureHandler) UpdateProcedure(c *gin.Context) {
	var req ProcedureRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	p, ok := h.find(c, c.Param("id"))
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := applyProcedure(ctx, h.DB, h.Catalogs, req, &p); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error { return saveProcedure(tx, &p) }); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Procedure updated successfully", procedureView(ctx, h.DB, h.Catalogs, p))
}

// DeleteProcedure removes a procedure and everything hanging off it.
func (h *ProcedureHandler) DeleteProcedure(c *gin.Context) {
	p, ok := h.find(c, c.Param("id"))
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
	utils.Success(c, "Procedure deleted successfully", gin.H{"ok": true})
}

// BillingCodeItem is one submitted billing row. Role is required; rows
// without code and percentage are dropped.
type BillingCodeItem struct {
	Role       string `json:"role"`
	Code       string `json:"code"`
	Percentage *int   `json:"percentage"`
	Row        *int   `json:"row"`
}

// normalizeBillingCodes validates items and assigns missing rows in
// submission order per role, clamping rows to 1..3.
func normalizeBillingCodes(procedureID string, items []BillingCodeItem) ([]models.BillingCode, error) {
	perRole := map[models.BillingRole]int{}
	out := make([]models.BillingCode, 0, len(items))
	for _, it := range items {
		role := models.BillingRole(strings.ToLower(strings.TrimSpace(it.Role)))
		if !models.ValidBillingRole(role) {
			return nil, apperr.Validation("Rol inválido: " + it.Role)
		}
		code := strings.TrimSpace(it.Code)
		if code == "" && it.Percentage == nil {
			continue
		}
		if it.Percentage != nil && (*it.Percentage < 0 || *it.Percentage > 100) {
			return nil, apperr.Validation("El porcentaje debe estar entre 0 y 100")
		}
		row := 0
		if it.Row != nil {
			row = *it.Row
		} else {
			perRole[role]++
			row = perRole[role]
		}
		row = min(max(row, 1), 3)
		out = append(out, models.BillingCode{
			ProcedureID: procedureID,
			Role:        role,
			Code:        code,
			Percentage:  it.Percentage,
			Row:         row,
		})
	}
	return out, nil
}

func (h *ProcedureHandler) listCodes(ctx context.Context, procedureID string) ([]models.BillingCode, error) {
	var codes []models.BillingCode
	err := h.DB.WithContext(ctx).Where("procedure_id = ?", procedureID).
		Order("role ASC").Order("code_row ASC").Order("created_at ASC").
		Find(&codes).Error
	return codes, err
}

// ListBillingCodes returns a procedure's billing codes by role and row.
func (h *ProcedureHandler) ListBillingCodes(c *gin.Context) {
	p, ok := h.find(c, c.Param("id"))
	if !ok {
		return
	}
	codes, err := h.listCodes(c.Request.Context(), p.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Billing codes fetched successfully", codes)
}

// ReplaceBillingCodes replaces every billing code of a procedure.
func (h *ProcedureHandler) ReplaceBillingCodes(c *gin.Context) {
	var items []BillingCodeItem
	if err := c.ShouldBindJSON(&items); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	p, ok := h.find(c, c.Param("id"))
	if !ok {
		return
	}
	codes, err := normalizeBillingCodes(p.ID, items)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctx := c.Request.Context()
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("procedure_id = ?", p.ID).Delete(&models.BillingCode{}).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		return tx.Create(&codes).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	saved, err := h.listCodes(ctx, p.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Billing codes saved successfully", saved)
}

// PhotoView is a stored photo with a browser link.
type PhotoView struct {
	models.SurgicalPhoto
	URL string `json:"url"`
}

// ListPhotos returns a procedure's photos.
func (h *ProcedureHandler) ListPhotos(c *gin.Context) {
	ctx := c.Request.Context()
	var photos []models.SurgicalPhoto
	if err := h.DB.WithContext(ctx).Where("procedure_id = ?", c.Param("id")).Order("created_at ASC").Find(&photos).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]PhotoView, 0, len(photos))
	for _, ph := range photos {
		url, _ := h.Uploader.URL(ctx, ph.FileKey)
		views = append(views, PhotoView{SurgicalPhoto: ph, URL: url})
	}
	utils.Success(c, "Photos fetched successfully", views)
}

// uploadAll stores every file or none of them.
func uploadAll(ctx context.Context, up *Uploader, prefix, id string, files []*multipart.FileHeader) ([]models.Attachment, error) {
	out := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		att, err := up.Put(ctx, prefix, id, fh)
		if err != nil {
			for _, done := range out {
				up.Discard(ctx, done.FileKey)
			}
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}

// UploadPhotos stores the multipart "files" of a procedure.
func (h *ProcedureHandler) UploadPhotos(c *gin.Context) {
	p, ok := h.find(c, c.Param("id"))
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		utils.BadRequest(c, "Se requiere al menos un archivo en 'files'")
		return
	}
	ctx := c.Request.Context()
	atts, err := uploadAll(ctx, h.Uploader, "fotos", p.ID, form.File["files"])
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	photos := make([]models.SurgicalPhoto, 0, len(atts))
	for _, a := range atts {
		photos = append(photos, models.SurgicalPhoto{
			ProcedureID: p.ID, FileKey: a.FileKey, FileName: a.FileName, ContentType: a.ContentType, FileSize: a.FileSize,
		})
	}
	if err := h.DB.WithContext(ctx).Create(&photos).Error; err != nil {
		for _, a := range atts {
			h.Uploader.Discard(ctx, a.FileKey)
		}
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Photos uploaded successfully", photos)
}

// DeletePhoto removes one photo.
func (h *ProcedureHandler) DeletePhoto(c *gin.Context) {
	var ph models.SurgicalPhoto
	err := h.DB.WithContext(c.Request.Context()).
		Where("id = ? AND procedure_id = ?", c.Param("photoId"), c.Param("id")).First(&ph).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Foto no encontrada")
		} else {
			utils.RespondError(c, err)
		}
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&ph).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	h.Uploader.Discard(c.Request.Context(), ph.FileKey)
	utils.Success(c, "Photo deleted successfully", gin.H{"ok": true})
}

// DeleteAllPhotos removes every photo of a procedure.
func (h *ProcedureHandler) DeleteAllPhotos(c *gin.Context) {
	ctx := c.Request.Context()
	var photos []models.SurgicalPhoto
	if err := h.DB.WithContext(ctx).Where("procedure_id = ?", c.Param("id")).Find(&photos).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(ctx).Where("procedure_id = ?", c.Param("id")).Delete(&models.SurgicalPhoto{}).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	for _, ph := range photos {
		h.Uploader.Discard(ctx, ph.FileKey)
	}
	utils.Success(c, "Photos deleted successfully", gin.H{"ok": true, "deleted": len(photos)})
}
