package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

const msgPathologyNotFound = "Informe de patología no encontrado"

// PathologyHandler handles pathology reports, their PDF and photos.
type PathologyHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
	Uploader *Uploader
}

// NewPathologyHandler creates a new PathologyHandler.
func NewPathologyHandler(db *gorm.DB, cs Catalogs, up *Uploader) *PathologyHandler {
	return &PathologyHandler{DB: db, Catalogs: cs, Uploader: up}
}

// ColonoscopyRequest is the optional video-colonoscopy detail.
type ColonoscopyRequest struct {
	Screening bool `json:"screening"`
	Adenomas  bool `json:"adenomas"`
}

// PathologyRequest is the body of create and update.
type PathologyRequest struct {
	PatientID       string              `json:"patientId"`
	BaseProcedureID string              `json:"baseProcedureId" binding:"required"`
	ProcedureID     *string             `json:"procedureId"`
	Date            models.Date         `json:"date"`
	ProcedureDate   models.Date         `json:"procedureDate"`
	ReportText      string              `json:"reportText"`
	RecordType      string              `json:"recordType" binding:"max=50"`
	Colonoscopy     *ColonoscopyRequest `json:"colonoscopy"`
}

// PathologyView adds names and a link to the report PDF.
type PathologyView struct {
	models.PathologyReport
	ProcedureName string `json:"procedureName"`
	ReportURL     string `json:"reportUrl,omitempty"`
}

func (h *PathologyHandler) view(ctx context.Context, r models.PathologyReport) PathologyView {
	v := PathologyView{PathologyReport: r, ProcedureName: h.Catalogs.nameOf(ctx, slugBaseProcedures, r.BaseProcedureID)}
	if r.ReportFileKey != "" {
		v.ReportURL, _ = h.Uploader.URL(ctx, r.ReportFileKey)
	}
	return v
}

func (h *PathologyHandler) apply(ctx context.Context, req PathologyRequest, r *models.PathologyReport) error {
	if r.PatientID == "" {
		ok, err := exists(ctx, h.DB, &models.Patient{}, req.PatientID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation(msgPatientNotFound)
		}
		r.PatientID = req.PatientID
	}
	if err := h.Catalogs.require(ctx, slugBaseProcedures, req.BaseProcedureID); err != nil {
		return err
	}
	procedureID := optionalID(req.ProcedureID)
	if procedureID != nil {
		var p models.Procedure
		err := h.DB.WithContext(ctx).Select("id", "patient_id").First(&p, "id = ?", *procedureID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && p.PatientID != r.PatientID) {
			return apperr.Validation(msgProcedureNotFound)
		}
		if err != nil {
			return err
		}
	}
	r.BaseProcedureID = req.BaseProcedureID
	r.ProcedureID = procedureID
	r.Date = req.Date
	if r.Date.IsZero() {
		r.Date = models.Today()
	}
	r.ProcedureDate = req.ProcedureDate
	r.ReportText = req.ReportText
	r.RecordType = strings.TrimSpace(req.RecordType)
	return nil
}

// save writes the report and syncs its colonoscopy detail.
func (h *PathologyHandler) save(ctx context.Context, req PathologyRequest, r *models.PathologyReport) error {
	return h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Colonoscopy").Save(r).Error; err != nil {
			return err
		}
		if req.Colonoscopy == nil {
			r.Colonoscopy = nil
			return tx.Where("pathology_id = ?", r.ID).Delete(&models.PathologyColonoscopy{}).Error
		}
		vcc := models.PathologyColonoscopy{PathologyID: r.ID}
		err := tx.Where("pathology_id = ?", r.ID).First(&vcc).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		vcc.Screening = req.Colonoscopy.Screening
		vcc.Adenomas = req.Colonoscopy.Adenomas
		if err := tx.Save(&vcc).Error; err != nil {
			return err
		}
		r.Colonoscopy = &vcc
		return nil
	})
}

// CreatePathology records a pathology report.
func (h *PathologyHandler) CreatePathology(c *gin.Context) {
	var req PathologyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var r models.PathologyReport
	if err := h.apply(ctx, req, &r); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.save(ctx, req, &r); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Pathology report created successfully", h.view(ctx, r))
}

// ListPatientPathologies returns a patient's pathology reports, newest first.
func (h *PathologyHandler) ListPatientPathologies(c *gin.Context) {
	ctx := c.Request.Context()
	var reports []models.PathologyReport
	err := h.DB.WithContext(ctx).Preload("Colonoscopy").
		Where("patient_id = ?", c.Param("patientId")).
		Order("date DESC").Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]PathologyView, 0, len(reports))
	for _, r := range reports {
		views = append(views, h.view(ctx, r))
	}
	utils.Success(c, "Pathology reports fetched successfully", views)
}

func (h *PathologyHandler) find(c *gin.Context) (models.PathologyReport, bool) {
	var r models.PathologyReport
	return r, first(c, h.DB.Preload("Colonoscopy"), &r, c.Param("id"), msgPathologyNotFound)
}

// GetPathology returns one pathology report.
func (h *PathologyHandler) GetPathology(c *gin.Context) {
	r, ok := h.find(c)
	if !ok {
		return
	}
	utils.Success(c, "Pathology report fetched successfully", h.view(c.Request.Context(), r))
}

// UpdatePathology replaces a pathology report. Omitting colonoscopy removes
// the detail.
func (h *PathologyHandler) UpdatePathology(c *gin.Context) {
	var req PathologyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	r, ok := h.find(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.apply(ctx, req, &r); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.save(ctx, req, &r); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Pathology report updated successfully", h.view(ctx, r))
}

// DeletePathology removes a report with its detail, photos and PDF.
func (h *PathologyHandler) DeletePathology(c *gin.Context) {
	r, ok := h.find(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var photos []models.PathologyPhoto
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pathology_id = ?", r.ID).Find(&photos).Error; err != nil {
			return err
		}
		for _, model := range []any{&models.PathologyPhoto{}, &models.PathologyColonoscopy{}} {
			if err := tx.Where("pathology_id = ?", r.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.PathologyReport{}, "id = ?", r.ID).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	for _, ph := range photos {
		h.Uploader.Discard(ctx, ph.FileKey)
	}
	h.Uploader.Discard(ctx, r.ReportFileKey)
	utils.Success(c, "Pathology report deleted successfully", gin.H{"ok": true})
}

// UploadReportPDF stores the signed report ("archivo", PDF only), replacing
// any previous one.
func (h *PathologyHandler) UploadReportPDF(c *gin.Context) {
	r, ok := h.find(c)
	if !ok {
		return
	}
	fh, err := formFile(c, "archivo")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if fh == nil {
		utils.BadRequest(c, "Se requiere el archivo en 'archivo'")
		return
	}
	if !strings.EqualFold(strings.TrimSpace(fh.Header.Get("Content-Type")), "application/pdf") &&
		!strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		utils.BadRequest(c, "El informe debe ser un PDF")
		return
	}
	fh.Header.Set("Content-Type", "application/pdf")

	ctx := c.Request.Context()
	att, err := h.Uploader.Put(ctx, "patologia", r.ID, fh)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	oldKey := r.ReportFileKey
	if err := h.DB.WithContext(ctx).Model(&models.PathologyReport{}).Where("id = ?", r.ID).Update("report_file_key", att.FileKey).Error; err != nil {
		h.Uploader.Discard(ctx, att.FileKey)
		utils.RespondError(c, err)
		return
	}
	h.Uploader.Discard(ctx, oldKey)
	r.ReportFileKey = att.FileKey
	utils.Success(c, "Report PDF uploaded successfully", h.view(ctx, r))
}

// DeleteReportPDF removes the stored report PDF.
func (h *PathologyHandler) DeleteReportPDF(c *gin.Context) {
	r, ok := h.find(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.DB.WithContext(ctx).Model(&models.PathologyReport{}).Where("id = ?", r.ID).Update("report_file_key", "").Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	h.Uploader.Discard(ctx, r.ReportFileKey)
	utils.Success(c, "Report PDF deleted successfully", gin.H{"ok": true})
}

// PathologyPhotoView is a specimen photo with a browser link.
type PathologyPhotoView struct {
	models.PathologyPhoto
	URL string `json:"url"`
}

// ListPhotos returns a report's specimen photos.
func (h *PathologyHandler) ListPhotos(c *gin.Context) {
	ctx := c.Request.Context()
	var photos []models.PathologyPhoto
	if err := h.DB.WithContext(ctx).Where("pathology_id = ?", c.Param("id")).Order("created_at ASC").Find(&photos).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]PathologyPhotoView, 0, len(photos))
	for _, ph := range photos {
		url, _ := h.Uploader.URL(ctx, ph.FileKey)
		views = append(views, PathologyPhotoView{PathologyPhoto: ph, URL: url})
	}
	utils.Success(c, "Photos fetched successfully", views)
}

// UploadPhotos stores the multipart "files" of a report.
func (h *PathologyHandler) UploadPhotos(c *gin.Context) {
	r, ok := h.find(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		utils.BadRequest(c, "Se requiere al menos un archivo en 'files'")
		return
	}
	ctx := c.Request.Context()
	atts, err := uploadAll(ctx, h.Uploader, "patologia/fotos", r.ID, form.File["files"])
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	photos := make([]models.PathologyPhoto, 0, len(atts))
	for _, a := range atts {
		photos = append(photos, models.PathologyPhoto{PathologyID: r.ID, FileKey: a.FileKey, FileName: a.FileName})
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
