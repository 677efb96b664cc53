package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

// studyKinds maps the :kind path segment to the record kind and the catalog
// its entries come from.
var studyKinds = map[string]struct {
	kind models.StudyKind
	slug string
}{
	"laboratorio": {models.StudyLaboratory, slugLaboratory},
	"imagenes":    {models.StudyImaging, slugImaging},
	"otros":       {models.StudyOther, slugOtherStudies},
}

// MedicalRecordHandler handles complementary studies and
// interconsultations, both of which may carry a file.
type MedicalRecordHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
	Uploader *Uploader
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB, cs Catalogs, up *Uploader) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db, Catalogs: cs, Uploader: up}
}

// StudyForm is the multipart body of study create and update.
type StudyForm struct {
	PatientID   string `form:"patientId"`
	CatalogID   string `form:"catalogId" binding:"required"`
	Date        string `form:"date"`
	Description string `form:"description"`
	RemoveFile  bool   `form:"removeFile"`
}

// StudyView adds the study name and a link to the file.
type StudyView struct {
	models.StudyRecord
	Name    string `json:"name"`
	FileURL string `json:"fileUrl,omitempty"`
}

func formFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("Archivo inválido")
	}
	return fh, nil
}

func formDate(raw string) (models.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return models.Today(), nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, apperr.Validation("Fecha inválida, se espera AAAA-MM-DD")
	}
	return d, nil
}

func (h *MedicalRecordHandler) studyKind(c *gin.Context) (models.StudyKind, string, bool) {
	k, ok := studyKinds[c.Param("kind")]
	if !ok {
		utils.NotFound(c, "Tipo de estudio desconocido")
		return "", "", false
	}
	return k.kind, k.slug, true
}

func (h *MedicalRecordHandler) studyView(c *gin.Context, slug string, s models.StudyRecord) StudyView {
	ctx := c.Request.Context()
	v := StudyView{StudyRecord: s, Name: h.Catalogs.nameOf(ctx, slug, s.CatalogID)}
	if s.HasFile() {
		v.FileURL, _ = h.Uploader.URL(ctx, s.FileKey)
	}
	return v
}

// CreateStudy records a study and stores its optional file ("archivo").
func (h *MedicalRecordHandler) CreateStudy(c *gin.Context) {
	kind, slug, ok := h.studyKind(c)
	if !ok {
		return
	}
	var form StudyForm
	if !utils.BindFormAndValidate(c, &form) {
		return
	}
	ctx := c.Request.Context()

	if found, err := exists(ctx, h.DB, &models.Patient{}, form.PatientID); err != nil || !found {
		if err == nil {
			err = apperr.Validation(msgPatientNotFound)
		}
		utils.RespondError(c, err)
		return
	}
	if err := h.Catalogs.require(ctx, slug, form.CatalogID); err != nil {
		utils.RespondError(c, err)
		return
	}
	date, err := formDate(form.Date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	fh, err := formFile(c, "archivo")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	study := models.StudyRecord{
		PatientID:   form.PatientID,
		Kind:        kind,
		CatalogID:   form.CatalogID,
		Date:        date,
		Description: form.Description,
	}
	if fh != nil {
		att, err := h.Uploader.Put(ctx, "estudios/"+c.Param("kind"), form.PatientID, fh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		study.Attachment = att
	}
	if err := h.DB.WithContext(ctx).Create(&study).Error; err != nil {
		h.Uploader.Discard(ctx, study.FileKey)
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Study created successfully", h.studyView(c, slug, study))
}

// ListPatientStudies returns a patient's studies of one kind, newest first.
func (h *MedicalRecordHandler) ListPatientStudies(c *gin.Context) {
	kind, slug, ok := h.studyKind(c)
	if !ok {
		return
	}
	var studies []models.StudyRecord
	err := h.DB.WithContext(c.Request.Context()).
		Where("patient_id = ? AND kind = ?", c.Param("patientId"), kind).
		Order("date DESC").Order("created_at DESC").
		Find(&studies).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]StudyView, 0, len(studies))
	for _, s := range studies {
		views = append(views, h.studyView(c, slug, s))
	}
	utils.Success(c, "Studies fetched successfully", views)
}

func (h *MedicalRecordHandler) findStudy(c *gin.Context, kind models.StudyKind) (models.StudyRecord, bool) {
	var s models.StudyRecord
	err := h.DB.WithContext(c.Request.Context()).Where("id = ? AND kind = ?", c.Param("id"), kind).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Estudio no encontrado")
		} else {
			utils.RespondError(c, err)
		}
		return s, false
	}
	return s, true
}

// GetStudy returns one study.
func (h *MedicalRecordHandler) GetStudy(c *gin.Context) {
	kind, slug, ok := h.studyKind(c)
	if !ok {
		return
	}
	s, ok := h.findStudy(c, kind)
	if !ok {
		return
	}
	utils.Success(c, "Study fetched successfully", h.studyView(c, slug, s))
}

// UpdateStudy edits a study. A new "archivo" replaces the stored file and
// removeFile drops it.
func (h *MedicalRecordHandler) UpdateStudy(c *gin.Context) {
	kind, slug, ok := h.studyKind(c)
	if !ok {
		return
	}
	var form StudyForm
	if !utils.BindFormAndValidate(c, &form) {
		return
	}
	s, ok := h.findStudy(c, kind)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.Catalogs.require(ctx, slug, form.CatalogID); err != nil {
		utils.RespondError(c, err)
		return
	}
	fh, err := formFile(c, "archivo")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if form.Date != "" {
		if s.Date, err = formDate(form.Date); err != nil {
			utils.RespondError(c, err)
			return
		}
	}
	s.CatalogID = form.CatalogID
	s.Description = form.Description

	oldKey := s.FileKey
	switch {
	case fh != nil:
		att, err := h.Uploader.Put(ctx, "estudios/"+c.Param("kind"), s.PatientID, fh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		s.Attachment = att
	case form.RemoveFile:
		s.Attachment = models.Attachment{}
	}
	if err := h.DB.WithContext(ctx).Save(&s).Error; err != nil {
		if s.FileKey != oldKey {
			h.Uploader.Discard(ctx, s.FileKey)
		}
		utils.RespondError(c, err)
		return
	}
	if oldKey != s.FileKey {
		h.Uploader.Discard(ctx, oldKey)
	}
	utils.Success(c, "Study updated successfully", h.studyView(c, slug, s))
}

// DeleteStudy removes a study and its file.
func (h *MedicalRecordHandler) DeleteStudy(c *gin.Context) {
	kind, _, ok := h.studyKind(c)
	if !ok {
		return
	}
	s, ok := h.findStudy(c, kind)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&s).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	h.Uploader.Discard(c.Request.Context(), s.FileKey)
	utils.Success(c, "Study deleted successfully", gin.H{"ok": true})
}

// InterconsultationForm is the multipart body of interconsultation create
// and update.
type InterconsultationForm struct {
	PatientID   string `form:"patientId"`
	SpecialtyID string `form:"specialtyId" binding:"required"`
	Date        string `form:"date"`
	Description string `form:"description" binding:"required"`
	RemoveFile  bool   `form:"removeFile"`
}

// InterconsultationView adds the specialty name.
type InterconsultationView struct {
	models.Interconsultation
	SpecialtyName string `json:"specialtyName"`
}

func (h *MedicalRecordHandler) interconsultationView(c *gin.Context, ic models.Interconsultation) InterconsultationView {
	return InterconsultationView{
		Interconsultation: ic,
		SpecialtyName:     h.Catalogs.nameOf(c.Request.Context(), slugSpecialties, ic.SpecialtyID),
	}
}

// CreateInterconsultation records a referral with an optional file.
func (h *MedicalRecordHandler) CreateInterconsultation(c *gin.Context) {
	var form InterconsultationForm
	if !utils.BindFormAndValidate(c, &form) {
		return
	}
	ctx := c.Request.Context()
	if found, err := exists(ctx, h.DB, &models.Patient{}, form.PatientID); err != nil || !found {
		if err == nil {
			err = apperr.Validation(msgPatientNotFound)
		}
		utils.RespondError(c, err)
		return
	}
	if err := h.Catalogs.require(ctx, slugSpecialties, form.SpecialtyID); err != nil {
		utils.RespondError(c, err)
		return
	}
	date, err := formDate(form.Date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	fh, err := formFile(c, "archivo")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ic := models.Interconsultation{
		PatientID:   form.PatientID,
		Date:        date,
		SpecialtyID: form.SpecialtyID,
		Description: strings.TrimSpace(form.Description),
	}
	if fh != nil {
		att, err := h.Uploader.Put(ctx, "interconsultas", form.PatientID, fh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		ic.Attachment = att
	}
	if err := h.DB.WithContext(ctx).Create(&ic).Error; err != nil {
		h.Uploader.Discard(ctx, ic.FileKey)
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Interconsultation created successfully", h.interconsultationView(c, ic))
}

// ListPatientInterconsultations returns a patient's referrals, newest first.
func (h *MedicalRecordHandler) ListPatientInterconsultations(c *gin.Context) {
	var list []models.Interconsultation
	err := h.DB.WithContext(c.Request.Context()).
		Where("patient_id = ?", c.Param("patientId")).
		Order("date DESC").Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]InterconsultationView, 0, len(list))
	for _, ic := range list {
		views = append(views, h.interconsultationView(c, ic))
	}
	utils.Success(c, "Interconsultations fetched successfully", views)
}

// InterconsultationFileURL returns a link to the referral's file.
func (h *MedicalRecordHandler) InterconsultationFileURL(c *gin.Context) {
	var ic models.Interconsultation
	if !first(c, h.DB, &ic, c.Param("id"), "Interconsulta no encontrada") {
		return
	}
	url, err := h.Uploader.URL(c.Request.Context(), ic.FileKey)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "File URL generated successfully", gin.H{"url": url, "fileName": ic.FileName})
}

// UpdateInterconsultation edits a referral; file handling matches UpdateStudy.
func (h *MedicalRecordHandler) UpdateInterconsultation(c *gin.Context) {
	var form InterconsultationForm
	if !utils.BindFormAndValidate(c, &form) {
		return
	}
	var ic models.Interconsultation
	if !first(c, h.DB, &ic, c.Param("id"), "Interconsulta no encontrada") {
		return
	}
	ctx := c.Request.Context()
	if err := h.Catalogs.require(ctx, slugSpecialties, form.SpecialtyID); err != nil {
		utils.RespondError(c, err)
		return
	}
	fh, err := formFile(c, "archivo")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if form.Date != "" {
		if ic.Date, err = formDate(form.Date); err != nil {
			utils.RespondError(c, err)
			return
		}
	}
	ic.SpecialtyID = form.SpecialtyID
	ic.Description = strings.TrimSpace(form.Description)

	oldKey := ic.FileKey
	switch {
	case fh != nil:
		att, err := h.Uploader.Put(ctx, "interconsultas", ic.PatientID, fh)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		ic.Attachment = att
	case form.RemoveFile:
		ic.Attachment = models.Attachment{}
	}
	if err := h.DB.WithContext(ctx).Save(&ic).Error; err != nil {
		if ic.FileKey != oldKey {
			h.Uploader.Discard(ctx, ic.FileKey)
		}
		utils.RespondError(c, err)
		return
	}
	if oldKey != ic.FileKey {
		h.Uploader.Discard(ctx, oldKey)
	}
	utils.Success(c, "Interconsultation updated successfully", h.interconsultationView(c, ic))
}

// DeleteInterconsultation removes a referral and its file.
func (h *MedicalRecordHandler) DeleteInterconsultation(c *gin.Context) {
	var ic models.Interconsultation
	if !first(c, h.DB, &ic, c.Param("id"), "Interconsulta no encontrada") {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&ic).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	h.Uploader.Discard(c.Request.Context(), ic.FileKey)
	utils.Success(c, "Interconsultation deleted successfully", gin.H{"ok": true})
}
