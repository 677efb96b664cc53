package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

// PatientHandler handles the patient registry.
type PatientHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB, cs Catalogs) *PatientHandler {
	return &PatientHandler{DB: db, Catalogs: cs}
}

// PatientRequest is the body of create and update.
type PatientRequest struct {
	FullName      string      `json:"fullName" binding:"required,max=255"`
	NationalID    *string     `json:"nationalId" binding:"omitempty,max=32"`
	BirthDate     models.Date `json:"birthDate"`
	SexID         *int        `json:"sexId"`
	InsurerID     *string     `json:"insurerId"`
	BenefitNumber string      `json:"benefitNumber" binding:"max=100"`
	NationalityID *string     `json:"nationalityId"`
	LocalityID    *string     `json:"localityId"`
	Phone         string      `json:"phone" binding:"max=100"`
	Email         string      `json:"email" binding:"omitempty,email,max=255"`
	Notes         string      `json:"notes"`
}

// PatientView adds the resolved catalog names to a patient.
type PatientView struct {
	models.Patient
	SexName         string `json:"sexName,omitempty"`
	InsurerName     string `json:"insurerName,omitempty"`
	NationalityName string `json:"nationalityName,omitempty"`
	LocalityName    string `json:"localityName,omitempty"`
}

func (h *PatientHandler) view(c *gin.Context, p models.Patient) PatientView {
	ctx := c.Request.Context()
	v := PatientView{
		Patient:         p,
		InsurerName:     h.Catalogs.name(ctx, slugInsurers, p.InsurerID),
		NationalityName: h.Catalogs.name(ctx, slugNationalities, p.NationalityID),
		LocalityName:    h.Catalogs.name(ctx, slugLocalities, p.LocalityID),
	}
	if p.SexID != nil {
		var sex models.Sex
		if err := h.DB.WithContext(ctx).First(&sex, *p.SexID).Error; err == nil {
			v.SexName = sex.Name
		}
	}
	return v
}

// apply validates the request and copies it onto p.
func (h *PatientHandler) apply(c *gin.Context, req PatientRequest, p *models.Patient) error {
	ctx := c.Request.Context()
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return apperr.Validation("El nombre del paciente es obligatorio")
	}
	nationalID := optionalID(req.NationalID)

	if nationalID != nil {
		var other models.Patient
		q := h.DB.WithContext(ctx).Where("national_id = ?", *nationalID)
		if p.ID != "" {
			q = q.Where("id <> ?", p.ID)
		}
		err := q.First(&other).Error
		if err == nil {
			return apperr.Duplicate(fmt.Sprintf("Ya existe un paciente con DNI %s: %s", *nationalID, other.FullName))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if req.SexID != nil {
		var n int64
		if err := h.DB.WithContext(ctx).Model(&models.Sex{}).Where("id = ?", *req.SexID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.Validation("Sexo inválido")
		}
	}
	insurerID, nationalityID, localityID := optionalID(req.InsurerID), optionalID(req.NationalityID), optionalID(req.LocalityID)
	refs := []struct {
		slug string
		id   *string
	}{{slugInsurers, insurerID}, {slugNationalities, nationalityID}, {slugLocalities, localityID}}
	for _, ref := range refs {
		if err := h.Catalogs.requireOptional(ctx, ref.slug, ref.id); err != nil {
			return err
		}
	}

	p.FullName = fullName
	p.NationalID = nationalID
	p.BirthDate = req.BirthDate
	p.SexID = req.SexID
	p.InsurerID = insurerID
	p.BenefitNumber = strings.TrimSpace(req.BenefitNumber)
	p.NationalityID = nationalityID
	p.LocalityID = localityID
	p.Phone = strings.TrimSpace(req.Phone)
	p.Email = strings.TrimSpace(req.Email)
	p.Notes = req.Notes
	return nil
}

func translatePatientErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Duplicate("Ya existe un paciente con ese DNI")
	}
	return err
}

// ListPatients returns a page of patients filtered by name or DNI.
func (h *PatientHandler) ListPatients(c *gin.Context) {
	page := utils.ParsePage(c, 50, 200)
	q := h.DB.WithContext(c.Request.Context()).Model(&models.Patient{})
	if !utils.QueryBool(c, "include_inactivos") {
		q = q.Where("active = ?", true)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR national_id LIKE ?", like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	var patients []models.Patient
	if err := q.Order("full_name ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&patients).Error; err != nil {
		utils.RespondError(c, err)
		return
	}

	items := make([]PatientView, 0, len(patients))
	for _, p := range patients {
		items = append(items, h.view(c, p))
	}
	utils.Success(c, "Patients fetched successfully", utils.Paginated{
		Items: items, Total: total, Page: page.Page, PageSize: page.PageSize,
	})
}

// GetPatient returns one patient, active or not.
func (h *PatientHandler) GetPatient(c *gin.Context) {
	var p models.Patient
	if !first(c, h.DB, &p, c.Param("id"), msgPatientNotFound) {
		return
	}
	utils.Success(c, "Patient fetched successfully", h.view(c, p))
}

// CreatePatient registers a patient.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req PatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	p := models.Patient{Active: true}
	if err := h.apply(c, req, &p); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		utils.RespondError(c, translatePatientErr(err))
		return
	}
	utils.Created(c, "Patient created successfully", h.view(c, p))
}

// UpdatePatient replaces a patient's data.
func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	var req PatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	var p models.Patient
	if !first(c, h.DB, &p, c.Param("id"), msgPatientNotFound) {
		return
	}
	if err := h.apply(c, req, &p); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Save(&p).Error; err != nil {
		utils.RespondError(c, translatePatientErr(err))
		return
	}
	utils.Success(c, "Patient updated successfully", h.view(c, p))
}

func (h *PatientHandler) setActive(c *gin.Context, active bool, msg string) {
	var p models.Patient
	if !first(c, h.DB, &p, c.Param("id"), msgPatientNotFound) {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Model(&p).Update("active", active).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, msg, gin.H{"ok": true})
}

// DeletePatient deactivates a patient; clinical records are kept.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	h.setActive(c, false, "Patient deactivated successfully")
}

// RestorePatient reactivates a patient.
func (h *PatientHandler) RestorePatient(c *gin.Context) {
	h.setActive(c, true, "Patient restored successfully")
}

// ListSexes returns the fixed sex list.
func (h *PatientHandler) ListSexes(c *gin.Context) {
	var sexes []models.Sex
	if err := h.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&sexes).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Sexes fetched successfully", sexes)
}

// ListSurgeryTypes returns the fixed surgery type list.
func (h *PatientHandler) ListSurgeryTypes(c *gin.Context) {
	var types []models.SurgeryType
	if err := h.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&types).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Surgery types fetched successfully", types)
}

// HistoryRequest is the body of the medical history upsert.
type HistoryRequest struct {
	Medical         string `json:"medical"`
	Surgical        string `json:"surgical"`
	Allergic        string `json:"allergic"`
	Toxic           string `json:"toxic"`
	Family          string `json:"family"`
	GynecoObstetric string `json:"gynecoObstetric"`
}

// GetHistory returns a patient's background, empty when none was saved.
func (h *PatientHandler) GetHistory(c *gin.Context) {
	patientID := c.Param("patientId")
	var p models.Patient
	if !first(c, h.DB, &p, patientID, msgPatientNotFound) {
		return
	}
	history := models.MedicalHistory{PatientID: patientID}
	err := h.DB.WithContext(c.Request.Context()).Where("patient_id = ?", patientID).First(&history).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical history fetched successfully", history)
}

// UpsertHistory creates or replaces a patient's background.
func (h *PatientHandler) UpsertHistory(c *gin.Context) {
	var req HistoryRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	patientID := c.Param("patientId")
	var p models.Patient
	if !first(c, h.DB, &p, patientID, msgPatientNotFound) {
		return
	}

	var history models.MedicalHistory
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("patient_id = ?", patientID).First(&history).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		history.PatientID = patientID
		history.Medical = req.Medical
		history.Surgical = req.Surgical
		history.Allergic = req.Allergic
		history.Toxic = req.Toxic
		history.Family = req.Family
		history.GynecoObstetric = req.GynecoObstetric
		return tx.Save(&history).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Medical history saved successfully", history)
}
