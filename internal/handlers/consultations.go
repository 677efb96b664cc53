package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

// ConsultationHandler handles consultations and their evolution notes.
type ConsultationHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
}

// NewConsultationHandler creates a new ConsultationHandler.
func NewConsultationHandler(db *gorm.DB, cs Catalogs) *ConsultationHandler {
	return &ConsultationHandler{DB: db, Catalogs: cs}
}

// ConsultationRequest is the body of consultation create and update.
type ConsultationRequest struct {
	PatientID string      `json:"patientId"`
	ReasonID  string      `json:"reasonId" binding:"required"`
	Date      models.Date `json:"date"`
}

// ConsultationView adds the reason's name.
type ConsultationView struct {
	models.Consultation
	ReasonName string `json:"reasonName"`
}

func (h *ConsultationHandler) view(c *gin.Context, co models.Consultation) ConsultationView {
	return ConsultationView{Consultation: co, ReasonName: h.Catalogs.nameOf(c.Request.Context(), slugReasons, co.ReasonID)}
}

// CreateConsultation records an office visit.
func (h *ConsultationHandler) CreateConsultation(c *gin.Context) {
	var req ConsultationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if ok, err := exists(ctx, h.DB, &models.Patient{}, req.PatientID); err != nil || !ok {
		if err == nil {
			err = apperr.Validation(msgPatientNotFound)
		}
		utils.RespondError(c, err)
		return
	}
	if err := h.Catalogs.require(ctx, slugReasons, req.ReasonID); err != nil {
		utils.RespondError(c, err)
		return
	}
	co := models.Consultation{PatientID: req.PatientID, ReasonID: req.ReasonID, Date: req.Date}
	if co.Date.IsZero() {
		co.Date = models.Today()
	}
	if err := h.DB.WithContext(ctx).Create(&co).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Consultation created successfully", h.view(c, co))
}

// ListPatientConsultations returns a patient's consultations, newest first,
// with their evolutions.
func (h *ConsultationHandler) ListPatientConsultations(c *gin.Context) {
	var consultations []models.Consultation
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Evolutions", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC").Order("created_at ASC") }).
		Where("patient_id = ?", c.Param("patientId")).
		Order("date DESC").Order("created_at DESC").
		Find(&consultations).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]ConsultationView, 0, len(consultations))
	for _, co := range consultations {
		views = append(views, h.view(c, co))
	}
	utils.Success(c, "Consultations fetched successfully", views)
}

// UpdateConsultation changes the reason or date of a consultation.
func (h *ConsultationHandler) UpdateConsultation(c *gin.Context) {
	var req ConsultationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	var co models.Consultation
	if !first(c, h.DB, &co, c.Param("id"), msgConsultationNotFound) {
		return
	}
	if err := h.Catalogs.require(c.Request.Context(), slugReasons, req.ReasonID); err != nil {
		utils.RespondError(c, err)
		return
	}
	co.ReasonID = req.ReasonID
	if !req.Date.IsZero() {
		co.Date = req.Date
	}
	if err := h.DB.WithContext(c.Request.Context()).Save(&co).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Consultation updated successfully", h.view(c, co))
}

// DeleteConsultation removes a consultation that has no evolutions.
func (h *ConsultationHandler) DeleteConsultation(c *gin.Context) {
	var co models.Consultation
	if !first(c, h.DB, &co, c.Param("id"), msgConsultationNotFound) {
		return
	}
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Evolution{}).Where("consultation_id = ?", co.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.ReferentialConflict("No se puede eliminar la consulta: tiene evoluciones cargadas")
		}
		return tx.Delete(&co).Error
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Consultation deleted successfully", gin.H{"ok": true})
}

// EvolutionRequest is the body of evolution create and update.
type EvolutionRequest struct {
	ConsultationID string      `json:"consultationId"`
	Date           models.Date `json:"date"`
	Content        string      `json:"content" binding:"required"`
}

// CreateEvolution adds a note to a consultation; the date defaults to today.
func (h *ConsultationHandler) CreateEvolution(c *gin.Context) {
	var req EvolutionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		utils.BadRequest(c, "El contenido de la evolución es obligatorio")
		return
	}
	var co models.Consultation
	if !first(c, h.DB, &co, req.ConsultationID, msgConsultationNotFound) {
		return
	}
	ev := models.Evolution{ConsultationID: co.ID, Date: req.Date, Content: content}
	if ev.Date.IsZero() {
		ev.Date = models.Today()
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&ev).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Evolution created successfully", ev)
}

// ListEvolutions returns the notes of a consultation in date order.
func (h *ConsultationHandler) ListEvolutions(c *gin.Context) {
	var evolutions []models.Evolution
	err := h.DB.WithContext(c.Request.Context()).
		Where("consultation_id = ?", c.Param("consultationId")).
		Order("date ASC").Order("created_at ASC").
		Find(&evolutions).Error
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Evolutions fetched successfully", evolutions)
}

// UpdateEvolution edits a note.
func (h *ConsultationHandler) UpdateEvolution(c *gin.Context) {
	var req EvolutionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		utils.BadRequest(c, "El contenido de la evolución es obligatorio")
		return
	}
	var ev models.Evolution
	if !first(c, h.DB, &ev, c.Param("id"), "Evolución no encontrada") {
		return
	}
	ev.Content = content
	if !req.Date.IsZero() {
		ev.Date = req.Date
	}
	if err := h.DB.WithContext(c.Request.Context()).Save(&ev).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Evolution updated successfully", ev)
}

// DeleteEvolution removes a note.
func (h *ConsultationHandler) DeleteEvolution(c *gin.Context) {
	var ev models.Evolution
	if !first(c, h.DB, &ev, c.Param("id"), "Evolución no encontrada") {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&ev).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Evolution deleted successfully", gin.H{"ok": true})
}
