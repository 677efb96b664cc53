package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/models"
	"surgical-records-server/internal/utils"
)

// AppointmentHandler handles appointment ("turno") requests.
type AppointmentHandler struct {
	DB       *gorm.DB
	Catalogs Catalogs
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, cs Catalogs) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Catalogs: cs}
}

// AppointmentRequest represents the request body for creating or updating
// an appointment.
type AppointmentRequest struct {
	PatientName string                   `json:"patientName" binding:"required,max=255"`
	Date        models.Date              `json:"date"`
	Reason      string                   `json:"reason" binding:"max=255"`
	ReferrerID  *string                  `json:"referrerId"`
	Status      models.AppointmentStatus `json:"status"`
	Notes       string                   `json:"notes"`
}

// AppointmentView adds the referrer's name.
type AppointmentView struct {
	models.Appointment
	ReferrerName string `json:"referrerName,omitempty"`
}

func (h *AppointmentHandler) apply(c *gin.Context, req AppointmentRequest, a *models.Appointment) error {
	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		return apperr.Validation("El nombre del paciente es obligatorio")
	}
	if req.Date.IsZero() {
		return apperr.Validation("La fecha del turno es obligatoria")
	}
	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	if !models.ValidAppointmentStatus(status) {
		return apperr.Validation("Estado de turno inválido")
	}
	referrerID := optionalID(req.ReferrerID)
	if err := h.Catalogs.requireOptional(c.Request.Context(), slugReferrers, referrerID); err != nil {
		return err
	}

	a.PatientName = name
	a.Date = req.Date
	a.Reason = strings.TrimSpace(req.Reason)
	a.ReferrerID = referrerID
	a.Status = status
	a.Notes = req.Notes
	return nil
}

func (h *AppointmentHandler) view(c *gin.Context, a models.Appointment) AppointmentView {
	return AppointmentView{Appointment: a, ReferrerName: h.Catalogs.name(c.Request.Context(), slugReferrers, a.ReferrerID)}
}

// ListAppointments returns appointments, optionally of a single day (fecha).
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).Model(&models.Appointment{})
	if raw := c.Query("fecha"); raw != "" {
		day, err := models.ParseDate(raw)
		if err != nil {
			utils.BadRequest(c, "Fecha inválida, se espera AAAA-MM-DD")
			return
		}
		q = q.Where("date = ?", day)
	}
	var appointments []models.Appointment
	if err := q.Order("date ASC").Order("created_at ASC").Find(&appointments).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	views := make([]AppointmentView, 0, len(appointments))
	for _, a := range appointments {
		views = append(views, h.view(c, a))
	}
	utils.Success(c, "Appointments fetched successfully", views)
}

// CreateAppointment books an appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req AppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	var a models.Appointment
	if err := h.apply(c, req, &a); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&a).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment created successfully", h.view(c, a))
}

// UpdateAppointment replaces an appointment.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req AppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	var a models.Appointment
	if !first(c, h.DB, &a, c.Param("id"), "Turno no encontrado") {
		return
	}
	if err := h.apply(c, req, &a); err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Save(&a).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", h.view(c, a))
}

// DeleteAppointment removes an appointment.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	var a models.Appointment
	if !first(c, h.DB, &a, c.Param("id"), "Turno no encontrado") {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&a).Error; err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment deleted successfully", gin.H{"ok": true})
}
