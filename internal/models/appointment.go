package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAttended  AppointmentStatus = "attended"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booked visit ("turno"). Bookings are made before the
// person is registered as a patient, so only the name is stored.
type Appointment struct {
	BaseModel
	PatientName string            `gorm:"size:255;not null" json:"patientName"`
	Date        Date              `gorm:"index;not null" json:"date"`
	Reason      string            `gorm:"size:255" json:"reason"`
	ReferrerID  *string           `gorm:"size:36;index" json:"referrerId"`
	Status      AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Notes       string            `gorm:"type:text" json:"notes"`
}

func ValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusAttended, StatusCancelled:
		return true
	}
	return false
}
