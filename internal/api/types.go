package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-workflow-engine/internal/lab"
	"github.com/hackgods/clinic-workflow-engine/internal/visit"
)

type UpsertScheduleRequest struct {
	DoctorName      string `json:"doctor_name"`
	DepartmentName  string `json:"department_name"`
	DayOfWeek       int    `json:"day_of_week"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	MaxAppointments int    `json:"max_appointments"`
	IsActive        *bool  `json:"is_active"`
}

type CreateAppointmentRequest struct {
	PatientName     string `json:"patient_name"`
	DoctorName      string `json:"doctor_name"`
	DepartmentName  string `json:"department_name"`
	AppointmentDate string `json:"appointment_date"`
	PreferredTime   string `json:"preferred_time"`
}

type UpdateAppointmentRequest struct {
	PatientName     *string `json:"patient_name,omitempty"`
	DoctorName      *string `json:"doctor_name,omitempty"`
	DepartmentName  *string `json:"department_name,omitempty"`
	AppointmentDate *string `json:"appointment_date,omitempty"`
	PreferredTime   *string `json:"preferred_time,omitempty"`
	Status          *string `json:"status,omitempty"`
}

type AppointmentResponse struct {
	BookingID       string    `json:"booking_id"`
	PatientName     string    `json:"patient_name"`
	DoctorName      string    `json:"doctor_name"`
	DepartmentName  string    `json:"department_name"`
	AppointmentDate string    `json:"appointment_date"`
	PreferredTime   string    `json:"preferred_time"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type CreateVisitRequest struct {
	PatientName string `json:"patient_name"`
	IsEmergency bool   `json:"is_emergency"`
}

type VisitActionRequest struct {
	Action          string              `json:"action"`
	ExpectedVersion *int                `json:"expected_version,omitempty"`
	Payload         visit.ActionPayload `json:"payload"`
}

type VisitResponse struct {
	ID                    uuid.UUID  `json:"id"`
	PatientName           string     `json:"patient_name"`
	Status                string     `json:"status"`
	IsEmergency           bool       `json:"is_emergency"`
	Version               int        `json:"version"`
	AssignedDoctor        string     `json:"assigned_doctor,omitempty"`
	Diagnosis             string     `json:"diagnosis,omitempty"`
	ClinicalNotes         string     `json:"clinical_notes,omitempty"`
	LabRequested          bool       `json:"lab_requested"`
	LabResultReady        bool       `json:"lab_result_ready"`
	PrescriptionCreated   bool       `json:"prescription_created"`
	PrescriptionDispensed bool       `json:"prescription_dispensed"`
	FollowUpDate          *time.Time `json:"follow_up_date,omitempty"`
}

type CreateLabRequestRequest struct {
	PatientName string `json:"patient_name"`
	TestType    string `json:"test_type"`
	Actor       string `json:"actor"`
}

type LabActionRequest struct {
	Action  string            `json:"action"`
	Payload lab.ActionPayload `json:"payload"`
}

type CreateMedicineRequest struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	InitialStock      int    `json:"initial_stock"`
	StockCapacity     int    `json:"stock_capacity"`
	ReorderLevel      int    `json:"reorder_level"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	Actor             string `json:"actor"`
}

type StockActionRequest struct {
	Action          string `json:"action"`
	Quantity        int    `json:"quantity,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Reference       string `json:"reference,omitempty"`
	PatientName     string `json:"patient_name,omitempty"`
	PrescriptionRef string `json:"prescription_ref,omitempty"`
	Actor           string `json:"actor,omitempty"`
}

type CreateDispenseRequestRequest struct {
	MedicineID      string `json:"medicine_id"`
	Quantity        int    `json:"quantity"`
	PatientName     string `json:"patient_name"`
	PrescriptionRef string `json:"prescription_ref"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
