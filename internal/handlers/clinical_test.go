package handlers_test

import (
	"bytes"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surgical-records-server/internal/models"
)

func TestPatientDuplicateNationalID(t *testing.T) {
	s := newTestServer(t)
	s.createPatient("Juan Pérez", "30111222")

	rec := s.json(http.MethodPost, "/pacientes/", map[string]any{"fullName": "Otro", "nationalId": "30111222"})
	require.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec, nil)
	assert.Contains(t, env.Error, "Juan Pérez")

	rec = s.json(http.MethodPost, "/pacientes/", map[string]any{"fullName": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatientListSearchAndDeactivate(t *testing.T) {
	s := newTestServer(t)
	ana := s.createPatient("Ana Gómez", "20000001")
	s.createPatient("Bruno Díaz", "20000002")

	type page struct {
		Items []models.Patient `json:"items"`
		Total int64            `json:"total"`
	}
	var got page
	decode(t, s.json(http.MethodGet, "/pacientes/?search=ana", nil), &got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, ana, got.Items[0].ID)

	rec := s.json(http.MethodDelete, "/pacientes/"+ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, s.json(http.MethodGet, "/pacientes/", nil), &got)
	assert.EqualValues(t, 1, got.Total)
	decode(t, s.json(http.MethodGet, "/pacientes/?include_inactivos=1", nil), &got)
	assert.EqualValues(t, 2, got.Total)

	rec = s.json(http.MethodPost, "/pacientes/"+ana+"/restaurar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, s.json(http.MethodGet, "/pacientes/", nil), &got)
	assert.EqualValues(t, 2, got.Total)
}

func TestPatientRejectsUnknownCatalogReference(t *testing.T) {
	s := newTestServer(t)
	rec := s.json(http.MethodPost, "/pacientes/", map[string]any{"fullName": "Ana", "localityId": "missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsultationDeleteBlockedByEvolutions(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Carla Ruiz", "")
	reason := s.seed("motivos_consulta", "Dolor abdominal")

	rec := s.json(http.MethodPost, "/consultas/", map[string]any{"patientId": patient, "reasonId": reason})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var consultation struct {
		ID         string `json:"id"`
		ReasonName string `json:"reasonName"`
		Date       string `json:"date"`
	}
	decode(t, rec, &consultation)
	assert.Equal(t, "Dolor abdominal", consultation.ReasonName)
	assert.NotEmpty(t, consultation.Date)

	rec = s.json(http.MethodPost, "/evoluciones/", map[string]any{"consultationId": consultation.ID, "content": "Mejoría"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var evolution struct {
		ID string `json:"id"`
	}
	decode(t, rec, &evolution)

	rec = s.json(http.MethodDelete, "/consultas/"+consultation.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// the reason is referenced, so the hard delete is refused too
	rec = s.json(http.MethodDelete, "/bases/motivos_consulta/"+reason, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodDelete, "/evoluciones/"+evolution.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodDelete, "/consultas/"+consultation.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStudyUploadWithFile(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Diego Sosa", "")
	lab := s.seed("laboratorio", "Hemograma")

	rec := s.multipart(http.MethodPost, "/examenes/laboratorio",
		map[string]string{"patientId": patient, "catalogId": lab, "date": "2026-03-01"},
		upload{field: "archivo", name: "hemograma.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4 test")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var study struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		FileName string `json:"fileName"`
		FileKey  string `json:"fileKey"`
		FileURL  string `json:"fileUrl"`
	}
	decode(t, rec, &study)
	assert.Equal(t, "Hemograma", study.Name)
	assert.Equal(t, "hemograma.pdf", study.FileName)
	assert.NotEmpty(t, study.FileURL)

	assert.FileExists(t, filepath.Join(s.store.Dir(), filepath.FromSlash(study.FileKey)))

	// an imaging catalog id is not valid for a laboratory study
	img := s.seed("imagenes", "Ecografía")
	rec = s.multipart(http.MethodPost, "/examenes/laboratorio", map[string]string{"patientId": patient, "catalogId": img})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.multipart(http.MethodPost, "/examenes/desconocido", map[string]string{"patientId": patient, "catalogId": lab})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.json(http.MethodDelete, "/examenes/laboratorio/"+study.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoFileExists(t, filepath.Join(s.store.Dir(), filepath.FromSlash(study.FileKey)))
}

func TestProcedureBillingCodesAndSummaryPDF(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Elena Torres", "27000111")
	base := s.seed("procedimientos_base", "Colecistectomía laparoscópica")
	institution := s.seed("instituciones", "Sanatorio Central")

	rec := s.json(http.MethodPost, "/procedimientos/pacientes", map[string]any{
		"patientId": patient, "baseProcedureId": base, "institutionId": institution, "date": "2026-02-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var procedure struct {
		ID            string `json:"id"`
		SurgeryTypeID int    `json:"surgeryTypeId"`
		ProcedureName string `json:"procedureName"`
	}
	decode(t, rec, &procedure)
	assert.Equal(t, int(models.SurgeryTypeScheduled), procedure.SurgeryTypeID)
	assert.Equal(t, "Colecistectomía laparoscópica", procedure.ProcedureName)

	rec = s.json(http.MethodPut, "/procedimientos/"+procedure.ID+"/codigos", []map[string]any{
		{"role": "cirujano", "code": "100201", "percentage": 100},
		{"role": "ayudante1", "code": "100201", "percentage": 30},
		{"role": "ayudante1", "code": "", "percentage": nil},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var codes []models.BillingCode
	decode(t, rec, &codes)
	assert.Len(t, codes, 2)

	rec = s.json(http.MethodPut, "/procedimientos/"+procedure.ID+"/codigos", []map[string]any{
		{"role": "cirujano", "code": "1", "percentage": 150},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodGet, "/pdf/resumen-hc/"+patient, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.json(http.MethodGet, "/pdf/resumen-hc/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.multipart(http.MethodPost, "/procedimientos/"+procedure.ID+"/fotos", nil,
		upload{field: "files", name: "a.jpg", contentType: "image/jpeg", content: []byte("jpg-a")},
		upload{field: "files", name: "b.png", contentType: "image/png", content: []byte("png-b")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var photos []struct {
		ID      string `json:"id"`
		FileKey string `json:"fileKey"`
		URL     string `json:"url"`
	}
	decode(t, s.json(http.MethodGet, "/procedimientos/"+procedure.ID+"/fotos", nil), &photos)
	require.Len(t, photos, 2)
	assert.NotEmpty(t, photos[0].URL)

	rec = s.multipart(http.MethodPost, "/procedimientos/"+procedure.ID+"/fotos", nil,
		upload{field: "files", name: "run.sh", contentType: "text/x-shellscript", content: []byte("echo")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodDelete, "/procedimientos/"+procedure.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodGet, "/procedimientos/"+procedure.ID+"/codigos", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	for _, ph := range photos {
		assert.NoFileExists(t, filepath.Join(s.store.Dir(), filepath.FromSlash(ph.FileKey)))
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.token = ""
	for _, path := range []string{"/health", "/health/db", "/health/storage"} {
		rec := s.json(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestSurgicalReportFlow(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Fabián Núñez", "25000999")
	base := s.seed("procedimientos_base", "Hernioplastia")
	institution := s.seed("instituciones", "Clínica Norte")
	technique := s.seed("tecnicas", "Lichtenstein")
	surgeon := s.seed("cirujanos", "Dr. Ramos")

	body := map[string]any{
		"patientId": patient, "baseProcedureId": base, "institutionId": institution,
		"date": "2026-04-02", "startTime": "08:30", "endTime": "09:45",
		"techniqueId": technique, "surgeonId": surgeon, "techniqueDetail": "Incisión inguinal.\nMalla.",
	}
	rec := s.json(http.MethodPost, "/partes/", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report struct {
		ID            string `json:"id"`
		PatientName   string `json:"patientName"`
		TechniqueName string `json:"techniqueName"`
		SurgeonName   string `json:"surgeonName"`
	}
	decode(t, rec, &report)
	assert.Equal(t, "Fabián Núñez", report.PatientName)
	assert.Equal(t, "Lichtenstein", report.TechniqueName)
	assert.Equal(t, "Dr. Ramos", report.SurgeonName)

	body["startTime"] = "8h"
	rec = s.json(http.MethodPut, "/partes/"+report.ID, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var summary []struct {
		ProcedureID   string `json:"procedureId"`
		ProcedureName string `json:"procedureName"`
		TechniqueName string `json:"techniqueName"`
	}
	rec = s.json(http.MethodGet, "/partes/resumen?id_paciente="+patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &summary)
	require.Len(t, summary, 1)
	assert.Equal(t, report.ID, summary[0].ProcedureID)
	assert.Equal(t, "Hernioplastia", summary[0].ProcedureName)
	assert.Equal(t, "Lichtenstein", summary[0].TechniqueName)

	rec = s.json(http.MethodGet, "/pdf/parte/"+report.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")

	// deactivating the surgeon keeps the name on the existing report
	require.Equal(t, http.StatusOK, s.json(http.MethodDelete, "/bases/cirujanos/"+surgeon, nil).Code)
	rec = s.json(http.MethodGet, "/partes/"+report.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &report)
	assert.Equal(t, "Dr. Ramos", report.SurgeonName)

	rec = s.json(http.MethodDelete, "/partes/"+report.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodGet, "/partes/"+report.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathologyReportLifecycle(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Gabriela Paz", "")
	other := s.createPatient("Hugo Lima", "")
	base := s.seed("procedimientos_base", "Videocolonoscopía")
	institution := s.seed("instituciones", "Hospital Sur")

	rec := s.json(http.MethodPost, "/procedimientos/pacientes", map[string]any{
		"patientId": other, "baseProcedureId": base, "institutionId": institution, "date": "2026-01-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var foreign struct {
		ID string `json:"id"`
	}
	decode(t, rec, &foreign)

	rec = s.json(http.MethodPost, "/patologias/", map[string]any{
		"patientId": patient, "baseProcedureId": base, "procedureId": foreign.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.json(http.MethodPost, "/patologias/", map[string]any{
		"patientId": patient, "baseProcedureId": base, "reportText": "Adenoma tubular",
		"colonoscopy": map[string]bool{"screening": true, "adenomas": true},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report struct {
		ID          string `json:"id"`
		Colonoscopy *struct {
			Adenomas bool `json:"adenomas"`
		} `json:"colonoscopy"`
		ReportURL string `json:"reportUrl"`
	}
	decode(t, rec, &report)
	require.NotNil(t, report.Colonoscopy)
	assert.True(t, report.Colonoscopy.Adenomas)

	rec = s.json(http.MethodPut, "/patologias/"+report.ID, map[string]any{"baseProcedureId": base, "reportText": "Sin displasia"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report.Colonoscopy = nil
	decode(t, rec, &report)
	assert.Nil(t, report.Colonoscopy)

	rec = s.multipart(http.MethodPost, "/patologias/"+report.ID+"/pdf", nil,
		upload{field: "archivo", name: "foto.png", contentType: "image/png", content: []byte("png")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.multipart(http.MethodPost, "/patologias/"+report.ID+"/pdf", nil,
		upload{field: "archivo", name: "informe.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &report)
	assert.NotEmpty(t, report.ReportURL)

	rec = s.json(http.MethodDelete, "/patologias/"+report.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodGet, "/patologias/item/"+report.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppointmentsByDay(t *testing.T) {
	s := newTestServer(t)
	referrer := s.seed("derivadores", "Dr. Vega")

	rec := s.json(http.MethodPost, "/turnos/", map[string]any{"patientName": "Irene", "date": "2026-05-04", "referrerId": referrer})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var appt struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		ReferrerName string `json:"referrerName"`
	}
	decode(t, rec, &appt)
	assert.Equal(t, "Dr. Vega", appt.ReferrerName)
	assert.NotEmpty(t, appt.Status)

	rec = s.json(http.MethodPost, "/turnos/", map[string]any{"patientName": "Jorge", "date": "2026-05-05"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.json(http.MethodPost, "/turnos/", map[string]any{"patientName": "Sin fecha"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var day []struct {
		ID string `json:"id"`
	}
	rec = s.json(http.MethodGet, "/turnos/?fecha=2026-05-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &day)
	require.Len(t, day, 1)
	assert.Equal(t, appt.ID, day[0].ID)

	assert.Equal(t, http.StatusBadRequest, s.json(http.MethodGet, "/turnos/?fecha=mayo", nil).Code)
	assert.Equal(t, http.StatusOK, s.json(http.MethodDelete, "/turnos/"+appt.ID, nil).Code)
}

func TestTechniqueTemplates(t *testing.T) {
	s := newTestServer(t)
	technique := s.seed("tecnicas", "Milligan-Morgan")

	rec := s.json(http.MethodPost, "/plantillas/", map[string]string{"techniqueId": technique, "title": "Estándar", "body": "Posición de litotomía."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tpl struct {
		ID string `json:"id"`
	}
	decode(t, rec, &tpl)

	rec = s.json(http.MethodPost, "/plantillas/", map[string]string{"techniqueId": "missing", "title": "X", "body": "Y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var list []struct {
		Title string `json:"title"`
	}
	decode(t, s.json(http.MethodGet, "/plantillas/?tecnica="+technique, nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Estándar", list[0].Title)

	assert.Equal(t, http.StatusOK, s.json(http.MethodDelete, "/plantillas/"+tpl.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.json(http.MethodDelete, "/plantillas/"+tpl.ID, nil).Code)
}

func TestInterconsultationLifecycle(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Rosa Medina", "")
	cardio := s.seed("especialidad", "Cardiología")

	rec := s.multipart(http.MethodPost, "/interconsultas/",
		map[string]string{"patientId": patient, "specialtyId": cardio, "date": "2026-04-10", "description": "Riesgo quirúrgico"},
		upload{field: "archivo", name: "riesgo.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4 riesgo")},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ic struct {
		ID            string `json:"id"`
		SpecialtyName string `json:"specialtyName"`
		FileKey       string `json:"fileKey"`
		FileName      string `json:"fileName"`
	}
	decode(t, rec, &ic)
	assert.Equal(t, "Cardiología", ic.SpecialtyName)
	assert.Equal(t, "riesgo.pdf", ic.FileName)
	stored := filepath.Join(s.store.Dir(), filepath.FromSlash(ic.FileKey))
	assert.FileExists(t, stored)

	rec = s.json(http.MethodGet, "/interconsultas/"+ic.ID+"/archivo-url", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var link struct {
		URL      string `json:"url"`
		FileName string `json:"fileName"`
	}
	decode(t, rec, &link)
	assert.NotEmpty(t, link.URL)
	assert.Equal(t, "riesgo.pdf", link.FileName)

	// specialty is still mandatory on edit
	rec = s.multipart(http.MethodPut, "/interconsultas/"+ic.ID,
		map[string]string{"specialtyId": "", "description": "Sin especialidad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.multipart(http.MethodPut, "/interconsultas/"+ic.ID,
		map[string]string{"specialtyId": cardio, "description": "Riesgo quirúrgico bajo", "removeFile": "true"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoFileExists(t, stored)

	rec = s.json(http.MethodGet, "/interconsultas/"+ic.ID+"/archivo-url", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.json(http.MethodGet, "/interconsultas/paciente/"+patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		Description string `json:"description"`
		FileKey     string `json:"fileKey"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Riesgo quirúrgico bajo", list[0].Description)
	assert.Empty(t, list[0].FileKey)

	rec = s.json(http.MethodDelete, "/interconsultas/"+ic.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodGet, "/interconsultas/"+ic.ID+"/archivo-url", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMedicalHistoryUpsert(t *testing.T) {
	s := newTestServer(t)
	patient := s.createPatient("Luis Ortiz", "")

	rec := s.json(http.MethodGet, "/antecedentes/"+patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.json(http.MethodPut, "/antecedentes/"+patient, map[string]any{"medical": "HTA"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first models.MedicalHistory
	decode(t, rec, &first)
	require.NotEmpty(t, first.ID)

	rec = s.json(http.MethodPut, "/antecedentes/"+patient, map[string]any{"medical": "DBT", "allergic": "Penicilina"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second models.MedicalHistory
	decode(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)

	rec = s.json(http.MethodGet, "/antecedentes/"+patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.MedicalHistory
	decode(t, rec, &got)
	assert.Equal(t, "DBT", got.Medical)
	assert.Equal(t, "Penicilina", got.Allergic)

	var rows int64
	require.NoError(t, s.db.Model(&models.MedicalHistory{}).Where("patient_id = ?", patient).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	rec = s.json(http.MethodGet, "/antecedentes/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.json(http.MethodPut, "/antecedentes/missing", map[string]any{"medical": "HTA"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
