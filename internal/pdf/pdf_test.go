package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var physician = Physician{Name: "Dr. Colomb, Damián", Specialty: "Especialista en Cirugía General", License: "MPRN 6790 - 2642"}

func TestAge(t *testing.T) {
	birth := time.Date(1980, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "43", Age(birth, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "44", Age(birth, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", Age(time.Time{}, time.Now()))
}

func TestFormatting(t *testing.T) {
	start := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 5, 10, 5, 0, 0, time.UTC)

	assert.Equal(t, "05/03/2024", FormatDate(start))
	assert.Equal(t, "08:30", FormatTime(&start))
	assert.Equal(t, "", FormatTime(nil))
	assert.Equal(t, "08:30–10:05 hs", Schedule(&start, &end))
	assert.Equal(t, "08:30 hs", Schedule(&start, nil))
	assert.Equal(t, "Sí", YesNo(true))
	assert.Equal(t, "-", Dash("  "))
}

func TestTechniqueParagraphs(t *testing.T) {
	got := TechniqueParagraphs("Neumoperitoneo  con aguja de Veress .\r\n\r\nColecistectomía   reglada")
	assert.Equal(t, []string{"Neumoperitoneo con aguja de Veress.", "Colecistectomía reglada."}, got)
	assert.Empty(t, TechniqueParagraphs(" \n "))
}

func TestSurgicalReportRenders(t *testing.T) {
	start := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	out, err := SurgicalReport(SurgicalReportData{
		PatientName:     "Pérez, Juan",
		NationalID:      "30111222",
		Age:             "44",
		Date:            start,
		StartTime:       &start,
		Diagnosis:       "Colecistitis aguda",
		Procedure:       "Colecistectomía laparoscópica",
		Pathology:       true,
		TechniqueDetail: "Paso 1\nPaso 2",
		Surgeon:         "Dr. Colomb",
	}, physician, start)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestClinicalSummaryRenders(t *testing.T) {
	now := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	out, err := ClinicalSummary(ClinicalSummaryData{
		Patient: PatientInfo{Name: "Ana Gómez", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)},
		History: HistoryInfo{Allergic: "Penicilina"},
		Studies: []StudyLine{{Date: now, Kind: "Laboratorio", Name: "Hemograma"}},
		Consultations: []ConsultationLine{{
			Date: now, Reason: "Dolor abdominal",
			Evolutions: []EvolutionLine{{Date: now, Content: "Mejoría clínica."}},
		}},
	}, physician, now)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
