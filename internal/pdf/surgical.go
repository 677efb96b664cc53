package pdf

import "time"

// SurgicalReportData is everything printed on an operative report, already
// resolved to display strings.
type SurgicalReportData struct {
	PatientName   string `json:"patientName"`
	NationalID    string `json:"nationalId"`
	Age           string `json:"age"`
	Insurer       string `json:"insurer"`
	BenefitNumber string `json:"benefitNumber"`

	Date           time.Time  `json:"date"`
	StartTime      *time.Time `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	Institution    string     `json:"institution"`
	SurgeryType    string     `json:"surgeryType"`
	Diagnosis      string     `json:"diagnosis"`
	DiagnosisAnnex string     `json:"diagnosisAnnex"`
	Procedure      string     `json:"procedure"`
	ProcedureAnnex string     `json:"procedureAnnex"`
	AnesthesiaType string     `json:"anesthesiaType"`
	Pathology      bool       `json:"pathology"`
	Culture        bool       `json:"culture"`

	TechniqueDetail string `json:"techniqueDetail"`

	Surgeon          string `json:"surgeon"`
	Assistant1       string `json:"assistant1"`
	Assistant2       string `json:"assistant2"`
	Assistant3       string `json:"assistant3"`
	Anesthesiologist string `json:"anesthesiologist"`
	Instrumentator   string `json:"instrumentator"`
	CirculatingNurse string `json:"circulatingNurse"`
}

// SurgicalReport renders the operative report.
func SurgicalReport(data SurgicalReportData, physician Physician, generated time.Time) ([]byte, error) {
	d := newDocument("Parte Quirúrgico", physician, generated)

	d.section("Datos personales")
	d.fieldPair("Paciente:", Dash(data.PatientName), "DNI:", Dash(data.NationalID))
	d.fieldPair("Edad:", Dash(data.Age), "", "")
	d.fieldPair("Cobertura:", Dash(data.Insurer), "Afiliado:", Dash(data.BenefitNumber))

	d.section("Datos del procedimiento")
	d.fieldPair("Fecha:", Dash(FormatDate(data.Date)), "Horario:", Dash(Schedule(data.StartTime, data.EndTime)))
	if data.Institution != "" || data.SurgeryType != "" {
		d.fieldPair("Institución:", Dash(data.Institution), "Tipo de cirugía:", Dash(data.SurgeryType))
	}
	d.field("Diagnóstico:", Dash(data.Diagnosis))
	if data.DiagnosisAnnex != "" {
		d.field("    Detalle:", data.DiagnosisAnnex)
	}
	d.field("Procedimiento:", Dash(data.Procedure))
	if data.ProcedureAnnex != "" {
		d.field("    Observación:", data.ProcedureAnnex)
	}
	d.field("Tipo de anestesia:", Dash(data.AnesthesiaType))
	d.fieldPair("Patología:", YesNo(data.Pathology), "Cultivo:", YesNo(data.Culture))

	d.section("Técnica")
	paragraphs := TechniqueParagraphs(data.TechniqueDetail)
	if len(paragraphs) == 0 {
		d.muted("Sin descripción de técnica.")
	}
	for _, p := range paragraphs {
		d.paragraph(p)
		d.pdf.Ln(1)
	}

	d.section("Equipo quirúrgico")
	d.fieldPair("Cirujano:", Dash(data.Surgeon), "Instrumentador:", Dash(data.Instrumentator))
	d.fieldPair("1º Ayudante:", Dash(data.Assistant1), "Circulante:", Dash(data.CirculatingNurse))
	d.fieldPair("2º Ayudante:", Dash(data.Assistant2), "Anestesiólogo:", Dash(data.Anesthesiologist))
	d.fieldPair("3º Ayudante:", Dash(data.Assistant3), "", "")

	d.signature(physician)
	return d.bytes()
}
