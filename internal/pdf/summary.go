package pdf

import "time"

// PatientInfo is the personal-data block of a summary.
type PatientInfo struct {
	Name          string
	NationalID    string
	BirthDate     time.Time
	Sex           string
	Insurer       string
	BenefitNumber string
	Nationality   string
	Locality      string
	Phone         string
	Email         string
}

// HistoryInfo is the patient's background.
type HistoryInfo struct {
	Medical         string
	Surgical        string
	Allergic        string
	Toxic           string
	Family          string
	GynecoObstetric string
}

type StudyLine struct {
	Date        time.Time
	Kind        string
	Name        string
	Description string
}

type ProcedureLine struct {
	Date        time.Time
	Name        string
	Institution string
	Diagnosis   string
}

type InterconsultationLine struct {
	Date        time.Time
	Specialty   string
	Description string
}

type EvolutionLine struct {
	Date    time.Time
	Content string
}

type ConsultationLine struct {
	Date       time.Time
	Reason     string
	Evolutions []EvolutionLine
}

// ClinicalSummaryData feeds ClinicalSummary.
type ClinicalSummaryData struct {
	Patient            PatientInfo
	History            HistoryInfo
	Studies            []StudyLine
	Procedures         []ProcedureLine
	Interconsultations []InterconsultationLine
	Consultations      []ConsultationLine
}

// ClinicalSummary renders the clinical-history summary of one patient.
func ClinicalSummary(data ClinicalSummaryData, physician Physician, generated time.Time) ([]byte, error) {
	d := newDocument("Resumen de Historia Clínica", physician, generated)
	p := data.Patient

	d.section("Datos personales")
	d.fieldPair("Paciente:", Dash(p.Name), "DNI:", Dash(p.NationalID))
	d.fieldPair("Nacimiento:", Dash(FormatDate(p.BirthDate)), "Edad:", Dash(Age(p.BirthDate, generated)))
	d.fieldPair("Sexo:", Dash(p.Sex), "Nacionalidad:", Dash(p.Nationality))
	d.fieldPair("Cobertura:", Dash(p.Insurer), "Afiliado:", Dash(p.BenefitNumber))
	d.fieldPair("Localidad:", Dash(p.Locality), "Teléfono:", Dash(p.Phone))
	d.field("Email:", Dash(p.Email))

	h := data.History
	d.section("Antecedentes")
	d.field("Médicos:", Dash(h.Medical))
	d.field("Quirúrgicos:", Dash(h.Surgical))
	d.field("Alérgicos:", Dash(h.Allergic))
	d.field("Tóxicos:", Dash(h.Toxic))
	d.field("Familiares:", Dash(h.Family))
	d.field("Gineco-obstétricos:", Dash(h.GynecoObstetric))

	d.section("Estudios complementarios")
	if len(data.Studies) == 0 {
		d.muted("Sin estudios registrados.")
	}
	for _, s := range data.Studies {
		d.field(FormatDate(s.Date)+" · "+s.Kind+":", Dash(s.Name))
		if s.Description != "" {
			d.paragraph(s.Description)
		}
	}

	d.section("Procedimientos")
	if len(data.Procedures) == 0 {
		d.muted("Sin procedimientos registrados.")
	}
	for _, pr := range data.Procedures {
		d.field(FormatDate(pr.Date)+":", Dash(pr.Name))
		if pr.Institution != "" || pr.Diagnosis != "" {
			d.fieldPair("    Institución:", Dash(pr.Institution), "Diagnóstico:", Dash(pr.Diagnosis))
		}
	}

	d.section("Interconsultas")
	if len(data.Interconsultations) == 0 {
		d.muted("Sin interconsultas registradas.")
	}
	for _, ic := range data.Interconsultations {
		d.field(FormatDate(ic.Date)+":", Dash(ic.Specialty))
		if ic.Description != "" {
			d.paragraph(ic.Description)
		}
	}

	d.section("Consultas y evoluciones")
	if len(data.Consultations) == 0 {
		d.muted("Sin consultas registradas.")
	}
	for _, c := range data.Consultations {
		d.field(FormatDate(c.Date)+" · Motivo:", Dash(c.Reason))
		for _, ev := range c.Evolutions {
			d.inline(0, "    "+FormatDate(ev.Date)+":", "", 1)
			d.paragraph(ev.Content)
		}
	}

	d.signature(physician)
	return d.bytes()
}
