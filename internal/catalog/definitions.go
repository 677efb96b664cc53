package catalog

import (
	"fmt"
	"strings"
)

// Policy decides what DELETE does to an entry.
type Policy int

const (
	// PolicySoftDelete deactivates the row and keeps it for historical lookups.
	PolicySoftDelete Policy = iota
	// PolicyHardDelete removes the row once no transactional row references it.
	PolicyHardDelete
)

// Reference is a foreign-key column in a transactional table that points at
// catalog ids.
type Reference struct {
	Table  string
	Column string
}

// Definition describes one catalog table and how clients address it.
type Definition struct {
	Slug       string
	Table      string
	Field      string
	Noun       string
	Feminine   bool
	Policy     Policy
	References []Reference
}

func (d Definition) article() string {
	if d.Feminine {
		return "La"
	}
	return "El"
}

func (d Definition) suffix() string {
	if d.Feminine {
		return "a"
	}
	return "o"
}

// DuplicateMessage is shown when an active entry already has the name.
func (d Definition) DuplicateMessage() string {
	return fmt.Sprintf("%s %s ya existe", d.article(), d.Noun)
}

// NotFoundMessage is shown for unknown ids.
func (d Definition) NotFoundMessage() string {
	return fmt.Sprintf("%s no encontrad%s", capitalize(d.Noun), d.suffix())
}

// RequiredMessage is shown for empty names.
func (d Definition) RequiredMessage() string {
	return fmt.Sprintf("El nombre de %s %s es obligatorio", articleLower(d), d.Noun)
}

// RequiredRefMessage is shown when a record omits a mandatory reference
// to this catalog.
func (d Definition) RequiredRefMessage() string {
	return fmt.Sprintf("%s es obligatori%s", capitalize(d.Noun), d.suffix())
}

// HistoricalNameMessage is shown when a rename targets the name of an
// inactive entry.
func (d Definition) HistoricalNameMessage() string {
	return fmt.Sprintf("Ese nombre ya existió como %s dad%s de baja. Si querés volver a usarlo, cargalo como nuevo desde 'Nuevo'.",
		d.Noun, d.suffix())
}

// InUseMessage is shown when a hard delete is blocked by references.
func (d Definition) InUseMessage(count int64) string {
	return fmt.Sprintf("No se puede eliminar: %s %s está en uso en %d registro(s)", articleLower(d), d.Noun, count)
}

func articleLower(d Definition) string {
	return strings.ToLower(d.article())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// Definitions is the fixed set of catalogs served under /bases.
var Definitions = []Definition{
	{Slug: "cirujanos", Table: "surgeons", Field: "nombre", Noun: "cirujano"},
	{Slug: "anestesiologos", Table: "anesthesiologists", Field: "nombre", Noun: "anestesiólogo"},
	{Slug: "instrumentadores", Table: "instrumentators", Field: "nombre", Noun: "instrumentador"},
	{Slug: "tecnicas", Table: "surgical_techniques", Field: "nombre_tecnica", Noun: "técnica", Feminine: true},
	{Slug: "diagnosticos", Table: "diagnoses", Field: "nombre_diagnostico", Noun: "diagnóstico"},
	{Slug: "especialidad", Table: "specialties", Field: "especialidad", Noun: "especialidad", Feminine: true},
	{Slug: "laboratorio", Table: "laboratory_types", Field: "laboratorio", Noun: "laboratorio"},
	{Slug: "imagenes", Table: "imaging_types", Field: "imagen", Noun: "estudio de imagen"},
	{Slug: "otros", Table: "other_study_types", Field: "estudio", Noun: "estudio"},
	{Slug: "tipos_anestesia", Table: "anesthesia_types", Field: "nombre", Noun: "tipo de anestesia"},
	{Slug: "procedimientos_base", Table: "base_procedures", Field: "procedimiento", Noun: "procedimiento"},
	{
		Slug: "motivos_consulta", Table: "consultation_reasons", Field: "motivo_consulta", Noun: "motivo de consulta",
		Policy: PolicyHardDelete, References: []Reference{{Table: "consultations", Column: "reason_id"}},
	},
	{
		Slug: "coberturas", Table: "insurers", Field: "nombre_cobertura", Noun: "cobertura", Feminine: true,
		Policy: PolicyHardDelete, References: []Reference{{Table: "patients", Column: "insurer_id"}},
	},
	{
		Slug: "nacionalidades", Table: "nationalities", Field: "nombre_nacionalidad", Noun: "nacionalidad", Feminine: true,
		Policy: PolicyHardDelete, References: []Reference{{Table: "patients", Column: "nationality_id"}},
	},
	{
		Slug: "localidades", Table: "localities", Field: "nombre_localidad", Noun: "localidad", Feminine: true,
		Policy: PolicyHardDelete, References: []Reference{{Table: "patients", Column: "locality_id"}},
	},
	{
		Slug: "derivadores", Table: "referrers", Field: "nombre_derivador", Noun: "derivador",
		Policy: PolicyHardDelete, References: []Reference{{Table: "appointments", Column: "referrer_id"}},
	},
	{
		Slug: "instituciones", Table: "institutions", Field: "institucion", Noun: "institución", Feminine: true,
		Policy: PolicyHardDelete, References: []Reference{{Table: "procedures", Column: "institution_id"}},
	},
}

// Registry resolves definitions by slug.
type Registry struct {
	bySlug map[string]Definition
	order  []Definition
}

func NewRegistry(defs []Definition) *Registry {
	r := &Registry{bySlug: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.bySlug[d.Slug] = d
		r.order = append(r.order, d)
	}
	return r
}

// DefaultRegistry serves the built-in catalogs.
func DefaultRegistry() *Registry {
	return NewRegistry(Definitions)
}

func (r *Registry) Lookup(slug string) (Definition, bool) {
	d, ok := r.bySlug[slug]
	return d, ok
}

// MustLookup panics on unknown slugs; for wiring code that names catalogs
// literally.
func (r *Registry) MustLookup(slug string) Definition {
	d, ok := r.bySlug[slug]
	if !ok {
		panic("catalog: unknown slug " + slug)
	}
	return d
}

func (r *Registry) All() []Definition {
	return r.order
}
