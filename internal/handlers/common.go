package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"surgical-records-server/internal/apperr"
	"surgical-records-server/internal/catalog"
	"surgical-records-server/internal/utils"
)

// Catalog slugs referenced by transactional handlers.
const (
	slugSurgeons          = "cirujanos"
	slugAnesthesiologists = "anestesiologos"
	slugInstrumentators   = "instrumentadores"
	slugTechniques        = "tecnicas"
	slugDiagnoses         = "diagnosticos"
	slugSpecialties       = "especialidad"
	slugLaboratory        = "laboratorio"
	slugImaging           = "imagenes"
	slugOtherStudies      = "otros"
	slugAnesthesiaTypes   = "tipos_anestesia"
	slugBaseProcedures    = "procedimientos_base"
	slugReasons           = "motivos_consulta"
	slugInsurers          = "coberturas"
	slugNationalities     = "nacionalidades"
	slugLocalities        = "localidades"
	slugReferrers         = "derivadores"
	slugInstitutions      = "instituciones"
)

// Catalogs gives transactional handlers access to reference validation and
// name resolution.
type Catalogs struct {
	Manager  *catalog.Manager
	Registry *catalog.Registry
}

func (cs Catalogs) def(slug string) catalog.Definition {
	return cs.Registry.MustLookup(slug)
}

// require checks that id names an entry of the catalog. Inactive entries
// are accepted so records can be edited without losing historical values.
func (cs Catalogs) require(ctx context.Context, slug, id string) error {
	def := cs.def(slug)
	if strings.TrimSpace(id) == "" {
		return apperr.Validation(def.RequiredRefMessage())
	}
	if _, err := cs.Manager.Get(ctx, def, id); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.Validation(def.NotFoundMessage())
		}
		return err
	}
	return nil
}

// requireOptional is require for nullable references.
func (cs Catalogs) requireOptional(ctx context.Context, slug string, id *string) error {
	if id == nil {
		return nil
	}
	return cs.require(ctx, slug, *id)
}

// name resolves an optional reference to its display name.
func (cs Catalogs) name(ctx context.Context, slug string, id *string) string {
	return cs.Manager.Resolve(ctx, cs.def(slug), id)
}

func (cs Catalogs) nameOf(ctx context.Context, slug, id string) string {
	return cs.Manager.Resolve(ctx, cs.def(slug), &id)
}

// optionalID turns blank ids into nil.
func optionalID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

// first loads one row by id into dest, answering 404 with msg when absent.
func first(c *gin.Context, db *gorm.DB, dest any, id, msg string) bool {
	if err := db.WithContext(c.Request.Context()).First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, msg)
		} else {
			utils.RespondError(c, err)
		}
		return false
	}
	return true
}

// exists reports whether a row with id exists in model's table.
func exists(ctx context.Context, db *gorm.DB, model any, id string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

const (
	msgPatientNotFound      = "Paciente no encontrado"
	msgProcedureNotFound    = "Procedimiento no encontrado"
	msgConsultationNotFound = "Consulta no encontrada"
)
