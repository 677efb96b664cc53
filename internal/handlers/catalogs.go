package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"surgical-records-server/internal/catalog"
	"surgical-records-server/internal/utils"
)

// CatalogHandler serves every catalog under /bases/:catalog.
type CatalogHandler struct {
	Manager  *catalog.Manager
	Registry *catalog.Registry
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(m *catalog.Manager, reg *catalog.Registry) *CatalogHandler {
	return &CatalogHandler{Manager: m, Registry: reg}
}

func (h *CatalogHandler) definition(c *gin.Context) (catalog.Definition, bool) {
	def, ok := h.Registry.Lookup(c.Param("catalog"))
	if !ok {
		utils.NotFound(c, "Catálogo no encontrado")
	}
	return def, ok
}

// decodeName reads a body holding exactly one of "name" or the catalog's
// legacy field, with a string value. Repeated keys are rejected.
func decodeName(c *gin.Context, def catalog.Definition) (string, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "No se pudo leer el cuerpo de la solicitud")
		return "", false
	}
	name, msg := parseNameBody(raw, def.Field)
	if msg != "" {
		utils.BadRequest(c, msg)
		return "", false
	}
	return name, true
}

// parseNameBody walks the object token by token so duplicate keys are seen.
// It returns the name, or a non-empty message describing the rejection.
func parseNameBody(raw []byte, field string) (string, string) {
	const notObject = "El cuerpo debe ser un objeto JSON"
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", notObject
	}

	var (
		name string
		seen = map[string]bool{}
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", notObject
		}
		key, _ := tok.(string)
		if seen[key] {
			return "", "Campo repetido: " + key
		}
		seen[key] = true
		if key != "name" && key != field {
			return "", "Campo desconocido: " + key
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return "", notObject
		}
		if err := json.Unmarshal(value, &name); err != nil {
			return "", "El campo '" + key + "' debe ser texto"
		}
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return "", notObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", notObject
	}
	if len(seen) != 1 {
		return "", "Se espera exactamente uno de 'name' o '" + field + "'"
	}
	return name, ""
}

// List returns the active entries of a catalog.
func (h *CatalogHandler) List(c *gin.Context) {
	def, ok := h.definition(c)
	if !ok {
		return
	}
	utils.Success(c, "Catalog fetched successfully", catalog.Items(h.Manager.List(c.Request.Context(), def)))
}

// Search returns active entries whose name contains q.
func (h *CatalogHandler) Search(c *gin.Context) {
	def, ok := h.definition(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.Manager.Search(c.Request.Context(), def, c.Query("q"), limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Catalog searched successfully", catalog.Items(entries))
}

// Create adds an entry, or reactivates an inactive one with the same name.
func (h *CatalogHandler) Create(c *gin.Context) {
	def, ok := h.definition(c)
	if !ok {
		return
	}
	name, ok := decodeName(c, def)
	if !ok {
		return
	}
	entry, outcome, err := h.Manager.Create(c.Request.Context(), def, name)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	msg := "Entry created successfully"
	if outcome == catalog.OutcomeReactivated {
		msg = "Entry reactivated successfully"
	}
	utils.Created(c, msg, entry.Item())
}

// Update renames an entry.
func (h *CatalogHandler) Update(c *gin.Context) {
	def, ok := h.definition(c)
	if !ok {
		return
	}
	name, ok := decodeName(c, def)
	if !ok {
		return
	}
	entry, err := h.Manager.Rename(c.Request.Context(), def, c.Param("id"), name)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Entry updated successfully", entry.Item())
}

// Delete deactivates an entry, or removes it for catalogs with a hard
// delete policy.
func (h *CatalogHandler) Delete(c *gin.Context) {
	def, ok := h.definition(c)
	if !ok {
		return
	}
	if err := h.Manager.Delete(c.Request.Context(), def, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Entry deleted successfully", gin.H{"ok": true})
}
