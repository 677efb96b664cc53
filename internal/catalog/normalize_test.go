package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hemograma", "hemograma"},
		{"  Juan   Pérez ", "juan perez"},
		{"juan perez", "juan perez"},
		{"Dr. Smith", "dr. smith"},
		{"dr.  smith", "dr. smith"},
		{"ECOGRAFÍA\tABDOMINAL", "ecografia abdominal"},
		{"Colecistectomía\nlaparoscópica", "colecistectomia laparoscopica"},
		{"Ñandú", "nandu"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestCleanNameKeepsInnerSpacing(t *testing.T) {
	assert.Equal(t, "Juan   Pérez", CleanName("  Juan   Pérez "))
}

func TestDefinitionMessagesFollowGender(t *testing.T) {
	reg := DefaultRegistry()
	surgeons := reg.MustLookup("cirujanos")
	insurers := reg.MustLookup("coberturas")

	assert.Equal(t, "Cirujano es obligatorio", surgeons.RequiredRefMessage())
	assert.Equal(t, "Cobertura es obligatoria", insurers.RequiredRefMessage())
	assert.Equal(t, "Cirujano no encontrado", surgeons.NotFoundMessage())
	assert.Equal(t, "Cobertura no encontrada", insurers.NotFoundMessage())
}
