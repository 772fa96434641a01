package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorePatientName(t *testing.T) {
	tests := []struct {
		in      string
		success bool
		reject  RejectType
	}{
		{"陳大明", true, ""},
		{"  John Smith ", true, ""},
		{"Mrs. Lee", true, ""},
		{"", false, RejectEmptyName},
		{"   ", false, RejectEmptyName},
		{"A2", false, RejectShadeCode},
		{"b3.5", false, RejectShadeCode},
		{"3630", false, RejectProductCode},
		{"3630, 3631", false, RejectProductCode},
		{"2", false, RejectSelectionResponse},
		{"12", false, RejectSelectionResponse},
		{"NP", false, RejectMaterialTerm},
		{"Ti", false, RejectMaterialTerm},
		{"Palladium-based", false, RejectMaterialTerm},
		{"IPS e.max", false, RejectMaterialTerm},
		{"zirconia", false, RejectMaterialTerm},
		{"PFM", false, RejectMaterialTerm},
	}
	for _, tt := range tests {
		res := StorePatientName(tt.in)
		assert.Equal(t, tt.success, res.Success, tt.in)
		assert.Equal(t, tt.reject, res.ErrorType, tt.in)
		assert.NotEmpty(t, res.Message, tt.in)
	}

	assert.Equal(t, "John Smith", StorePatientName("  John Smith ").PatientName)
}

func TestStoreShade(t *testing.T) {
	for _, in := range []string{"A2", "a1", "D4", "C3.5"} {
		assert.True(t, StoreShade(in).Success, in)
	}
	assert.Equal(t, "C3.5", StoreShade(" c3.5 ").Shade)

	for _, in := range []string{"", "E1", "A5", "A22", "bleach"} {
		res := StoreShade(in)
		assert.False(t, res.Success, in)
		assert.Equal(t, RejectInvalidShade, res.ErrorType, in)
	}
}
