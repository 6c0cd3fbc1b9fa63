package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/diagnostic"
	"simulation-parsers/internal/schema"
)

func validateYAML(t *testing.T, src string, funcs *TransformRegistry) *diagnostic.Diagnostics {
	t.Helper()

	rs, err := Load([]byte(src))
	require.NoError(t, err)

	return Validate(rs, schema.MustBuild(&archive.Simulation{}), funcs)
}

func TestValidate_Valid(t *testing.T) {
	funcs := NewTransformRegistry()
	funcs.MustRegister("get_forces", "", noop)
	funcs.MustRegister("get_xc_functionals", "", noop)
	funcs.MustRegister("to_float", "", noop)

	d := validateYAML(t, sampleRules, funcs)
	assert.True(t, d.IsValid(), d.Error())
	assert.Empty(t, d.Warnings)
}

func TestValidate_Problems(t *testing.T) {
	funcs := NewTransformRegistry()
	funcs.MustRegister("get_forces", "", noop)

	tests := []struct {
		name     string
		rule     string
		code     string
		severity diagnostic.DiagnosticSeverity
		suggest  []string
	}{
		{"unknown section", "Output.n_points: a", diagnostic.CodeUnknownSection, diagnostic.DiagnosticError, []string{"Outputs"}},
		{"unknown field", "Outputs.totl_energy: a", diagnostic.CodeUnknownField, diagnostic.DiagnosticError, []string{"total_energy"}},
		{"unknown transform", "Outputs.total_force: get_force(.@)", diagnostic.CodeUnknownTransform, diagnostic.DiagnosticError, []string{"get_forces"}},
		{"unknown transform in search", "Outputs.n_points: {expr: a, search: 'count(@)'}", diagnostic.CodeUnknownTransform, diagnostic.DiagnosticError, nil},
		{"unknown unit", "TotalEnergy.value: {expr: a, unit: furlong}", diagnostic.CodeInvalidUnit, diagnostic.DiagnosticError, nil},
		{"unit on plain field", "Outputs.n_points: {expr: a, unit: hartree}", diagnostic.CodeInvalidUnit, diagnostic.DiagnosticWarning, nil},
		{"unit on section rule", "Outputs: {expr: '@', unit: hartree}", diagnostic.CodeInvalidUnit, diagnostic.DiagnosticWarning, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validateYAML(t, "tags:\n  info:\n    "+tt.rule+"\n", funcs)
			require.Equal(t, 1, d.Len(), d.All())

			got := d.All()[0]
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, "info", got.Tag)

			if tt.suggest != nil {
				assert.Equal(t, tt.suggest, got.Suggestions)
			}
		})
	}
}

func TestValidate_LengthIsBuiltin(t *testing.T) {
	d := validateYAML(t, "tags:\n  info:\n    Outputs.n_points: length(.point)\n", nil)
	assert.True(t, d.IsValid(), d.Error())
}

func TestValidate_Nil(t *testing.T) {
	d := Validate(nil, nil, nil)
	assert.True(t, d.HasErrors())

	d = Validate(NewRuleSet(), nil, nil)
	assert.True(t, d.HasErrors())
}

func TestValidateError(t *testing.T) {
	rs, err := Load([]byte("tags:\n  info:\n    Outputs.totl_energy: a\n"))
	require.NoError(t, err)

	err = ValidateError(rs, schema.MustBuild(&archive.Simulation{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}
