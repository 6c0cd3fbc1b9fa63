package diagnostic

import (
	"errors"
	"fmt"
	"strings"

	"simulation-parsers/internal/common"
)

// Codes used across the module.
const (
	CodeUnknownSection   = "unknown_section"
	CodeUnknownField     = "unknown_field"
	CodeUnknownTransform = "unknown_transform"
	CodeInvalidExpr      = "invalid_expression"
	CodeInvalidUnit      = "invalid_unit"
	CodeTransformFailed  = "transform_failed"
	CodeMalformedValue   = "malformed_value"
	CodeUnreadableFile   = "unreadable_file"
)

// DiagnosticSeverity orders entries from informational to fatal for the rule
// or field they concern.
type DiagnosticSeverity int

const (
	DiagnosticInfo DiagnosticSeverity = iota
	DiagnosticWarning
	DiagnosticError
)

var severityNames = [...]string{"info", "warning", "error"}

func (s DiagnosticSeverity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return common.UnknownStr
	}

	return severityNames[s]
}

// Diagnostic is one entry. Tag names the source tag of the rule file and
// FieldPath the rule target, e.g. "Outputs.total_energy".
type Diagnostic struct {
	Severity    DiagnosticSeverity
	Code        string
	Message     string
	Tag         string
	FieldPath   string
	Suggestions []string
}

// String renders "[tag] path: [code] message (did you mean a, b?)", leaving
// out the parts that are empty.
func (d Diagnostic) String() string {
	var b strings.Builder

	if d.Tag != "" {
		fmt.Fprintf(&b, "[%s] ", d.Tag)
	}

	if d.FieldPath != "" {
		b.WriteString(d.FieldPath)
		b.WriteString(": ")
	}

	if d.Code != "" {
		fmt.Fprintf(&b, "[%s] ", d.Code)
	}

	b.WriteString(d.Message)

	if len(d.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(d.Suggestions, ", "))
	}

	return b.String()
}

// Diagnostics is the outcome of one validation or mapping run, split by
// severity.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

func (d *Diagnostics) add(e Diagnostic) {
	switch e.Severity {
	case DiagnosticError:
		d.Errors = append(d.Errors, e)
	case DiagnosticWarning:
		d.Warnings = append(d.Warnings, e)
	default:
		d.Infos = append(d.Infos, e)
	}
}

func (d *Diagnostics) AddError(code, message, tag, fieldPath string) {
	d.add(Diagnostic{Severity: DiagnosticError, Code: code, Message: message, Tag: tag, FieldPath: fieldPath})
}

func (d *Diagnostics) AddWarning(code, message, tag, fieldPath string) {
	d.add(Diagnostic{Severity: DiagnosticWarning, Code: code, Message: message, Tag: tag, FieldPath: fieldPath})
}

func (d *Diagnostics) AddInfo(code, message, tag, fieldPath string) {
	d.add(Diagnostic{Severity: DiagnosticInfo, Code: code, Message: message, Tag: tag, FieldPath: fieldPath})
}

// AddSuggested adds an error naming the alternatives the author probably
// meant.
func (d *Diagnostics) AddSuggested(code, message, tag, fieldPath string, suggestions []string) {
	d.add(Diagnostic{
		Severity:    DiagnosticError,
		Code:        code,
		Message:     message,
		Tag:         tag,
		FieldPath:   fieldPath,
		Suggestions: suggestions,
	})
}

// Merge appends every entry of other.
func (d *Diagnostics) Merge(other Diagnostics) {
	for _, e := range other.All() {
		d.add(e)
	}
}

func (d *Diagnostics) Len() int {
	return len(d.Errors) + len(d.Warnings) + len(d.Infos)
}

// All returns errors, then warnings, then infos.
func (d *Diagnostics) All() []Diagnostic {
	all := make([]Diagnostic, 0, d.Len())
	all = append(all, d.Errors...)
	all = append(all, d.Warnings...)

	return append(all, d.Infos...)
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// IsValid reports whether there are no errors. Warnings and infos do not
// count.
func (d *Diagnostics) IsValid() bool {
	return !d.HasErrors()
}

// Error joins the error entries into one error, nil when there are none.
func (d *Diagnostics) Error() error {
	errs := make([]error, 0, len(d.Errors))
	for _, e := range d.Errors {
		errs = append(errs, errors.New(e.String()))
	}

	return errors.Join(errs...)
}
