package lookgen

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Standard sentinel errors for generation failures.
var (
	// ErrConfiguration is returned for bad or contradictory namespace
	// configuration. It is fatal for the whole run.
	ErrConfiguration = errors.New("lookgen: invalid configuration")

	// ErrUnsupportedSchema is returned when a column kind has no generation
	// rule. It is fatal for the affected table's view only.
	ErrUnsupportedSchema = errors.New("lookgen: unsupported schema")

	// ErrJoinKeyMissing is returned when a required join key is absent from a
	// schema. It is fatal for the affected namespace only.
	ErrJoinKeyMissing = errors.New("lookgen: join key missing")

	// ErrTemplateBinding is returned when a dashboard element references a
	// field its explore does not expose. It is fatal for that dashboard only.
	ErrTemplateBinding = errors.New("lookgen: template binding failed")

	// ErrProtectedFile is returned when generation would modify a protected
	// output path. It is fatal for the whole run and never auto-resolved.
	ErrProtectedFile = errors.New("lookgen: protected file conflict")
)

// ConfigError represents a namespace configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("lookgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("lookgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError returns a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// SchemaError represents a column that cannot be mapped to a dimension or
// measure. Columns are surfaced, never silently dropped, so the error always
// identifies the table and column.
type SchemaError struct {
	Table   string
	Column  string
	Kind    string
	Message string
	Cause   error
}

// Error returns the error string.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("lookgen: schema error")
	if e.Table != "" {
		b.WriteString(" on table ")
		b.WriteString(e.Table)
	}
	if e.Column != "" {
		b.WriteString(" column ")
		b.WriteString(e.Column)
	}
	if e.Kind != "" {
		b.WriteString(" (type ")
		b.WriteString(e.Kind)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrUnsupportedSchema
}

// NewSchemaError returns a new SchemaError.
func NewSchemaError(table, column, kind, message string) *SchemaError {
	return &SchemaError{Table: table, Column: column, Kind: kind, Message: message}
}

// IsSchemaError reports whether err is an unsupported schema error.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrUnsupportedSchema)
}

// JoinError represents a missing or invalid join key between two views.
type JoinError struct {
	Namespace string
	Left      string
	Right     string
	Key       string
	Message   string
}

// Error returns the error string.
func (e *JoinError) Error() string {
	var b strings.Builder
	b.WriteString("lookgen: join error")
	if e.Namespace != "" {
		b.WriteString(" in namespace ")
		b.WriteString(e.Namespace)
	}
	if e.Left != "" && e.Right != "" {
		fmt.Fprintf(&b, " joining %s to %s", e.Left, e.Right)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " on %q", e.Key)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for JoinError.
func (e *JoinError) Is(target error) bool {
	return target == ErrJoinKeyMissing
}

// NewJoinError returns a new JoinError.
func NewJoinError(namespace, left, right, key, message string) *JoinError {
	return &JoinError{Namespace: namespace, Left: left, Right: right, Key: key, Message: message}
}

// IsJoinError reports whether err is a join key error.
func IsJoinError(err error) bool {
	return errors.Is(err, ErrJoinKeyMissing)
}

// BindingError represents a dashboard element referencing a field that the
// bound explore does not expose. This is a generation-time contract violation
// and is raised before any text is emitted.
type BindingError struct {
	Dashboard string
	Element   string
	Explore   string
	Field     string
}

// Error returns the error string.
func (e *BindingError) Error() string {
	return fmt.Sprintf(
		"lookgen: binding error in dashboard %q: element %q references field %q not exposed by explore %q",
		e.Dashboard, e.Element, e.Field, e.Explore,
	)
}

// Is reports whether the target matches the sentinel error for BindingError.
func (e *BindingError) Is(target error) bool {
	return target == ErrTemplateBinding
}

// NewBindingError returns a new BindingError.
func NewBindingError(dashboard, element, explore, field string) *BindingError {
	return &BindingError{Dashboard: dashboard, Element: element, Explore: explore, Field: field}
}

// IsBindingError reports whether err is a template binding error.
func IsBindingError(err error) bool {
	return errors.Is(err, ErrTemplateBinding)
}

// ConflictError represents protected output paths whose newly rendered
// content differs from their last-known-good content. The run fails closed
// instead of overwriting hand-maintained files.
type ConflictError struct {
	Paths []string
}

// Error returns the error string with the offending paths sorted.
func (e *ConflictError) Error() string {
	paths := append([]string(nil), e.Paths...)
	sort.Strings(paths)
	return fmt.Sprintf("lookgen: protected file conflict: %s", strings.Join(paths, ", "))
}

// Is reports whether the target matches the sentinel error for ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrProtectedFile
}

// NewConflictError returns a new ConflictError for the given paths.
func NewConflictError(paths ...string) *ConflictError {
	return &ConflictError{Paths: paths}
}

// IsConflictError reports whether err is a protected file conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrProtectedFile)
}

// AggregateError collects several errors into one. The generation report uses
// it so one bad input does not hide the other failures in the same run.
type AggregateError struct {
	Errors []error
}

// Error returns all collected error strings joined by "; ".
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "lookgen: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("lookgen: %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap returns the collected errors for errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns nil when errs is empty, the single error when it
// holds one, and an AggregateError otherwise.
func NewAggregateError(errs ...error) error {
	nonNil := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &AggregateError{Errors: nonNil}
	}
}
