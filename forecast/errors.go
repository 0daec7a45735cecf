package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrStructure classifies failures caused by a missing section or node.
	ErrStructure = errors.New("forecast document structure")
	// ErrConversion classifies failures caused by non-numeric text in a numeric field.
	ErrConversion = errors.New("forecast value conversion")
)

// SectionError reports a missing section or too few periods inside one.
type SectionError struct {
	Section string
	Want    int
	Got     int
}

func (e *SectionError) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("section '%s' not found in document", e.Section)
	}
	return fmt.Sprintf("section '%s' has %d forecastday entries, need at least %d", e.Section, e.Got, e.Want)
}

// Is reports whether target is ErrStructure.
func (e *SectionError) Is(target error) bool {
	return target == ErrStructure
}

// FieldError reports a node missing from a forecast period.
type FieldError struct {
	Section string
	Period  int
	Field   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field '%s' missing from %s period %d", e.Field, e.Section, e.Period)
}

// Is reports whether target is ErrStructure.
func (e *FieldError) Is(target error) bool {
	return target == ErrStructure
}

// ConversionError reports a field whose text is not the expected number.
type ConversionError struct {
	Section string
	Period  int
	Field   string
	Value   string
	Err     error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("field '%s' in %s period %d: cannot convert %q: %v", e.Field, e.Section, e.Period, e.Value, e.Err)
}

// Is reports whether target is ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
