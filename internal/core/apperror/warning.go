package apperror

import "fmt"

// Warning codes. Warnings never abort an operation; they ride on a successful result.
const (
	WarnZeroUnitCost     = "ZERO_UNIT_COST"
	WarnZeroCount        = "ZERO_COUNT"
	WarnCategoryCollapse = "CATEGORY_COLLAPSE"
	WarnMissingOpening   = "MISSING_OPENING"
	WarnPreviousOpen     = "PREVIOUS_PERIOD_OPEN"
)

// Warning is a non-fatal finding that needs human review.
type Warning struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewWarning creates a warning with the given code.
func NewWarning(code, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With adds a detail to the warning.
func (w Warning) With(key string, value any) Warning {
	details := make(map[string]any, len(w.Details)+1)
	for k, v := range w.Details {
		details[k] = v
	}
	details[key] = value
	w.Details = details
	return w
}

// Warnings is an ordered collection of warnings.
type Warnings []Warning

// Add appends warnings.
func (ws *Warnings) Add(w ...Warning) {
	*ws = append(*ws, w...)
}

// Has reports whether a warning with the code was collected.
func (ws Warnings) Has(code string) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Count returns how many warnings carry the code.
func (ws Warnings) Count(code string) int {
	n := 0
	for _, w := range ws {
		if w.Code == code {
			n++
		}
	}
	return n
}
