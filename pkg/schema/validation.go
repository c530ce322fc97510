package schema

import "fmt"

// InvalidSelectionError reports a sub-prompt answer outside its allow-list.
type InvalidSelectionError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *InvalidSelectionError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InvalidSelectionError) Unwrap() error {
	return e.Err
}
