package listings

import (
	"fmt"
	"strings"
)

// ParseError means the agent output is not well-formed JSON at all
type ParseError struct {
	Message string
	Raw     string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// FieldError is a single schema violation at a JSON path
type FieldError struct {
	Field   string
	Message string
}

// SchemaError means the output parsed but does not have the listing shape
type SchemaError struct {
	Message string
	Errors  []FieldError
}

func (e *SchemaError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("schema error: %s", e.Message)
	}

	var sb strings.Builder
	sb.WriteString("schema error: ")
	sb.WriteString(e.Message)
	for i, fe := range e.Errors {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return sb.String()
}
