package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// LoanApplicationSchema describes the job variables of a loan application.
var LoanApplicationSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"monthly_income", "existing_emi", "loan_amount", "tenure_months"},
	"properties": map[string]interface{}{
		"monthly_income": map[string]interface{}{"type": "integer", "minimum": 1},
		"existing_emi":   map[string]interface{}{"type": "integer", "minimum": 0},
		"loan_amount":    map[string]interface{}{"type": "integer", "minimum": 1},
		"tenure_months":  map[string]interface{}{"type": "integer", "minimum": 1},
	},
}

// ExplanationSchema describes the structured output expected from the explanation generator.
var ExplanationSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"title", "message"},
	"properties": map[string]interface{}{
		"title":   map[string]interface{}{"type": "string", "minLength": 1, "pattern": `\S`},
		"message": map[string]interface{}{"type": "string", "minLength": 1, "pattern": `\S`},
	},
}

// ValidateDocument checks doc against schema. doc may be a Go value or a JSON string.
func ValidateDocument(schema map[string]interface{}, doc interface{}) (*ValidationResult, error) {
	schemaLoader := gojsonschema.NewGoLoader(schema)

	var documentLoader gojsonschema.JSONLoader
	if raw, ok := doc.(string); ok {
		documentLoader = gojsonschema.NewStringLoader(raw)
	} else {
		documentLoader = gojsonschema.NewGoLoader(doc)
	}

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
