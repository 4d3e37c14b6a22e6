// Package validation provides centralized input validation and sanitization.
//
// SYSTEM ARCHITECTURE ROLE:
// Every request that reaches the relocation service passes through here first,
// whether it came from CLI flags, the TUI session or a JSON body on the host
// API. Inputs are converted to a parameter map and checked against a named schema.
//
// KEY RESPONSIBILITIES:
// - Define schemas for relocate, reorder, remove and save_preset requests
// - Convert loosely typed input (flag strings, JSON numbers) to Go types
// - Report every failed field, then convert the result to an AppError
// - Validate preset names before they are used as file names
//
// INTEGRATION POINTS:
// - internal/cli: relocation flags are validated before the service is called
// - internal/api/server.go: save and relocate bodies are validated per request
// - internal/storage: ValidatePresetName guards every file path
// - internal/errors: ValidationResult.ToAppError() converts failures
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dpshade/prompt-mover/internal/errors"
)

// FieldValidator provides validation rules for individual fields
type FieldValidator struct {
	Name      string
	Required  bool
	Type      string
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Options   []string
	Custom    func(interface{}) error
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool                   `json:"valid"`
	Errors []ValidationError      `json:"errors,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Schema represents a validation schema
type Schema struct {
	Name   string
	Fields map[string]FieldValidator
	Rules  []func(map[string]interface{}) error
}

// Validator provides centralized validation functionality
type Validator struct {
	schemas map[string]*Schema
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := &Validator{
		schemas: make(map[string]*Schema),
	}
	v.registerBuiltinSchemas()
	return v
}

// RegisterSchema registers a validation schema
func (v *Validator) RegisterSchema(schema *Schema) {
	v.schemas[schema.Name] = schema
}

// Validate validates data against a schema
func (v *Validator) Validate(schemaName string, data map[string]interface{}) *ValidationResult {
	schema, exists := v.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Code:    "SCHEMA_NOT_FOUND",
				Message: fmt.Sprintf("Validation schema '%s' not found", schemaName),
			}},
		}
	}

	result := &ValidationResult{
		Valid:  true,
		Errors: []ValidationError{},
		Data:   make(map[string]interface{}),
	}

	// fields are checked in name order so error messages are stable
	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v.validateField(name, schema.Fields[name], data, result)
	}

	for _, rule := range schema.Rules {
		if err := rule(data); err != nil {
			result.addError("schema", "SCHEMA_RULE_VIOLATION", err.Error(), nil)
		}
	}

	return result
}

func (result *ValidationResult) addError(field, code, message string, value interface{}) {
	result.Valid = false
	result.Errors = append(result.Errors, ValidationError{Field: field, Code: code, Message: message, Value: value})
}

// validateField validates a single field
func (v *Validator) validateField(fieldName string, validator FieldValidator, data map[string]interface{}, result *ValidationResult) {
	value, exists := data[fieldName]

	if validator.Required && (!exists || value == nil || value == "") {
		result.addError(fieldName, "REQUIRED_FIELD_MISSING", fmt.Sprintf("Field '%s' is required", fieldName), nil)
		return
	}
	if !exists || value == nil || value == "" {
		return
	}

	converted, err := convertType(fieldName, validator.Type, value)
	if err != nil {
		result.addError(fieldName, "INVALID_TYPE", err.Error(), value)
		return
	}
	result.Data[fieldName] = converted

	if str, ok := converted.(string); ok {
		if validator.MinLength > 0 && len(str) < validator.MinLength {
			result.addError(fieldName, "MIN_LENGTH_VIOLATION",
				fmt.Sprintf("Field '%s' must be at least %d characters long", fieldName, validator.MinLength), str)
		}
		if validator.MaxLength > 0 && len(str) > validator.MaxLength {
			result.addError(fieldName, "MAX_LENGTH_VIOLATION",
				fmt.Sprintf("Field '%s' must be at most %d characters long", fieldName, validator.MaxLength), str)
		}
		if validator.Pattern != nil && !validator.Pattern.MatchString(str) {
			result.addError(fieldName, "PATTERN_MISMATCH",
				fmt.Sprintf("Field '%s' does not match required pattern", fieldName), str)
		}
		if len(validator.Options) > 0 && !contains(validator.Options, str) {
			result.addError(fieldName, "INVALID_OPTION",
				fmt.Sprintf("Field '%s' must be one of: %s", fieldName, strings.Join(validator.Options, ", ")), str)
		}
	}

	if validator.Custom != nil {
		if err := validator.Custom(converted); err != nil {
			result.addError(fieldName, "CUSTOM_VALIDATION_FAILED", fmt.Sprintf("Field '%s': %s", fieldName, err.Error()), converted)
		}
	}
}

// convertType validates and converts value to the specified type
func convertType(fieldName, expectedType string, value interface{}) (interface{}, error) {
	switch expectedType {
	case "string":
		if str, ok := value.(string); ok {
			return str, nil
		}
		return fmt.Sprintf("%v", value), nil

	case "int":
		switch val := value.(type) {
		case int:
			return val, nil
		case float64:
			if val == float64(int(val)) {
				return int(val), nil
			}
		case string:
			if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return intVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be an integer", fieldName)

	case "bool":
		switch val := value.(type) {
		case bool:
			return val, nil
		case string:
			if boolVal, err := strconv.ParseBool(val); err == nil {
				return boolVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be a boolean", fieldName)

	case "present":
		return value, nil

	default:
		return value, nil
	}
}

// registerBuiltinSchemas registers the request schemas
func (v *Validator) registerBuiltinSchemas() {
	presetName := FieldValidator{
		Required:  true,
		Type:      "string",
		MaxLength: maxPresetNameLength,
		Custom: func(value interface{}) error {
			return ValidatePresetName(value.(string))
		},
	}
	identifier := FieldValidator{
		Required:  true,
		Type:      "string",
		MaxLength: maxIdentifierLength,
		Custom: func(value interface{}) error {
			return ValidateIdentifier(value.(string))
		},
	}
	slot := FieldValidator{
		Type: "int",
		Custom: func(value interface{}) error {
			if value.(int) < 0 {
				return fmt.Errorf("slot cannot be negative")
			}
			return nil
		},
	}
	anchor := FieldValidator{Type: "string", MaxLength: maxIdentifierLength}
	scope := FieldValidator{Type: "string", MaxLength: maxPresetNameLength}

	v.RegisterSchema(&Schema{
		Name: "relocate",
		Fields: map[string]FieldValidator{
			"source":     presetName,
			"target":     presetName,
			"identifier": identifier,
			"mode":       {Required: true, Type: "string", Options: []string{"copy", "move"}},
			"slot":       slot,
			"before":     anchor,
			"after":      anchor,
			"scope":      scope,
		},
		Rules: []func(map[string]interface{}) error{singlePosition},
	})

	v.RegisterSchema(&Schema{
		Name: "reorder",
		Fields: map[string]FieldValidator{
			"preset":     presetName,
			"identifier": identifier,
			"slot":       slot,
			"before":     anchor,
			"after":      anchor,
			"scope":      scope,
		},
		Rules: []func(map[string]interface{}) error{singlePosition, requirePosition},
	})

	v.RegisterSchema(&Schema{
		Name: "remove",
		Fields: map[string]FieldValidator{
			"preset":     presetName,
			"identifier": identifier,
		},
	})

	v.RegisterSchema(&Schema{
		Name: "save_preset",
		Fields: map[string]FieldValidator{
			"apiId":  {Type: "string", MaxLength: 100},
			"name":   presetName,
			"preset": {Required: true, Type: "present"},
		},
	})
}

func positionCount(data map[string]interface{}) int {
	n := 0
	for _, key := range []string{"slot", "before", "after"} {
		if v, ok := data[key]; ok && v != nil && v != "" {
			n++
		}
	}
	return n
}

// singlePosition rejects requests that address the slot more than one way
func singlePosition(data map[string]interface{}) error {
	if positionCount(data) > 1 {
		return fmt.Errorf("only one of slot, before or after may be given")
	}
	return nil
}

func requirePosition(data map[string]interface{}) error {
	if positionCount(data) == 0 {
		return fmt.Errorf("one of slot, before or after is required")
	}
	return nil
}

// ToAppError converts validation result to AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}
	if len(result.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	appErr := errors.ValidationError(result.Errors[0].Message)

	var details []string
	for _, validationErr := range result.Errors {
		details = append(details, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message))
	}
	appErr.WithDetails(strings.Join(details, "; "))
	appErr.WithContext("validation_errors", result.Errors)

	return appErr
}

// GetValidatedData returns the validated and converted data
func (result *ValidationResult) GetValidatedData() map[string]interface{} {
	if !result.Valid {
		return nil
	}
	return result.Data
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
