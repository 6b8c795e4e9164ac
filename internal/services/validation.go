package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxAmount is the ceiling for a single posting in minor currency units.
// Amounts above it risk overflowing downstream sums.
const MaxAmount = int64(10_000_000_000)

// MaxStringLength bounds free-form identifiers and descriptions.
const MaxStringLength = 255

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		if fieldErrs, ok := validationErr.(validator.ValidationErrors); ok {
			errorResp.Details = make(map[string]string)
			for _, err := range fieldErrs {
				errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
			}
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// Pure validators. No I/O; callable in isolation.

// ValidateAmount accepts a positive number of minor currency units below the
// overflow ceiling.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if amount > MaxAmount {
		return &ValidationError{Field: "amount", Reason: fmt.Sprintf("exceeds maximum of %d minor units", MaxAmount)}
	}
	return nil
}

// NormalizeString trims s and rejects values that are empty after trimming or
// longer than MaxStringLength.
func NormalizeString(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(s) > MaxStringLength {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("exceeds %d characters", MaxStringLength)}
	}
	return s, nil
}

// ValidateEmail checks RFC 5322 address syntax.
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	return nil
}

// ValidateUUID checks canonical UUID formatting.
func ValidateUUID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Field: field, Reason: "not a valid UUID"}
	}
	return nil
}

// ValidateDate checks YYYY-MM-DD formatting.
func ValidateDate(field, date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return &ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// ValidateSplitBps checks a basis-points share is within 0..10000.
func ValidateSplitBps(bps int) error {
	if bps < 0 || bps > 10000 {
		return &ValidationError{Field: "split_bps", Reason: "must be between 0 and 10000"}
	}
	return nil
}
