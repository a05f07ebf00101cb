package services

import (
	"errors"
	"fmt"

	apperrors "github.com/openexam/exam-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Exam specific errors
	ErrExamNotFound = errors.New("exam not found")

	// Question specific errors
	ErrQuestionNotFound       = errors.New("question not found")
	ErrQuestionInvalidType    = errors.New("invalid question type")
	ErrQuestionInvalidContent = errors.New("invalid answer data for question type")

	// Response specific errors
	ErrResponseNotFound = errors.New("response not found")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// UpstreamDeliveryError records one student's failed grade-passback POST. It is
// collected into the run summary, never raised out of the batch.
type UpstreamDeliveryError struct {
	UserID     string `json:"user_id"`
	TargetURL  string `json:"target_url,omitempty"`
	Reason     string `json:"reason"`
	Underlying error  `json:"-"`
}

func (ude *UpstreamDeliveryError) Error() string {
	return fmt.Sprintf("grade delivery failed for user %s: %s", ude.UserID, ude.Reason)
}

func (ude *UpstreamDeliveryError) Unwrap() error {
	return ude.Underlying
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrResponseNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}
