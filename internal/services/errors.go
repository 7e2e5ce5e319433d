package services

import (
	"errors"
	"fmt"

	apperrors "github.com/language-gems/analytics-service/internal/errors"
	"github.com/language-gems/analytics-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")

	// Analytics specific errors
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrClassNotFound        = errors.New("class not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidGameConfig    = errors.New("invalid game configuration")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// DownstreamError is a failed read against the event store.
type DownstreamError = repositories.DownstreamError

type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Is lets errors.Is(err, ErrForbidden) match any PermissionError.
func (pe *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrOrganizationNotFound) ||
		errors.Is(err, repositories.ErrNotFound)
}

// IsForbidden checks if the teacher does not own the referenced resource.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidGameConfig) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsDownstream checks if a database read failed.
func IsDownstream(err error) bool {
	return repositories.IsDownstream(err)
}
