// Package services provides the business operations behind the HTTP API:
// CRUD with validation for policies, rules, schedules and the API catalog.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrPolicyNil             = errors.New("policy cannot be nil")
	ErrPolicyNameRequired    = errors.New("policy name is required")
	ErrRuleNameRequired      = errors.New("rule name is required")
	ErrRulePolicyRequired    = errors.New("rule must reference a policy")
	ErrInvalidActionJSON     = errors.New("action JSON is not valid JSON")
	ErrInvalidCronExpression = errors.New("invalid cron expression")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should
// return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPolicyNil) ||
		errors.Is(err, ErrPolicyNameRequired) ||
		errors.Is(err, ErrRuleNameRequired) ||
		errors.Is(err, ErrRulePolicyRequired) ||
		errors.Is(err, ErrInvalidActionJSON) ||
		errors.Is(err, ErrInvalidCronExpression)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
