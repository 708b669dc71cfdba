// Package persistence provides standardized error types for persistence
// operations.
package persistence

import "errors"

// Standard persistence error types that all backends should use.
var (
	ErrPolicyNotFound                = errors.New("policy not found")
	ErrRuleNotFound                  = errors.New("rule not found")
	ErrApiDefinitionNotFound         = errors.New("api definition not found")
	ErrSwaggerSourceNotFound         = errors.New("swagger source not found")
	ErrAuthenticationSettingNotFound = errors.New("authentication setting not found")
	ErrScheduleNotFound              = errors.New("schedule not found")
)

func IsPolicyNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound)
}

func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

func IsApiDefinitionNotFound(err error) bool {
	return errors.Is(err, ErrApiDefinitionNotFound)
}

func IsSwaggerSourceNotFound(err error) bool {
	return errors.Is(err, ErrSwaggerSourceNotFound)
}

func IsAuthenticationSettingNotFound(err error) bool {
	return errors.Is(err, ErrAuthenticationSettingNotFound)
}

func IsScheduleNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound)
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return IsPolicyNotFound(err) ||
		IsRuleNotFound(err) ||
		IsApiDefinitionNotFound(err) ||
		IsSwaggerSourceNotFound(err) ||
		IsAuthenticationSettingNotFound(err) ||
		IsScheduleNotFound(err)
}
