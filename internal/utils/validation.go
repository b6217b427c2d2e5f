package utils

import (
	"cmp"
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid value for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid value: %s", e.Message)
}

// Validator checks a single value.
type Validator[T any] func(T) error

// ValidatorChain runs validators in order and stops at the first failure.
type ValidatorChain[T any] struct {
	validators []Validator[T]
}

// NewValidatorChain creates a new validator chain
func NewValidatorChain[T any](validators ...Validator[T]) *ValidatorChain[T] {
	return &ValidatorChain[T]{validators: validators}
}

// Add appends a validator to the chain
func (vc *ValidatorChain[T]) Add(validator Validator[T]) *ValidatorChain[T] {
	vc.validators = append(vc.validators, validator)
	return vc
}

// Validate runs all validators in the chain
func (vc *ValidatorChain[T]) Validate(value T) error {
	for _, validator := range vc.validators {
		if err := validator(value); err != nil {
			return err
		}
	}
	return nil
}

// NotEmpty rejects the empty string.
func NotEmpty(field string) Validator[string] {
	return func(value string) error {
		if value == "" {
			return ValidationError{Field: field, Value: value, Message: "cannot be empty"}
		}
		return nil
	}
}

// HasSuffix requires value to end with suffix.
func HasSuffix(field, suffix string) Validator[string] {
	return func(value string) error {
		if !strings.HasSuffix(value, suffix) {
			return ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("must end with '%s'", suffix),
			}
		}
		return nil
	}
}

// MatchesRegex requires value to match pattern. message describes the
// accepted form.
func MatchesRegex(field, pattern, message string) Validator[string] {
	re := regexp.MustCompile(pattern)
	return func(value string) error {
		if !re.MatchString(value) {
			return ValidationError{Field: field, Value: value, Message: message}
		}
		return nil
	}
}

// InRange requires lo <= value <= hi.
func InRange[T cmp.Ordered](field string, lo, hi T) Validator[T] {
	return func(value T) error {
		if value < lo || value > hi {
			return ValidationError{
				Field:   field,
				Value:   value,
				Message: fmt.Sprintf("must be between %v and %v, got %v", lo, hi, value),
			}
		}
		return nil
	}
}
