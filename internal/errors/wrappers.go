package errors

import (
	stderrors "errors"
	"fmt"
)

// Is and As forward to the standard library so callers only need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// CodeOf returns the ErrorCode of the first ExpandError in err's chain.
func CodeOf(err error) ErrorCode {
	var expandErr ExpandError
	if As(err, &expandErr) {
		return expandErr.ErrorCode()
	}
	return UnknownErrorCode
}

// WrapParseError wraps an error with a "failed to parse" message
func WrapParseError(item string, cause error) *SyntaxError {
	message := fmt.Sprintf("failed to parse %s", item)
	err := &SyntaxError{
		BaseError: Wrap(SyntaxErrorCode, message, cause),
	}
	var expandErr ExpandError
	if As(cause, &expandErr) {
		err.Where = expandErr.Span()
	}
	return err
}

// WrapFileSystemError wraps file system related errors
func WrapFileSystemError(operation, path string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s file '%s'", operation, path)
	return Wrap(FileSystemErrorCode, message, cause).
		WithContext("operation", operation).
		WithContext("path", path)
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(configFile, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, configFile)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("config_file", configFile).
		WithContext("operation", operation)
}

// WithFallbackSpan pins err to span when it carries no location of its own.
func WithFallbackSpan(err error, span Span) error {
	var expandErr ExpandError
	if !As(err, &expandErr) || !expandErr.Span().IsEmpty() {
		return err
	}
	if spanned, ok := expandErr.(interface{ WithSpan(Span) *BaseError }); ok {
		spanned.WithSpan(span)
	}
	return err
}
