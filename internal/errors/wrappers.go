package errors

import "fmt"

// WrapFileAccessError wraps an I/O failure on a source path
func WrapFileAccessError(operation, path string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s '%s'", operation, path)
	return Wrap(FileAccessErrorCode, message, cause).
		WithLocation(SourceLocation{File: path}).
		WithContext("operation", operation)
}

// WrapSyntaxError wraps a front-end parse failure for a whole file
func WrapSyntaxError(front, path string, cause error) *BaseError {
	message := fmt.Sprintf("%s front-end could not parse file", front)
	return Wrap(SyntaxErrorCode, message, cause).
		WithLocation(SourceLocation{File: path}).
		WithContext("front", front)
}

// NewSyntaxError reports a parse failure at a specific line
func NewSyntaxError(path string, line int, format string, args ...interface{}) *BaseError {
	return Newf(SyntaxErrorCode, format, args...).
		WithLocation(SourceLocation{File: path, Line: line})
}

// NewAmbiguousFact reports a fact resolved by its conservative default
func NewAmbiguousFact(path string, line int, format string, args ...interface{}) *BaseError {
	return Newf(AmbiguousFactErrorCode, format, args...).
		WithLocation(SourceLocation{File: path, Line: line})
}

// NewUnsupportedConstruct reports a recognized but unhandled registration form
func NewUnsupportedConstruct(path string, line int, format string, args ...interface{}) *BaseError {
	return Newf(UnsupportedConstructErrorCode, format, args...).
		WithLocation(SourceLocation{File: path, Line: line})
}

// NewConflict reports two definitions competing for the same key. The first
// location is kept as the error location, the second goes into the context.
func NewConflict(kind, key string, first, second SourceLocation) *BaseError {
	return Newf(ConflictErrorCode, "conflicting %s '%s' (kept %s, ignored %s)", kind, key, first, second).
		WithLocation(first).
		WithContext("kind", kind).
		WithContext("key", key).
		WithContext("second", second.String()).
		WithSuggestion(fmt.Sprintf("Check the duplicate declaration at %s", second))
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(setting string, cause error) *BaseError {
	message := fmt.Sprintf("invalid configuration '%s'", setting)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("setting", setting)
}

// WrapEmitError wraps failures while rendering or writing the document
func WrapEmitError(operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s document", operation)
	return Wrap(EmitErrorCode, message, cause).
		WithContext("operation", operation)
}
