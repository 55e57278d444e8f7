// Package errors provides the coded error taxonomy shared across the pipeline.
package errors

import "fmt"

// Code classifies a failure for routing: capture-fatal errors terminate the
// capture stage, everything else is contained and reported through the sinks.
type Code int

const (
	Unknown Code = iota

	// DeviceLost means the audio device disappeared or the stream broke.
	// The only capture-fatal code.
	DeviceLost

	// Transcription failures; both drop the utterance.
	EngineUnavailable
	EmptyResult

	// Suggestion-service failures; all surface as a notification.
	AuthFailed
	RateLimited
	Timeout
	MalformedResponse
	Unavailable

	Canceled
)

var codeNames = map[Code]string{
	Unknown:           "UNKNOWN",
	DeviceLost:        "DEVICE_LOST",
	EngineUnavailable: "ENGINE_UNAVAILABLE",
	EmptyResult:       "EMPTY_RESULT",
	AuthFailed:        "AUTH_FAILED",
	RateLimited:       "RATE_LIMITED",
	Timeout:           "TIMEOUT",
	MalformedResponse: "MALFORMED_RESPONSE",
	Unavailable:       "UNAVAILABLE",
	Canceled:          "CANCELED",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UNKNOWN"
}

// AppError is the base error type carrying a Code and optional cause.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates an AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under a code.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// CodeOf extracts the code from an error chain, or Unknown.
func CodeOf(err error) Code {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return Unknown
		}
		err = u.Unwrap()
	}
	return Unknown
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryable reports whether one more attempt could plausibly succeed.
// Timeouts, auth failures and rate limits are deliberately excluded: the
// operator gets one notification per request, not a retry storm.
func IsRetryable(err error) bool {
	return IsCode(err, Unavailable)
}
