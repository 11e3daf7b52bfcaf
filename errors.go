// errors.go: Error taxonomy for the nanolog runtime
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/agilira/go-errors"
)

// LoggerError codes, grouped by the component that raises them.
const (
	// ErrCodeOutOfRingSpace is raised by a non-blocking reserve when a
	// producer's ring has no free space. Transient; the line is
	// dropped and counted, never propagated to the caller.
	ErrCodeOutOfRingSpace errors.ErrorCode = "NANOLOG_OUT_OF_RING_SPACE"

	// ErrCodeOutputBufferFull is returned internally when the
	// encoder's output buffer would overflow mid-entry. The consumer
	// flushes and retries; this never reaches a caller.
	ErrCodeOutputBufferFull errors.ErrorCode = "NANOLOG_OUTPUT_BUFFER_FULL"

	// ErrCodeAsyncWriteFailed marks a failed write to the output file.
	// Logged to stderr; the consumer continues to the next write.
	ErrCodeAsyncWriteFailed errors.ErrorCode = "NANOLOG_ASYNC_WRITE_FAILED"

	// ErrCodeUnknownSiteID marks a raw entry naming a site id the
	// registry never assigned. Fatal for that entry only: the
	// consumer skips entry_size bytes and logs a diagnostic.
	ErrCodeUnknownSiteID errors.ErrorCode = "NANOLOG_UNKNOWN_SITE_ID"

	// ErrCodeFileOpenFailed surfaces synchronously from SetLogFile.
	ErrCodeFileOpenFailed errors.ErrorCode = "NANOLOG_FILE_OPEN_FAILED"

	// ErrCodeMalformed marks a decode-path framing error. Surfaced to
	// the decoder's caller after one pad-skip recovery attempt fails.
	ErrCodeMalformed errors.ErrorCode = "NANOLOG_MALFORMED"

	// ErrCodeInvalidConfig and ErrCodeInvalidLevel mark configuration
	// validation failures raised at construction time.
	ErrCodeInvalidConfig errors.ErrorCode = "NANOLOG_INVALID_CONFIG"
	ErrCodeInvalidLevel  errors.ErrorCode = "NANOLOG_INVALID_LEVEL"
)

// ErrorHandler receives errors the consumer cannot propagate to a
// caller: async write failures, malformed entries, dropped sites.
type ErrorHandler func(err *errors.Error)

var defaultErrorHandler ErrorHandler = func(err *errors.Error) {
	fmt.Fprintf(os.Stderr, "[nanolog] %s: %s\n", err.Code, err.Message)
	if err.Cause != nil {
		fmt.Fprintf(os.Stderr, "[nanolog] caused by: %v\n", err.Cause)
	}
}

var currentErrorHandler = defaultErrorHandler

// SetErrorHandler installs a custom sink for consumer-side errors that
// have nowhere else to go. Passing nil restores the stderr default.
func SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		currentErrorHandler = defaultErrorHandler
		return
	}
	currentErrorHandler = handler
}

// GetErrorHandler returns the current error handler.
func GetErrorHandler() ErrorHandler {
	return currentErrorHandler
}

func handleError(err *errors.Error) {
	if err == nil {
		return
	}
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context["go_version"] = runtime.Version()
	currentErrorHandler(err)
}

// NewLoggerError builds a nanolog error carrying standard context.
func NewLoggerError(code errors.ErrorCode, message string) *errors.Error {
	err := errors.New(code, message).
		WithSeverity("error").
		WithContext("component", "nanolog").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			_ = err.WithContext("caller_func", fn.Name())
		}
		_ = err.WithContext("caller_file", file)
		_ = err.WithContext("caller_line", line)
	}

	return err
}

// NewLoggerErrorWithField builds a nanolog error naming the offending
// field and the value that failed validation.
func NewLoggerErrorWithField(code errors.ErrorCode, message, field, value string) *errors.Error {
	return errors.NewWithField(code, message, field, value).
		WithSeverity("error").
		WithContext("component", "nanolog").
		WithContext("timestamp", time.Now().UTC())
}

// WrapLoggerError wraps an underlying error (typically an *os.PathError
// from the file writer) with a nanolog error code.
func WrapLoggerError(originalErr error, code errors.ErrorCode, message string) *errors.Error {
	err := errors.Wrap(originalErr, code, message).
		WithSeverity("error").
		WithContext("component", "nanolog").
		WithContext("timestamp", time.Now().UTC())

	if pc, file, line, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			_ = err.WithContext("caller_func", fn.Name())
		}
		_ = err.WithContext("caller_file", file)
		_ = err.WithContext("caller_line", line)
	}

	return err
}

// IsLoggerError reports whether err is a nanolog error with the given code.
func IsLoggerError(err error, code errors.ErrorCode) bool {
	return errors.HasCode(err, code)
}

// GetErrorCode extracts the error code from err, or "" if err is not a
// nanolog error.
func GetErrorCode(err error) errors.ErrorCode {
	if nanoErr, ok := err.(*errors.Error); ok {
		return nanoErr.ErrorCode()
	}
	return ""
}
