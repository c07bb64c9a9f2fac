// Package errors provides the pipeline's structured error type, adapted
// from the teacher's TradSysError (pkg/errors): a coded, severity-tagged
// error that carries its cause and call-site location, with helpers for
// wrapping and kind inspection per spec §7's error-handling design.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Code identifies one of spec §7's error kinds.
type Code string

const (
	ConfigInvalid        Code = "CONFIG_INVALID"
	ArchiveMissing       Code = "ARCHIVE_MISSING"
	ArchiveCorrupt       Code = "ARCHIVE_CORRUPT"
	AssetMissingSnapshot Code = "ASSET_MISSING_SNAPSHOT"
	ParseError           Code = "PARSE_ERROR"
	LOBRejected          Code = "LOB_REJECTED"
	CompressionError     Code = "COMPRESSION_ERROR"
)

// Severity tags how the propagation policy should treat an error.
type Severity string

const (
	// SeverityFatal aborts the pipeline before workers start (ConfigInvalid).
	SeverityFatal Severity = "fatal"
	// SeverityWorker is fatal to one asset-day worker but not the pipeline
	// (AssetMissingSnapshot, CompressionError).
	SeverityWorker Severity = "worker"
	// SeverityWarn is logged and the unit of work (archive, row, file) is
	// skipped (ArchiveMissing, ArchiveCorrupt, ParseError).
	SeverityWarn Severity = "warn"
)

func (c Code) defaultSeverity() Severity {
	switch c {
	case ConfigInvalid:
		return SeverityFatal
	case AssetMissingSnapshot, CompressionError:
		return SeverityWorker
	default:
		return SeverityWarn
	}
}

// PipelineError is the structured error type threaded through the
// pipeline's boundary code (config loading, archive extraction, CSV
// parsing, compression). The LOB/run-bar/feature core never constructs
// one directly — per spec §7 it "never throws in the value sense"; only
// boundary code does.
type PipelineError struct {
	Code      Code
	Message   string
	Details   map[string]interface{}
	Severity  Severity
	Asset     string
	Timestamp time.Time
	File      string
	Line      int
	Cause     error
}

// WithDetail attaches a key/value pair of diagnostic context, mirroring
// the teacher's Details map.
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *PipelineError) Error() string {
	loc := ""
	if e.Asset != "" {
		loc = fmt.Sprintf(" asset=%s", e.Asset)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s]%s %s: %v", e.Code, loc, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s]%s %s", e.Code, loc, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// New builds a PipelineError at the caller's source location.
func New(code Code, message string) *PipelineError {
	return newAt(code, message, 2)
}

// Wrap builds a PipelineError around cause, at the caller's source
// location.
func Wrap(code Code, cause error, message string) *PipelineError {
	e := newAt(code, message, 2)
	e.Cause = cause
	return e
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code Code, cause error, format string, args ...interface{}) *PipelineError {
	e := newAt(code, fmt.Sprintf(format, args...), 2)
	e.Cause = cause
	return e
}

// WithAsset attaches the originating asset/day identifier for logging.
func (e *PipelineError) WithAsset(asset string) *PipelineError {
	e.Asset = asset
	return e
}

func newAt(code Code, message string, skip int) *PipelineError {
	e := &PipelineError{
		Code:      code,
		Message:   message,
		Severity:  code.defaultSeverity(),
		Timestamp: time.Now(),
	}
	if _, file, line, ok := runtime.Caller(skip); ok {
		e.File = file
		e.Line = line
	}
	return e
}

// Is reports whether target is a *PipelineError with the same Code,
// supporting errors.Is(err, errors.New(SomeCode, "")).
func (e *PipelineError) Is(target error) bool {
	var other *PipelineError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// As supports errors.As(err, &pipelineErr).
func As(err error, target **PipelineError) bool {
	return errors.As(err, target)
}

// CodeOf extracts the Code from err if it is (or wraps) a
// *PipelineError, and ok=false otherwise.
func CodeOf(err error) (code Code, ok bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}
