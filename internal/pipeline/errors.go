// Package pipeline defines the central data types shared across all stages
// of the dedup engine. This file defines DedupError, a structured error
// carrying a Kind and an exit code, so the CLI layer can turn
// any stage's failure into the right process exit code without type-switching
// on concrete error types from every package.
package pipeline

import "fmt"

// DedupError is a custom error type that carries a Kind and an exit code.
// Failures from every stage reach the CLI as DedupErrors: internal/cli wraps
// discovery, extractor and parser errors, and the dedup engine and emitter
// build them directly, so cli.Execute can report a uniform
// "<kind>: <path>: <message>" diagnostic and pick the right ExitCode. It
// implements the error interface and supports unwrapping via errors.Is and
// errors.As.
type DedupError struct {
	// Kind classifies the failure
	Kind Kind

	// Code is the process exit code associated with this error.
	Code ExitCode

	// Path is the file or directory the error concerns, if any.
	Path string

	// Message is a human-readable description of what went wrong.
	Message string

	// Err is the underlying error that caused this DedupError, if any.
	Err error
}

// Error returns the formatted "<kind>: <path>: <message>: <cause>" diagnostic,
// omitting any empty segment.
func (e *DedupError) Error() string {
	s := string(e.Kind) + ":"
	if e.Path != "" {
		s += " " + e.Path + ":"
	}
	s += " " + e.Message
	if e.Err != nil {
		s += fmt.Sprintf(": %v", e.Err)
	}
	return s
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As to
// traverse the error chain.
func (e *DedupError) Unwrap() error {
	return e.Err
}

// NewIOError wraps a filesystem failure (read, write, rename): "IO" kind, exit code 2.
func NewIOError(path, msg string, err error) *DedupError {
	return &DedupError{Kind: KindIO, Code: ExitFailure, Path: path, Message: msg, Err: err}
}

// NewParseError wraps a syntax failure while parsing an extracted literal:
// "Parse" kind, exit code 2.
func NewParseError(path, msg string, err error) *DedupError {
	return &DedupError{Kind: KindParse, Code: ExitFailure, Path: path, Message: msg, Err: err}
}

// NewConfigError wraps a host-configuration validation failure (required
// relay compiler flags not set as the tool requires): "Config"
// kind, exit code 1.
func NewConfigError(path, msg string, err error) *DedupError {
	return &DedupError{Kind: KindConfig, Code: ExitUsage, Path: path, Message: msg, Err: err}
}

// NewUsageError wraps a bad CLI invocation: "Usage" kind, exit
// code 1.
func NewUsageError(msg string, err error) *DedupError {
	return &DedupError{Kind: KindUsage, Code: ExitUsage, Message: msg, Err: err}
}

// NewOverflowError wraps internal/names.ErrOverflow: "Overflow"
// kind, exit code 2. Documented as unreachable in practice.
func NewOverflowError(digestHex string, err error) *DedupError {
	return &DedupError{Kind: KindOverflow, Code: ExitFailure, Message: "name allocator overflow for digest " + digestHex, Err: err}
}

// NewExhaustedPassesWarning builds the non-fatal diagnostic emitted when the
// pass engine hits max_passes before reaching a fixed point. The run still succeeds (ExitSuccess); the caller
// decides whether to print this to stderr.
func NewExhaustedPassesWarning(maxPasses int) *DedupError {
	return &DedupError{
		Kind:    KindExhaustedPasses,
		Code:    ExitSuccess,
		Message: fmt.Sprintf("reached max_passes (%d) before converging to a fixed point; output may contain further-extractable duplication", maxPasses),
	}
}
