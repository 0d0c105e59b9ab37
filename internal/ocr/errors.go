package ocr

import "fmt"

// ErrorCode classifies a failed recognition run
type ErrorCode string

const (
	// ErrorResolutionFailed means no launchable command was found
	ErrorResolutionFailed ErrorCode = "RESOLUTION_FAILED"

	// ErrorSpawnFailed means the OS could not start the resolved program
	ErrorSpawnFailed ErrorCode = "SPAWN_FAILED"

	// ErrorToolExit means the tool ran but exited non-zero
	ErrorToolExit ErrorCode = "TOOL_EXIT"

	// ErrorNoText means the tool succeeded but no record could be parsed
	ErrorNoText ErrorCode = "NO_TEXT"

	// ErrorCancelled means the caller gave up before the run finished
	ErrorCancelled ErrorCode = "CANCELLED"
)

const installHint = "Make sure EasyOCR is installed:\n  pip install easyocr"

// RunError is the diagnostic carried by a failed Outcome
type RunError struct {
	Code     ErrorCode `json:"code"`
	Program  string    `json:"program,omitempty"`
	Message  string    `json:"message"`
	ExitCode int       `json:"exit_code,omitempty"`
	Cause    error     `json:"-"`
}

func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// ToMap converts the error for JSON-ish transports
func (e *RunError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"code":    string(e.Code),
		"message": e.Message,
	}

	if e.Program != "" {
		result["program"] = e.Program
	}
	if e.ExitCode != 0 {
		result["exit_code"] = e.ExitCode
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}

func newResolutionError(tried string) *RunError {
	return &RunError{
		Code:    ErrorResolutionFailed,
		Message: fmt.Sprintf("EasyOCR command not found (tried %s).\n\n%s", tried, installHint),
	}
}

func newSpawnError(program string, cause error) *RunError {
	return &RunError{
		Code:    ErrorSpawnFailed,
		Program: program,
		Message: fmt.Sprintf("Failed to run '%s': %v\n\n%s", program, cause, installHint),
		Cause:   cause,
	}
}

func newExitError(program string, code int, stderr, stdout string) *RunError {
	return &RunError{
		Code:     ErrorToolExit,
		Program:  program,
		Message:  fmt.Sprintf("EasyOCR exited with error:\n%s\n%s", stderr, stdout),
		ExitCode: code,
	}
}

func newNoTextError(program string) *RunError {
	return &RunError{
		Code:    ErrorNoText,
		Program: program,
		Message: "No text recognized.",
	}
}

// NewCancelledError reports a run abandoned because ctx ended
func NewCancelledError(cause error) *RunError {
	return &RunError{
		Code:    ErrorCancelled,
		Message: "Recognition cancelled.",
		Cause:   cause,
	}
}
