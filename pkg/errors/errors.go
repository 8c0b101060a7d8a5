package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"unsafelinks/pkg/logger"

	"github.com/fatih/color"
)

type ExitCode int

const (
	ExitCodeSuccess    ExitCode = 0
	ExitCodeGeneral    ExitCode = 1
	ExitCodeConfig     ExitCode = 2
	ExitCodeClipboard  ExitCode = 3
	ExitCodeValidation ExitCode = 4
)

// Standardized error messages for consistent user-facing errors
const (
	ErrMsgClipboardRead  = "Could not read text from the clipboard"
	ErrMsgClipboardWrite = "Could not write the decoded URL to the clipboard"
	ErrMsgConfigLoad     = "Failed to load configuration"
)

type Error struct {
	Code       ExitCode
	Message    string
	Underlying error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func New(code ExitCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewWithError(code ExitCode, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

func NewWithSuggestion(code ExitCode, message string, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var wrapped *Error
	if stderrors.As(err, &wrapped) {
		return &Error{
			Code:       wrapped.Code,
			Message:    message + ": " + wrapped.Message,
			Underlying: wrapped.Underlying,
			Suggestion: wrapped.Suggestion,
		}
	}

	return &Error{
		Code:       ExitCodeGeneral,
		Message:    message,
		Underlying: err,
	}
}

func WrapWithCode(err error, code ExitCode, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
	}
}

func IsExitCode(err error, code ExitCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the exit code carried by err, ExitCodeGeneral for foreign
// errors and ExitCodeSuccess for nil.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ExitCodeGeneral
}

// HandleReturn logs err, prints it to stderr and returns the exit code the
// process should terminate with.
func HandleReturn(err error) ExitCode {
	return HandleReturnTo(os.Stderr, err)
}

func HandleReturnTo(w io.Writer, err error) ExitCode {
	if err == nil {
		return ExitCodeSuccess
	}

	exitCode := CodeOf(err)
	message := err.Error()
	var suggestion string

	var e *Error
	if stderrors.As(err, &e) {
		message = e.Message
		suggestion = e.Suggestion
		if e.Underlying != nil {
			logger.Debug().Err(e.Underlying).Int("exit_code", int(exitCode)).Msg(e.Message)
			message = e.Error()
		}
	} else {
		logger.Debug().Err(err).Msg("command failed")
	}

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	red.Fprint(w, "Error: ")
	fmt.Fprintln(w, message)

	if suggestion != "" {
		yellow.Fprint(w, "Suggestion: ")
		lines := strings.Split(suggestion, "\n")
		for i, line := range lines {
			if i == 0 {
				fmt.Fprintln(w, line)
			} else if strings.HasPrefix(line, "  -") {
				cyan.Fprintln(w, line)
			} else {
				fmt.Fprintln(w, "            "+line)
			}
		}
	}

	return exitCode
}

func ConfigError(message string) *Error {
	return &Error{
		Code:       ExitCodeConfig,
		Message:    message,
		Suggestion: "Check the configuration file and its UNSAFELINKS_* environment overrides.",
	}
}

func ValidationError(message string) *Error {
	return &Error{
		Code:    ExitCodeValidation,
		Message: message,
	}
}

func ClipboardError(message string, err error) *Error {
	return &Error{
		Code:       ExitCodeClipboard,
		Message:    message,
		Underlying: err,
		Suggestion: "Make sure the clipboard holds text and is not locked by another program.\nOn Linux install xclip, xsel or wl-clipboard.",
	}
}
