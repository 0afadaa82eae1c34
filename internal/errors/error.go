package errors

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

// Category represents the area an error comes from.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryTree     Category = "tree"
	CategorySession  Category = "session"
	CategoryProtocol Category = "protocol"
	CategoryCLI      Category = "cli"
)

// Location points into a tree definition or config file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// NestedError is a coded error with an optional file location and a hint.
type NestedError struct {
	// Code is a unique error identifier (e.g., "N202").
	Code string

	// Category groups related codes.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is where in a file the error was found.
	Location *Location

	// Context holds the file lines around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL links to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *NestedError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *NestedError) Unwrap() error {
	return e.Wrapped
}

// Is matches another NestedError by code.
func (e *NestedError) Is(target error) bool {
	t, ok := target.(*NestedError)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithLocation records a file position and reads the surrounding lines.
func (e *NestedError) WithLocation(file string, line, column int) *NestedError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *NestedError) WithSuggestion(s string) *NestedError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *NestedError) WithDetail(d string) *NestedError {
	e.Detail = d
	return e
}

// WithDetailf replaces the detailed explanation with a formatted string.
func (e *NestedError) WithDetailf(format string, args ...any) *NestedError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *NestedError) Wrap(err error) *NestedError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around targetLine from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a NestedError from a registered error code.
func New(code string) *NestedError {
	template, ok := registry[code]
	if !ok {
		return &NestedError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &NestedError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded NestedError with a formatted message.
func Newf(category Category, format string, args ...any) *NestedError {
	return &NestedError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err under code unless it already is a NestedError.
func FromError(err error, code string) *NestedError {
	if err == nil {
		return nil
	}
	var ne *NestedError
	if errors.As(err, &ne) {
		return ne
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first NestedError in err's chain.
func CodeOf(err error) string {
	var ne *NestedError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return ""
}
