package gucfile

import (
	"errors"
	"fmt"
)

// Sentinel errors for the parser's error taxonomy: syntax, file access
// and include depth. Semantic errors (undefined-object, rejected value,
// immutable) belong to the reload engine, which validates against the
// registry rather than the grammar.
var (
	ErrSyntax               = errors.New("configuration file syntax error")
	ErrFileAccess           = errors.New("configuration file access error")
	ErrIncludeDepthExceeded = errors.New("configuration file include depth exceeded")
)

// SyntaxError carries the file, line, and offending token text for a
// grammar violation.
type SyntaxError struct {
	Filename string
	Line     int
	Detail   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: syntax error: %s", e.Filename, e.Line, e.Detail)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func newSyntaxError(filename string, line int, format string, args ...any) error {
	return &SyntaxError{Filename: filename, Line: line, Detail: fmt.Sprintf(format, args...)}
}

// FileAccessError wraps an underlying OS error with the path that failed.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("could not open configuration file %q: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return errors.Join(ErrFileAccess, e.Err) }

func newFileAccessError(path string, err error) error {
	return &FileAccessError{Path: path, Err: err}
}

// IncludeDepthError reports that an include chain exceeded MaxIncludeDepth.
type IncludeDepthError struct {
	Filename string
	Line     int
	Limit    int
}

func (e *IncludeDepthError) Error() string {
	return fmt.Sprintf("%s:%d: include depth exceeds limit of %d", e.Filename, e.Line, e.Limit)
}

func (e *IncludeDepthError) Unwrap() error { return ErrIncludeDepthExceeded }

func newIncludeDepthError(filename string, line, limit int) error {
	return &IncludeDepthError{Filename: filename, Line: line, Limit: limit}
}
