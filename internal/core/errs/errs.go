// Package errs provides the closed error taxonomy shared by the loaders,
// the watcher, and the store, plus derivation of actionable suggestions for
// user-visible failures.
package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// Kind classifies an error for reporting purposes. The set is closed and
// exhaustively matched where consumed.
type Kind int

const (
	KindIO Kind = iota
	KindParse
	KindWatch
	KindStore
	KindConfig
	KindResilience
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindWatch:
		return "watch"
	case KindStore:
		return "store"
	case KindConfig:
		return "config"
	case KindResilience:
		return "resilience"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Standard sentinel errors for conditions checked by callers.
var (
	ErrNotInitialized  = errors.New("store not initialized")
	ErrSessionNotFound = errors.New("session not found")
	ErrHomeNotFound    = errors.New("home directory not found")
	ErrLineTooLong     = errors.New("line exceeds size limit")
	ErrTooManyLines    = errors.New("file exceeds line limit")
)

// Error wraps an underlying error with its kind and the path it concerns.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind, operation and path. Returns nil for nil err.
func New(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf returns the kind of a wrapped error, or KindIO when the error does
// not carry one (plain filesystem errors are the common unclassified case).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindIO
}

// Suggestion derives an actionable hint from an error, or "" when no
// useful hint exists. Suggestions are advisory only.
func Suggestion(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	path := ""
	if errors.As(err, &e) {
		path = e.Path
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if path != "" {
			return fmt.Sprintf("create it with: mkdir -p %s", filepath.Dir(path))
		}
		return "check that the path exists"
	case errors.Is(err, fs.ErrPermission):
		if path != "" {
			return fmt.Sprintf("check permissions on %s", path)
		}
		return "check file permissions"
	case errors.Is(err, ErrHomeNotFound):
		return "set the HOME environment variable"
	case errors.Is(err, ErrLineTooLong), errors.Is(err, ErrTooManyLines):
		return "the source file may be corrupt; re-create the session log"
	}
	if e != nil && e.Kind == KindParse {
		if path != "" {
			return fmt.Sprintf("inspect %s for malformed JSON", path)
		}
		return "inspect the file for malformed JSON"
	}
	return ""
}
