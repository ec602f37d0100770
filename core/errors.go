package core

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies the business errors returned by the core services.
type Kind string

const (
	KindUnknown             Kind = ""
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindAlreadyExists       Kind = "already_exists"
	KindDuplicateEnrollment Kind = "duplicate_enrollment"
	KindDuplicateName       Kind = "duplicate_name"
	KindOverlappingRange    Kind = "overlapping_range"
	KindInvalidReference    Kind = "invalid_reference"
	KindInvalidState        Kind = "invalid_state"
	KindMissingDecision     Kind = "missing_decision"
)

// ErrLockTimeout is returned when a Locker could not acquire a key in time.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Identifier names an entity involved in an error, eg. {"student_pan", "PAN001"}.
type Identifier struct {
	Name  string
	Value string
}

func ID(name, value string) Identifier {
	return Identifier{Name: name, Value: value}
}

// Error is a business error: its Kind, the underlying (usually sentinel) error and the offending identifiers.
type Error struct {
	Kind Kind
	Err  error
	IDs  []Identifier
}

func NewError(kind Kind, err error, ids ...Identifier) error {
	return &Error{Kind: kind, Err: err, IDs: ids}
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else {
		sb.WriteString(string(e.Kind))
	}
	if len(e.IDs) > 0 {
		sb.WriteString(" (")
		for i, id := range e.IDs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(id.Name + "=" + id.Value)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IDMap returns the identifiers as a map, for rendering.
func (e *Error) IDMap() map[string]string {
	m := make(map[string]string, len(e.IDs))
	for _, id := range e.IDs {
		m[id.Name] = id.Value
	}
	return m
}

// KindOf returns the Kind of the first core error found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Kind
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindInvalidInput
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			msgs := make([]string, 0, len(err.Fields))
			for _, f := range err.Fields {
				msgs = append(msgs, f.Field+": "+f.Error)
			}
			return strings.Join(msgs, "; ")
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
