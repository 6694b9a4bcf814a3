package sesame

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota

	// Configuration errors.
	KindNoRepository
	KindInvalidConfig

	// Validation errors, raised before any request is sent.
	KindUnsupportedQueryLanguage
	KindUnsupportedResultFormat
	KindUnsupportedInputFormat
	KindPrefixNotSpecified
	KindNamespaceNotSpecified
	KindFileNotSpecified
	KindFileNotFound
	KindFileNotReadable

	// KindBadStatus covers both network failures (StatusCode 0) and non-2xx responses.
	KindBadStatus

	// KindParse marks a response body that could not be decoded.
	KindParse
)

var kindNames = map[Kind]string{
	KindUnknown:                  "unknown",
	KindNoRepository:             "no repository selected",
	KindInvalidConfig:            "invalid configuration",
	KindUnsupportedQueryLanguage: "unsupported query language",
	KindUnsupportedResultFormat:  "unsupported result format",
	KindUnsupportedInputFormat:   "unsupported input format",
	KindPrefixNotSpecified:       "prefix not specified",
	KindNamespaceNotSpecified:    "namespace not specified",
	KindFileNotSpecified:         "file not specified",
	KindFileNotFound:             "file not found",
	KindFileNotReadable:          "file not readable",
	KindBadStatus:                "bad status",
	KindParse:                    "parse error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Validation reports whether the kind is raised by argument checks.
func (k Kind) Validation() bool {
	return k >= KindUnsupportedQueryLanguage && k <= KindFileNotReadable
}

// Error is returned by every Client operation and by NewResult.
type Error struct {
	Kind    Kind
	Message string

	// StatusCode is the HTTP status for KindBadStatus; zero when no response was received.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the exported sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNoRepository             = &Error{Kind: KindNoRepository}
	ErrInvalidConfig            = &Error{Kind: KindInvalidConfig}
	ErrUnsupportedQueryLanguage = &Error{Kind: KindUnsupportedQueryLanguage}
	ErrUnsupportedResultFormat  = &Error{Kind: KindUnsupportedResultFormat}
	ErrUnsupportedInputFormat   = &Error{Kind: KindUnsupportedInputFormat}
	ErrPrefixNotSpecified       = &Error{Kind: KindPrefixNotSpecified}
	ErrNamespaceNotSpecified    = &Error{Kind: KindNamespaceNotSpecified}
	ErrFileNotSpecified         = &Error{Kind: KindFileNotSpecified}
	ErrFileNotFound             = &Error{Kind: KindFileNotFound}
	ErrFileNotReadable          = &Error{Kind: KindFileNotReadable}
	ErrBadStatus                = &Error{Kind: KindBadStatus}
	ErrParse                    = &Error{Kind: KindParse}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
