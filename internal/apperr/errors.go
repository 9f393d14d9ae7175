package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures surfaced to callers of the studio.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUpstream           Kind = "upstream"
	KindMalformedData      Kind = "malformed_data"
	KindPersistence        Kind = "persistence"
	KindPlayback           Kind = "playback"
	KindUnauthenticated    Kind = "unauthenticated"
	KindNotFound           Kind = "not_found"
	KindUseAfterRelease    Kind = "use_after_release"
)

// Error is the typed failure shared by every studio component.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int // upstream status for KindUpstream, zero otherwise
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindUpstream && e.StatusCode > 0:
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Title is the short user-facing headline for the failure.
func (e *Error) Title() string { return TitleFor(e.Kind) }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ServiceUnavailable(message string, err error) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: message, Err: err}
}

func Upstream(statusCode int, message string, retryable bool) *Error {
	return &Error{Kind: KindUpstream, StatusCode: statusCode, Message: message, Retryable: retryable}
}

func MalformedData(message string, err error) *Error {
	return &Error{Kind: KindMalformedData, Message: message, Err: err}
}

func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: op, Err: err}
}

func Playback(message string, err error) *Error {
	return &Error{Kind: KindPlayback, Message: message, Err: err}
}

func Unauthenticated() *Error {
	return &Error{Kind: KindUnauthenticated, Message: "sign in to continue"}
}

func NotFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func UseAfterRelease(handle string) *Error {
	return &Error{Kind: KindUseAfterRelease, Message: fmt.Sprintf("resource %q was released", handle)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func TitleFor(kind Kind) string {
	switch kind {
	case KindValidation:
		return "Missing or invalid input"
	case KindServiceUnavailable:
		return "Service unavailable"
	case KindUpstream:
		return "Generation failed"
	case KindMalformedData:
		return "Unreadable audio"
	case KindPersistence:
		return "Could not save"
	case KindPlayback:
		return "Playback failed"
	case KindUnauthenticated:
		return "Sign in required"
	case KindNotFound:
		return "Not found"
	case KindUseAfterRelease:
		return "Audio no longer available"
	default:
		return "Something went wrong"
	}
}

// HTTPStatus maps err onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUseAfterRelease:
		return http.StatusGone
	case KindPlayback:
		return http.StatusUnprocessableEntity
	case KindUpstream, KindMalformedData:
		return http.StatusBadGateway
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
