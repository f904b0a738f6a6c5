// Package apperr classifies failures so request boundaries can map them to a
// status code without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindRateLimited
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// RateLimitedMessage is shown to callers when an upstream model returns 429.
const RateLimitedMessage = "Server is busy (rate limit exceeded). Please try again in a few seconds."

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports bad caller input. msg is safe to show to the caller.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func RateLimited(op string, err error) error {
	return &Error{Kind: KindRateLimited, Op: op, Err: err}
}

func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	// keep the more specific classification
	if k := KindOf(err); k == KindRateLimited || k == KindValidation {
		return err
	}
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

// HTTPStatus maps err onto the status a handler should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text written into an {error: ...} response body.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindValidation:
			return e.Error()
		case KindRateLimited:
			return RateLimitedMessage
		}
	}
	return err.Error()
}
