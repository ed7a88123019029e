// Package provider holds the error taxonomy shared by the deploy-host and
// code-host clients. Every non-2xx response is classified into one of four
// kinds; the raw status and body are kept for diagnostics.
package provider

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindAuth      Kind = "auth"
	KindNotFound  Kind = "not_found"
	KindTransient Kind = "transient"
	KindUnknown   Kind = "unknown"
)

type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Message    string
	Body       string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// FromStatus classifies a non-2xx provider response.
func FromStatus(providerName string, status int, body string) *Error {
	e := &Error{
		Provider:   providerName,
		StatusCode: status,
		Body:       body,
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		e.Kind = KindTransient
	default:
		e.Kind = KindUnknown
	}
	return e
}

func IsAuth(err error) bool      { return isKind(err, KindAuth) }
func IsNotFound(err error) bool  { return isKind(err, KindNotFound) }
func IsTransient(err error) bool { return isKind(err, KindTransient) }

func isKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
