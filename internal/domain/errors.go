package domain

import (
	"errors"
	"fmt"
)

type FetchKind string

const (
	KindTransport FetchKind = "transport"
	KindTimeout   FetchKind = "timeout"
	KindStatus    FetchKind = "status"
	KindDecode    FetchKind = "decode"
	KindCancelled FetchKind = "cancelled" // caller went away before the upstream answered
)

var (
	ErrTransport = errors.New("aqi: upstream unreachable")
	ErrTimeout   = errors.New("aqi: upstream timeout")
	ErrStatus    = errors.New("aqi: upstream bad status")
	ErrDecode    = errors.New("aqi: upstream body is not JSON")
	ErrCancelled = errors.New("aqi: lookup cancelled")
)

// FetchError tags a failed upstream call with its cause.
type FetchError struct {
	Kind   FetchKind
	Status int // upstream HTTP status, 0 when no response was read
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("aqi %s (http %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("aqi %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrStatus:
		return e.Kind == KindStatus
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrCancelled:
		return e.Kind == KindCancelled
	}
	return false
}

// KindOf returns the failure kind of err, or "" if err is not a FetchError.
func KindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
