package nrfcloud

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindTransport covers connection, DNS, TLS and body read failures.
	KindTransport ErrorKind = iota
	// KindStatus means the server answered outside the 2xx range.
	KindStatus
	// KindDecode means the body was not JSON of the expected shape.
	KindDecode
	// KindEncode means the query parameters could not be encoded.
	KindEncode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by every request helper.
type Error struct {
	Kind       ErrorKind
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("nrfcloud: %s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("nrfcloud: %s %s: %s error: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a status error with the given HTTP code.
// A code of 0 matches any status error.
func IsStatus(err error, code int) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindStatus {
		return false
	}
	return code == 0 || e.StatusCode == code
}
