package gitsync

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Base typed errors enabling structured classification without string
// parsing upstream.
type AuthError struct {
	Op, URL string
	Err     error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op, URL string
	Err     error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

// classifyRemoteError wraps remote-operation failures into typed variants
// when possible.
func classifyRemoteError(op, url string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "auth fail") || strings.Contains(l, "invalid username or password"):
		return &AuthError{Op: op, URL: url, Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: op, URL: url, Err: err}
	default:
		return err
	}
}

// isPermanentError reports whether retrying the operation is pointless.
func isPermanentError(err error) bool {
	var authErr *AuthError
	var nfErr *NotFoundError
	if errors.As(err, &authErr) || errors.As(err, &nfErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return false // network errors are worth retrying
	}
	return false
}
