// Package errclass maps raw failures to a small taxonomy with a recommended
// recovery action.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/five82/tasksync/internal/api"
)

// Kind is the failure category.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindServer     Kind = "server"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

// ErrCorruptState marks a failure caused by client state that can no longer
// be trusted. It is the only signal that sets ShouldForceReload.
var ErrCorruptState = errors.New("client state corrupt")

// Classification is the user-facing reading of a failure.
type Classification struct {
	Kind              Kind
	UserMessage       string
	CanRetry          bool
	ShouldForceReload bool
	StatusCode        int // HTTP status when the failure came from a response
	Err               error
}

func (c Classification) Error() string {
	if c.Err == nil {
		return string(c.Kind) + ": " + c.UserMessage
	}
	return fmt.Sprintf("%s: %v", c.Kind, c.Err)
}

func (c Classification) Unwrap() error { return c.Err }

// IsCanceled reports whether err only signals that the caller gave up.
// Canceled fetches are superseded, not failed.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Classify inspects transport signals and HTTP status codes. It never
// returns a zero Kind.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindUnknown, UserMessage: "Something went wrong.", CanRetry: true}
	}

	var se *api.StatusError
	if errors.As(err, &se) {
		return fromStatus(se, err)
	}

	switch {
	case errors.Is(err, ErrCorruptState):
		return Classification{
			Kind:              KindUnknown,
			UserMessage:       "Local view state is inconsistent. Filters will be reset.",
			ShouldForceReload: true,
			Err:               err,
		}
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return network(err, "The server took too long to answer.")
	case isConnectivity(err):
		return network(err, "Cannot reach the server. Check your connection.")
	}

	return Classification{
		Kind:        KindUnknown,
		UserMessage: "Something went wrong while loading tasks.",
		CanRetry:    true,
		Err:         err,
	}
}

func fromStatus(se *api.StatusError, err error) Classification {
	code := se.StatusCode
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Classification{
			Kind:        KindAuth,
			UserMessage: "Your session has expired. Please sign in again.",
			StatusCode:  code,
			Err:         err,
		}
	case code == http.StatusRequestTimeout:
		c := network(err, "The server took too long to answer.")
		c.StatusCode = code
		return c
	case code == http.StatusTooManyRequests:
		return Classification{
			Kind:        KindServer,
			UserMessage: "The server is busy. Try again in a moment.",
			CanRetry:    true,
			StatusCode:  code,
			Err:         err,
		}
	case code >= 500:
		return Classification{
			Kind:        KindServer,
			UserMessage: fmt.Sprintf("The server failed to load tasks (HTTP %d).", code),
			CanRetry:    true,
			StatusCode:  code,
			Err:         err,
		}
	case code >= 400:
		msg := "The current filters were rejected. Adjust them and try again."
		if strings.TrimSpace(se.Message) != "" {
			msg = "The current filters were rejected: " + se.Message
		}
		return Classification{
			Kind:        KindValidation,
			UserMessage: msg,
			StatusCode:  code,
			Err:         err,
		}
	}
	return Classification{Kind: KindUnknown, UserMessage: "Unexpected server response.", CanRetry: true, StatusCode: code, Err: err}
}

func network(err error, msg string) Classification {
	return Classification{Kind: KindNetwork, UserMessage: msg, CanRetry: true, Err: err}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "timeout")
}

func isConnectivity(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "no such host", "network is unreachable", "connection reset"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Label is the short banner text for a classification.
func (c Classification) Label() string {
	switch c.Kind {
	case KindNetwork:
		return "OFFLINE"
	case KindAuth:
		return "SIGNED OUT"
	case KindServer:
		return "SERVER ERROR"
	case KindValidation:
		return "INVALID FILTER"
	default:
		return "ERROR"
	}
}
