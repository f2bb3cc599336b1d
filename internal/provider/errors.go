package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FailureKind says why a gateway did not take a message. The value is also
// the reason label on the notifications_failed_total metric.
type FailureKind string

const (
	FailureUnreachable  FailureKind = "unreachable"
	FailureThrottled    FailureKind = "throttled"
	FailureGatewayDown  FailureKind = "gateway_down"
	FailureBadReply     FailureKind = "bad_reply"
	FailureCredentials  FailureKind = "credentials"
	FailureBadRecipient FailureKind = "bad_recipient"
	FailureRefused      FailureKind = "refused"
)

// Retryable is true for kinds where resending the same text later can land.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureUnreachable, FailureThrottled, FailureGatewayDown, FailureBadReply:
		return true
	default:
		return false
	}
}

// kindForStatus maps a non-200 gateway reply onto a failure kind.
func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return FailureThrottled
	case status >= http.StatusInternalServerError:
		return FailureGatewayDown
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureCredentials
	default:
		return FailureRefused
	}
}

// GatewayError is a message the SMS or mail gateway did not accept.
type GatewayError struct {
	Gateway    string
	Kind       FailureKind
	HTTPStatus int
	Detail     string
	Err        error
}

func (e *GatewayError) kind() FailureKind {
	if e.Kind == "" {
		return FailureRefused
	}
	return e.Kind
}

func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}

	gateway := e.Gateway
	if gateway == "" {
		gateway = "gateway"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: message not accepted (%s", gateway, e.kind())
	if e.HTTPStatus > 0 {
		fmt.Fprintf(&b, ", http %d", e.HTTPStatus)
	}
	b.WriteString(")")
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the same message may go through on a later send.
// A caller that gave up (context canceled) never retries.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.kind().Retryable()
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FailureLabel names the failure for metrics and logs.
func FailureLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return string(gwErr.kind())
	}
	return "unknown"
}
