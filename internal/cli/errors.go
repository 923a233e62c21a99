package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"botfleet/internal/api"
	"botfleet/internal/client"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates that the botfleet server could not be reached.
type ConnectionError struct {
	// Server is the base URL that could not be reached.
	Server string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s talking to %s: %v\n\nIs the server running? Start it with: botfleet serve", e.Type, e.Server, e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError analyzes a transport error. Returns nil for nil
// errors and for errors that carry an answer of the server.
func ClassifyConnectionError(err error, server string) *ConnectionError {
	if err == nil {
		return nil
	}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return nil
	}

	ce := &ConnectionError{Server: server, Type: ConnectionErrorUnknown, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		ce.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		ce.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		ce.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		ce.Type = ConnectionErrorNetwork
	}
	return ce
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

func isNetworkError(errStr string) bool {
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// DescribeError renders an error for the terminal. Server answers keep their
// message and gain a hint for the kinds a user can act on.
func DescribeError(err error, server string) string {
	if err == nil {
		return ""
	}
	if ce := ClassifyConnectionError(err, server); ce != nil && ce.Type != ConnectionErrorUnknown {
		return ce.Error()
	}

	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) {
		return err.Error()
	}

	msg := fmt.Sprintf("%s (%s)", statusErr.Response.Message, statusErr.Response.Kind)
	if statusErr.StatusCode == http.StatusUnauthorized {
		return msg + "\n\nCheck --admin-token or set " + AdminTokenEnvVar + "."
	}
	switch statusErr.Kind() {
	case api.KindOwnership:
		return msg + "\n\nThe bot belongs to another tenant. Check --tenant."
	case api.KindConflict:
		if strings.Contains(statusErr.Response.Message, "redeploy") {
			return msg + "\n\nDelete the bot and deploy it again."
		}
	case api.KindValidation:
		if strings.Contains(statusErr.Response.Message, "X-Tenant-ID") {
			return msg + "\n\nPass --tenant or set " + TenantEnvVar + "."
		}
	}
	return msg
}
