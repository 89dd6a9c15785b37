// Package errors provides error classification and the per-host error
// taxonomy for hydra.
package errors

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ParseError reports a malformed row in a hosts file. The row is skipped;
// parsing continues with the rest of the file.
type ParseError struct {
	File string
	Row  int // 1-based
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("hosts file %s: parse error at row %d", e.File, e.Row)
}

// Unwrap returns the underlying parse failure.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NoCredentialError means no usable SSH key or password could be found for
// a host. It surfaces as that host's only output line.
type NoCredentialError struct {
	Host string
}

// Error implements the error interface.
func (e *NoCredentialError) Error() string {
	return fmt.Sprintf("no SSH keys or password available for %s", e.Host)
}

// ConnectError means the connection to a host could not be established after
// exhausting the retry budget, including the algorithm-degradation fallback.
type ConnectError struct {
	Host     string
	Addr     string
	Attempts int
	Timeout  time.Duration
	Err      error // last underlying failure
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("cannot connect to %s (%s) after %d attempts with %s timeout: %v",
		e.Host, e.Addr, e.Attempts, e.Timeout, e.Err)
}

// Unwrap returns the last underlying connection failure.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// RemoteExecutionError means a command failed to run or the connection
// dropped mid-stream. The host's end-marker still follows normally.
type RemoteExecutionError struct {
	Host string
	Err  error
}

// Error implements the error interface.
func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("remote execution failed on %s: %v", e.Host, e.Err)
}

// Unwrap returns the underlying execution failure.
func (e *RemoteExecutionError) Unwrap() error {
	return e.Err
}

// IsAlgorithmMismatch reports whether a handshake failure is attributable to
// transport algorithm negotiation, in which case the narrowed cipher/MAC
// preference should be dropped for subsequent attempts.
func IsAlgorithmMismatch(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	mismatchKeywords := []string{
		"no common algorithm",
		"no matching cipher",
		"no matching mac",
		"no matching key exchange",
		"no matching host key type",
	}

	for _, keyword := range mismatchKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// IsTimeout reports whether an error represents a connection timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	timeoutKeywords := []string{
		"timeout",
		"timed out",
		"deadline exceeded",
		"i/o timeout",
	}

	for _, keyword := range timeoutKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}
