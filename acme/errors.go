package acme

import (
	"fmt"

	"github.com/uacme/uacme/acme/resources"
)

// TransportError wraps a failure to complete an HTTP exchange with the ACME
// server (DNS, TCP, TLS, timeout). It is fatal to the containing operation.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %q failed: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProblemError carries a problem document returned by the server, either as
// an application/problem+json response or as a top-level "error" member of
// another resource. The full document is preserved so it can be shown to the
// operator verbatim.
type ProblemError struct {
	Problem resources.Problem
	// The raw response body the problem was decoded from.
	Body []byte
}

func (e *ProblemError) Error() string {
	if e.Problem.Detail != "" {
		return fmt.Sprintf("server returned error %q: %s", e.Problem.Type, e.Problem.Detail)
	}
	return fmt.Sprintf("server returned error %q", e.Problem.Type)
}

// IsType reports whether the problem's type URN matches the given URN.
func (e *ProblemError) IsType(urn string) bool {
	return e.Problem.Type == urn
}

// ProtocolError indicates the server's response violated what the protocol
// requires at this point: an unexpected status code, a missing header, an
// unexpected resource status, or malformed JSON.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

// Protocolf builds a ProtocolError from a format string.
func Protocolf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// HookError indicates the external validation hook could not be run, or
// aborted an authorization. Code is the hook's exit status, or -1 when the
// process could not be started or was terminated by a signal (Err holds the
// failure).
type HookError struct {
	Code int
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hook failed to run: %s", e.Err)
	}
	return fmt.Sprintf("hook exited with status %d", e.Code)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// InputError indicates invalid operator input (bad arguments, malformed
// domain, declined terms of service). Bad arguments and malformed domains
// are rejected before any network call; a declined terms of service is
// reported after the account probe request.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// FilesystemError wraps a failure reading or writing key and certificate
// material under the configuration directory.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}
