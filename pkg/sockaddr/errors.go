package sockaddr

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
)

// ErrItemLength is returned when a SockAddr Info Item body is not 16 bytes.
var ErrItemLength = errors.New("sockaddr: invalid item length")

// getaddrinfo(3) error codes, glibc numbering.
const (
	EAINoName = -2
	EAIAgain  = -3
	EAIFail   = -4
	EAINoData = -5
	EAIFamily = -6
)

// SocketError reports a failed name resolution or socket call together with
// the platform error code captured at the point of failure. Code is an errno
// for socket calls and a getaddrinfo(3) EAI_* value for resolution.
type SocketError struct {
	Op   string
	Msg  string
	Code int
	Err  error
}

// NewSocketError wraps err, taking the error code from err itself so that no
// later call can clobber it.
func NewSocketError(op, msg string, err error) *SocketError {
	return &SocketError{Op: op, Msg: msg, Code: codeOf(err), Err: err}
}

// NewSocketErrorCode builds a SocketError with an explicit code, for failures
// detected by application logic rather than returned by a platform call.
func NewSocketErrorCode(op, msg string, code int) *SocketError {
	return &SocketError{Op: op, Msg: msg, Code: code}
}

func (e *SocketError) Error() string {
	s := e.Op + ": " + e.Msg + " (code " + strconv.Itoa(e.Code) + ")"
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *SocketError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same call may succeed.
func (e *SocketError) Temporary() bool {
	switch e.Code {
	case EAIAgain, int(syscall.EAGAIN), int(syscall.EINTR):
		return true
	}
	return false
}

func codeOf(err error) int {
	var se *SocketError
	if errors.As(err, &se) {
		return se.Code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return EAINoName
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return EAIAgain
		}
		return EAIFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return EAIAgain
	}
	return EAIFail
}
