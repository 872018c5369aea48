package retry

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// transientSubstrings are matched case-insensitively against an error's
// message.
var transientSubstrings = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"service unavailable",
	"rate limit",
	"too many requests",
	"server error",
	"internal error",
	"network is unreachable",
	"502",
	"503",
	"504",
	"throttled",
	"quota exceeded",
}

// IsTransient is the default retryability classifier: network/IO/timeout
// error types (by type or by wrapping), plus the fixed set of transient
// substrings matched case-insensitively against the error message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, substr := range transientSubstrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
