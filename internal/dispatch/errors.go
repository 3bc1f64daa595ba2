package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/justsum66/cheersin-gateway/internal/model"
)

// Classify maps an upstream failure onto the wire-level error code and a
// retryability hint. Only timeouts and transient network/5xx-pattern failures
// are marked retryable.
func Classify(err error) (code string, retryable bool) {
	if err == nil {
		return model.CodeUpstreamError, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.CodeTimeout, true
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return model.CodeTimeout, true
	case containsAny(msg, "rate limit", "too many requests", "429", "quota"):
		return model.CodeRateLimit, false
	case containsAny(msg, "500", "502", "503", "504", "bad gateway",
		"service unavailable", "connection refused", "connection reset",
		"unexpected eof", "no such host", "overloaded"):
		return model.CodeUpstreamError, true
	default:
		return model.CodeUpstreamError, false
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
