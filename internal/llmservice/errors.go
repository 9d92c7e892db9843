package llmservice

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
)

// Cause is the likely reason a completion failed.
type Cause int

const (
	CauseUnknown Cause = iota
	CauseRateLimit
	CauseCredential
	CauseServer
	CauseNetwork
)

func (c Cause) String() string {
	switch c {
	case CauseRateLimit:
		return "rate limit exceeded"
	case CauseCredential:
		return "invalid API key"
	case CauseServer:
		return "provider server error"
	case CauseNetwork:
		return "network issue"
	default:
		return "unknown"
	}
}

// Transient reports whether another attempt can succeed.
func (c Cause) Transient() bool {
	return c == CauseRateLimit || c == CauseServer || c == CauseNetwork
}

var serverStatusRe = regexp.MustCompile(`\b5\d\d\b`)

// Classify inspects a provider error. Providers only surface HTTP statuses
// inside error text, so matching is on the message.
func Classify(err error) Cause {
	if err == nil {
		return CauseUnknown
	}
	msg := strings.ToLower(err.Error())
	var netErr net.Error
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return CauseRateLimit
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "unauthorized"):
		return CauseCredential
	case serverStatusRe.MatchString(msg) || strings.Contains(msg, "service unavailable") || strings.Contains(msg, "bad gateway"):
		return CauseServer
	case errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "connection"):
		return CauseNetwork
	default:
		return CauseUnknown
	}
}
