// Package ratelimit throttles the public share-link routes per client IP so
// tokens cannot be guessed at speed.
package ratelimit

import (
	"math"
	"strings"
	"time"
)

// Limit allows Requests within any sliding Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in whole seconds and only set on denial.
	RetryAfter int
	// Degraded is set when the answer came from the in-process fallback.
	Degraded bool
}

// ShareLinkKey is the bucket for share-link requests from one client.
func ShareLinkKey(clientIP string) string {
	return "share:" + SanitizeKeySegment(clientIP)
}

// SanitizeKeySegment keeps caller-controlled values from adding key segments.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Denied builds the result for a full window whose oldest entry leaves at resetAt.
func Denied(limit Limit, resetAt, now time.Time) *Result {
	retry := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retry < 1 {
		retry = 1
	}
	return &Result{
		Allowed:    false,
		Limit:      limit.Requests,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}
