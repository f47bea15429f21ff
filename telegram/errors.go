package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ResponseParameters is the subset of the Bot API error payload the client
// cares about: the retry hint attached to 429 responses.
type ResponseParameters struct {
	RetryAfter      int   `json:"retry_after,omitempty"`
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
}

type RequestError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	Parameters  *ResponseParameters
	Body        string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	desc := strings.TrimSpace(e.Description)
	if desc != "" {
		if e.StatusCode > 0 {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, desc)
		}
		return "telegram: " + desc
	}
	body := strings.TrimSpace(e.Body)
	if e.StatusCode > 0 {
		if body != "" {
			return fmt.Sprintf("telegram http %d: %s", e.StatusCode, body)
		}
		return fmt.Sprintf("telegram http %d", e.StatusCode)
	}
	if body != "" {
		return "telegram: " + body
	}
	return "telegram request failed"
}

// RetryAfterIn normalizes the transport's heterogeneous fault shapes to an
// optional retry delay. It reports true only for rate-limit failures that
// carry a usable retry_after hint.
func RetryAfterIn(err error) (time.Duration, bool) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return 0, false
	}
	if reqErr.ErrorCode != 429 && reqErr.StatusCode != 429 {
		return 0, false
	}
	if reqErr.Parameters == nil || reqErr.Parameters.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(reqErr.Parameters.RetryAfter) * time.Second, true
}

// IsPollTimeout reports whether a getUpdates error is the expected long-poll
// timeout rather than a real transport failure.
func IsPollTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}
