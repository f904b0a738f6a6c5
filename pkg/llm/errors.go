package llm

import (
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xhad/sourcebook/pkg/apperr"
)

// classify tags a provider error as rate limited or as a generic upstream
// failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsRateLimited(err) {
		return apperr.RateLimited(op, err)
	}
	return apperr.Upstream(op, err)
}

// IsRateLimited reports whether a provider rejected a call with HTTP 429.
// Providers that do not expose a status code are matched on the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if apperr.IsRateLimited(err) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}
