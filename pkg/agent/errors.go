package agent

import (
	"context"
	"errors"
	"strings"
)

// Messages shown to the user when the model service fails. The raw fault is
// logged, never streamed.
const (
	msgRateLimited = "The analysis service is receiving too many requests right now. " +
		"Please wait a moment and ask again."
	msgAuthFailed = "The analysis service rejected this server's credentials. " +
		"Please check the configured API key."
	msgConnectivity = "The analysis service could not be reached. " +
		"Please check connectivity and try again."
	msgModelFailure = "Something went wrong while analyzing your question. " +
		"Please try again."
	msgIterationLimit = "I wasn't able to finish analyzing this question within the " +
		"allowed number of steps. Try asking something more specific, for example " +
		"about a single message type or a narrower time range."
)

// friendlyModelError maps a model-service failure to the one user-facing
// message for its category.
func friendlyModelError(err error) string {
	if err == nil {
		return msgModelFailure
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status 429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit"):
		return msgRateLimited
	case strings.Contains(msg, "status 401") || strings.Contains(msg, "status 403") ||
		strings.Contains(msg, "api key") || strings.Contains(msg, "authentication"):
		return msgAuthFailed
	case errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset"):
		return msgConnectivity
	default:
		return msgModelFailure
	}
}
