package gemini

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

// apiError represents an error response from the API.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// parseError maps an HTTP error response to a canonical error.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := string(body)
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = seconds
			}
		}
		return core.NewRateLimitError(message, retryAfter)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return core.NewAuthenticationError(message)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return core.NewOverloadedError(message)
	case resp.StatusCode >= 500:
		return core.NewAPIError(message)
	default:
		return core.NewInvalidRequestError(message)
	}
}
