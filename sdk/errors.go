package sage

import (
	"errors"

	"github.com/sagepoint-analytics/sage-go/pkg/core"
)

// Error is the canonical error type surfaced by the SDK.
type Error = core.Error

// Error types.
const (
	ErrInvalidRequest = core.ErrInvalidRequest
	ErrConfiguration  = core.ErrConfiguration
	ErrTransport      = core.ErrTransport
	ErrProtocol       = core.ErrProtocol
	ErrAuthentication = core.ErrAuthentication
	ErrRateLimit      = core.ErrRateLimit
	ErrAPI            = core.ErrAPI
	ErrOverloaded     = core.ErrOverloaded
	ErrTimeout        = core.ErrTimeout
)

// Error constructors.
var (
	NewInvalidRequestError = core.NewInvalidRequestError
	NewConfigurationError  = core.NewConfigurationError
	NewAPIError            = core.NewAPIError
)

// Microphone failure classifications. Capture sources return these so the
// session can render a distinct, actionable notice instead of one generic
// failure.
var (
	ErrMicPermissionDenied = errors.New("microphone permission denied")
	ErrMicNotFound         = errors.New("no microphone device found")
	ErrInsecureContext     = errors.New("microphone capture requires a secure context")
)
