package harvest

import "errors"

var (
	// ErrExhausted: every applicable method was tried and none produced links.
	ErrExhausted = errors.New("harvest: all methods exhausted")

	// ErrUnknownPlatform: the request named a platform this build does not know.
	ErrUnknownPlatform = errors.New("harvest: unknown platform")

	// ErrPlatformDisabled: the platform is known but disabled in configuration.
	ErrPlatformDisabled = errors.New("harvest: platform disabled")

	// ErrInvalidInput: the request is structurally invalid (empty account URL,
	// negative limits).
	ErrInvalidInput = errors.New("harvest: invalid input")

	// ErrClosed: the service was closed while requests were still arriving.
	ErrClosed = errors.New("harvest: service closed")
)
