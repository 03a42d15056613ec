package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingIdentity    = errors.New("record identity missing")
	ErrInvalidTarget      = errors.New("invalid target locale")
	ErrProviderRequest    = errors.New("provider request failed")
	ErrProviderResponse   = errors.New("provider returned an error")
	ErrTranslationTimeout = errors.New("translation timed out")
	ErrMalformedResponse  = errors.New("malformed provider response")
	ErrStoreUnavailable   = errors.New("translation store unavailable")
)
