package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthUnavailable: the token endpoint is unreachable or rejects our
	// credentials. Nothing authorized can proceed until it clears.
	ErrAuthUnavailable = errors.New("auth unavailable")

	// ErrUpstreamAuth: a 401/403 that survived one forced refresh + replay.
	ErrUpstreamAuth = errors.New("upstream rejected authorization")

	// ErrContentUnavailable: no cached content and the fetch failed.
	ErrContentUnavailable = errors.New("property content unavailable")

	// ErrPricingUnavailable: no offers could be retrieved for the requested
	// property and dates.
	ErrPricingUnavailable = errors.New("pricing unavailable")

	ErrInvalidImageToken = errors.New("invalid image token")
	ErrImageUnavailable  = errors.New("image unavailable")
)

// UpstreamError carries a non-success upstream status plus whatever
// structured messages the response body offered.
type UpstreamError struct {
	Status   int
	Messages []string
}

func (e *UpstreamError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}
