package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these, optionally
// wrapped, and the transport layer maps them onto responses.
//
// - ErrNotFound: no aggregate is published under the name
// - ErrExpired: the aggregate is past its validUntil
// - ErrUnavailable: the backing store could not be reached
//
// Pipeline failures use pkg/domain-errors instead.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
