package resolver

import "errors"

// ErrResolution is returned when the resolver is used without an identity map.
var ErrResolution = errors.New("resolver: identity map not configured")
