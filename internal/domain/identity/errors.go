package identity

import "errors"

// ErrConfig is returned for any malformed or ambiguous identity map. It is
// fatal at load time: nothing is resolved against a half-valid map.
var ErrConfig = errors.New("invalid identity map")
