package selfcheck

import "errors"

// ErrGitdm is returned for gitdm dumps that cannot be read.
var ErrGitdm = errors.New("invalid gitdm dump")
