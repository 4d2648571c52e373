package instrument

import (
	"errors"
)

var (
	// ErrConfiguration reports an invalid or conflicting instrument configuration. It is always
	// returned before any connection attempt.
	ErrConfiguration = errors.New("configuration error")
	// ErrOutOfRange reports a command argument outside the instrument's capability bounds.
	ErrOutOfRange = errors.New("value out of range")
	ErrDuplicateName = errors.New("duplicate instrument name")
)
