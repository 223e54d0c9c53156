// Package channels holds small helpers for sending on channels without
// blocking forever, plus a Broadcaster that fans one stream out to many
// subscribers.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
	ErrNilChannel     = errors.New("subscriber channel cannot be nil")
	ErrBadTimeout     = errors.New("subscriber timeout must be positive")
)
