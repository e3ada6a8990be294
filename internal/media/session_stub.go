//go:build !linux

package media

import "errors"

// NewSession creates a new platform-specific media session.
// Only MPRIS on Linux is supported.
func NewSession() (Session, error) {
	return nil, errors.New("media session not supported on this platform")
}
