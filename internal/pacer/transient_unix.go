//go:build unix

package pacer

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isTransient reports whether a send error is a resource-exhaustion
// condition worth an immediate retry: the kernel dropped the datagram for
// lack of buffer space, or a non-blocking send would have blocked.
func isTransient(err error) bool {
	return errors.Is(err, unix.ENOBUFS) || errors.Is(err, unix.EAGAIN)
}
