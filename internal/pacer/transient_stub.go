//go:build !unix

package pacer

// isTransient always reports false on platforms without unix errno
// classification: every send error aborts the loop.
func isTransient(err error) bool {
	return false
}
