//go:build windows

package cancel

// The abort key relies on termios-style polling. On Windows the run falls
// back to Ctrl+C signal handling in the command layer.
func startKeyListener(c *Controller) bool {
	return false
}
