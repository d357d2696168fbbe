//go:build unix

package cancel

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// startKeyListener puts stdin into cbreak mode and starts the listener
// goroutine. Returns false when stdin cannot deliver key presses.
func startKeyListener(c *Controller) bool {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return false
	}

	oldState, err := makeCbreak(fd)
	if err != nil {
		return false
	}

	go c.listen(fd, oldState)
	return true
}

// makeCbreak disables line buffering and echo on the terminal but leaves
// signal generation (Ctrl+C) and output post-processing untouched, so the
// rest of the process keeps writing ordinary LF-terminated lines and the
// SIGINT fallback stays available.
func makeCbreak(fd int) (*unix.Termios, error) {
	old, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, err
	}

	state := cbreakTermios(*old)
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &state); err != nil {
		return nil, err
	}
	return old, nil
}

// cbreakTermios clears only ICANON and ECHO; ISIG, IEXTEN and OPOST are
// preserved. Reads return after a single byte.
func cbreakTermios(t unix.Termios) unix.Termios {
	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return t
}

// listen waits for the Escape key. Stdin is polled with a bounded timeout so
// the goroutine can also observe its own exit signal; it never blocks
// indefinitely.
func (c *Controller) listen(fd int, oldState *unix.Termios) {
	defer close(c.listenerDone)
	defer unix.IoctlSetTermios(fd, ioctlWriteTermios, oldState) //nolint:errcheck

	buf := make([]byte, 1)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		select {
		case <-c.listenerExit:
			return
		default:
		}

		fds[0].Revents = 0
		n, err := unix.Poll(fds, int(listenPollInterval.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}

		if _, err := os.Stdin.Read(buf); err != nil {
			return
		}
		if buf[0] == escapeKey {
			c.log.Info().Msg("escape pressed, stopping the run")
			c.RequestStop()
			return
		}
	}
}
