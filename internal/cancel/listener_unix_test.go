//go:build unix

package cancel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestCbreakTermiosLeavesSignalsAndOutputAlone(t *testing.T) {
	var in unix.Termios
	in.Lflag = unix.ICANON | unix.ECHO | unix.ISIG | unix.IEXTEN
	in.Oflag = unix.OPOST
	in.Iflag = unix.ICRNL

	out := cbreakTermios(in)

	assert.Zero(t, out.Lflag&unix.ICANON, "line buffering must be off")
	assert.Zero(t, out.Lflag&unix.ECHO, "echo must be off")
	assert.NotZero(t, out.Lflag&unix.ISIG, "Ctrl+C must still raise SIGINT")
	assert.NotZero(t, out.Lflag&unix.IEXTEN, "extended input processing is untouched")
	assert.NotZero(t, out.Oflag&unix.OPOST, "output post-processing is untouched")
	assert.EqualValues(t, unix.ICRNL, out.Iflag, "input flags are untouched")
	assert.EqualValues(t, 1, out.Cc[unix.VMIN])
	assert.EqualValues(t, 0, out.Cc[unix.VTIME])
}
