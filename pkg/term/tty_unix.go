//go:build !windows

package term

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// pollIntervalMs bounds how long a read waits before rechecking the
// stop channel. It doubles as the settle time after a lone ESC byte
// before it is reported as an Escape key press.
const pollIntervalMs = 50

// readRaw reads the next chunk of input. It returns an empty slice on a
// quiet poll interval, nil data with nil error on stop, and an error on
// EOF or a failed read.
func readRaw(fd int, stop <-chan struct{}) ([]byte, error) {
	buf := make([]byte, 256)

	for {
		select {
		case <-stop:
			return nil, nil
		default:
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollIntervalMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		if n == 0 {
			return []byte{}, nil
		}

		rn, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return nil, err
		}
		if rn == 0 {
			return nil, io.EOF
		}

		out := make([]byte, rn)
		copy(out, buf[:rn])
		return out, nil
	}
}

// windowSize queries the terminal dimensions in cells.
func windowSize(fd int) (int, int, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

func notifyResize(sigCh chan<- os.Signal) {
	signal.Notify(sigCh, syscall.SIGWINCH)
}

func stopResize(sigCh chan<- os.Signal) {
	signal.Stop(sigCh)
}
