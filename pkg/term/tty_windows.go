//go:build windows

package term

import (
	"io"
	"os"
	"syscall"

	xterm "golang.org/x/term"
)

// readRaw blocks on a console read. Windows has no pollable console fd
// here, so stop is only observed between reads; Fini's bounded wait
// covers a read that never returns.
func readRaw(fd int, stop <-chan struct{}) ([]byte, error) {
	select {
	case <-stop:
		return nil, nil
	default:
	}

	buf := make([]byte, 256)
	n, err := syscall.Read(syscall.Handle(fd), buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func windowSize(fd int) (int, int, error) {
	return xterm.GetSize(fd)
}

// Windows consoles deliver no resize signal; the resize pump idles and
// the session keeps its initial dimensions.
func notifyResize(sigCh chan<- os.Signal) {}

func stopResize(sigCh chan<- os.Signal) {}
