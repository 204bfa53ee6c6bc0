// Package descriptor abstracts the OS streams that a child process reads and
// writes. A Descriptor wraps an OS file descriptor together with its
// lifecycle: the pipeline opens it right before spawning the child, hands its
// fd to the spawn primitive, and closes the parent-side copy right after the
// spawn returns.
//
// Variants cover the three standard streams, files on disk, the two ends of
// an anonymous pipe, and in-memory buffers backed by an internal pipe.
// Callers can implement Descriptor themselves to plug custom streams into a
// pipeline.
package descriptor

import (
	"golang.org/x/sys/unix"

	"github.com/guseggert/pipecmd/errdefs"
)

// Caps is the capability bit-set of a descriptor.
type Caps uint8

const (
	CapRead Caps = 1 << iota
	CapWrite
)

func (c Caps) CanRead() bool { return c&CapRead != 0 }
func (c Caps) CanWrite() bool { return c&CapWrite != 0 }

// Descriptor is a handle to an OS stream with an explicit lifecycle.
//
// Fd returns the current OS file descriptor, or -1 when the descriptor is
// not open. Open transitions it from unopened to open and may allocate OS
// resources (a pipe, an open file); it is idempotent. Close releases every
// OS resource the descriptor owns and performs any deferred I/O; it is also
// idempotent. Closable reports whether the pipeline should close the
// parent-side fd after spawning; it is always false for the standard
// streams, and false for the other variants while they hold no open fd.
type Descriptor interface {
	Fd() int
	Closable() bool
	Open() error
	Close() error
	Caps() Caps
}

// stdStream wraps one of the process's standard streams. Open and Close are
// no-ops: the fd is owned by the process, not by the pipeline.
type stdStream struct {
	fd   int
	caps Caps
}

func (s *stdStream) Fd() int { return s.fd }
func (s *stdStream) Closable() bool { return false }
func (s *stdStream) Open() error { return nil }
func (s *stdStream) Close() error { return nil }
func (s *stdStream) Caps() Caps { return s.caps }

var (
	stdinFd  = &stdStream{fd: 0, caps: CapRead}
	stdoutFd = &stdStream{fd: 1, caps: CapWrite}
	stderrFd = &stdStream{fd: 2, caps: CapWrite}
)

// Stdin returns the shared descriptor for the process's standard input.
func Stdin() Descriptor { return stdinFd }

// Stdout returns the shared descriptor for the process's standard output.
func Stdout() Descriptor { return stdoutFd }

// Stderr returns the shared descriptor for the process's standard error.
func Stderr() Descriptor { return stderrFd }

const readChunk = 2048

// readAll drains fd to EOF. The buffer is per-call so that pipelines on
// different goroutines don't trample each other.
func readAll(fd int) ([]byte, error) {
	var out []byte
	buf := make([]byte, readChunk)
	for {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return out, errdefs.OS("read", "", err)
		}
		if n == 0 {
			return out, nil
		}
	}
}

// writeAll writes the whole payload to fd, retrying short writes and EINTR.
func writeAll(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if n > 0 {
			p = p[n:]
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return errdefs.OS("write", "", err)
		}
	}
	return nil
}

// closeFd closes a raw fd, tolerating EINTR the way os.File does.
func closeFd(fd int) error {
	if err := unix.Close(fd); err != nil && err != unix.EINTR {
		return errdefs.OS("close", "", err)
	}
	return nil
}
