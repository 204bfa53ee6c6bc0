package descriptor

import (
	"golang.org/x/sys/unix"

	"github.com/guseggert/pipecmd/errdefs"
)

// ReadPipe is the read end of an anonymous pipe. It must be linked to a
// WritePipe before it is opened; NewPipe returns an already linked pair.
type ReadPipe struct {
	fd     int
	linked *WritePipe
}

// WritePipe is the write end of an anonymous pipe.
type WritePipe struct {
	fd     int
	linked *ReadPipe
}

// NewReadPipe returns an unlinked, unopened read end. Link it to a write end
// before opening it.
func NewReadPipe() *ReadPipe { return &ReadPipe{fd: -1} }

// NewWritePipe returns an unlinked, unopened write end.
func NewWritePipe() *WritePipe { return &WritePipe{fd: -1} }

// NewPipe returns a linked (read end, write end) pair. The OS pipe itself is
// not allocated yet: the first Open on either end allocates it and populates
// the fds of both ends.
func NewPipe() (*ReadPipe, *WritePipe) {
	r := NewReadPipe()
	w := NewWritePipe()
	// Fresh endpoints can't already be linked, so this can't fail.
	if err := Link(r, w); err != nil {
		panic(err)
	}
	return r, w
}

// Link ties a read end and a write end together. Each endpoint has exactly
// one partner for its lifetime; linking an endpoint twice is a usage error.
func Link(r *ReadPipe, w *WritePipe) error {
	if r.linked != nil || w.linked != nil {
		return errdefs.Usagef("pipe endpoint is already linked to another endpoint")
	}
	r.linked = w
	w.linked = r
	return nil
}

// openPipe allocates the OS pipe and hands one fd to each linked end.
// Close-on-exec is set on both so that the child only keeps the copies the
// spawn actions dup onto its standard streams.
func openPipe(r *ReadPipe, w *WritePipe) error {
	if r == nil || w == nil {
		return errdefs.Usagef("pipe endpoint is not linked; use NewPipe or Link")
	}
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return errdefs.OS("pipe", "", err)
	}
	r.fd = fds[0]
	w.fd = fds[1]
	return nil
}

func (p *ReadPipe) Fd() int { return p.fd }
func (p *ReadPipe) Closable() bool { return p.fd >= 0 }
func (p *ReadPipe) Caps() Caps { return CapRead }

// Open allocates the underlying OS pipe unless the linked write end already
// did.
func (p *ReadPipe) Open() error {
	if p.fd >= 0 {
		return nil
	}
	return openPipe(p, p.linked)
}

// Close closes only this half of the pipe; the write end stays usable.
func (p *ReadPipe) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := closeFd(p.fd)
	p.fd = -1
	return err
}

func (p *WritePipe) Fd() int { return p.fd }
func (p *WritePipe) Closable() bool { return p.fd >= 0 }
func (p *WritePipe) Caps() Caps { return CapWrite }

// Open allocates the underlying OS pipe unless the linked read end already
// did.
func (p *WritePipe) Open() error {
	if p.fd >= 0 {
		return nil
	}
	return openPipe(p.linked, p)
}

// Close closes only this half of the pipe; the read end stays usable.
func (p *WritePipe) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := closeFd(p.fd)
	p.fd = -1
	return err
}
