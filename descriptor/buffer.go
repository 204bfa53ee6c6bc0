package descriptor

import (
	"errors"

	"golang.org/x/sys/unix"
)

// InputBuffer feeds a caller-supplied payload to the child's standard input.
// It owns an internal pipe: Open allocates it, exposes the read end as the
// descriptor's fd, and starts a helper goroutine that pushes the payload into
// the write end. The helper keeps Open from blocking when the payload is
// larger than the kernel pipe buffer, since at Open time no reader exists
// yet.
type InputBuffer struct {
	payload []byte

	read  *ReadPipe
	write *WritePipe

	writerDone chan struct{}
	writeErr   error
}

// NewInputBuffer returns an input descriptor that delivers payload to the
// child's stdin and then EOF.
func NewInputBuffer(payload []byte) *InputBuffer {
	r, w := NewPipe()
	return &InputBuffer{payload: payload, read: r, write: w}
}

func (b *InputBuffer) Fd() int { return b.read.Fd() }
func (b *InputBuffer) Closable() bool { return b.read.Closable() }
func (b *InputBuffer) Caps() Caps { return CapRead }

func (b *InputBuffer) Open() error {
	if b.read.Fd() >= 0 {
		return nil
	}
	if err := b.read.Open(); err != nil {
		return err
	}
	b.writerDone = make(chan struct{})
	go func() {
		defer close(b.writerDone)
		err := writeAll(b.write.Fd(), b.payload)
		// EPIPE means the child closed its end without draining the
		// payload; that is the child's business, not an error here.
		if err != nil && !errors.Is(err, unix.EPIPE) {
			b.writeErr = err
		}
		if cerr := b.write.Close(); cerr != nil && b.writeErr == nil {
			b.writeErr = cerr
		}
	}()
	return nil
}

// Close closes the parent's read end. The payload writer is left to finish
// on its own: joining it here could block forever, because the child only
// drains its stdin as fast as the rest of the pipeline drains the child, and
// at close time downstream stages may not even be spawned yet. The writer
// closes the write end itself when the payload is delivered or the child
// hangs up; if it has already finished, its error is reported here.
func (b *InputBuffer) Close() error {
	if b.read.Fd() < 0 {
		return nil
	}
	err := b.read.Close()
	select {
	case <-b.writerDone:
		if b.writeErr != nil {
			return b.writeErr
		}
	default:
	}
	return err
}

// OutputBuffer captures the child's standard output or error into memory.
// It owns an internal pipe: Open allocates it and exposes the write end as
// the descriptor's fd; Close closes the write end so the drain sees EOF once
// the child exits, then reads the read end to completion.
type OutputBuffer struct {
	read  *ReadPipe
	write *WritePipe

	captured []byte
	drained  bool
}

// NewOutputBuffer returns an output descriptor whose capture is available
// from Bytes or String after the pipeline has run.
func NewOutputBuffer() *OutputBuffer {
	r, w := NewPipe()
	return &OutputBuffer{read: r, write: w}
}

func (b *OutputBuffer) Fd() int { return b.write.Fd() }
func (b *OutputBuffer) Closable() bool { return b.write.Closable() }
func (b *OutputBuffer) Caps() Caps { return CapWrite }

func (b *OutputBuffer) Open() error {
	if b.write.Fd() >= 0 {
		return nil
	}
	return b.write.Open()
}

// Close tears down the parent's write end and drains the child's output.
// It blocks until every copy of the write end is closed, which for a spawned
// pipeline means until the child exits.
func (b *OutputBuffer) Close() error {
	if b.drained || b.write.Fd() < 0 {
		return nil
	}
	b.drained = true
	if err := b.write.Close(); err != nil {
		b.read.Close()
		return err
	}
	out, err := readAll(b.read.Fd())
	b.captured = out
	if cerr := b.read.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Bytes returns the captured output. It is only meaningful after Close.
func (b *OutputBuffer) Bytes() []byte { return b.captured }

// String returns the captured output as a string.
func (b *OutputBuffer) String() string { return string(b.captured) }
