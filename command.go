package pipecmd

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guseggert/pipecmd/descriptor"
	"github.com/guseggert/pipecmd/errdefs"
)

// Command is an ordered pipeline of processes connected by anonymous pipes,
// front to back in data-flow order. It is built from a single command line
// and grown with Pipe, with the redirection methods adjusting the first
// stage's stdin or the last stage's stdout/stderr.
//
// A Command is single-use: running it consumes the descriptors it was built
// with, and a second run returns a usage error.
type Command struct {
	procs    []*Process
	log      *zap.SugaredLogger
	runID    string
	consumed bool
}

// Option configures a Command.
type Option func(*Command)

// WithLogger attaches a logger to the pipeline. Log lines carry the
// pipeline's run id so concurrent pipelines can be told apart.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Command) {
		c.log = l
	}
}

// New returns a single-stage pipeline for cmdline.
func New(cmdline string, opts ...Option) *Command {
	c := &Command{
		procs: []*Process{NewProcess(cmdline)},
		log:   zap.NewNop().Sugar(),
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("run_id", c.runID)
	for _, p := range c.procs {
		p.log = c.log
	}
	return c
}

func (c *Command) first() *Process { return c.procs[0] }
func (c *Command) last() *Process { return c.procs[len(c.procs)-1] }

// Pipe appends a new stage whose stdin is fed by the current last stage's
// stdout through a fresh pipe.
func (c *Command) Pipe(cmdline string) *Command {
	return c.PipeCmd(New(cmdline))
}

// PipeCmd splices another pipeline onto the end of this one. The read end of
// a new pipe becomes other's first stage stdin, the write end becomes this
// pipeline's last stage stdout, and other's stages are appended in order.
func (c *Command) PipeCmd(other *Command) *Command {
	r, w := descriptor.NewPipe()
	other.first().SetStdin(r)
	c.last().SetStdout(w)
	for _, p := range other.procs {
		p.log = c.log
	}
	c.procs = append(c.procs, other.procs...)
	return c
}

// Stdin redirects the first stage's standard input to d.
func (c *Command) Stdin(d descriptor.Descriptor) *Command {
	c.first().SetStdin(d)
	return c
}

// Stdout redirects the last stage's standard output to d.
func (c *Command) Stdout(d descriptor.Descriptor) *Command {
	c.last().SetStdout(d)
	return c
}

// Stderr redirects the last stage's standard error to d.
func (c *Command) Stderr(d descriptor.Descriptor) *Command {
	c.last().SetStderr(d)
	return c
}

// StdinFile feeds the first stage's stdin from the file at path.
func (c *Command) StdinFile(path string) *Command {
	return c.Stdin(descriptor.OpenFile(path, 0))
}

// StdoutFile writes the last stage's stdout to path, truncating it.
func (c *Command) StdoutFile(path string) *Command {
	return c.Stdout(descriptor.CreateFile(path, descriptor.Truncate))
}

// StdoutFileAppend appends the last stage's stdout to path.
func (c *Command) StdoutFileAppend(path string) *Command {
	return c.Stdout(descriptor.CreateFile(path, descriptor.Append))
}

// StderrFile writes the last stage's stderr to path, truncating it.
func (c *Command) StderrFile(path string) *Command {
	return c.Stderr(descriptor.CreateFile(path, descriptor.Truncate))
}

// StderrFileAppend appends the last stage's stderr to path.
func (c *Command) StderrFileAppend(path string) *Command {
	return c.Stderr(descriptor.CreateFile(path, descriptor.Append))
}

// StdinString feeds s to the first stage's stdin, followed by EOF.
func (c *Command) StdinString(s string) *Command {
	return c.StdinBytes([]byte(s))
}

// StdinBytes feeds b to the first stage's stdin, followed by EOF.
func (c *Command) StdinBytes(b []byte) *Command {
	return c.Stdin(descriptor.NewInputBuffer(b))
}

// StdoutTo captures the last stage's stdout into *dst. The string is
// populated while the pipeline runs and is complete when RunStatus or Run
// returns.
func (c *Command) StdoutTo(dst *string) *Command {
	return c.Stdout(newCaptureDescriptor(dst))
}

// StderrTo captures the last stage's stderr into *dst.
func (c *Command) StderrTo(dst *string) *Command {
	return c.Stderr(newCaptureDescriptor(dst))
}

// StdoutToStderr aliases the last stage's stdout to its stderr descriptor.
func (c *Command) StdoutToStderr() *Command {
	c.last().StdoutToStderr()
	return c
}

// StderrToStdout aliases the last stage's stderr to its stdout descriptor.
// The spawn-time close de-duplication keeps the shared descriptor from being
// closed twice in the child.
func (c *Command) StderrToStdout() *Command {
	c.last().StderrToStdout()
	return c
}

// RunStatus runs the pipeline and returns the exit code of its last stage.
// A non-zero exit code is not an error here; the error return carries OS and
// usage failures only.
//
// All stages are spawned front to back before any is waited on. Spawning
// stage i closes the parent's write end of the pipe into stage i+1, so each
// stage sees EOF as soon as its upstream exits; waiting in between spawns
// instead would deadlock once a stage fills a pipe buffer with nobody
// downstream to drain it.
func (c *Command) RunStatus() (int, error) {
	if c.consumed {
		return 0, errdefs.Usagef("pipeline has already run; its descriptors are closed")
	}
	c.consumed = true

	for i, p := range c.procs {
		if err := p.Execute(); err != nil {
			// Stages spawned before the failure keep running; they
			// are not killed or reaped here.
			if i > 0 {
				c.log.Warnw("pipeline aborted mid-spawn, earlier stages left running",
					"failed_stage", i)
			}
			return 0, err
		}
	}

	status := 0
	for _, p := range c.procs {
		var err error
		status, err = p.Wait()
		if err != nil {
			return 0, err
		}
	}
	c.log.Debugw("pipeline finished", "stages", len(c.procs), "code", status)
	return status, nil
}

// Run runs the pipeline and returns nil only if the last stage exits zero.
// A non-zero exit surfaces as *errdefs.ExitError.
func (c *Command) Run() error {
	status, err := c.RunStatus()
	if err != nil {
		return err
	}
	if status != 0 {
		return &errdefs.ExitError{Code: status}
	}
	return nil
}

// captureDescriptor binds an OutputBuffer to a caller-owned string, filled
// when the pipeline closes the descriptor.
type captureDescriptor struct {
	*descriptor.OutputBuffer
	dst *string
}

func newCaptureDescriptor(dst *string) *captureDescriptor {
	return &captureDescriptor{OutputBuffer: descriptor.NewOutputBuffer(), dst: dst}
}

func (d *captureDescriptor) Close() error {
	err := d.OutputBuffer.Close()
	*d.dst = d.OutputBuffer.String()
	return err
}
