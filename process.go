package pipecmd

import (
	"go.uber.org/zap"

	"github.com/guseggert/pipecmd/descriptor"
	"github.com/guseggert/pipecmd/errdefs"
	"github.com/guseggert/pipecmd/expander"
	"github.com/guseggert/pipecmd/internal/spawn"
)

type procState int

const (
	unspawned procState = iota
	spawned
	reaped
)

// Process is a single child process to be spawned: a command line plus three
// descriptor slots, defaulted to the parent's standard streams. A Process
// moves through unspawned -> spawned (Execute) -> reaped (Wait); the exit
// code reported by Wait is its observable output.
//
// Most callers build processes indirectly through Command; the type is
// exported for hosts that want to wire descriptors themselves.
type Process struct {
	cmdline string
	stdin   descriptor.Descriptor
	stdout  descriptor.Descriptor
	stderr  descriptor.Descriptor
	log     *zap.SugaredLogger
	pid     int
	state   procState
}

// NewProcess returns an unspawned process for cmdline with all three streams
// pointing at the parent's.
func NewProcess(cmdline string) *Process {
	return &Process{
		cmdline: cmdline,
		stdin:   descriptor.Stdin(),
		stdout:  descriptor.Stdout(),
		stderr:  descriptor.Stderr(),
		log:     zap.NewNop().Sugar(),
	}
}

func (p *Process) SetStdin(d descriptor.Descriptor)  { p.stdin = d }
func (p *Process) SetStdout(d descriptor.Descriptor) { p.stdout = d }
func (p *Process) SetStderr(d descriptor.Descriptor) { p.stderr = d }

// StdoutToStderr points the process's stdout at whatever descriptor its
// stderr currently uses.
func (p *Process) StdoutToStderr() { p.stdout = p.stderr }

// StderrToStdout points the process's stderr at whatever descriptor its
// stdout currently uses.
func (p *Process) StderrToStdout() { p.stderr = p.stdout }

func (p *Process) Stdin() descriptor.Descriptor { return p.stdin }
func (p *Process) Stdout() descriptor.Descriptor { return p.stdout }
func (p *Process) Stderr() descriptor.Descriptor { return p.stderr }

// Execute expands the command line and spawns the child.
//
// The order here is a protocol, not a convenience: each descriptor is opened
// and dup'd into the action list, close actions are recorded (de-duplicated,
// since two slots may share a descriptor after an alias redirect), the child
// is spawned with those actions, and only then are the parent-side copies
// closed. Closing before the spawn would hand the child dead fds; closing
// after Wait would hold pipe write ends open and stall downstream readers
// waiting for EOF.
func (p *Process) Execute() error {
	argv, err := expander.Expand(p.cmdline)
	if err != nil {
		return err
	}

	actions := spawn.NewFileActions()
	for target, d := range []descriptor.Descriptor{p.stdin, p.stdout, p.stderr} {
		if err := d.Open(); err != nil {
			return err
		}
		actions.Dup(d, target)
	}
	actions.Close(p.stdin)
	actions.Close(p.stdout)
	actions.Close(p.stderr)

	pid, err := spawn.Spawn(argv, actions)
	if err != nil {
		return err
	}
	p.pid = pid
	p.state = spawned
	p.log.Debugw("spawned process", "cmd", p.cmdline, "pid", pid)

	for _, d := range []descriptor.Descriptor{p.stdin, p.stdout, p.stderr} {
		if err := d.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Wait reaps the child and returns its exit code. It is an error to call
// Wait before a successful Execute, or twice.
func (p *Process) Wait() (int, error) {
	if p.state != spawned {
		return 0, errdefs.Usagef("Wait called on a process that is not running (did Execute succeed?)")
	}
	code, err := spawn.Wait(p.pid)
	if err != nil {
		return 0, err
	}
	p.state = reaped
	p.log.Debugw("reaped process", "cmd", p.cmdline, "pid", p.pid, "code", code)
	return code, nil
}
