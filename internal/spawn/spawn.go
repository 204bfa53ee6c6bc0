// Package spawn wraps the OS process-creation and reaping primitives used by
// the pipeline engine. It reproduces the posix_spawn file-actions protocol on
// top of ForkExec: dup actions become the child's initial fd table, and close
// actions become close-on-exec on the parent-side originals, so the child
// only keeps the copies dup'd onto its standard streams.
package spawn

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/guseggert/pipecmd/descriptor"
	"github.com/guseggert/pipecmd/errdefs"
)

// An Op is a child-side file descriptor action.
type Op int

const (
	// OpDup duplicates Fd onto Target in the child before exec.
	OpDup Op = iota
	// OpClose closes Fd in the child.
	OpClose
)

// Action is one recorded file descriptor manipulation.
type Action struct {
	Op     Op
	Fd     int
	Target int
}

// FileActions accumulates the child-side fd actions for a single spawn.
// Construct one per spawn and hand it to Spawn exactly once.
type FileActions struct {
	actions   []Action
	dups      [3]int
	closedFds map[int]struct{}
}

// NewFileActions returns an empty action list. The three standard targets
// start unset; the caller must Dup a descriptor onto each of 0, 1, and 2.
func NewFileActions() *FileActions {
	a := &FileActions{closedFds: make(map[int]struct{}, 3)}
	for i := range a.dups {
		a.dups[i] = -1
	}
	return a
}

// Dup arranges for d's fd to appear as target (0, 1, or 2) in the child.
func (a *FileActions) Dup(d descriptor.Descriptor, target int) {
	a.actions = append(a.actions, Action{Op: OpDup, Fd: d.Fd(), Target: target})
	a.dups[target] = d.Fd()
}

// Close arranges for d's fd to be closed in the child. Descriptors that are
// not closable are skipped, and each fd is recorded at most once: after a
// stderr-to-stdout redirect the two slots share one descriptor, and the
// child must not close the same fd twice.
func (a *FileActions) Close(d descriptor.Descriptor) {
	if !d.Closable() {
		return
	}
	if _, ok := a.closedFds[d.Fd()]; ok {
		return
	}
	a.closedFds[d.Fd()] = struct{}{}
	a.actions = append(a.actions, Action{Op: OpClose, Fd: d.Fd()})
}

// Actions returns the recorded action list in order.
func (a *FileActions) Actions() []Action { return a.actions }

// apply enforces the close actions on the parent-side fds. The dup targets
// handed to ForkExec lose close-on-exec in the child automatically, so
// setting the flag here closes exactly the originals at exec time.
func (a *FileActions) apply() error {
	for _, act := range a.actions {
		if act.Op != OpClose {
			continue
		}
		if _, err := unix.FcntlInt(uintptr(act.Fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
			return errdefs.OS("fcntl", "", err)
		}
	}
	return nil
}

// Spawn creates a child process running argv with the given file actions and
// returns its pid. argv[0] is resolved against PATH. The child inherits the
// parent's environment.
func Spawn(argv []string, actions *FileActions) (int, error) {
	bin, err := exec.LookPath(argv[0])
	if err != nil {
		return 0, errdefs.OS("spawn", argv[0], err)
	}
	if err := actions.apply(); err != nil {
		return 0, err
	}
	files := make([]uintptr, len(actions.dups))
	for i, fd := range actions.dups {
		if fd < 0 {
			return 0, errdefs.Usagef("no descriptor was assigned to child fd %d", i)
		}
		files[i] = uintptr(fd)
	}
	pid, err := syscall.ForkExec(bin, argv, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: files,
	})
	if err != nil {
		return 0, errdefs.OS("spawn", argv[0], err)
	}
	return pid, nil
}

// Wait reaps pid and returns its exit status.
func Wait(pid int) (int, error) {
	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, errdefs.OS("wait", "", err)
		}
		return status.ExitStatus(), nil
	}
}
