package descriptor

import (
	"golang.org/x/sys/unix"

	"github.com/guseggert/pipecmd/errdefs"
)

// Flags a caller can OR onto a file descriptor's fixed access mode.
const (
	// Truncate creates the file if needed and truncates it on open.
	Truncate = unix.O_CREAT | unix.O_TRUNC
	// Append creates the file if needed and appends on every write.
	Append = unix.O_CREAT | unix.O_APPEND
)

const createMode = 0o644

// File is a descriptor backed by a file on disk. The file is opened lazily
// when the pipeline calls Open, so constructing one never touches the
// filesystem.
type File struct {
	path string
	flag int
	caps Caps
	fd   int
}

// OpenFile returns a read-only file descriptor for path. flag is OR-ed onto
// O_RDONLY; most callers pass 0.
func OpenFile(path string, flag int) *File {
	return &File{path: path, flag: unix.O_RDONLY | flag, caps: CapRead, fd: -1}
}

// CreateFile returns a write-only file descriptor for path. flag is OR-ed
// onto O_WRONLY; pass Truncate or Append to control how existing content is
// handled.
func CreateFile(path string, flag int) *File {
	return &File{path: path, flag: unix.O_WRONLY | flag, caps: CapWrite, fd: -1}
}

func (f *File) Fd() int { return f.fd }
func (f *File) Closable() bool { return f.fd >= 0 }
func (f *File) Caps() Caps { return f.caps }

func (f *File) Open() error {
	if f.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(f.path, f.flag|unix.O_CLOEXEC, createMode)
	if err != nil {
		return errdefs.OS("open", f.path, err)
	}
	f.fd = fd
	return nil
}

func (f *File) Close() error {
	if f.fd < 0 {
		return nil
	}
	err := closeFd(f.fd)
	f.fd = -1
	return err
}
