package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/guseggert/pipecmd/errdefs"
)

func TestPipeOpenPopulatesBothEnds(t *testing.T) {
	r, w := NewPipe()
	assert.Equal(t, -1, r.Fd())
	assert.Equal(t, -1, w.Fd())

	require.NoError(t, r.Open())
	assert.GreaterOrEqual(t, r.Fd(), 0)
	assert.GreaterOrEqual(t, w.Fd(), 0)

	// The two fds refer to one OS pipe.
	payload := []byte("through the pipe")
	require.NoError(t, writeAll(w.Fd(), payload))
	require.NoError(t, w.Close())
	got, err := readAll(r.Fd())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, r.Close())
}

func TestPipeOpenIdempotent(t *testing.T) {
	r, w := NewPipe()
	require.NoError(t, w.Open())
	rfd, wfd := r.Fd(), w.Fd()

	// A second open on either end must not allocate a new pipe.
	require.NoError(t, r.Open())
	require.NoError(t, w.Open())
	assert.Equal(t, rfd, r.Fd())
	assert.Equal(t, wfd, w.Fd())

	require.NoError(t, r.Close())
	require.NoError(t, w.Close())
}

func TestPipeCloseIdempotent(t *testing.T) {
	r, w := NewPipe()
	require.NoError(t, r.Open())

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Close())
		require.NoError(t, w.Close())
	}
	assert.Equal(t, -1, r.Fd())
	assert.Equal(t, -1, w.Fd())
}

func TestPipeCloseOwnHalfOnly(t *testing.T) {
	r, w := NewPipe()
	require.NoError(t, r.Open())

	require.NoError(t, r.Close())
	assert.Equal(t, -1, r.Fd())

	// The write end must still be open and usable.
	require.True(t, w.Closable())
	_, err := unix.FcntlInt(uintptr(w.Fd()), unix.F_GETFD, 0)
	assert.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestLinkExclusivity(t *testing.T) {
	r, w := NewPipe()

	assert.True(t, errdefs.IsUsage(Link(r, NewWritePipe())))
	assert.True(t, errdefs.IsUsage(Link(NewReadPipe(), w)))

	// A fresh pair links fine.
	require.NoError(t, Link(NewReadPipe(), NewWritePipe()))
}

func TestUnlinkedEndpointOpenFails(t *testing.T) {
	err := NewReadPipe().Open()
	assert.True(t, errdefs.IsUsage(err))
	err = NewWritePipe().Open()
	assert.True(t, errdefs.IsUsage(err))
}

func TestPipeCaps(t *testing.T) {
	r, w := NewPipe()
	assert.True(t, r.Caps().CanRead())
	assert.False(t, r.Caps().CanWrite())
	assert.True(t, w.Caps().CanWrite())
	assert.False(t, w.Caps().CanRead())
}
