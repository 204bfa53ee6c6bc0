package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guseggert/pipecmd/errdefs"
)

func TestFileReadDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0o644))

	f := OpenFile(path, 0)
	assert.Equal(t, -1, f.Fd())
	assert.False(t, f.Closable())
	assert.True(t, f.Caps().CanRead())

	require.NoError(t, f.Open())
	require.True(t, f.Closable())
	got, err := readAll(f.Fd())
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(got))

	require.NoError(t, f.Close())
	assert.Equal(t, -1, f.Fd())
	assert.False(t, f.Closable())
}

func TestFileWriteTruncateAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	f := CreateFile(path, Truncate)
	require.NoError(t, f.Open())
	require.NoError(t, writeAll(f.Fd(), []byte("first\n")))
	require.NoError(t, f.Close())

	f = CreateFile(path, Append)
	require.NoError(t, f.Open())
	require.NoError(t, writeAll(f.Fd(), []byte("second\n")))
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(b))

	// Truncate wipes prior content.
	f = CreateFile(path, Truncate)
	require.NoError(t, f.Open())
	require.NoError(t, writeAll(f.Fd(), []byte("third\n")))
	require.NoError(t, f.Close())

	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third\n", string(b))
}

func TestFileOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f := OpenFile(path, 0)
	require.NoError(t, f.Open())
	fd := f.Fd()
	require.NoError(t, f.Open())
	assert.Equal(t, fd, f.Fd())
	require.NoError(t, f.Close())
}

func TestFileCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f := OpenFile(path, 0)
	require.NoError(t, f.Open())
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Close())
	}
	assert.Equal(t, -1, f.Fd())
}

func TestFileOpenMissingPath(t *testing.T) {
	f := OpenFile(filepath.Join(t.TempDir(), "nope"), 0)
	err := f.Open()
	require.Error(t, err)
	assert.True(t, errdefs.IsOS(err))
}

func TestStdStreams(t *testing.T) {
	assert.Equal(t, 0, Stdin().Fd())
	assert.Equal(t, 1, Stdout().Fd())
	assert.Equal(t, 2, Stderr().Fd())

	for _, d := range []Descriptor{Stdin(), Stdout(), Stderr()} {
		assert.False(t, d.Closable())
		require.NoError(t, d.Open())
		require.NoError(t, d.Close())
		// Open/Close are no-ops; the fd survives.
		assert.GreaterOrEqual(t, d.Fd(), 0)
	}

	// The accessors hand out one cached instance per stream.
	assert.Same(t, Stdin(), Stdin())
	assert.Same(t, Stdout(), Stdout())
	assert.Same(t, Stderr(), Stderr())
}
