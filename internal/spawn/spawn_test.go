package spawn

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guseggert/pipecmd/descriptor"
	"github.com/guseggert/pipecmd/errdefs"
)

func stdActions(t *testing.T) *FileActions {
	t.Helper()
	a := NewFileActions()
	a.Dup(descriptor.Stdin(), 0)
	a.Dup(descriptor.Stdout(), 1)
	a.Dup(descriptor.Stderr(), 2)
	return a
}

func TestExitCodeRoundTrip(t *testing.T) {
	for _, code := range []int{0, 1, 2, 42, 127} {
		t.Run(fmt.Sprintf("code=%d", code), func(t *testing.T) {
			pid, err := Spawn([]string{"sh", "-c", fmt.Sprintf("exit %d", code)}, stdActions(t))
			require.NoError(t, err)

			got, err := Wait(pid)
			require.NoError(t, err)
			assert.Equal(t, code, got)
		})
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	_, err := Spawn([]string{"definitely-not-a-binary-xyz"}, stdActions(t))
	require.Error(t, err)
	assert.True(t, errdefs.IsOS(err))
}

func TestCloseActionSkipsNonClosable(t *testing.T) {
	a := NewFileActions()
	a.Close(descriptor.Stdin())
	a.Close(descriptor.Stdout())
	assert.Empty(t, a.Actions())
}

func TestCloseActionDeduplicates(t *testing.T) {
	r, w := descriptor.NewPipe()
	require.NoError(t, r.Open())
	t.Cleanup(func() { r.Close(); w.Close() })

	a := NewFileActions()
	a.Dup(w, 1)
	a.Dup(w, 2) // stderr aliased to stdout
	a.Close(w)
	a.Close(w)

	var closes int
	for _, act := range a.Actions() {
		if act.Op == OpClose {
			closes++
			assert.Equal(t, w.Fd(), act.Fd)
		}
	}
	assert.Equal(t, 1, closes)
}

func TestSpawnRequiresAllThreeTargets(t *testing.T) {
	a := NewFileActions()
	a.Dup(descriptor.Stdin(), 0)
	_, err := Spawn([]string{"true"}, a)
	require.Error(t, err)
	assert.True(t, errdefs.IsUsage(err))
}

func TestSpawnedChildWritesThroughDup(t *testing.T) {
	out := descriptor.NewOutputBuffer()
	require.NoError(t, out.Open())

	a := NewFileActions()
	a.Dup(descriptor.Stdin(), 0)
	a.Dup(out, 1)
	a.Dup(descriptor.Stderr(), 2)
	a.Close(out)

	pid, err := Spawn([]string{"echo", "dup works"}, a)
	require.NoError(t, err)

	code, err := Wait(pid)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	require.NoError(t, out.Close())
	assert.Equal(t, "dup works\n", out.String())
}
