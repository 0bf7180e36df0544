package supervisor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ceridwen.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	_, err = Acquire(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, lock.Release())
	require.NoFileExists(t, path)

	lock2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}
