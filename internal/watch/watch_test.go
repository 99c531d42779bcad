package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/solverlog/solverlogtest"
)

const waitFor = 5 * time.Second

func next(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed")
		return u
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func appendFile(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func firstIncrement() string {
	return solverlogtest.Banner + solverlogtest.Increment(1, 1, 1, true,
		solverlogtest.Iteration(0, solverlogtest.StrainErr))
}

func TestWatch_InitialAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.out")
	require.NoError(t, os.WriteFile(path, []byte(firstIncrement()), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := New(path, 20*time.Millisecond, nil).Watch(ctx)
	require.NoError(t, err)

	u := next(t, ch)
	require.NoError(t, u.Err)
	assert.Equal(t, 1, u.Run.NumConverged())

	appendFile(t, path, solverlogtest.Increment(2, 1, 1, true,
		solverlogtest.Iteration(0, solverlogtest.StrainErr),
		solverlogtest.Iteration(1, solverlogtest.StrainErr)))

	u = next(t, ch)
	require.NoError(t, u.Err)
	assert.Equal(t, 2, u.Run.NumConverged())
	assert.Equal(t, 3, u.Run.NumIterations())
}

func TestWatch_ParseFailureIsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.out")
	require.NoError(t, os.WriteFile(path, []byte(firstIncrement()), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := New(path, 20*time.Millisecond, nil).Watch(ctx)
	require.NoError(t, err)
	require.NoError(t, next(t, ch).Err)

	// A converged increment whose iteration lacks its stress block.
	appendFile(t, path, solverlogtest.IncrementRule+
		" Time 2.0s: Increment 2/10-1/1 of load case 1\n"+
		" deformation gradient aim =\n 1 0 0\n 0 1 0\n 0 0 1\n"+
		solverlogtest.IterationRule+
		" increment 2 converged\n")

	u := next(t, ch)
	assert.ErrorIs(t, u.Err, damask.ErrMissingField)
	assert.Nil(t, u.Run)
}

func TestWatch_LateCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.out")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := New(path, 20*time.Millisecond, nil).Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(firstIncrement()), 0644))
	u := next(t, ch)
	require.NoError(t, u.Err)
	assert.Equal(t, 1, u.Run.NumConverged())
}

func TestWatch_Cancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.out")
	require.NoError(t, os.WriteFile(path, []byte(firstIncrement()), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := New(path, 0, nil).Watch(ctx)
	require.NoError(t, err)
	next(t, ch)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(waitFor):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "job.out"), 0, nil).Watch(context.Background())
	assert.Error(t, err)
}
