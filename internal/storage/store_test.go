package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/damaskio/internal/damask"
	"github.com/san-kum/damaskio/internal/logger"
	"github.com/san-kum/damaskio/internal/solverlog"
	"github.com/san-kum/damaskio/internal/solverlog/solverlogtest"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	st := New(t.TempDir(), nil)
	require.NoError(t, st.Init())
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(t *testing.T) *solverlog.LogRun {
	t.Helper()
	run, err := solverlog.Parse(solverlogtest.Sample())
	require.NoError(t, err)
	return run
}

func TestStoreSaveLoad(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	run := sampleRun(t)
	stderr := []damask.Message{{Code: 894, Message: "MPI error"}}

	id, err := st.Save(ctx, "job.out", run, stderr)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	meta, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "job.out", meta.Source)
	assert.Equal(t, 4, meta.Increments)
	assert.Equal(t, 3, meta.Converged)
	assert.Equal(t, 6, meta.Iterations)
	assert.Equal(t, []string{"error_divergence", "error_stress_bc"}, meta.Metrics)
	assert.Equal(t, run.Warnings, meta.Warnings)
	assert.Equal(t, stderr, meta.Errors)

	assert.FileExists(t, filepath.Join(st.BaseDir(), id, "metadata.json"))
	assert.FileExists(t, filepath.Join(st.BaseDir(), id, "iterations.csv"))
}

func TestStoreLoadRun_RoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	run := sampleRun(t)

	id, err := st.Save(ctx, "job.out", run, nil)
	require.NoError(t, err)

	got, err := st.LoadRun(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, run.DeformationGradientAim, got.DeformationGradientAim)
	assert.Equal(t, run.PiolaKirchhoffStress, got.PiolaKirchhoffStress)
	assert.Equal(t, run.IncrementIdx, got.IncrementIdx)
	assert.Equal(t, run.Errors.Keys(), got.Errors.Keys())
	assert.Equal(t, run.Errors.Map(), got.Errors.Map())
	assert.Equal(t, run.IncNumber, got.IncNumber)
	assert.Equal(t, run.IncTime, got.IncTime)
	assert.Equal(t, run.IncCutBack, got.IncCutBack)
	assert.Equal(t, run.IncLoadCase, got.IncLoadCase)
	assert.Equal(t, run.IncPosition, got.IncPosition)
	assert.Equal(t, run.IncNumIters, got.IncNumIters)
	assert.Equal(t, run.Warnings, got.Warnings)
	assert.Equal(t, run.NumIncrements, got.NumIncrements)
}

func TestStoreList(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	runs, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	run := sampleRun(t)
	a, err := st.Save(ctx, "a.out", run, nil)
	require.NoError(t, err)
	b, err := st.Save(ctx, "b.out", run, []damask.Message{{Code: 1, Message: "x"}})
	require.NoError(t, err)

	runs, err = st.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ids := map[string]RunSummary{runs[0].ID: runs[0], runs[1].ID: runs[1]}
	require.Contains(t, ids, a)
	require.Contains(t, ids, b)
	assert.Equal(t, "b.out", ids[b].Source)
	assert.Equal(t, 3, ids[b].Converged)
	assert.Equal(t, 1, ids[b].Warnings)
	assert.Equal(t, 1, ids[b].Errors)
	assert.Equal(t, 0, ids[a].Errors)
}

func TestStoreIncrementsAndMessages(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	id, err := st.Save(ctx, "job.out", sampleRun(t), []damask.Message{{Code: 107, Message: "invalid material"}})
	require.NoError(t, err)

	incs, err := st.Increments(ctx, id)
	require.NoError(t, err)
	require.Len(t, incs, 3)
	assert.Equal(t, IncrementRow{Position: 2, Number: 2, Time: 2, CutBack: 0.5, LoadCase: 1, NumIters: 3}, incs[1])

	warnings, err := st.Messages(ctx, id, KindWarning)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, 600, warnings[0].Code)

	errs, err := st.Messages(ctx, id, KindError)
	require.NoError(t, err)
	assert.Equal(t, []damask.Message{{Code: 107, Message: "invalid material"}}, errs)

	counts, err := st.WarningCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{600: 1}, counts)
}

func TestStoreEmptyRun(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	run, err := solverlog.Parse(solverlogtest.Banner)
	require.NoError(t, err)

	id, err := st.Save(ctx, "empty.out", run, nil)
	require.NoError(t, err)

	got, err := st.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumIterations())
	assert.Equal(t, 0, got.NumConverged())
	assert.Empty(t, got.Errors.Keys())
}

func TestStoreNotFound(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	_, err := st.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.LoadIterations("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.LoadRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Delete(ctx, "missing"), ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	id, err := st.Save(ctx, "job.out", sampleRun(t), nil)
	require.NoError(t, err)
	require.NoError(t, st.Delete(ctx, id))

	assert.NoDirExists(t, filepath.Join(st.BaseDir(), id))
	runs, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	incs, err := st.Increments(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, incs)
}

func TestStoreNotInitialized(t *testing.T) {
	st := New(t.TempDir(), nil)
	_, err := st.Save(context.Background(), "x", sampleRun(t), nil)
	assert.Error(t, err)

	runs, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreConcurrentSaves(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	run := sampleRun(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Save(ctx, "job.out", run, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	runs, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 8)
}

func TestStoreLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	st := New(t.TempDir(), logger.New(buf, "info"))
	require.NoError(t, st.Init())
	defer st.Close()

	id, err := st.Save(context.Background(), "job.out", sampleRun(t), nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "stored job.out as "+id)
}

func TestLoadIterations_BadHeader(t *testing.T) {
	st := newStore(t)
	dir := filepath.Join(st.BaseDir(), "broken")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iterations.csv"), []byte("increment_idx,F_11\n"), 0644))

	_, err := st.LoadIterations("broken")
	assert.ErrorIs(t, err, damask.ErrInconsistent)
}
