package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgsim/internal/app"
	"orgsim/internal/config"
	"orgsim/internal/domain"
	"orgsim/internal/engine"
)

func writeDefault(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, config.Write(path, config.Default()))
	return path
}

func TestLoadAndInitialize(t *testing.T) {
	for _, name := range []string{"orgsim.yml", "orgsim.json"} {
		t.Run(name, func(t *testing.T) {
			eng := engine.New(engine.Options{})
			cfg, err := app.LoadAndInitialize(eng, writeDefault(t, name))
			require.NoError(t, err)
			assert.Len(t, cfg.Teams, 3)
			assert.True(t, eng.Initialized())
			assert.Len(t, eng.State().WorkUnits, 6)
		})
	}
}

func TestLoadAndInitializeMissingFile(t *testing.T) {
	eng := engine.New(engine.Options{})
	_, err := app.LoadAndInitialize(eng, filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, eng.Initialized())
}

func TestRunCompletesDefaultConfig(t *testing.T) {
	eng := engine.New(engine.DefaultOptions())
	require.NoError(t, eng.Initialize(config.Default()))

	var ticks int
	r, err := app.Run(context.Background(), eng, app.RunOptions{
		OnTick: func(st domain.TickState, s domain.SimulationState) error {
			ticks++
			assert.Equal(t, ticks, s.CurrentTimeTick)
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, r.Completed())
	assert.Equal(t, 6, r.Done)
	assert.Equal(t, 6, r.Total)
	assert.Equal(t, ticks, r.Ticks)
	assert.Greater(t, r.MeanThroughput, 0.0)
	assert.GreaterOrEqual(t, r.PeakRate, 1)
}

func TestRunStopsAtTickLimit(t *testing.T) {
	eng := engine.New(engine.Options{})
	require.NoError(t, eng.Initialize(config.Default()))
	r, err := app.Run(context.Background(), eng, app.RunOptions{MaxTicks: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.TickRunning, r.Status)
	assert.Equal(t, 3, r.Ticks)
}

func TestRunHonoursCancellation(t *testing.T) {
	eng := engine.New(engine.Options{})
	require.NoError(t, eng.Initialize(config.Default()))
	ctx, cancel := context.WithCancel(context.Background())
	_, err := app.Run(ctx, eng, app.RunOptions{
		OnTick: func(domain.TickState, domain.SimulationState) error {
			cancel()
			return nil
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, eng.State().CurrentTimeTick)
}

func TestRunPropagatesTickErrors(t *testing.T) {
	cfg := config.Default()
	cfg.WorkFlow["idea"] = config.WorkflowTransition{NextType: "need", NextDiscipline: "tester"}
	eng := engine.New(engine.Options{})
	require.NoError(t, eng.Initialize(cfg))
	_, err := app.Run(context.Background(), eng, app.RunOptions{})
	assert.ErrorIs(t, err, engine.ErrMissingDuration)
}

func TestSweep(t *testing.T) {
	reports, err := app.Sweep(context.Background(), config.Default(), app.SweepOptions{
		Runs:      6,
		FirstSeed: 10,
		Parallel:  3,
		Engine:    engine.DefaultOptions(),
	})
	require.NoError(t, err)
	require.Len(t, reports, 6)
	for i, r := range reports {
		assert.Equal(t, uint64(10+i), r.Seed)
		assert.True(t, r.Completed())
	}
	sum := app.Summarize(reports)
	assert.Equal(t, 6, sum.Completed)
	assert.LessOrEqual(t, sum.MinTicks, sum.MaxTicks)
	assert.GreaterOrEqual(t, sum.MeanTicks, float64(sum.MinTicks))
}

func TestSweepRejectsZeroRuns(t *testing.T) {
	_, err := app.Sweep(context.Background(), config.Default(), app.SweepOptions{})
	assert.Error(t, err)
}

func TestTeamLoads(t *testing.T) {
	eng := engine.New(engine.Options{})
	require.NoError(t, eng.Initialize(config.Default()))
	loads := app.TeamLoads(eng.State())
	require.Len(t, loads, 3)
	assert.Equal(t, app.TeamLoad{ID: "team_customer", Name: "Customer", Customer: true, Members: 1, Busy: 1, Backlog: 5}, loads[0])
	assert.Equal(t, 0, app.Unassigned(eng.State()))
}
