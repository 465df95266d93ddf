package ensemble

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/cosmofield/internal/field"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(trials int) Config {
	return Config{
		Grid:      field.Grid{N: 64, Scale: 1000},
		Params:    spectrum.DefaultParams(),
		Trials:    trials,
		SeedStart: 100,
		Bins:      8,
		Workers:   3,
	}
}

func TestRunIsOrderedAndDeterministic(t *testing.T) {
	a, err := Run(context.Background(), testConfig(6), nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), testConfig(6), nil)
	require.NoError(t, err)

	require.Len(t, a, 6)
	for i, tr := range a {
		assert.Equal(t, int64(100+i), tr.Seed)
	}
	assert.Equal(t, a, b)
}

func TestSummariseRecoversTilt(t *testing.T) {
	cfg := testConfig(8)
	cfg.Grid.N = 128

	trials, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	s := Summarise(trials)
	assert.Equal(t, 8, s.Trials)
	assert.InDelta(t, spectrum.DefaultNs, s.MeanNs, 0.1, s.String())
	assert.InEpsilon(t, spectrum.DefaultAs, s.MeanAs, 0.25, s.String())
	assert.Positive(t, s.StdNs)
}

func TestSummariseByHand(t *testing.T) {
	s := Summarise([]Trial{
		{Fit: spectrum.Fit{As: 1, Ns: 0.9}},
		{Fit: spectrum.Fit{As: 3, Ns: 1.1}},
	})
	assert.Equal(t, 2.0, s.MeanAs)
	assert.InDelta(t, math.Sqrt2, s.StdAs, 1e-12)
	assert.InDelta(t, 1.0, s.MeanNs, 1e-12)

	assert.Equal(t, Summary{}, Summarise(nil))
}

func TestRunErrors(t *testing.T) {
	_, err := Run(context.Background(), testConfig(0), nil)
	assert.ErrorIs(t, err, ErrNoTrials)

	cfg := testConfig(2)
	cfg.Grid.N = 5
	_, err = Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, field.ErrInvalidGrid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, testConfig(4), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
