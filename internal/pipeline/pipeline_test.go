package pipeline

import (
	"context"
	"image/gif"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/san-kum/cosmofield/internal/config"
	"github.com/san-kum/cosmofield/internal/evolve"
	"github.com/san-kum/cosmofield/internal/storage"
	"github.com/san-kum/cosmofield/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Grid.N = 32
	cfg.Evolution = config.EvolutionConfig{List: []float64{10, 50, 120, 250}}
	cfg.Transfer.Samples = 16
	cfg.Video.Encoder = "gif"
	cfg.Video.Name = "test_video"
	cfg.OutputDir = t.TempDir()
	cfg.Workers = 2
	return cfg
}

func TestRunProducesVideoAndRun(t *testing.T) {
	cfg := smallConfig(t)
	st := storage.New(t.TempDir())

	var observed int
	p := New(cfg, st, zap.NewNop())
	p.AddObserver(evolve.ObserverFunc(func(context.Context, evolve.Snapshot) error {
		observed++
		return nil
	}))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Snapshots, 4)
	assert.Equal(t, 4, observed)
	assert.Equal(t, 4, res.Frames.Count)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "test_video.gif"), res.Video)
	assert.NoDirExists(t, cfg.FramesDir())

	f, err := os.Open(res.Video)
	require.NoError(t, err)
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, anim.Image, 4)

	meta, err := st.Load(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 50, 120, 250}, meta.Etas)
	assert.Equal(t, res.Video, meta.Video)
	assert.Equal(t, 4, meta.Steps)

	snaps, err := st.LoadSnapshots(res.RunID)
	require.NoError(t, err)
	assert.Len(t, snaps, 4)
}

func TestRunWithoutVideoKeepsFrames(t *testing.T) {
	cfg := smallConfig(t)

	p := New(cfg, nil, nil)
	p.NoVideo = true
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Video)
	assert.Empty(t, res.RunID)
	require.NoError(t, res.Frames.Validate())
	assert.FileExists(t, filepath.Join(cfg.FramesDir(), "field_0003.png"))
}

// countingFFmpeg reads numbered frames the way ffmpeg's image2 input does,
// stopping at the first missing file or at -frames:v, and writes the count.
const countingFFmpeg = `#!/bin/sh
limit=-1
while [ $# -gt 0 ]; do
  case "$1" in
    -i) pattern="$2"; shift ;;
    -frames:v) limit="$2"; shift ;;
    -y) out="$2"; shift ;;
  esac
  shift
done
n=0
while [ "$n" != "$limit" ] && [ -f "$(printf "$pattern" "$n")" ]; do n=$((n+1)); done
echo "$n" > "$out"
`

func TestRerunIntoSameFramesDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	cfg := smallConfig(t)
	cfg.Evolution = config.EvolutionConfig{List: []float64{10, 20, 30, 40, 50}}

	first := New(cfg, nil, nil)
	first.NoVideo = true
	res, err := first.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, res.Frames.Count)

	bin := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte(countingFFmpeg), 0o755))
	cfg.Evolution = config.EvolutionConfig{List: []float64{10, 20, 30}}
	cfg.Video.Encoder = "ffmpeg"
	cfg.Video.Binary = bin

	res, err = New(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Frames.Count)

	out, err := os.ReadFile(res.Video)
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(string(out)))
	assert.NoDirExists(t, cfg.FramesDir())
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Grid.N = 31

	_, err := New(cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunSurfacesTransferErrors(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Transfer.Kind = "table"
	cfg.Transfer.Path = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRealiseIsSeeded(t *testing.T) {
	cfg := smallConfig(t)

	a, err := New(cfg, nil, nil).Realise()
	require.NoError(t, err)
	b, err := New(cfg, nil, nil).Realise()
	require.NoError(t, err)
	assert.Equal(t, a.Modes, b.Modes)

	s, fit, err := New(cfg, nil, nil).Measure(a, 6)
	require.NoError(t, err)
	assert.Len(t, s.K, 6)
	require.NotNil(t, fit)
	assert.Equal(t, cfg.Cosmology.Kp, fit.Kp)
}

func TestTransferUsesConfiguredSamples(t *testing.T) {
	cfg := smallConfig(t)

	tbl, err := New(cfg, nil, nil).Transfer(context.Background())
	require.NoError(t, err)
	assert.Len(t, tbl.Ks, 16)
	assert.Equal(t, cfg.Etas(), tbl.Etas)
	require.NoError(t, tbl.Validate())
	assert.InDelta(t, transfer.NewAnalytic().At(tbl.Ks[3], 50), tbl.Values[1][3], 1e-15)
}
