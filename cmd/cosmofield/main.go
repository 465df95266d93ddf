package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/san-kum/cosmofield/internal/config"
	"github.com/san-kum/cosmofield/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	workers    int

	seed       int64
	gridN      int
	scale      float64
	etaStart   float64
	etaStop    float64
	etaStep    float64
	samples    int
	transferK  string
	tablePath  string
	encoder    string
	videoName  string
	outputDir  string
	colormap   string
	clim       float64
	autoLimits bool
	keepFrames bool
	noVideo    bool

	deleteFrames bool

	bins     int
	trials   int
	svgPath  string
	outPath  string
	theme    string
	interval float64

	logger = zap.NewNop()
)

// newLogger builds the CLI logger: console output on stderr, debug level
// when verbose.
var newLogger = func(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cosmofield",
		Short:        "evolve a primordial gaussian field and render it to video",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			logger = l
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".cosmofield", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.IntVar(&workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "realise, evolve and render a field to video",
		Args:  cobra.NoArgs,
		RunE:  runField,
	}
	fieldFlags(runCmd)
	evolutionFlags(runCmd)
	videoFlags(runCmd)
	runCmd.Flags().StringVar(&colormap, "colormap", "jet", "colormap (jet, viridis, gray)")
	runCmd.Flags().Float64Var(&clim, "clim", config.DefaultClim, "symmetric colour limit")
	runCmd.Flags().BoolVar(&autoLimits, "auto-limits", false, "scale colours to each frame")
	runCmd.Flags().BoolVar(&noVideo, "no-video", false, "stop after writing frames")
	runCmd.Flags().BoolVar(&keepFrames, "keep-frames", false, "keep frame images after encoding")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum",
		Short: "measure and fit the power spectrum of a realisation",
		Args:  cobra.NoArgs,
		RunE:  measureSpectrum,
	}
	fieldFlags(spectrumCmd)
	spectrumCmd.Flags().IntVar(&bins, "bins", 10, "spectrum bins")
	spectrumCmd.Flags().StringVar(&svgPath, "svg", "", "also write the spectrum as svg")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "fit the spectrum over consecutive seeds",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	fieldFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&trials, "trials", 16, "number of seeds")
	ensembleCmd.Flags().IntVar(&bins, "bins", 10, "spectrum bins")

	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "print the transfer table as csv",
		Args:  cobra.NoArgs,
		RunE:  printTransfer,
	}
	fieldFlags(transferCmd)
	evolutionFlags(transferCmd)
	transferCmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")

	encodeCmd := &cobra.Command{
		Use:   "encode [frames_dir]",
		Short: "assemble an existing frame directory into a video",
		Args:  cobra.ExactArgs(1),
		RunE:  encodeFrames,
	}
	videoFlags(encodeCmd)
	encodeCmd.Flags().BoolVar(&deleteFrames, "delete-frames", false, "delete the frames after encoding")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's spectrum and rms history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the spectrum as svg")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "print or save the resolved configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  dumpConfig,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch the field evolve in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	fieldFlags(liveCmd)
	evolutionFlags(liveCmd)
	liveCmd.Flags().StringVar(&colormap, "colormap", "jet", "colormap (jet, viridis, gray)")
	liveCmd.Flags().BoolVar(&autoLimits, "auto-limits", true, "scale colours to each frame")
	liveCmd.Flags().StringVar(&theme, "theme", viz.Themes[0].Name, fmt.Sprintf("panel theme %v", viz.ThemeNames()))
	liveCmd.Flags().Float64Var(&interval, "interval", 0.15, "seconds per step")

	rootCmd.AddCommand(runCmd, spectrumCmd, ensembleCmd, transferCmd, encodeCmd, listCmd, showCmd, plotCmd, exportJSONCmd, presetsCmd, configCmd, liveCmd)
	return rootCmd
}

func fieldFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.IntVar(&gridN, "n", config.DefaultN, "grid points per side (even)")
	f.Float64Var(&scale, "scale", config.DefaultScale, "box side in Mpc")
}

func evolutionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&etaStart, "eta-start", config.DefaultEtaStart, "first conformal time (Mpc)")
	f.Float64Var(&etaStop, "eta-stop", config.DefaultEtaStop, "last conformal time (Mpc)")
	f.Float64Var(&etaStep, "eta-step", config.DefaultEtaStep, "conformal time step (Mpc)")
	f.IntVar(&samples, "samples", config.DefaultSamples, "k samples per transfer function")
	f.StringVar(&transferK, "transfer", "analytic", "transfer source (analytic, table, command)")
	f.StringVar(&tablePath, "table", "", "transfer table csv for --transfer table")
}

func videoFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&encoder, "encoder", "ffmpeg", "video encoder (ffmpeg, gif)")
	f.StringVar(&videoName, "name", config.DefaultName, "video file name without extension")
	f.StringVar(&outputDir, "out", config.DefaultOutputDir, "output directory")
}

// loadConfig resolves defaults, then the preset, then the config file, then
// any flag set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("n") {
		cfg.Grid.N = gridN
	}
	if flags.Changed("scale") {
		cfg.Grid.Scale = scale
	}
	if flags.Changed("eta-start") || flags.Changed("eta-stop") || flags.Changed("eta-step") {
		ev := cfg.Evolution
		if flags.Changed("eta-start") {
			ev.Start = etaStart
		}
		if flags.Changed("eta-stop") {
			ev.Stop = etaStop
		}
		if flags.Changed("eta-step") {
			ev.Step = etaStep
		}
		ev.List = nil
		cfg.Evolution = ev
	}
	if flags.Changed("samples") {
		cfg.Transfer.Samples = samples
	}
	if flags.Changed("transfer") {
		cfg.Transfer.Kind = transferK
	}
	if flags.Changed("table") {
		cfg.Transfer.Path = tablePath
		if !flags.Changed("transfer") {
			cfg.Transfer.Kind = "table"
		}
	}
	if flags.Changed("encoder") {
		cfg.Video.Encoder = encoder
	}
	if flags.Changed("name") {
		cfg.Video.Name = videoName
	}
	if flags.Changed("out") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("keep-frames") {
		cfg.Video.KeepFrames = keepFrames
	}
	if flags.Changed("colormap") {
		cfg.Render.Colormap = colormap
	}
	if flags.Changed("clim") {
		cfg.Render.Clim = clim
	}
	if flags.Changed("auto-limits") || (flags.Lookup("auto-limits") != nil && autoLimits) {
		cfg.Render.Auto = autoLimits
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
