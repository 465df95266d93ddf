package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/cosmofield/internal/config"
	"github.com/san-kum/cosmofield/internal/ensemble"
	"github.com/san-kum/cosmofield/internal/export"
	"github.com/san-kum/cosmofield/internal/pipeline"
	"github.com/san-kum/cosmofield/internal/render"
	"github.com/san-kum/cosmofield/internal/spectrum"
	"github.com/san-kum/cosmofield/internal/storage"
	"github.com/san-kum/cosmofield/internal/transfer"
	"github.com/san-kum/cosmofield/internal/video"
	"github.com/san-kum/cosmofield/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runField(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	p := pipeline.New(cfg, st, logger)
	p.NoVideo = noVideo
	res, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", res.RunID)
	if res.Fit != nil {
		fmt.Fprintf(out, "fit: %s\n", res.Fit)
	}
	if res.Video != "" {
		fmt.Fprintf(out, "video: %s\n", res.Video)
	} else {
		fmt.Fprintf(out, "frames: %s (%d)\n", res.Frames.Dir, res.Frames.Count)
	}
	return nil
}

func measureSpectrum(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, nil, logger)
	r, err := p.Realise()
	if err != nil {
		return err
	}
	s, fit, err := p.Measure(r, bins)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "grid: %d² over %g Mpc, seed %d\n\n", cfg.Grid.N, cfg.Grid.Scale, cfg.Seed)
	printSpectrum(out, s)
	if fit != nil {
		fmt.Fprintf(out, "\nfit: %s\n", fit)
	}
	if svgPath != "" {
		return writeSVG(svgPath, export.SpectrumToSVG(s, fit, 800, 500))
	}
	return nil
}

func printSpectrum(out io.Writer, s *spectrum.Spectrum) {
	ell := s.Multipoles()
	power, errs := s.MicroKelvin()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ELL\tPOWER (μK²)\tERROR\tMODES")
	for i := range s.K {
		fmt.Fprintf(w, "%.0f\t%.1f\t%.1f\t%d\n", ell[i], power[i], errs[i], s.Counts[i])
	}
	w.Flush()

	if len(power) > 1 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, asciigraph.Plot(power,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("ℓ(ℓ+1)C_ℓ/2π (μK²) by bin"),
		))
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := ensemble.Run(cmd.Context(), ensemble.Config{
		Grid:      cfg.Grid,
		Params:    cfg.Cosmology,
		Trials:    trials,
		SeedStart: cfg.Seed,
		Bins:      bins,
		Workers:   cfg.Workers,
	}, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tAS\tNS\tNS ERR")
	for _, t := range results {
		fmt.Fprintf(w, "%d\t%.3e\t%.4f\t%.1e\n", t.Seed, t.Fit.As, t.Fit.Ns, t.Fit.NsErr)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s (input As = %.3e, ns = %.4f)\n", ensemble.Summarise(results), cfg.Cosmology.As, cfg.Cosmology.Ns)
	fmt.Fprintf(out, "took %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printTransfer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tbl, err := pipeline.New(cfg, nil, logger).Transfer(cmd.Context())
	if err != nil {
		return err
	}

	if outPath == "" {
		return transfer.WriteCSV(cmd.OutOrStdout(), tbl)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := transfer.WriteCSV(f, tbl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	seq, err := video.Discover(args[0])
	if err != nil {
		return err
	}
	enc, err := cfg.Encoder(logger)
	if err != nil {
		return err
	}

	// frames passed in belong to the user
	b := video.NewBuilder(enc, cfg.OutputDir, logger)
	b.KeepFrames = !deleteFrames
	path, err := b.Build(cmd.Context(), seq, cfg.Video.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "video: %s (%d frames)\n", path, seq.Count)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tN\tSCALE\tSEED\tSTEPS\tNS\tVIDEO")
	for _, run := range runs {
		ns := "-"
		if run.Fit != nil {
			ns = fmt.Sprintf("%.4f", run.Fit.Ns)
		}
		vid := run.Video
		if vid == "" {
			vid = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Grid.N,
			run.Grid.Scale,
			run.Seed,
			run.Steps,
			ns,
			vid,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	s, err := st.LoadSpectrum(runID)
	if err != nil {
		return err
	}
	snaps, err := st.LoadSnapshots(runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "grid: %d² over %g Mpc, seed %d, %d steps\n\n", meta.Grid.N, meta.Grid.Scale, meta.Seed, len(snaps))
	printSpectrum(out, s)
	if meta.Fit != nil {
		fmt.Fprintf(out, "\nfit: %s\n", meta.Fit)
	}

	if len(snaps) > 1 {
		rms := make([]float64, len(snaps))
		for i, sn := range snaps {
			rms[i] = sn.Stats.RMS
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, asciigraph.Plot(rms,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("rms vs step (eta %g to %g)", snaps[0].Eta, snaps[len(snaps)-1].Eta)),
		))
	}

	if svgPath != "" {
		return writeSVG(svgPath, export.SpectrumToSVG(s, meta.Fit, 800, 500))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(args[0], cmd.OutOrStdout())
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[name].Description)
	}
	return w.Flush()
}

func dumpConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, nil, logger)
	r, err := p.Realise()
	if err != nil {
		return err
	}
	tbl, err := p.Transfer(cmd.Context())
	if err != nil {
		return err
	}
	cm, err := render.Lookup(cfg.Render.Colormap)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(r, tbl, viz.Options{
		Colormap: cm,
		Limits:   cfg.Limits(),
		Interval: time.Duration(interval * float64(time.Second)),
		Theme:    theme,
	})
	if err != nil {
		return err
	}
	return viz.Run(cmd.Context(), m)
}

func writeSVG(path, svg string) error {
	if svg == "" {
		return fmt.Errorf("not enough spectrum bins to plot")
	}
	return os.WriteFile(path, []byte(svg), 0644)
}
