package config

import "sort"

type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]Preset{
	"quick": {
		Description: "128² grid, 60 steps, for checking a setup",
		Apply: func(c *Config) {
			c.Grid.N = 128
			c.Evolution = EvolutionConfig{Start: 5, Stop: 300, Step: 5}
			c.Transfer.Samples = 64
		},
	},
	"preview": {
		Description: "256² grid rendered to an animated gif",
		Apply: func(c *Config) {
			c.Grid.N = 256
			c.Evolution = EvolutionConfig{Start: 2, Stop: 280, Step: 2}
			c.Video.Encoder = "gif"
			c.Video.Name = "monopole_preview"
		},
	},
	"planck": {
		Description: "1024² grid over 1000 Mpc, every eta from 1 to 280, mp4",
		Apply: func(c *Config) {
			c.Grid.N = 1024
			c.Grid.Scale = 1000
			c.Evolution = EvolutionConfig{Start: 1, Stop: 280, Step: 1}
			c.Video.Encoder = "ffmpeg"
		},
	},
	"wide": {
		Description: "3000 Mpc field of view",
		Apply: func(c *Config) {
			c.Grid.Scale = 3000
			c.Render.Clim = 5e-7
		},
	},
}

// GetPreset returns the default config with the named preset applied.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
