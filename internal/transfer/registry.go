package transfer

import (
	"fmt"
	"sort"
)

// Options select and configure a Source.
type Options struct {
	Kind    string   `yaml:"kind" json:"kind"`
	Source  string   `yaml:"source" json:"source"`
	Samples int      `yaml:"samples" json:"samples"`
	Path    string   `yaml:"path,omitempty" json:"path,omitempty"`
	Command []string `yaml:"command,omitempty" json:"command,omitempty"`
	Damping float64  `yaml:"damping,omitempty" json:"damping,omitempty"`
}

var sources = map[string]func(Options) (Source, error){
	"analytic": func(o Options) (Source, error) {
		a := NewAnalytic()
		if o.Damping > 0 {
			a.Damping = o.Damping
		}
		return a, nil
	},
	"table": func(o Options) (Source, error) {
		if o.Path == "" {
			return nil, fmt.Errorf("transfer: table source needs a path")
		}
		return &TableFile{Path: o.Path}, nil
	},
	"command": func(o Options) (Source, error) {
		if len(o.Command) == 0 {
			return nil, fmt.Errorf("transfer: command source needs a command")
		}
		return &Command{Path: o.Command[0], Args: o.Command[1:], Source: o.Source}, nil
	},
}

func New(o Options) (Source, error) {
	fn, ok := sources[o.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, o.Kind)
	}
	return fn(o)
}

func Kinds() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
