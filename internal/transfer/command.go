package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var ErrCommandFailed = errors.New("transfer: command failed")

// waitDelay bounds how long a cancelled command may hold its output pipes.
const waitDelay = 2 * time.Second

// Command runs an external program, typically a CAMB driver. The program
// reads a JSON Request on stdin and writes a CSV table to stdout.
type Command struct {
	Path   string
	Args   []string
	Source string
}

func (c *Command) Transfer(ctx context.Context, ks, etas []float64) (*Table, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("%w: no command configured", ErrCommandFailed)
	}

	req, err := json.Marshal(Request{Source: c.Source, Ks: ks, Etas: etas})
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(req)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%w: %s: %v", ErrCommandFailed, c.Path, err)
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrCommandFailed, c.Path, err, msg)
	}

	t, err := ReadCSV(&stdout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	sel, err := t.Select(etas)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	return sel.Resample(ks)
}
