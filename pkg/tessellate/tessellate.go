// Package tessellate computes the surfaces of a program. Each request gets
// its own generator; requests run in parallel and share only the program's
// read-only atom set.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/engine"
	"github.com/chazu/isosurf/pkg/kernel"
	"github.com/chazu/isosurf/pkg/monitoring"
	"github.com/chazu/isosurf/pkg/surface"
	"golang.org/x/sync/errgroup"
)

// Options control a batch.
type Options struct {
	// Config supplies defaults and the worker count. Nil means defaults.
	Config *config.Config
	// Kernel overrides the config's kernel.
	Kernel kernel.Kernel
}

// Outcome is the result of one request. Exactly one of Surface and Err is
// set.
type Outcome struct {
	Name    string
	Surface *surface.Surface
	Err     error
}

// Tessellate computes every request in prog. Outcomes are in request order.
// A failing request does not stop the others; its error is kept in its
// Outcome. The returned error is non-nil only when ctx ended before the
// batch finished.
func Tessellate(ctx context.Context, prog *engine.Program, opts Options) ([]Outcome, error) {
	if prog == nil || len(prog.Requests) == 0 {
		return nil, nil
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	k := opts.Kernel
	if k == nil {
		var err error
		if k, err = surface.NewKernel(cfg.GetKernel()); err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
	}

	out := make([]Outcome, len(prog.Requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.GetWorkers())
	for i, req := range prog.Requests {
		i, req := i, req
		out[i].Name = req.Name
		g.Go(func() error {
			gen, err := surface.NewGenerator(cfg, prog.Atoms, k, req.Params)
			if err == nil {
				out[i].Surface, err = gen.Generate(gctx)
			}
			if err != nil {
				out[i].Err = fmt.Errorf("surface %q: %w", req.Name, err)
				monitoring.Logf("tessellate: %v", out[i].Err)
			}
			return nil
		})
	}
	// Workers never return errors, so Wait only waits.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("tessellate: %w", err)
	}
	return out, nil
}
