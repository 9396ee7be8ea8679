package batch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// LevelResult is one scenario evaluated at one connectedness level.
type LevelResult struct {
	Level  harm.Level            `json:"level"`
	Result harm.ComparisonResult `json:"result"`
}

// Evaluation holds a scenario's results at every requested level, in the
// order the levels were given.
type Evaluation struct {
	Scenario GeneratedScenario `json:"scenario"`
	Levels   []LevelResult     `json:"levels"`
}

const defaultTieBreak = harm.TieBreakHarmDifference

// Options control a batch run.
type Options struct {
	// Workers bounds concurrent evaluations; zero means GOMAXPROCS.
	Workers int
	// TieBreak defaults to harm-difference, the policy the bulk statistics
	// were defined with.
	TieBreak harm.TieBreak
}

// Run evaluates every scenario at every level. Evaluations run concurrently
// but the result slice is ordered by scenario index, whatever the
// completion order.
func Run(ctx context.Context, scenarios []GeneratedScenario, levels []harm.Level, opts Options) ([]Evaluation, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	tb := opts.TieBreak
	if tb == "" {
		tb = defaultTieBreak
	}

	out := make([]Evaluation, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sc := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev := Evaluation{Scenario: sc, Levels: make([]LevelResult, 0, len(levels))}
			for _, l := range levels {
				res, err := harm.AnalyzeWith(sc.Scenario, l.Flags, tb)
				if err != nil {
					return fmt.Errorf("failed to evaluate %s at %s: %w", sc.ID, l.Name, err)
				}
				ev.Levels = append(ev.Levels, LevelResult{Level: l, Result: res})
			}
			out[i] = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
