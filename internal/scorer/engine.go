package scorer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// FallbackWarning is attached to a report when the alternate scorer failed
// and the deterministic figures were used instead.
const FallbackWarning = "Neural engine unavailable. Showing deterministic results."

// DefaultTimeout bounds a single alternate-scorer call.
const DefaultTimeout = 5 * time.Second

// EngineConfig holds Engine settings.
type EngineConfig struct {
	Timeout  time.Duration
	TieBreak harm.TieBreak
}

// Engine runs the full analysis pipeline.
type Engine struct {
	alt    Scorer
	cfg    EngineConfig
	logger *slog.Logger
}

// ScenarioTrace holds the calculation steps of both options.
type ScenarioTrace struct {
	OptionA harm.OptionTrace `json:"optionA"`
	OptionB harm.OptionTrace `json:"optionB"`
}

// Report is the complete output of one analysis.
type Report struct {
	FeatureFlags  harm.FeatureFlags         `json:"featureFlags"`
	Connectedness string                    `json:"connectedness"`
	Result        harm.ComparisonResult     `json:"result"`
	Deontological harm.DeontologicalFinding `json:"deontological"`
	Virtue        harm.VirtueFinding        `json:"virtue"`
	Engine        string                    `json:"engine"`
	Warnings      []string                  `json:"warnings,omitempty"`
	Trace         *ScenarioTrace            `json:"trace,omitempty"`
}

// NewEngine creates an engine. alt may be nil, in which case only the
// deterministic scorer is used.
func NewEngine(alt Scorer, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = harm.TieBreakUtilityBand
	}
	if _, ok := alt.(Deterministic); ok {
		alt = nil
	}
	return &Engine{alt: alt, cfg: cfg, logger: logger.With("component", "scorer")}
}

// Name reports which scorer the engine tries first.
func (e *Engine) Name() string {
	if e.alt != nil {
		return e.alt.Name()
	}
	return EngineDeterministic
}

// TieBreak is the comparison strategy in use.
func (e *Engine) TieBreak() harm.TieBreak {
	return e.cfg.TieBreak
}

// Analyze scores and compares both options of s and annotates the result.
// Only an invalid scenario is an error; alternate-scorer failures degrade to
// the deterministic figures with a warning.
func (e *Engine) Analyze(ctx context.Context, s harm.Scenario, flags harm.FeatureFlags) (*Report, error) {
	return e.analyze(ctx, s, flags, false)
}

// AnalyzeTraced is Analyze with the per-option calculation trace included.
func (e *Engine) AnalyzeTraced(ctx context.Context, s harm.Scenario, flags harm.FeatureFlags) (*Report, error) {
	return e.analyze(ctx, s, flags, true)
}

func (e *Engine) analyze(ctx context.Context, s harm.Scenario, flags harm.FeatureFlags, trace bool) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	a := harm.ComputeOptionHarm(s.OptionA, flags)
	b := harm.ComputeOptionHarm(s.OptionB, flags)

	report := &Report{
		FeatureFlags:  flags,
		Connectedness: harm.LabelFor(flags),
		Engine:        EngineDeterministic,
	}

	if e.alt != nil {
		ea, eb, err := e.scoreBoth(ctx, s, flags)
		if err != nil {
			e.logger.Warn("alternate scorer failed, using deterministic results",
				"engine", e.alt.Name(), "error", err)
			report.Warnings = append(report.Warnings, FallbackWarning)
		} else {
			a.ExpectedHarm, b.ExpectedHarm = ea, eb
			report.Engine = e.alt.Name()
		}
	}

	report.Result = harm.CompareWith(a, b, e.cfg.TieBreak)
	report.Deontological = harm.Deontological(s)
	report.Virtue = harm.VirtueEthics()
	if trace {
		report.Trace = &ScenarioTrace{
			OptionA: harm.TraceOption(s.OptionA, flags),
			OptionB: harm.TraceOption(s.OptionB, flags),
		}
	}
	return report, nil
}

type scorePair struct {
	a, b float64
	err  error
}

// scoreBoth runs the alternate scorer on both options concurrently. It
// returns when the timeout expires even if the scorer ignores ctx.
func (e *Engine) scoreBoth(ctx context.Context, s harm.Scenario, flags harm.FeatureFlags) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	done := make(chan scorePair, 1)
	go func() {
		var p scorePair
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			v, err := e.alt.ScoreOption(gctx, s.OptionA, flags, harm.KeyOptionA)
			p.a = v
			return err
		})
		g.Go(func() error {
			v, err := e.alt.ScoreOption(gctx, s.OptionB, flags, harm.KeyOptionB)
			p.b = v
			return err
		})
		p.err = g.Wait()
		done <- p
	}()

	select {
	case p := <-done:
		return p.a, p.b, p.err
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("alternate scorer: %w", ctx.Err())
	}
}
