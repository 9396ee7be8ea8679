// Package scorer produces the expected-harm figures fed to the comparator.
// The deterministic scorer is the reference; a learned scorer may replace it
// and the Engine falls back to the reference whenever the learned one fails.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/nn"
)

var (
	// ErrModelUnavailable is returned when the learned model cannot be loaded.
	ErrModelUnavailable = errors.New("learned model unavailable")
	// ErrMalformedOutput is returned when the model yields an unusable value.
	ErrMalformedOutput = errors.New("learned model returned malformed output")
)

// Engine names.
const (
	EngineDeterministic = "deterministic"
	EngineLearned       = "learned"
)

// Scorer computes the expected harm of one option of a scenario.
type Scorer interface {
	Name() string
	ScoreOption(ctx context.Context, o harm.Option, flags harm.FeatureFlags, key harm.OptionKey) (float64, error)
}

// Deterministic scores with the harm calculator.
type Deterministic struct{}

func (Deterministic) Name() string { return EngineDeterministic }

func (Deterministic) ScoreOption(_ context.Context, o harm.Option, flags harm.FeatureFlags, _ harm.OptionKey) (float64, error) {
	return harm.ComputeOptionHarm(o, flags).ExpectedHarm, nil
}

// ModelLoader fetches a learned model.
type ModelLoader func(ctx context.Context) (*nn.HarmModel, error)

// SourceLoader loads the model bundle at src, a file path or http(s) URL.
func SourceLoader(src string, client *http.Client) ModelLoader {
	return func(ctx context.Context) (*nn.HarmModel, error) {
		return nn.Load(ctx, src, client)
	}
}

// Learned scores with a learned model. The model is loaded on first use and
// kept; failed loads are not cached so a later call may succeed.
type Learned struct {
	load  ModelLoader
	group singleflight.Group

	mu    sync.RWMutex
	model *nn.HarmModel
}

// NewLearned returns a learned scorer backed by load.
func NewLearned(load ModelLoader) *Learned {
	return &Learned{load: load}
}

func (l *Learned) Name() string { return EngineLearned }

// Model returns the loaded model, loading it if necessary. Concurrent
// callers share a single load.
func (l *Learned) Model(ctx context.Context) (*nn.HarmModel, error) {
	l.mu.RLock()
	m := l.model
	l.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := l.group.Do("model", func() (interface{}, error) {
		m, err := l.load(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.model = m
		l.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return v.(*nn.HarmModel), nil
}

func (l *Learned) ScoreOption(ctx context.Context, o harm.Option, flags harm.FeatureFlags, key harm.OptionKey) (float64, error) {
	m, err := l.Model(ctx)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	v, err := m.Score(nn.OptionFeatures{Option: o, Flags: flags, Key: key})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %v", ErrMalformedOutput, v)
	}
	return v, nil
}
