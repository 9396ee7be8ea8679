package models

import (
	"github.com/nthompson1415/AVECapstone/internal/analyses"
	"github.com/nthompson1415/AVECapstone/internal/batch"
	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// AnalyzeRequest asks for one scenario to be analyzed. Scenario takes
// precedence over Preset; with neither, the default scenario is used.
// FeatureFlags takes precedence over Level.
type AnalyzeRequest struct {
	Scenario     *harm.Scenario     `json:"scenario,omitempty"`
	Preset       string             `json:"preset,omitempty"`
	FeatureFlags *harm.FeatureFlags `json:"featureFlags,omitempty"`
	Level        string             `json:"level,omitempty"`
}

// WeightedAnalyzeRequest asks for a scenario to be scored with personal
// weights. Scenario and Preset resolve as in AnalyzeRequest. Ratings left
// out keep the default survey values.
type WeightedAnalyzeRequest struct {
	Scenario *harm.Scenario `json:"scenario,omitempty"`
	Preset   string         `json:"preset,omitempty"`
	Weights  *harm.Weights  `json:"weights,omitempty"`
}

// PresetSummary lists a preset without its scenario.
type PresetSummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SaveAnalysisRequest stores a document under a title. A missing result
// is computed before saving.
type SaveAnalysisRequest struct {
	Title string `json:"title"`
	analyses.Document
}

// BatchRequest starts a generated batch run.
type BatchRequest struct {
	Count    int    `json:"count"`
	Seed     int64  `json:"seed"`
	Workers  int    `json:"workers,omitempty"`
	TieBreak string `json:"tieBreak,omitempty"`
	TopN     int    `json:"topN,omitempty"`
}

// BatchResponse describes a finished batch run.
type BatchResponse struct {
	Run     *batch.RunInfo `json:"run,omitempty"`
	Summary batch.Summary  `json:"summary"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Version         string `json:"version"`
	Engine          string `json:"engine"`
	TieBreak        string `json:"tieBreak"`
	AnalysesEnabled bool   `json:"analysesEnabled"`
	RunsEnabled     bool   `json:"runsEnabled"`
}
