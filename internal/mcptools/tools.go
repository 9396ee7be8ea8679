// Package mcptools exposes the scoring engine as MCP tools.
//
// Each tool is a struct holding its dependencies, with Definition returning
// the mcp.Tool schema and Handle serving calls.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nthompson1415/AVECapstone/internal/analyses"
	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/presets"
	"github.com/nthompson1415/AVECapstone/internal/scorer"
)

// NewServer builds an MCP server with every tool registered.
func NewServer(engine *scorer.Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"avecapstone",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	analyze := NewAnalyzeTool(engine)
	s.AddTool(analyze.Definition(), analyze.Handle)

	list := NewPresetsTool()
	s.AddTool(list.Definition(), list.Handle)

	levels := NewLevelsTool()
	s.AddTool(levels.Definition(), levels.Handle)

	weighted := NewWeightedTool()
	s.AddTool(weighted.Definition(), weighted.Handle)

	return s
}

// AnalyzeTool handles the analyze_scenario MCP tool.
type AnalyzeTool struct {
	engine *scorer.Engine
}

// NewAnalyzeTool creates an AnalyzeTool backed by engine.
func NewAnalyzeTool(engine *scorer.Engine) *AnalyzeTool {
	return &AnalyzeTool{engine: engine}
}

// Definition returns the MCP tool definition for analyze_scenario.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_scenario",
		mcp.WithDescription(
			"Compare the two options of an autonomous-vehicle accident scenario by expected harm in life-years, "+
				"with deontological and virtue-ethics annotations.",
		),
		mcp.WithString("preset",
			mcp.Description("Preset scenario key, e.g. classicTrolley (see list_presets)"),
		),
		mcp.WithString("scenario_json",
			mcp.Description(`Scenario as JSON: {"optionA": {...}, "optionB": {...}}. Takes precedence over preset.`),
		),
		mcp.WithString("level",
			mcp.Description("Connectedness level: none, low, medium, high or max (default none)"),
		),
		mcp.WithBoolean("trace",
			mcp.Description("Include the step-by-step calculation"),
		),
	)
}

// Handle processes the analyze_scenario tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := scenarioArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	level, err := harm.LevelByKey(req.GetString("level", "none"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analyze := t.engine.Analyze
	if req.GetBool("trace", false) {
		analyze = t.engine.AnalyzeTraced
	}
	report, err := analyze(ctx, s, level.Flags)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	if err := report.WriteText(&sb); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// scenarioArg resolves the scenario_json or preset argument.
func scenarioArg(req mcp.CallToolRequest) (harm.Scenario, error) {
	var s harm.Scenario
	raw := req.GetString("scenario_json", "")
	key := req.GetString("preset", "")
	switch {
	case raw != "":
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return s, fmt.Errorf("invalid scenario_json: %v", err)
		}
		return s, nil
	case key != "":
		p, err := presets.Get(key)
		return p.Scenario, err
	}
	return s, errors.New("one of 'preset' or 'scenario_json' is required")
}

// WeightedTool handles the analyze_weighted MCP tool.
type WeightedTool struct{}

// NewWeightedTool creates a WeightedTool.
func NewWeightedTool() *WeightedTool {
	return &WeightedTool{}
}

// Definition returns the MCP tool definition for analyze_weighted.
func (t *WeightedTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_weighted",
		mcp.WithDescription(
			"Compare the two options of a scenario using personal importance weights (1-10) for each factor. "+
				"Ratings of 2 or less switch a factor off.",
		),
		mcp.WithString("preset",
			mcp.Description("Preset scenario key, e.g. classicTrolley (see list_presets)"),
		),
		mcp.WithString("scenario_json",
			mcp.Description(`Scenario as JSON: {"optionA": {...}, "optionB": {...}}. Takes precedence over preset.`),
		),
		mcp.WithString("weights_json",
			mcp.Description(`Weights as JSON, either {"age": 7, ...} or an exported weights file. Omitted ratings use the defaults.`),
		),
	)
}

// Handle processes the analyze_weighted tool call.
func (t *WeightedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := scenarioArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	weights := harm.DefaultWeights()
	if raw := req.GetString("weights_json", ""); raw != "" {
		doc, err := analyses.DecodeWeights(weightsFile(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		weights = doc.Weights
	}

	res, err := harm.AnalyzeWeighted(s, weights)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var sb strings.Builder
	if err := scorer.WriteWeightedText(&sb, res); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// weightsFile wraps bare ratings in a weights document.
func weightsFile(raw string) []byte {
	var probe map[string]json.RawMessage
	if json.Unmarshal([]byte(raw), &probe) == nil {
		if _, ok := probe["weights"]; ok {
			return []byte(raw)
		}
	}
	return []byte(`{"weights": ` + raw + `}`)
}

// PresetsTool handles the list_presets MCP tool.
type PresetsTool struct{}

// NewPresetsTool creates a PresetsTool.
func NewPresetsTool() *PresetsTool {
	return &PresetsTool{}
}

// Definition returns the MCP tool definition for list_presets.
func (t *PresetsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_presets",
		mcp.WithDescription("List the preset scenarios accepted by analyze_scenario."),
	)
}

// Handle processes the list_presets tool call.
func (t *PresetsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("## Preset scenarios\n\n")
	for _, p := range presets.All() {
		fmt.Fprintf(&sb, "- `%s` **%s**: %s\n", p.Key, p.Name, p.Description)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// LevelsTool handles the list_levels MCP tool.
type LevelsTool struct{}

// NewLevelsTool creates a LevelsTool.
func NewLevelsTool() *LevelsTool {
	return &LevelsTool{}
}

// Definition returns the MCP tool definition for list_levels.
func (t *LevelsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_levels",
		mcp.WithDescription("List the connectedness levels and the factor groups each one enables."),
	)
}

// Handle processes the list_levels tool call.
func (t *LevelsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("## Connectedness levels\n\n")
	for _, l := range harm.Levels {
		fmt.Fprintf(&sb, "- `%s` %s (controversial %t, extended %t, network %t)\n",
			l.Key, l.Name, l.Flags.IncludeControversial, l.Flags.IncludeExtendedFactors, l.Flags.IncludeNetworkEffects)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
