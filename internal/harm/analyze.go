package harm

// AnalyzeScenario computes both options and compares them with the
// utility-band tie-break.
func AnalyzeScenario(s Scenario, flags FeatureFlags) (ComparisonResult, error) {
	return AnalyzeWith(s, flags, TieBreakUtilityBand)
}

// AnalyzeWith is AnalyzeScenario with an explicit tie-break strategy.
// Scenarios with nobody in them are rejected before any computation.
func AnalyzeWith(s Scenario, flags FeatureFlags, tb TieBreak) (ComparisonResult, error) {
	if err := s.Validate(); err != nil {
		return ComparisonResult{}, err
	}
	a := ComputeOptionHarm(s.OptionA, flags)
	b := ComputeOptionHarm(s.OptionB, flags)
	return CompareWith(a, b, tb), nil
}
