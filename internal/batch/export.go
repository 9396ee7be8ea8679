package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// Header is the bulk export column order.
var Header = []string{
	"scenario_id", "sample_index", "option", "connectedness",
	"include_controversial", "include_extended", "include_network",
	"occupants", "occupant_age", "occupant_job", "occupant_health", "occupant_criminal",
	"occupant_legal_fault", "occupant_risk", "occupant_pregnant", "occupant_species", "occupant_network",
	"pedestrians", "pedestrian_age", "pedestrian_job", "pedestrian_health", "pedestrian_criminal",
	"pedestrian_legal_fault", "pedestrian_risk", "pedestrian_pregnant", "pedestrian_species", "pedestrian_network",
	"severity", "certainty", "total_people", "life_years_lost", "expected_harm",
}

// Row is one line of the bulk export: a scenario option at one level.
type Row struct {
	ScenarioID    string
	SampleIndex   int
	Option        string
	Connectedness string
	Flags         harm.FeatureFlags
	Occupants     harm.OptionSide
	Pedestrians   harm.OptionSide
	Severity      harm.Severity
	Certainty     float64
	TotalPeople   int
	LifeYearsLost float64
	ExpectedHarm  float64
}

// Rows flattens evaluations into export rows: for every scenario, every
// level, option1 then option2.
func Rows(evals []Evaluation) []Row {
	rows := make([]Row, 0, len(evals)*10)
	for _, ev := range evals {
		for _, lr := range ev.Levels {
			rows = append(rows,
				newRow(ev.Scenario, lr, harm.KeyOptionA),
				newRow(ev.Scenario, lr, harm.KeyOptionB),
			)
		}
	}
	return rows
}

func newRow(sc GeneratedScenario, lr LevelResult, key harm.OptionKey) Row {
	o := sc.Scenario.Option(key)
	res := lr.Result.OptionA
	label := "option1"
	if key == harm.KeyOptionB {
		res = lr.Result.OptionB
		label = "option2"
	}
	return Row{
		ScenarioID:    sc.ID,
		SampleIndex:   sc.Index,
		Option:        label,
		Connectedness: lr.Level.Name,
		Flags:         lr.Level.Flags,
		Occupants:     o.Occupants,
		Pedestrians:   o.Pedestrians,
		Severity:      o.Severity,
		Certainty:     o.CertaintyPercent,
		TotalPeople:   res.TotalPeople,
		LifeYearsLost: round(res.LifeYearsLost, 4),
		ExpectedHarm:  round(res.ExpectedHarm, 4),
	}
}

// Record renders the row in Header order.
func (r Row) Record() []string {
	rec := []string{
		r.ScenarioID,
		strconv.Itoa(r.SampleIndex),
		r.Option,
		r.Connectedness,
		boolField(r.Flags.IncludeControversial),
		boolField(r.Flags.IncludeExtendedFactors),
		boolField(r.Flags.IncludeNetworkEffects),
	}
	rec = append(rec, sideFields(r.Occupants)...)
	rec = append(rec, sideFields(r.Pedestrians)...)
	return append(rec,
		string(r.Severity),
		numField(r.Certainty),
		strconv.Itoa(r.TotalPeople),
		numField(r.LifeYearsLost),
		numField(r.ExpectedHarm),
	)
}

func sideFields(s harm.OptionSide) []string {
	p := s.Profile
	return []string{
		strconv.Itoa(s.Count),
		strconv.Itoa(p.Age),
		string(p.Occupation),
		string(p.Health),
		string(p.CriminalHistory),
		string(p.LegalFault),
		string(p.VoluntaryRisk),
		boolField(p.Pregnant),
		string(p.Species),
		string(p.Dependents),
	}
}

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, rows []Row) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Record()
	}
	return WriteRecords(w, records)
}

// WriteRecords writes the header followed by already rendered records.
func WriteRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func numField(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
