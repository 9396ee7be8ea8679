package harm

// Neutral is the multiplier any unlisted categorical value resolves to.
const Neutral = 1.0

// ReferenceAge is the age against which remaining life-years are measured.
const ReferenceAge = 85

// MinRemainingYears floors the remaining life-years so that age alone never
// produces zero harm.
const MinRemainingYears = 1

// PregnancyMultiplier is applied on top of the species multiplier when a
// profile is pregnant and extended factors are enabled.
const PregnancyMultiplier = 1.8

// Severity is the injury outcome class of an option.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySerious  Severity = "serious"
	SeverityCritical Severity = "critical"
	SeverityFatal    Severity = "fatal"
)

// Occupation categories.
type Occupation string

const (
	OccupationUnemployed        Occupation = "unemployed"
	OccupationAverage           Occupation = "average"
	OccupationSkilled           Occupation = "skilled"
	OccupationProfessional      Occupation = "professional"
	OccupationLifesaving        Occupation = "lifesaving"
	OccupationCaregiver         Occupation = "caregiver"
	OccupationPrimaryResearcher Occupation = "primaryResearcher"
	OccupationUniqueExpert      Occupation = "uniqueExpert"
)

// Health categories.
type Health string

const (
	HealthTerminal Health = "terminal"
	HealthChronic  Health = "chronic"
	HealthHealthy  Health = "healthy"
)

// CriminalHistory categories.
type CriminalHistory string

const (
	CriminalNone        CriminalHistory = "none"
	CriminalMinor       CriminalHistory = "minor"
	CriminalProperty    CriminalHistory = "property"
	CriminalViolent     CriminalHistory = "violent"
	CriminalHomicide    CriminalHistory = "homicide"
	CriminalActiveCrime CriminalHistory = "activeCrime"
)

// LegalFault describes whether the person was acting lawfully.
type LegalFault string

const (
	LegalFaultLegal          LegalFault = "legal"
	LegalFaultMinorViolation LegalFault = "minorViolation"
	LegalFaultJaywalking     LegalFault = "jaywalking"
	LegalFaultReckless       LegalFault = "reckless"
	LegalFaultDUI            LegalFault = "dui"
	LegalFaultFleeing        LegalFault = "fleeing"
)

// VoluntaryRisk describes how much risk the person knowingly accepted.
type VoluntaryRisk string

const (
	RiskInnocent  VoluntaryRisk = "innocent"
	RiskNormal    VoluntaryRisk = "normal"
	RiskConsented VoluntaryRisk = "consented"
	RiskRisky     VoluntaryRisk = "risky"
	RiskExtreme   VoluntaryRisk = "extreme"
)

// Species of the represented individual.
type Species string

const (
	SpeciesHuman     Species = "human"
	SpeciesPetDog    Species = "petDog"
	SpeciesPetCat    Species = "petCat"
	SpeciesLivestock Species = "livestock"
)

// Dependents describes the person's dependents/network role.
type Dependents string

const (
	DependentsNone             Dependents = "none"
	DependentsPartner          Dependents = "partner"
	DependentsParent           Dependents = "parent"
	DependentsSoleParent       Dependents = "soleParent"
	DependentsPrimaryCaregiver Dependents = "primaryCaregiver"
	DependentsSoleProvider     Dependents = "soleProvider"
)

var severityFractions = map[Severity]float64{
	SeverityNone:     0,
	SeverityMinor:    0.05,
	SeverityModerate: 0.2,
	SeveritySerious:  0.5,
	SeverityCritical: 0.8,
	SeverityFatal:    1.0,
}

var severityScores = map[Severity]int{
	SeverityNone:     0,
	SeverityMinor:    1,
	SeverityModerate: 2,
	SeveritySerious:  3,
	SeverityCritical: 4,
	SeverityFatal:    5,
}

var occupationMultipliers = map[Occupation]float64{
	OccupationUnemployed:        0.9,
	OccupationAverage:           1.0,
	OccupationSkilled:           1.1,
	OccupationProfessional:      1.2,
	OccupationLifesaving:        1.5,
	OccupationCaregiver:         1.4,
	OccupationPrimaryResearcher: 1.6,
	OccupationUniqueExpert:      1.8,
}

var healthMultipliers = map[Health]float64{
	HealthTerminal: 0.3,
	HealthChronic:  0.6,
	HealthHealthy:  1.0,
}

var criminalMultipliers = map[CriminalHistory]float64{
	CriminalNone:        1.0,
	CriminalMinor:       0.98,
	CriminalProperty:    0.92,
	CriminalViolent:     0.94,
	CriminalHomicide:    0.98,
	CriminalActiveCrime: 0.4,
}

var legalFaultMultipliers = map[LegalFault]float64{
	LegalFaultLegal:          1.0,
	LegalFaultMinorViolation: 0.95,
	LegalFaultJaywalking:     0.9,
	LegalFaultReckless:       0.7,
	LegalFaultDUI:            0.6,
	LegalFaultFleeing:        0.5,
}

var riskMultipliers = map[VoluntaryRisk]float64{
	RiskInnocent:  1.0,
	RiskNormal:    1.0,
	RiskConsented: 0.9,
	RiskRisky:     0.7,
	RiskExtreme:   0.5,
}

var speciesMultipliers = map[Species]float64{
	SpeciesHuman:     1.0,
	SpeciesPetDog:    0.05,
	SpeciesPetCat:    0.05,
	SpeciesLivestock: 0.02,
}

var dependentsMultipliers = map[Dependents]float64{
	DependentsNone:             1.0,
	DependentsPartner:          1.1,
	DependentsParent:           1.3,
	DependentsSoleParent:       1.6,
	DependentsPrimaryCaregiver: 1.5,
	DependentsSoleProvider:     1.4,
}

// lookup resolves k in table, falling back to Neutral for unlisted values.
func lookup[K ~string](table map[K]float64, k K) float64 {
	if v, ok := table[k]; ok {
		return v
	}
	return Neutral
}

// BaseFraction is the fraction of remaining life-years lost at this
// severity. Unlisted severities resolve to Neutral like every other table.
func (s Severity) BaseFraction() float64 { return lookup(severityFractions, s) }

// Score is the ordinal 0 (none) to 5 (fatal) used for display.
func (s Severity) Score() int { return severityScores[s] }

func (o Occupation) Multiplier() float64      { return lookup(occupationMultipliers, o) }
func (h Health) Multiplier() float64          { return lookup(healthMultipliers, h) }
func (c CriminalHistory) Multiplier() float64 { return lookup(criminalMultipliers, c) }
func (l LegalFault) Multiplier() float64      { return lookup(legalFaultMultipliers, l) }
func (r VoluntaryRisk) Multiplier() float64   { return lookup(riskMultipliers, r) }
func (s Species) Multiplier() float64         { return lookup(speciesMultipliers, s) }
func (d Dependents) Multiplier() float64      { return lookup(dependentsMultipliers, d) }

// Known category values, in display order. Used by generators and encoders.
var (
	Severities        = []Severity{SeverityNone, SeverityMinor, SeverityModerate, SeveritySerious, SeverityCritical, SeverityFatal}
	Occupations       = []Occupation{OccupationUnemployed, OccupationAverage, OccupationSkilled, OccupationProfessional, OccupationLifesaving, OccupationCaregiver, OccupationPrimaryResearcher, OccupationUniqueExpert}
	HealthStatuses    = []Health{HealthHealthy, HealthChronic, HealthTerminal}
	CriminalHistories = []CriminalHistory{CriminalNone, CriminalMinor, CriminalProperty, CriminalViolent, CriminalHomicide, CriminalActiveCrime}
	LegalFaults       = []LegalFault{LegalFaultLegal, LegalFaultMinorViolation, LegalFaultJaywalking, LegalFaultReckless, LegalFaultDUI, LegalFaultFleeing}
	VoluntaryRisks    = []VoluntaryRisk{RiskInnocent, RiskNormal, RiskConsented, RiskRisky, RiskExtreme}
	SpeciesKinds      = []Species{SpeciesHuman, SpeciesPetDog, SpeciesPetCat, SpeciesLivestock}
	DependentsRoles   = []Dependents{DependentsNone, DependentsPartner, DependentsParent, DependentsSoleParent, DependentsPrimaryCaregiver, DependentsSoleProvider}
)
