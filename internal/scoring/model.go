package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Indicator names one of the eight boolean clinical observations.
type Indicator string

const (
	MultipleBiopsies     Indicator = "multiple_biopsies"
	FailedSteroids       Indicator = "failed_steroids"
	OtherRash            Indicator = "otherrash"
	ScalyPatchPlaque     Indicator = "scaly_patch_plaque"
	Erythema             Indicator = "erythema"
	Xerosis              Indicator = "xerosis"
	Pruritus             Indicator = "pruritus"
	OtherFailedTherapies Indicator = "other_failed_therapies"
)

// indicators is the canonical order. Weight summation and violation reports
// both walk this array so results never depend on map iteration.
var indicators = [...]Indicator{
	MultipleBiopsies,
	FailedSteroids,
	OtherRash,
	ScalyPatchPlaque,
	Erythema,
	Xerosis,
	Pruritus,
	OtherFailedTherapies,
}

// IndicatorCount is the number of required indicators (features_processed).
const IndicatorCount = len(indicators)

// Indicators returns the required indicators in canonical order.
func Indicators() []Indicator {
	out := make([]Indicator, len(indicators))
	copy(out, indicators[:])
	return out
}

// Valid reports whether i is one of the required indicators.
func (i Indicator) Valid() bool {
	for _, known := range indicators {
		if i == known {
			return true
		}
	}
	return false
}

// WeightTable maps each indicator to its linear contribution.
type WeightTable map[Indicator]float64

// InteractionRule adds Bonus when every indicator in AllOf is present and at
// least MinSelected indicators are present overall.
type InteractionRule struct {
	Name        string      `yaml:"name" json:"name"`
	AllOf       []Indicator `yaml:"all_of,omitempty" json:"all_of,omitempty"`
	MinSelected int         `yaml:"min_selected,omitempty" json:"min_selected,omitempty"`
	Bonus       float64     `yaml:"bonus" json:"bonus"`
}

func (r InteractionRule) matches(obs ObservationSet, selected int) bool {
	if selected < r.MinSelected {
		return false
	}
	for _, ind := range r.AllOf {
		if !obs.Present(ind) {
			return false
		}
	}
	return true
}

// Logistic holds the constants of the normalizing sigmoid.
type Logistic struct {
	Steepness float64 `yaml:"steepness" json:"steepness"`
	Midpoint  float64 `yaml:"midpoint" json:"midpoint"`
}

// RiskBand labels scores strictly below Upper (the last band also covers 1).
type RiskBand struct {
	Upper          float64 `yaml:"upper" json:"upper"`
	Level          string  `yaml:"level" json:"level"`
	Description    string  `yaml:"description" json:"description"`
	Recommendation string  `yaml:"recommendation" json:"recommendation"`
}

// Model is the complete scoring configuration. It is treated as immutable
// once handed to NewEngine.
type Model struct {
	Version      string            `yaml:"version" json:"version"`
	Baseline     float64           `yaml:"baseline" json:"baseline"`
	Weights      WeightTable       `yaml:"weights" json:"weights"`
	Interactions []InteractionRule `yaml:"interactions" json:"interactions"`
	Logistic     Logistic          `yaml:"logistic" json:"logistic"`
	Bands        []RiskBand        `yaml:"bands" json:"bands"`
}

// Reference calibration. These are approximations standing in for an
// unpublished production model; replace them through a model file rather than
// editing the algorithm.
const (
	ReferenceVersion   = "reference-1"
	ReferenceBaseline  = 0.05
	ReferenceSteepness = 4.0
	ReferenceMidpoint  = 0.5
)

// DefaultModel returns a fresh copy of the reference model.
func DefaultModel() Model {
	return Model{
		Version:  ReferenceVersion,
		Baseline: ReferenceBaseline,
		Weights: WeightTable{
			MultipleBiopsies:     0.20,
			FailedSteroids:       0.22,
			OtherRash:            0.12,
			ScalyPatchPlaque:     0.15,
			Erythema:             0.12,
			Xerosis:              0.08,
			Pruritus:             0.11,
			OtherFailedTherapies: 0.15,
		},
		Interactions: []InteractionRule{
			{Name: "biopsies_failed_steroids", AllOf: []Indicator{MultipleBiopsies, FailedSteroids}, Bonus: 0.08},
			{Name: "scaly_plaque_pruritus", AllOf: []Indicator{ScalyPatchPlaque, Pruritus}, Bonus: 0.06},
			{Name: "steroids_other_therapies", AllOf: []Indicator{FailedSteroids, OtherFailedTherapies}, Bonus: 0.07},
			{Name: "erythema_xerosis_pruritus", AllOf: []Indicator{Erythema, Xerosis, Pruritus}, Bonus: 0.05},
			{Name: "symptom_burden", MinSelected: 5, Bonus: 0.04},
		},
		Logistic: Logistic{Steepness: ReferenceSteepness, Midpoint: ReferenceMidpoint},
		Bands: []RiskBand{
			{
				Upper:          0.2,
				Level:          "Very Low",
				Description:    "Very low probability of CTCL. Continue routine monitoring.",
				Recommendation: "Standard dermatological follow-up as needed.",
			},
			{
				Upper:          0.4,
				Level:          "Low",
				Description:    "Low probability of CTCL. Monitor for changes.",
				Recommendation: "Regular follow-up and monitoring recommended.",
			},
			{
				Upper:          0.6,
				Level:          "Moderate",
				Description:    "Moderate risk warrants closer evaluation.",
				Recommendation: "Consider additional testing and specialist consultation.",
			},
			{
				Upper:          0.8,
				Level:          "High",
				Description:    "High risk requires immediate attention.",
				Recommendation: "Urgent dermatology/oncology consultation recommended.",
			},
			{
				Upper:          1.0,
				Level:          "Very High",
				Description:    "Very high risk of CTCL.",
				Recommendation: "Immediate specialist evaluation and comprehensive workup needed.",
			},
		},
	}
}

// Validate checks the model is complete and keeps the score monotone in every
// indicator: non-negative weights and bonuses, positive steepness.
func (m Model) Validate() error {
	var errs []error

	if !isFinite(m.Baseline) || m.Baseline < 0 || m.Baseline > 1 {
		errs = append(errs, fmt.Errorf("baseline %v outside [0,1]", m.Baseline))
	}

	for _, ind := range indicators {
		w, ok := m.Weights[ind]
		if !ok {
			errs = append(errs, fmt.Errorf("weight for %q missing", ind))
			continue
		}
		if !isFinite(w) || w < 0 || w > 1 {
			errs = append(errs, fmt.Errorf("weight for %q is %v, want [0,1]", ind, w))
		}
	}
	for ind := range m.Weights {
		if !ind.Valid() {
			errs = append(errs, fmt.Errorf("weight for unknown indicator %q", ind))
		}
	}

	seen := make(map[string]bool, len(m.Interactions))
	for i, r := range m.Interactions {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("interaction %d has no name", i))
		} else if seen[r.Name] {
			errs = append(errs, fmt.Errorf("interaction %q defined twice", r.Name))
		}
		seen[r.Name] = true

		if len(r.AllOf) == 0 && r.MinSelected <= 0 {
			errs = append(errs, fmt.Errorf("interaction %q has no condition", r.Name))
		}
		if r.MinSelected > IndicatorCount {
			errs = append(errs, fmt.Errorf("interaction %q needs %d indicators, only %d exist", r.Name, r.MinSelected, IndicatorCount))
		}
		for _, ind := range r.AllOf {
			if !ind.Valid() {
				errs = append(errs, fmt.Errorf("interaction %q references unknown indicator %q", r.Name, ind))
			}
		}
		if !isFinite(r.Bonus) || r.Bonus < 0 {
			errs = append(errs, fmt.Errorf("interaction %q bonus %v must be >= 0", r.Name, r.Bonus))
		}
	}

	if !isFinite(m.Logistic.Steepness) || m.Logistic.Steepness <= 0 {
		errs = append(errs, fmt.Errorf("logistic steepness %v must be > 0", m.Logistic.Steepness))
	}
	if !isFinite(m.Logistic.Midpoint) {
		errs = append(errs, fmt.Errorf("logistic midpoint %v is not finite", m.Logistic.Midpoint))
	}

	if len(m.Bands) == 0 {
		errs = append(errs, errors.New("no risk bands"))
	}
	prev := 0.0
	for i, b := range m.Bands {
		if b.Level == "" {
			errs = append(errs, fmt.Errorf("band %d has no level", i))
		}
		if !isFinite(b.Upper) {
			errs = append(errs, fmt.Errorf("band %q upper %v is not finite", b.Level, b.Upper))
			continue
		}
		if b.Upper <= prev {
			errs = append(errs, fmt.Errorf("band %q upper %v not above %v", b.Level, b.Upper, prev))
		}
		prev = b.Upper
	}
	if len(m.Bands) > 0 && m.Bands[len(m.Bands)-1].Upper != 1 {
		errs = append(errs, errors.New("last risk band must end at 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid model: %w", errors.Join(errs...))
	}
	return nil
}

// Band returns the risk band a normalized score falls into.
func (m Model) Band(score float64) RiskBand {
	for i, b := range m.Bands {
		if score < b.Upper || i == len(m.Bands)-1 {
			return b
		}
	}
	return RiskBand{}
}

func (m Model) clone() Model {
	c := m
	c.Weights = make(WeightTable, len(m.Weights))
	for k, v := range m.Weights {
		c.Weights[k] = v
	}
	c.Interactions = make([]InteractionRule, len(m.Interactions))
	for i, r := range m.Interactions {
		r.AllOf = append([]Indicator(nil), r.AllOf...)
		c.Interactions[i] = r
	}
	c.Bands = append([]RiskBand(nil), m.Bands...)
	return c
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
