// Package scoring implements the clinical risk scoring engine: feature
// validation, the weighted base model, interaction bonuses and the logistic
// normalizer. Every function is pure; an Engine is safe for concurrent use.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrScoreOutOfRange is returned when the pipeline produces a value that is
// not a valid probability. It indicates a broken model, never bad input.
var ErrScoreOutOfRange = errors.New("risk score out of range [0,1]")

// Scorer is the boundary exposed to transports.
type Scorer interface {
	Validate(record map[string]any) (ObservationSet, error)
	Score(obs ObservationSet) (Assessment, error)
}

// Contribution is the linear weight one present indicator added.
type Contribution struct {
	Indicator Indicator `json:"indicator"`
	Weight    float64   `json:"weight"`
}

// Assessment is the full outcome of one pipeline run.
type Assessment struct {
	Observations     ObservationSet
	Selected         int
	Baseline         float64
	Base             float64
	InteractionBonus float64
	Fired            []string
	Raw              float64
	Score            float64
	Band             RiskBand
	Contributions    []Contribution
}

// Engine runs the scoring pipeline against one immutable Model.
type Engine struct {
	model Model
}

var _ Scorer = (*Engine)(nil)

// NewEngine validates m and keeps a private copy of it.
func NewEngine(m Model) (*Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &Engine{model: m.clone()}, nil
}

// DefaultEngine returns an engine over the reference model.
func DefaultEngine() *Engine {
	e, err := NewEngine(DefaultModel())
	if err != nil {
		panic(fmt.Sprintf("reference model rejected: %v", err))
	}
	return e
}

// Model returns a copy of the engine's model.
func (e *Engine) Model() Model {
	return e.model.clone()
}

// Validate turns an untyped record into an ObservationSet, or returns a
// *ValidationError listing every missing or non-boolean indicator.
func (e *Engine) Validate(record map[string]any) (ObservationSet, error) {
	return validate(record)
}

// Score runs base model, interactions and normalizer over obs.
func (e *Engine) Score(obs ObservationSet) (Assessment, error) {
	selected := obs.Selected()
	base := e.baseRisk(obs)
	bonus, fired := e.interactionBonus(obs, selected)

	raw := base + bonus
	score := clamp01(logistic(raw, e.model.Logistic))
	if math.IsNaN(score) || score < 0 || score > 1 {
		return Assessment{}, fmt.Errorf("%w: got %v from raw %v", ErrScoreOutOfRange, score, raw)
	}

	return Assessment{
		Observations:     obs,
		Selected:         selected,
		Baseline:         e.model.Baseline,
		Base:             base,
		InteractionBonus: bonus,
		Fired:            fired,
		Raw:              raw,
		Score:            score,
		Band:             e.model.Band(score),
		Contributions:    e.contributions(obs),
	}, nil
}

func (e *Engine) baseRisk(obs ObservationSet) float64 {
	sum := e.model.Baseline
	for _, ind := range indicators {
		if obs.Present(ind) {
			sum += e.model.Weights[ind]
		}
	}
	return sum
}

func (e *Engine) interactionBonus(obs ObservationSet, selected int) (float64, []string) {
	var (
		total float64
		fired []string
	)
	for _, r := range e.model.Interactions {
		if r.matches(obs, selected) {
			total += r.Bonus
			fired = append(fired, r.Name)
		}
	}
	return total, fired
}

// contributions lists present indicators by descending weight; ties keep
// canonical order.
func (e *Engine) contributions(obs ObservationSet) []Contribution {
	out := make([]Contribution, 0, IndicatorCount)
	for _, ind := range indicators {
		if obs.Present(ind) {
			out = append(out, Contribution{Indicator: ind, Weight: e.model.Weights[ind]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}
