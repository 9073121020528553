package quality

import (
	"fmt"
	"sync"
	"time"

	"aquasense/dataset"
)

// Sample is one water measurement in the canonical feature order.
type Sample struct {
	PH              float64 `json:"ph"`
	Hardness        float64 `json:"hardness"`
	Solids          float64 `json:"solids"`
	Chloramines     float64 `json:"chloramines"`
	Sulfate         float64 `json:"sulfate"`
	Conductivity    float64 `json:"conductivity"`
	OrganicCarbon   float64 `json:"organic_carbon"`
	Trihalomethanes float64 `json:"trihalomethanes"`
	Turbidity       float64 `json:"turbidity"`
}

// Vector returns the sample in dataset.FeatureNames order.
func (s Sample) Vector() []float64 {
	return []float64{
		s.PH,
		s.Hardness,
		s.Solids,
		s.Chloramines,
		s.Sulfate,
		s.Conductivity,
		s.OrganicCarbon,
		s.Trihalomethanes,
		s.Turbidity,
	}
}

// FromVector builds a Sample from a canonical-order vector.
func FromVector(vec []float64) Sample {
	var s Sample
	if len(vec) != 9 {
		return s
	}
	s.PH = vec[0]
	s.Hardness = vec[1]
	s.Solids = vec[2]
	s.Chloramines = vec[3]
	s.Sulfate = vec[4]
	s.Conductivity = vec[5]
	s.OrganicCarbon = vec[6]
	s.Trihalomethanes = vec[7]
	s.Turbidity = vec[8]
	return s
}

// ParameterNames returns the nine required parameter names.
func ParameterNames() []string { return dataset.FeatureNames() }

// Violation reports a parameter outside a rule's limit.
type Violation struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Message   string  `json:"message"`
}

type bound struct {
	min float64
	max float64
}

// plausibleRanges are sanity bounds for instrument readings. Values
// outside them produce warnings, never rejections.
var plausibleRanges = map[string]bound{
	"ph":              {0, 14},
	"hardness":        {0, 1000},
	"solids":          {0, 100000},
	"chloramines":     {0, 20},
	"sulfate":         {0, 1000},
	"conductivity":    {0, 2000},
	"organic_carbon":  {0, 50},
	"trihalomethanes": {0, 200},
	"turbidity":       {0, 20},
}

// guidelineLimits are drinking-water guideline thresholds used by the
// rule-based potability check. pH is the only two-sided limit.
var guidelineLimits = map[string]bound{
	"ph":              {6.5, 8.5},
	"hardness":        {0, 200},
	"solids":          {0, 500},
	"chloramines":     {0, 4},
	"sulfate":         {0, 250},
	"conductivity":    {0, 500},
	"organic_carbon":  {0, 10},
	"trihalomethanes": {0, 80},
	"turbidity":       {0, 5},
}

// Stats counts validator activity.
type Stats struct {
	TotalValidated int64     `json:"total_validated"`
	Passed         int64     `json:"passed"`
	Warned         int64     `json:"warned"`
	LastValidated  time.Time `json:"last_validated"`
}

// Validator applies range and guideline rules to samples and keeps
// running counters.
type Validator struct {
	mu    sync.Mutex
	stats Stats
}

func NewValidator() *Validator { return &Validator{} }

// ValidateRanges checks each parameter against its plausible range.
// It returns true with no warnings when everything is in range;
// out-of-range values produce warning strings and ok=false but the
// sample stays usable.
func (v *Validator) ValidateRanges(s Sample) (bool, []string) {
	values := s.Vector()
	var warnings []string
	for i, name := range ParameterNames() {
		b := plausibleRanges[name]
		if values[i] < b.min || values[i] > b.max {
			warnings = append(warnings,
				fmt.Sprintf("%s (%g) is outside typical range (%g-%g)", name, values[i], b.min, b.max))
		}
	}

	v.mu.Lock()
	v.stats.TotalValidated++
	if len(warnings) == 0 {
		v.stats.Passed++
	} else {
		v.stats.Warned++
	}
	v.stats.LastValidated = time.Now()
	v.mu.Unlock()

	return len(warnings) == 0, warnings
}

// CheckGuidelines runs the rule-based potability check: the sample is
// potable only when every parameter satisfies its guideline limit.
func (v *Validator) CheckGuidelines(s Sample) (bool, []Violation) {
	values := s.Vector()
	var violations []Violation
	for i, name := range ParameterNames() {
		b := guidelineLimits[name]
		if values[i] < b.min {
			violations = append(violations, Violation{
				Parameter: name,
				Value:     values[i],
				Message:   fmt.Sprintf("%s (%g) below guideline minimum %g", name, values[i], b.min),
			})
			continue
		}
		if values[i] > b.max {
			violations = append(violations, Violation{
				Parameter: name,
				Value:     values[i],
				Message:   fmt.Sprintf("%s (%g) above guideline maximum %g", name, values[i], b.max),
			})
		}
	}
	return len(violations) == 0, violations
}

// Stats returns a copy of the running counters.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}
