package scoring

// ObservationSet is a complete, typed set of the eight indicators.
type ObservationSet struct {
	MultipleBiopsies     bool `json:"multiple_biopsies" yaml:"multiple_biopsies"`
	FailedSteroids       bool `json:"failed_steroids" yaml:"failed_steroids"`
	OtherRash            bool `json:"otherrash" yaml:"otherrash"`
	ScalyPatchPlaque     bool `json:"scaly_patch_plaque" yaml:"scaly_patch_plaque"`
	Erythema             bool `json:"erythema" yaml:"erythema"`
	Xerosis              bool `json:"xerosis" yaml:"xerosis"`
	Pruritus             bool `json:"pruritus" yaml:"pruritus"`
	OtherFailedTherapies bool `json:"other_failed_therapies" yaml:"other_failed_therapies"`
}

// NewObservationSet returns a set with exactly the given indicators present.
func NewObservationSet(present ...Indicator) ObservationSet {
	var o ObservationSet
	for _, ind := range present {
		o.set(ind, true)
	}
	return o
}

// Present reports whether the indicator is true in the set.
func (o ObservationSet) Present(ind Indicator) bool {
	switch ind {
	case MultipleBiopsies:
		return o.MultipleBiopsies
	case FailedSteroids:
		return o.FailedSteroids
	case OtherRash:
		return o.OtherRash
	case ScalyPatchPlaque:
		return o.ScalyPatchPlaque
	case Erythema:
		return o.Erythema
	case Xerosis:
		return o.Xerosis
	case Pruritus:
		return o.Pruritus
	case OtherFailedTherapies:
		return o.OtherFailedTherapies
	}
	return false
}

// With returns a copy of the set with ind set to v.
func (o ObservationSet) With(ind Indicator, v bool) ObservationSet {
	o.set(ind, v)
	return o
}

// Selected counts the indicators that are present.
func (o ObservationSet) Selected() int {
	n := 0
	for _, ind := range indicators {
		if o.Present(ind) {
			n++
		}
	}
	return n
}

func (o *ObservationSet) set(ind Indicator, v bool) {
	switch ind {
	case MultipleBiopsies:
		o.MultipleBiopsies = v
	case FailedSteroids:
		o.FailedSteroids = v
	case OtherRash:
		o.OtherRash = v
	case ScalyPatchPlaque:
		o.ScalyPatchPlaque = v
	case Erythema:
		o.Erythema = v
	case Xerosis:
		o.Xerosis = v
	case Pruritus:
		o.Pruritus = v
	case OtherFailedTherapies:
		o.OtherFailedTherapies = v
	}
}
