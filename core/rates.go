package core

import (
	"fmt"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

// Rates are the tunable constants of the simulation. Distances are in
// picometres and times in seconds.
type Rates struct {
	HalfLifeAtHalfAffinity   float64     `yaml:"half_life_at_half_affinity"`
	GenericAttachTime        float64     `yaml:"generic_attach_time"`
	UnavailableCoolDown      float64     `yaml:"unavailable_cool_down"`
	ApproachSpeed            float64     `yaml:"approach_speed"`
	ArrivalTolerance         float64     `yaml:"arrival_tolerance"`
	HopSpeed                 float64     `yaml:"hop_speed"`
	HopThresholdDecay        float64     `yaml:"hop_threshold_decay"`
	ConformationalChangeRate float64     `yaml:"conformational_change_rate"`
	TranscriptionSpeed       float64     `yaml:"transcription_speed"`
	TranslationRate          float64     `yaml:"translation_rate"`
	ClearAttachmentLength    float64     `yaml:"clear_attachment_length"`
	DestructionRate          float64     `yaml:"destruction_rate"`
	FragmentLength           model.Range `yaml:"fragment_length"`
	DetachFromPolymerase     float64     `yaml:"detach_from_polymerase_time"`
	MessengerRnaPreFade      float64     `yaml:"mrna_pre_fade_time"`
	MessengerRnaFade         float64     `yaml:"mrna_fade_time"`
	FragmentFade             float64     `yaml:"fragment_fade_time"`
	MessengerRnaProposal     float64     `yaml:"mrna_proposal_range"`
	RecycleDriftSpeed        float64     `yaml:"recycle_drift_speed"`
}

// DefaultRates returns the reference constants.
func DefaultRates() Rates {
	return Rates{
		HalfLifeAtHalfAffinity:   1.5,
		GenericAttachTime:        3,
		UnavailableCoolDown:      3,
		ApproachSpeed:            250,
		ArrivalTolerance:         1,
		HopSpeed:                 200,
		HopThresholdDecay:        0.5,
		ConformationalChangeRate: 1,
		TranscriptionSpeed:       1000,
		TranslationRate:          750,
		ClearAttachmentLength:    700,
		DestructionRate:          250,
		FragmentLength:           model.Range{Min: 100, Max: 400},
		DetachFromPolymerase:     2,
		MessengerRnaPreFade:      2,
		MessengerRnaFade:         1,
		FragmentFade:             1,
		MessengerRnaProposal:     1000,
		RecycleDriftSpeed:        250,
	}
}

// Validate rejects rates that would stall or invert the simulation.
func (r Rates) Validate() error {
	positive := map[string]float64{
		"half_life_at_half_affinity": r.HalfLifeAtHalfAffinity,
		"approach_speed":             r.ApproachSpeed,
		"hop_speed":                  r.HopSpeed,
		"conformational_change_rate": r.ConformationalChangeRate,
		"transcription_speed":        r.TranscriptionSpeed,
		"translation_rate":           r.TranslationRate,
		"destruction_rate":           r.DestructionRate,
		"mrna_fade_time":             r.MessengerRnaFade,
		"fragment_fade_time":         r.FragmentFade,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: rate %s must be positive, got %v", ErrInvalidScenario, name, v)
		}
	}
	if r.HopThresholdDecay < 0 || r.HopThresholdDecay > 1 {
		return fmt.Errorf("%w: hop_threshold_decay %v outside [0,1]", ErrInvalidScenario, r.HopThresholdDecay)
	}
	if r.FragmentLength.Min <= 0 || r.FragmentLength.Max < r.FragmentLength.Min {
		return fmt.Errorf("%w: fragment length range %+v", ErrInvalidScenario, r.FragmentLength)
	}
	return nil
}
