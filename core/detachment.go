package core

import "math"

// ProbabilityOfDetachment is the chance that an agent bound with affinity
// lets go within dt seconds. Affinity maps to a half-life
// H = halfLifeAtHalfAffinity * a/(1-a) and the chance follows decay:
// 1 - exp(-ln2 * dt / H).
func ProbabilityOfDetachment(affinity, dt, halfLifeAtHalfAffinity float64) float64 {
	switch {
	case affinity <= 0:
		return 1
	case affinity >= 1:
		return 0
	case dt <= 0:
		return 0
	}
	h := halfLifeAtHalfAffinity * affinity / (1 - affinity)
	return 1 - math.Exp(-math.Ln2*dt/h)
}
