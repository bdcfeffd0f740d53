/*
Copyright © 2024 the SPAMS authors.
This file is part of SPAMS.

SPAMS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SPAMS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SPAMS.  If not, see <http://www.gnu.org/licenses/>.
*/

package spams

import "math"

// Names of the model coefficients in a parameter mapping.
const (
	NameDecayFactor = "decay_factor" // deficit relaxation multiplier per day, (0, 1]
	NameTau         = "tau"          // relaxation time constant [days]; alternative to decay_factor
	NameGainDrying  = "gain_drying"  // elevation change per unit deficit change while drying [mm/mm]
	NameGainWetting = "gain_wetting" // elevation change per unit deficit change while wetting [mm/mm]
	NameOffset      = "offset"       // reference level applied once at series start [mm]
)

// Documented physical ranges for the coefficients.
const (
	maxAbsGain   = 100.   // [mm/mm]
	maxAbsOffset = 10000. // [mm]
	minTau       = 1.     // [days]
	maxTau       = 10000. // [days]
)

// A ParameterSet holds the validated empirical coefficients describing one
// parcel's displacement response. It is immutable once constructed and may
// be shared read-only across any number of concurrent simulation runs.
type ParameterSet struct {
	decayFactor float64
	gainDrying  float64
	gainWetting float64
	offset      float64
}

// NewParameterSet builds a ParameterSet from a name→value mapping, such as
// one row of a calibrated parameter file. Unknown extra names are ignored.
// The decay factor resolves from decay_factor directly, or from tau as
// exp(-1/τ) when decay_factor is absent.
//
// Every required coefficient must be present, finite, and inside its
// documented range; otherwise a ParameterError listing all offending names
// is returned. There are no silent defaults.
func NewParameterSet(values map[string]float64) (*ParameterSet, error) {
	var bad []string

	p := &ParameterSet{}
	if v, ok := values[NameDecayFactor]; ok {
		if inRange(v, math.SmallestNonzeroFloat64, 1) {
			p.decayFactor = v
		} else {
			bad = append(bad, NameDecayFactor)
		}
	} else if v, ok := values[NameTau]; ok {
		if inRange(v, minTau, maxTau) {
			p.decayFactor = DecayFromTau(v)
		} else {
			bad = append(bad, NameTau)
		}
	} else {
		bad = append(bad, NameDecayFactor)
	}

	if v, ok := values[NameGainDrying]; ok && inRange(v, -maxAbsGain, maxAbsGain) {
		p.gainDrying = v
	} else {
		bad = append(bad, NameGainDrying)
	}
	if v, ok := values[NameGainWetting]; ok && inRange(v, -maxAbsGain, maxAbsGain) {
		p.gainWetting = v
	} else {
		bad = append(bad, NameGainWetting)
	}
	if v, ok := values[NameOffset]; ok && inRange(v, -maxAbsOffset, maxAbsOffset) {
		p.offset = v
	} else {
		bad = append(bad, NameOffset)
	}

	if len(bad) > 0 {
		return nil, &ParameterError{Names: bad}
	}
	return p, nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// DecayFromTau converts a relaxation time constant in days to the
// per-day decay factor exp(-1/τ).
func DecayFromTau(tau float64) float64 {
	return math.Exp(-1 / tau)
}

// DecayFactor returns the per-day deficit relaxation multiplier.
func (p *ParameterSet) DecayFactor() float64 { return p.decayFactor }

// GainDrying returns the drying-phase gain [mm/mm].
func (p *ParameterSet) GainDrying() float64 { return p.gainDrying }

// GainWetting returns the wetting-phase gain [mm/mm].
func (p *ParameterSet) GainWetting() float64 { return p.gainWetting }

// Offset returns the reference level applied at series start [mm].
func (p *ParameterSet) Offset() float64 { return p.offset }

// WarmUpDays returns a lookback length, in days, after which the influence
// of an arbitrary initial deficit has decayed below one percent. With a
// decay factor of one the state never forgets and no finite warm-up helps,
// so zero is returned and the caller must choose a lookback itself.
func (p *ParameterSet) WarmUpDays() int {
	if p.decayFactor >= 1 {
		return 0
	}
	return int(math.Ceil(math.Log(0.01) / math.Log(p.decayFactor)))
}
