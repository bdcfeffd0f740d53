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

import (
	"fmt"
	"math"
)

const daysPerYear = 365.25

// SubsidenceRate returns the mean annual irreversible displacement rate
// [mm/yr] of a simulated series, taken from its cumulative drying-phase
// component, together with the rate's standard deviation propagated from
// gainVariance, the estimation variance of the drying gain. Pass zero
// gainVariance when no uncertainty estimate is available.
func SubsidenceRate(s *Series, p *ParameterSet, gainVariance float64) (rate, std float64) {
	if s.Len() == 0 {
		return 0, 0
	}
	years := float64(s.Len()) / daysPerYear
	rate = s.Drying[s.Len()-1] / years
	if gainVariance > 0 && p.gainDrying != 0 {
		// The drying component is gain_drying times the total deficit
		// accumulated over drying days, so the gain uncertainty scales by
		// that total.
		deficitSum := math.Abs(s.Drying[s.Len()-1] / p.gainDrying)
		std = math.Sqrt(gainVariance) * deficitSum / years
	}
	return rate, std
}

// FValue is the weighted residual sum of squares normalized by the
// degrees of freedom. Values near one suggest model adequacy; values well
// above one indicate model imperfections or an overly optimistic
// stochastic model, and values well below one the reverse.
func FValue(rss float64, dof int) (float64, error) {
	if dof <= 0 {
		return 0, fmt.Errorf("spams: F-value needs a positive number of degrees of freedom, got %d", dof)
	}
	return rss / float64(dof), nil
}

// FormatWithUncertainty renders a value with its uncertainty, rounding
// the uncertainty to one significant figure and the value to the same
// decimal place, e.g. FormatWithUncertainty(3.14159, 0.023) == "3.14 ± 0.02".
func FormatWithUncertainty(value, uncertainty float64) string {
	if uncertainty == 0 {
		return fmt.Sprintf("%g", value)
	}
	digits := -int(math.Floor(math.Log10(math.Abs(uncertainty))))
	if digits < 0 {
		// Uncertainty of ten or more: round both to the matching power
		// of ten.
		scale := math.Pow(10, float64(-digits))
		return fmt.Sprintf("%.0f ± %.0f",
			math.Round(value/scale)*scale, math.Round(uncertainty/scale)*scale)
	}
	return fmt.Sprintf("%.*f ± %.*f", digits, value, digits, uncertainty)
}
