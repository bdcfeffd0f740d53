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
	"sort"
	"strings"
	"time"
)

// DataGapError reports calendar days inside a requested simulation window
// (including its lookback) that have no usable entry in the meteorological
// record. The simulation state is path dependent, so a missing day can
// never be skipped over.
type DataGapError struct {
	Dates []time.Time // the missing days, in chronological order
}

func (e *DataGapError) Error() string {
	d := make([]string, len(e.Dates))
	for i, t := range e.Dates {
		d[i] = t.Format(dateFormat)
	}
	return fmt.Sprintf("spams: meteorological record is missing %d day(s) in the requested window: %s",
		len(e.Dates), strings.Join(d, ", "))
}

// DataRangeError reports a requested simulation window (including its
// lookback) that extends beyond the available meteorological record.
type DataRangeError struct {
	RequestStart, RequestEnd time.Time // the requested window, lookback included
	HaveStart, HaveEnd       time.Time // the available record bounds
}

func (e *DataRangeError) Error() string {
	return fmt.Sprintf("spams: requested window %s–%s is outside the available meteorological record %s–%s",
		e.RequestStart.Format(dateFormat), e.RequestEnd.Format(dateFormat),
		e.HaveStart.Format(dateFormat), e.HaveEnd.Format(dateFormat))
}

// ParameterError reports model coefficients that are missing from a
// parameter mapping or that fall outside their documented physical range.
type ParameterError struct {
	Names []string // the offending coefficient names
}

func (e *ParameterError) Error() string {
	n := append([]string{}, e.Names...)
	sort.Strings(n)
	return fmt.Sprintf("spams: parameter(s) missing or out of range: %s", strings.Join(n, ", "))
}

// SimulationError reports a non-finite intermediate value in the
// displacement recurrence. It indicates corrupt input data or a decay
// factor outside its valid domain that slipped past validation; it is
// always fatal and is never clamped away.
type SimulationError struct {
	Date    time.Time // the simulated day at which the state became non-finite
	Deficit float64   // the offending deficit value
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("spams: moisture deficit became non-finite (%g) on %s",
		e.Deficit, e.Date.Format(dateFormat))
}
