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
	"time"
)

const dateFormat = "2006-01-02"

// A DayRecord holds the meteorological forcing for one calendar day.
type DayRecord struct {
	Date   time.Time
	Precip float64 // precipitation [mm]
	Evap   float64 // potential evapotranspiration [mm]
}

// MeteoSeries holds an aligned daily precipitation and evapotranspiration
// record for one station and answers range queries against it. It is
// immutable after construction, so concurrent reads are safe.
type MeteoSeries struct {
	days       map[int64]DayRecord // keyed by UTC midnight Unix time
	start, end time.Time
}

// NewMeteoSeries creates a series from records with strictly increasing
// dates. Time-of-day and location information is discarded; each date is
// normalized to UTC midnight.
//
// Records with a non-finite precipitation or evapotranspiration value are
// treated as absent days: imputation is the job of the ingestion layer,
// and a day that reaches this point unfilled is indistinguishable from a
// day that was never observed. Such days surface as a DataGapError when a
// requested window touches them.
func NewMeteoSeries(records []DayRecord) (*MeteoSeries, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("spams: empty meteorological record")
	}
	m := &MeteoSeries{days: make(map[int64]DayRecord, len(records))}
	var prev time.Time
	for i, r := range records {
		d := Date(r.Date.Year(), r.Date.Month(), r.Date.Day())
		if i > 0 && !d.After(prev) {
			return nil, fmt.Errorf("spams: meteorological record dates must be strictly increasing: %s follows %s",
				d.Format(dateFormat), prev.Format(dateFormat))
		}
		prev = d
		if i == 0 {
			m.start = d
		}
		m.end = d
		if math.IsNaN(r.Precip) || math.IsInf(r.Precip, 0) ||
			math.IsNaN(r.Evap) || math.IsInf(r.Evap, 0) {
			continue
		}
		r.Date = d
		m.days[d.Unix()] = r
	}
	return m, nil
}

// Date returns the UTC midnight time for a calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Start returns the first date in the record.
func (m *MeteoSeries) Start() time.Time { return m.start }

// End returns the last date in the record.
func (m *MeteoSeries) End() time.Time { return m.end }

// Len returns the number of calendar days the record spans, interior
// gaps included.
func (m *MeteoSeries) Len() int {
	return int(m.end.Sub(m.start).Hours()/24) + 1
}

// Slice returns the daily records covering [start-lookback days, end],
// inclusive, in chronological order. It returns a DataRangeError when the
// window extends beyond the available record on either end, and a
// DataGapError naming every day in the window that has no usable record.
func (m *MeteoSeries) Slice(start, end time.Time, lookback int) ([]DayRecord, error) {
	if lookback < 0 {
		return nil, fmt.Errorf("spams: negative lookback (%d days)", lookback)
	}
	start = Date(start.Year(), start.Month(), start.Day())
	end = Date(end.Year(), end.Month(), end.Day())
	if end.Before(start) {
		return nil, fmt.Errorf("spams: window end %s is before start %s",
			end.Format(dateFormat), start.Format(dateFormat))
	}
	lo := start.AddDate(0, 0, -lookback)
	if lo.Before(m.start) || end.After(m.end) {
		return nil, &DataRangeError{
			RequestStart: lo, RequestEnd: end,
			HaveStart: m.start, HaveEnd: m.end,
		}
	}
	n := int(end.Sub(lo).Hours()/24) + 1
	out := make([]DayRecord, 0, n)
	var missing []time.Time
	for d := lo; !d.After(end); d = d.AddDate(0, 0, 1) {
		r, ok := m.days[d.Unix()]
		if !ok {
			missing = append(missing, d)
			continue
		}
		out = append(out, r)
	}
	if len(missing) > 0 {
		return nil, &DataGapError{Dates: missing}
	}
	return out, nil
}
