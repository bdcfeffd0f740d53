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
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Phase identifies the direction the moisture deficit moved on a given day.
type Phase int

const (
	// PhaseWetting means the deficit decreased (net water gain dominated).
	// It is also the initial phase: a simulation starts from the saturated
	// reference with zero deficit.
	PhaseWetting Phase = iota
	// PhaseDrying means the deficit increased (net water loss dominated).
	PhaseDrying
)

func (p Phase) String() string {
	if p == PhaseDrying {
		return "drying"
	}
	return "wetting"
}

// state is the per-run simulation state. Each run owns exactly one state
// value; it is threaded through the step function and discarded at the end
// of the run.
type state struct {
	deficit   float64 // accumulated moisture deficit [mm], never negative
	phase     Phase   // direction of the most recent deficit change
	elevation float64 // cumulative displacement [mm], un-normalized
	drying    float64 // cumulative drying-phase contribution [mm]
	wetting   float64 // cumulative wetting-phase contribution [mm]
}

// step advances the recurrence by one day. It is a pure function of its
// inputs, which keeps the path-dependent accumulation testable in
// isolation.
//
// The deficit update is the bounded exponential relaxation
//
//	deficit_t = max(0, deficit_{t-1}·k − net),  net = P − E,
//
// with k the per-day decay factor. A surplus day (net ≥ 0) relaxes the
// deficit toward zero; a shortfall day deepens it by the shortfall. The
// floor at zero pins the state to the saturated reference and keeps it
// finite for any finite forcing. A day that leaves the deficit unchanged
// carries the previous phase forward, so a later flat day can never flip
// the gain applied to a nonzero change.
func step(st state, day DayRecord, p *ParameterSet) (state, error) {
	net := day.Precip - day.Evap
	deficit := st.deficit*p.decayFactor - net
	if deficit < 0 {
		deficit = 0
	}
	if math.IsNaN(deficit) || math.IsInf(deficit, 0) {
		return st, &SimulationError{Date: day.Date, Deficit: deficit}
	}
	delta := deficit - st.deficit
	next := st
	next.deficit = deficit
	switch {
	case delta > 0:
		next.phase = PhaseDrying
		next.drying += p.gainDrying * delta
		next.elevation += p.gainDrying * delta
	case delta < 0:
		next.phase = PhaseWetting
		next.wetting += p.gainWetting * delta
		next.elevation += p.gainWetting * delta
	}
	return next, nil
}

// A Series is the result of one simulation run: one entry per reported
// day. Elevation is normalized so the first reported day equals the
// parameter offset; Drying and Wetting hold the cumulative contributions
// of the two phases, each starting at zero, so that
// Elevation[i] = offset + Drying[i] + Wetting[i] holds for every day.
// The drying contribution is the model's irreversible (compaction)
// component and the wetting contribution its reversible counterpart.
type Series struct {
	Dates     []time.Time
	Elevation []float64 // relative surface elevation [mm]
	Deficit   []float64 // moisture deficit [mm]
	Phase     []Phase
	Drying    []float64 // cumulative drying-phase displacement [mm]
	Wetting   []float64 // cumulative wetting-phase displacement [mm]
	Precip    []float64 // input precipitation, echoed for export [mm]
	Evap      []float64 // input evapotranspiration, echoed for export [mm]
}

// Len returns the number of reported days.
func (s *Series) Len() int { return len(s.Dates) }

// Bounds returns the smallest and largest elevation in the series.
func (s *Series) Bounds() (min, max float64) {
	return floats.Min(s.Elevation), floats.Max(s.Elevation)
}

// A Simulator runs the daily displacement recurrence for one parcel. It
// reads Params and Meteo but never mutates them, so one MeteoSeries and
// one ParameterSet may back any number of concurrent Simulators.
type Simulator struct {
	Params *ParameterSet
	Meteo  *MeteoSeries

	// Lookback is the number of warm-up days simulated before the
	// reported window to seed the deficit and phase with a realistic
	// starting value. Warm-up days run through the same step function as
	// reported days and are truncated from the output afterwards.
	Lookback int
}

// Run simulates the daily recurrence over [start, end] inclusive and
// returns the reported series. It propagates DataGapError and
// DataRangeError from the meteorological record unchanged and returns a
// SimulationError if the state becomes non-finite.
func (s *Simulator) Run(start, end time.Time) (*Series, error) {
	if s.Params == nil || s.Meteo == nil {
		return nil, fmt.Errorf("spams: simulator needs both a parameter set and a meteorological series")
	}
	days, err := s.Meteo.Slice(start, end, s.Lookback)
	if err != nil {
		return nil, err
	}

	n := len(days) - s.Lookback
	out := &Series{
		Dates:     make([]time.Time, 0, n),
		Elevation: make([]float64, 0, n),
		Deficit:   make([]float64, 0, n),
		Phase:     make([]Phase, 0, n),
		Drying:    make([]float64, 0, n),
		Wetting:   make([]float64, 0, n),
		Precip:    make([]float64, 0, n),
		Evap:      make([]float64, 0, n),
	}

	st := state{phase: PhaseWetting}
	for i, day := range days {
		if st, err = step(st, day, s.Params); err != nil {
			return nil, err
		}
		if i < s.Lookback {
			continue
		}
		out.Dates = append(out.Dates, day.Date)
		out.Elevation = append(out.Elevation, st.elevation)
		out.Deficit = append(out.Deficit, st.deficit)
		out.Phase = append(out.Phase, st.phase)
		out.Drying = append(out.Drying, st.drying)
		out.Wetting = append(out.Wetting, st.wetting)
		out.Precip = append(out.Precip, day.Precip)
		out.Evap = append(out.Evap, day.Evap)
	}

	// Normalize to the first reported day: the reported series is relative
	// displacement, with the parameter offset applied once at series start.
	refE, refD, refW := out.Elevation[0], out.Drying[0], out.Wetting[0]
	floats.AddConst(s.Params.offset-refE, out.Elevation)
	floats.AddConst(-refD, out.Drying)
	floats.AddConst(-refW, out.Wetting)

	return out, nil
}

// RunParcels simulates the same window for several parameter sets
// concurrently, one goroutine per parcel, sharing the meteorological
// record read-only. The runs are independent, so the first error aborts
// the whole call and no partial result map is returned.
func RunParcels(sets map[string]*ParameterSet, meteo *MeteoSeries, start, end time.Time, lookback int) (map[string]*Series, error) {
	out := make(map[string]*Series, len(sets))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for id, p := range sets {
		wg.Add(1)
		go func(id string, p *ParameterSet) {
			defer wg.Done()
			sim := &Simulator{Params: p, Meteo: meteo, Lookback: lookback}
			series, err := sim.Run(start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("spams: parcel %s: %w", id, err)
				}
				return
			}
			out[id] = series
		}(id, p)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
