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
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/GaryBoone/GoStats/stats"
)

const testTolerance = 1e-12

func testParams(t *testing.T, values map[string]float64) *ParameterSet {
	t.Helper()
	p, err := NewParameterSet(values)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// forcing builds a gap-free record from parallel precipitation and
// evapotranspiration slices starting at start.
func forcing(start time.Time, precip, evap []float64) []DayRecord {
	recs := make([]DayRecord, len(precip))
	for i := range recs {
		recs[i] = DayRecord{Date: start.AddDate(0, 0, i), Precip: precip[i], Evap: evap[i]}
	}
	return recs
}

func repeat(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// TestRunExample walks the five-day reference scenario by hand: three
// shortfall days deepen the deficit, two surplus days relax it, and the
// reported elevation turns over after day three.
func TestRunExample(t *testing.T) {
	p := testParams(t, validValues()) // decay 0.95, gains 1.2/0.4, offset 0
	start := Date(2023, 6, 1)
	m, err := NewMeteoSeries(forcing(start,
		[]float64{0, 0, 0, 5, 5},
		[]float64{2, 2, 2, 1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulator{Params: p, Meteo: m, Lookback: 0}
	s, err := sim.Run(start, Date(2023, 6, 5))
	if err != nil {
		t.Fatal(err)
	}

	wantDeficit := []float64{2, 3.9, 5.705, 1.41975, 0}
	// Raw cumulative displacement, normalized to the first reported day.
	wantElev := []float64{0, 2.28, 4.446, 2.7319, 2.164}
	wantPhase := []Phase{PhaseDrying, PhaseDrying, PhaseDrying, PhaseWetting, PhaseWetting}
	for i := range wantDeficit {
		if math.Abs(s.Deficit[i]-wantDeficit[i]) > 1e-9 {
			t.Errorf("day %d deficit: got %v, want %v", i+1, s.Deficit[i], wantDeficit[i])
		}
		if math.Abs(s.Elevation[i]-wantElev[i]) > 1e-9 {
			t.Errorf("day %d elevation: got %v, want %v", i+1, s.Elevation[i], wantElev[i])
		}
		if s.Phase[i] != wantPhase[i] {
			t.Errorf("day %d phase: got %v, want %v", i+1, s.Phase[i], wantPhase[i])
		}
	}
	// Non-monotonic with the turning point at day 3.
	if _, max := s.Bounds(); max != s.Elevation[2] {
		t.Errorf("turning point: max %v is not day 3's %v", max, s.Elevation[2])
	}
	// The component split adds back up to the total.
	for i := range wantDeficit {
		sum := p.Offset() + s.Drying[i] + s.Wetting[i]
		if math.Abs(s.Elevation[i]-sum) > testTolerance {
			t.Errorf("day %d: elevation %v != offset+drying+wetting %v", i+1, s.Elevation[i], sum)
		}
	}
}

// TestRunBalancedDays checks that a record with net = 0 every day leaves
// the deficit constant and the reported series flat.
func TestRunBalancedDays(t *testing.T) {
	p := testParams(t, validValues())
	start := Date(2023, 1, 1)
	m, err := NewMeteoSeries(forcing(start, repeat(3, 30), repeat(3, 30)))
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulator{Params: p, Meteo: m}
	s, err := sim.Run(start, Date(2023, 1, 30))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.Len(); i++ {
		if s.Deficit[i] != 0 {
			t.Errorf("day %d: deficit %v, want 0", i+1, s.Deficit[i])
		}
		if s.Elevation[i] != 0 {
			t.Errorf("day %d: elevation %v, want 0", i+1, s.Elevation[i])
		}
	}
}

// TestRunDeterministic checks that the same inputs give bit-identical
// results: the recurrence is a pure function with no hidden state.
func TestRunDeterministic(t *testing.T) {
	p := testParams(t, validValues())
	start := Date(2022, 1, 1)
	rng := rand.New(rand.NewSource(1))
	precip, evap := make([]float64, 400), make([]float64, 400)
	for i := range precip {
		precip[i] = rng.Float64() * 10
		evap[i] = rng.Float64() * 5
	}
	m, err := NewMeteoSeries(forcing(start, precip, evap))
	if err != nil {
		t.Fatal(err)
	}
	run := func() *Series {
		sim := &Simulator{Params: p, Meteo: m, Lookback: 30}
		s, err := sim.Run(Date(2022, 3, 1), Date(2022, 12, 31))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Error("two identical runs differ")
	}
}

// TestRunDeficitFloor checks that sustained surplus pins the deficit to
// zero and never drives it negative.
func TestRunDeficitFloor(t *testing.T) {
	p := testParams(t, validValues())
	start := Date(2023, 1, 1)
	// Ten shortfall days to build a deficit, then sustained surplus.
	precip := append(repeat(0, 10), repeat(8, 50)...)
	evap := repeat(3, 60)
	m, err := NewMeteoSeries(forcing(start, precip, evap))
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulator{Params: p, Meteo: m}
	s, err := sim.Run(start, Date(2023, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.Len(); i++ {
		if s.Deficit[i] < 0 {
			t.Fatalf("day %d: deficit %v went negative", i+1, s.Deficit[i])
		}
	}
	// By the end the surplus must have reached the floor and stayed there.
	for i := s.Len() - 10; i < s.Len(); i++ {
		if s.Deficit[i] != 0 {
			t.Errorf("day %d: deficit %v, want floor 0", i+1, s.Deficit[i])
		}
	}
}

// TestRunAsymmetry checks the defining nonlinearity: a dry-then-wet cycle
// does not return to the starting elevation when the drying and wetting
// gains differ, and does when they are equal.
func TestRunAsymmetry(t *testing.T) {
	start := Date(2023, 1, 1)
	precip := append(repeat(0, 10), repeat(10, 10)...)
	evap := repeat(2, 20)
	m, err := NewMeteoSeries(forcing(start, precip, evap))
	if err != nil {
		t.Fatal(err)
	}
	end := Date(2023, 1, 20)

	asym := testParams(t, validValues())
	sim := &Simulator{Params: asym, Meteo: m}
	s, err := sim.Run(start, end)
	if err != nil {
		t.Fatal(err)
	}
	if s.Deficit[s.Len()-1] != 0 {
		t.Fatalf("cycle should fully recharge, deficit ends at %v", s.Deficit[s.Len()-1])
	}
	if math.Abs(s.Elevation[s.Len()-1]-s.Elevation[0]) < 0.1 {
		t.Errorf("asymmetric gains: cycle closed to %v, want a residual", s.Elevation[s.Len()-1])
	}

	v := validValues()
	v["gain_wetting"] = v["gain_drying"]
	symSim := &Simulator{Params: testParams(t, v), Meteo: m}
	s2, err := symSim.Run(start, end)
	if err != nil {
		t.Fatal(err)
	}
	// With equal gains the displacement retraces the deficit exactly,
	// except for the first day's increment lost to normalization.
	firstDelta := v["gain_drying"] * s2.Deficit[0]
	if got := s2.Elevation[s2.Len()-1]; math.Abs(got+firstDelta) > 1e-9 {
		t.Errorf("symmetric gains: cycle residual %v, want %v", got, -firstDelta)
	}
}

// TestRunPhaseCarry checks that a day leaving the deficit unchanged
// carries the previous phase instead of resetting it.
func TestRunPhaseCarry(t *testing.T) {
	v := validValues()
	v["decay_factor"] = 1 // no relaxation, so net = 0 freezes the deficit
	p := testParams(t, v)
	start := Date(2023, 1, 1)
	m, err := NewMeteoSeries(forcing(start,
		[]float64{0, 2, 0},
		[]float64{2, 2, 2}))
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulator{Params: p, Meteo: m}
	s, err := sim.Run(start, Date(2023, 1, 3))
	if err != nil {
		t.Fatal(err)
	}
	if s.Phase[0] != PhaseDrying {
		t.Fatalf("day 1 phase: got %v, want drying", s.Phase[0])
	}
	if s.Phase[1] != PhaseDrying {
		t.Errorf("flat day phase: got %v, want carried drying", s.Phase[1])
	}
	if s.Elevation[1] != s.Elevation[0] {
		t.Errorf("flat day moved the elevation: %v -> %v", s.Elevation[0], s.Elevation[1])
	}
}

// TestRunLookback checks that warm-up days run through the same
// recurrence as reported days: a run with lookback must match the tail of
// a longer run over the same record.
func TestRunLookback(t *testing.T) {
	p := testParams(t, validValues())
	start := Date(2022, 1, 1)
	rng := rand.New(rand.NewSource(7))
	precip, evap := make([]float64, 120), make([]float64, 120)
	for i := range precip {
		precip[i] = rng.Float64() * 8
		evap[i] = rng.Float64() * 4
	}
	m, err := NewMeteoSeries(forcing(start, precip, evap))
	if err != nil {
		t.Fatal(err)
	}

	long := &Simulator{Params: p, Meteo: m}
	full, err := long.Run(start, Date(2022, 4, 30))
	if err != nil {
		t.Fatal(err)
	}
	short := &Simulator{Params: p, Meteo: m, Lookback: 60}
	tail, err := short.Run(Date(2022, 3, 2), Date(2022, 4, 30))
	if err != nil {
		t.Fatal(err)
	}

	// Deficit and phase are absolute state and must agree exactly;
	// elevations differ by their normalization reference only.
	off := full.Len() - tail.Len()
	for i := 0; i < tail.Len(); i++ {
		if tail.Deficit[i] != full.Deficit[off+i] {
			t.Fatalf("day %d: deficit %v != %v", i, tail.Deficit[i], full.Deficit[off+i])
		}
		if tail.Phase[i] != full.Phase[off+i] {
			t.Fatalf("day %d: phase %v != %v", i, tail.Phase[i], full.Phase[off+i])
		}
		dTail := tail.Elevation[i] - tail.Elevation[0]
		dFull := full.Elevation[off+i] - full.Elevation[off]
		if math.Abs(dTail-dFull) > 1e-9 {
			t.Fatalf("day %d: relative elevation %v != %v", i, dTail, dFull)
		}
	}
}

// TestRunWithoutWarmUpBias demonstrates why the lookback exists: with a
// lookback of zero the first reported days start from the artificial
// zero-deficit state and disagree with the warmed-up run.
func TestRunWithoutWarmUpBias(t *testing.T) {
	p := testParams(t, validValues())
	start := Date(2022, 1, 1)
	precip := repeat(0, 120)
	evap := repeat(2, 120)
	m, err := NewMeteoSeries(forcing(start, precip, evap))
	if err != nil {
		t.Fatal(err)
	}
	warm := &Simulator{Params: p, Meteo: m, Lookback: 60}
	cold := &Simulator{Params: p, Meteo: m, Lookback: 0}
	ws, err := warm.Run(Date(2022, 3, 2), Date(2022, 4, 30))
	if err != nil {
		t.Fatal(err)
	}
	cs, err := cold.Run(Date(2022, 3, 2), Date(2022, 4, 30))
	if err != nil {
		t.Fatal(err)
	}
	if ws.Deficit[0] == cs.Deficit[0] {
		t.Error("warmed-up and cold starts agree; the warm-up is not doing anything")
	}
}

func TestRunPropagatesDataErrors(t *testing.T) {
	p := testParams(t, validValues())
	recs := testRecords(Date(2023, 1, 1), 31)
	recs = append(recs[:9], recs[10:]...) // drop 2023-01-10
	m, err := NewMeteoSeries(recs)
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulator{Params: p, Meteo: m}

	_, err = sim.Run(Date(2023, 1, 5), Date(2023, 1, 15))
	var gapErr *DataGapError
	if !errors.As(err, &gapErr) {
		t.Errorf("got %v, want DataGapError", err)
	}

	_, err = sim.Run(Date(2023, 2, 1), Date(2023, 2, 10))
	var rangeErr *DataRangeError
	if !errors.As(err, &rangeErr) {
		t.Errorf("got %v, want DataRangeError", err)
	}
}

// TestStepNonFinite checks that a corrupt state is fatal and names the
// day, rather than being clamped away.
func TestStepNonFinite(t *testing.T) {
	p := &ParameterSet{decayFactor: math.NaN(), gainDrying: 1, gainWetting: 1}
	day := DayRecord{Date: Date(2023, 5, 17), Precip: 1, Evap: 2}
	_, err := step(state{deficit: 1}, day, p)
	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("got %v, want SimulationError", err)
	}
	if !simErr.Date.Equal(day.Date) {
		t.Errorf("reported date %v, want %v", simErr.Date, day.Date)
	}
}

func TestRunParcels(t *testing.T) {
	start := Date(2023, 1, 1)
	m, err := NewMeteoSeries(testRecords(start, 60))
	if err != nil {
		t.Fatal(err)
	}
	sets := make(map[string]*ParameterSet)
	for i, decay := range []float64{0.9, 0.95, 0.99} {
		v := validValues()
		v["decay_factor"] = decay
		sets[string(rune('a'+i))] = testParams(t, v)
	}
	got, err := RunParcels(sets, m, Date(2023, 1, 10), Date(2023, 2, 20), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(sets) {
		t.Fatalf("got %d series, want %d", len(got), len(sets))
	}
	for id, p := range sets {
		sim := &Simulator{Params: p, Meteo: m, Lookback: 5}
		want, err := sim.Run(Date(2023, 1, 10), Date(2023, 2, 20))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got[id], want) {
			t.Errorf("parcel %s: concurrent run differs from serial run", id)
		}
	}
}

func TestRunParcelsError(t *testing.T) {
	m, err := NewMeteoSeries(testRecords(Date(2023, 1, 1), 10))
	if err != nil {
		t.Fatal(err)
	}
	sets := map[string]*ParameterSet{"a": testParams(t, validValues())}
	if _, err := RunParcels(sets, m, Date(2024, 1, 1), Date(2024, 1, 5), 0); err == nil {
		t.Error("expected the window error to propagate")
	}
}

// TestRunConstantDryingTrend checks the long-run drying behavior against
// a linear fit: with no relaxation and a constant shortfall the deficit
// grows by the shortfall every day, so the reported elevation is an exact
// line with slope gain_drying times the shortfall.
func TestRunConstantDryingTrend(t *testing.T) {
	v := validValues()
	v["decay_factor"] = 1
	p := testParams(t, v)
	start := Date(2022, 1, 1)
	const shortfall = 2.
	n := 365
	m, err := NewMeteoSeries(forcing(start, repeat(0, n), repeat(shortfall, n)))
	if err != nil {
		t.Fatal(err)
	}
	sim := &Simulator{Params: p, Meteo: m}
	s, err := sim.Run(start, start.AddDate(0, 0, n-1))
	if err != nil {
		t.Fatal(err)
	}

	x := make([]float64, s.Len())
	for i := range x {
		x[i] = float64(i)
	}
	slope, intercept, rsquared, _, _, _ := stats.LinearRegression(x, s.Elevation)
	if want := p.GainDrying() * shortfall; math.Abs(slope-want) > 1e-9 {
		t.Errorf("slope: got %v, want %v", slope, want)
	}
	if math.Abs(intercept) > 1e-9 {
		t.Errorf("intercept: got %v, want 0", intercept)
	}
	if rsquared < 1-1e-12 {
		t.Errorf("r²: got %v, want 1", rsquared)
	}
}
