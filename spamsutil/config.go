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

package spamsutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom"

	"github.com/soilmodel/spams"
)

// A Parcel is one calibrated site from a parameter file: its identifier,
// its location (when the file carries one), and the raw coefficient
// mapping that feeds spams.NewParameterSet.
type Parcel struct {
	ID     string
	Loc    geom.Point         // site coordinates; zero when the file has none
	HasLoc bool               // whether x/y were present in the file
	Values map[string]float64 // the raw name→value coefficient mapping
}

// parcelFile is the TOML shape of a parameter file: one table of numeric
// values per parcel under [parcels.<id>], for example
//
//	[parcels.NL-KRW-081]
//	x = 104521.0
//	y = 445138.0
//	tau = 20.0
//	gain_drying = -1.2
//	gain_wetting = -0.4
//	offset = 0.0
//
// The x and y keys are site coordinates; every other key is passed to the
// model untouched, so a file may carry coefficients this version does not
// know about.
type parcelFile struct {
	Parcels map[string]map[string]float64
}

// LoadParcels reads a TOML parameter file.
func LoadParcels(path string) (map[string]Parcel, error) {
	var pf parcelFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return nil, fmt.Errorf("spams: problem reading parameter file %s: %v", path, err)
	}
	if len(pf.Parcels) == 0 {
		return nil, fmt.Errorf("spams: parameter file %s contains no [parcels.<id>] tables", path)
	}
	out := make(map[string]Parcel, len(pf.Parcels))
	for id, values := range pf.Parcels {
		p := Parcel{ID: id, Values: values}
		x, okx := values["x"]
		y, oky := values["y"]
		if okx && oky {
			p.Loc = geom.Point{X: x, Y: y}
			p.HasLoc = true
		}
		out[id] = p
	}
	return out, nil
}

// ParcelIDs returns the parcel identifiers in a parameter file, sorted.
func ParcelIDs(parcels map[string]Parcel) []string {
	ids := make([]string, 0, len(parcels))
	for id := range parcels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// selectParcel resolves which parcel to simulate: an explicit identifier
// wins, then the parcel nearest to an "x,y" location, and a file with a
// single parcel needs neither. Anything else is an error rather than a
// silent default.
func selectParcel(parcels map[string]Parcel, id, at string) (Parcel, error) {
	if id != "" {
		p, ok := parcels[id]
		if !ok {
			return Parcel{}, fmt.Errorf("spams: parameter file has no parcel %q; it has: %s",
				id, strings.Join(ParcelIDs(parcels), ", "))
		}
		return p, nil
	}
	if at != "" {
		pt, err := parsePoint(at)
		if err != nil {
			return Parcel{}, err
		}
		return nearestParcel(parcels, pt)
	}
	if len(parcels) == 1 {
		for _, p := range parcels {
			return p, nil
		}
	}
	return Parcel{}, fmt.Errorf("spams: parameter file has %d parcels; select one with --parcel or --at",
		len(parcels))
}

// nearestParcel returns the parcel whose location is closest to pt,
// considering only parcels that carry coordinates. Iteration order over
// the map must not leak into the result, so ties break on identifier.
func nearestParcel(parcels map[string]Parcel, pt geom.Point) (Parcel, error) {
	best, bestDist := Parcel{}, math.Inf(1)
	for _, id := range ParcelIDs(parcels) {
		p := parcels[id]
		if !p.HasLoc {
			continue
		}
		d := math.Hypot(p.Loc.X-pt.X, p.Loc.Y-pt.Y)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	if math.IsInf(bestDist, 1) {
		return Parcel{}, fmt.Errorf("spams: no parcel in the parameter file carries x/y coordinates, so --at cannot select one")
	}
	return best, nil
}

func parsePoint(s string) (geom.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geom.Point{}, fmt.Errorf("spams: --at wants \"x,y\", got %q", s)
	}
	x, errx := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, erry := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errx != nil || erry != nil {
		return geom.Point{}, fmt.Errorf("spams: --at wants \"x,y\", got %q", s)
	}
	return geom.Point{X: x, Y: y}, nil
}

// parseDate accepts both the compact 20230101 form and 2023-01-01.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return spams.Date(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return time.Time{}, fmt.Errorf("spams: cannot parse date %q; use YYYYMMDD or YYYY-MM-DD", s)
}

// lookbackFor resolves the --lookback setting: a non-negative value is
// used as given, and -1 asks the parameter set for a warm-up long enough
// to forget the arbitrary zero initial deficit.
func lookbackFor(lookback int, p *spams.ParameterSet) (int, error) {
	if lookback >= -1 {
		if lookback == -1 {
			return p.WarmUpDays(), nil
		}
		return lookback, nil
	}
	return 0, fmt.Errorf("spams: --lookback must be a day count or -1 for automatic, got %d", lookback)
}

// checkOutputFile makes sure that the output file is specified, has a
// format the writer understands, and sits in an existing directory, and
// expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`spams: you need to specify an output file (for example: OutputFile="series.csv")`)
	}
	f = os.ExpandEnv(f)
	switch filepath.Ext(f) {
	case ".csv", ".xlsx":
	default:
		return f, fmt.Errorf("spams: the OutputFile extension must be .csv or .xlsx, got %q", filepath.Ext(f))
	}
	if dir := filepath.Dir(f); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return f, fmt.Errorf("spams: the OutputFile directory doesn't exist: %v", err)
		}
	}
	return f, nil
}

// checkLogFile returns the default logfile path if none is specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}
