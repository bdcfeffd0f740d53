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

// Package knmi reads daily meteorological station files published by the
// Royal Netherlands Meteorological Institute (KNMI), available from
// https://www.knmi.nl/nederland-nu/klimatologie/daggegevens.
//
// The files ("etmgeg" format) carry a free-text preamble describing the
// station and the measured quantities, a column header line of the form
//
//	# STN,YYYYMMDD,DDVEC,...,RH,...,EV24
//
// and comma-separated data rows. Only the daily precipitation amount (RH)
// and the Makkink reference evapotranspiration (EV24) are extracted, both
// recorded in 0.1 mm units. Per KNMI convention RH = -1 marks a trace
// amount below 0.05 mm and is read as zero. A blank value marks a day the
// station did not report; such days are passed through as NaN so that the
// core treats them as gaps rather than silently imputing them.
package knmi

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soilmodel/spams"
)

// Columns extracted from the station file.
const (
	colDate   = "YYYYMMDD"
	colPrecip = "RH"   // daily precipitation amount [0.1 mm]
	colEvap   = "EV24" // Makkink reference evapotranspiration [0.1 mm]
)

// ReadFile reads a KNMI daily station file from disk.
func ReadFile(path string) ([]spams.DayRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knmi: %v", err)
	}
	defer f.Close()
	recs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("knmi: %s: %v", path, err)
	}
	return recs, nil
}

// Read parses a KNMI daily station file. Records are returned in file
// order, which KNMI publishes chronologically.
func Read(r io.Reader) ([]spams.DayRecord, error) {
	scanner := bufio.NewScanner(r)
	var (
		iDate, iPrecip, iEvap = -1, -1, -1
		recs                  []spams.DayRecord
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if iDate < 0 && strings.Contains(line, colDate) {
				iDate, iPrecip, iEvap = headerIndices(line)
				if iDate >= 0 && (iPrecip < 0 || iEvap < 0) {
					return nil, fmt.Errorf("station file records no %s or %s column", colPrecip, colEvap)
				}
			}
			continue
		}
		if iDate < 0 {
			// Still inside the free-text preamble.
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) <= iEvap || len(fields) <= iPrecip || len(fields) <= iDate {
			return nil, fmt.Errorf("short data row %q", line)
		}
		date, err := time.Parse("20060102", strings.TrimSpace(fields[iDate]))
		if err != nil {
			return nil, fmt.Errorf("bad date in row %q: %v", line, err)
		}
		p, err := parseTenths(fields[iPrecip])
		if err != nil {
			return nil, fmt.Errorf("bad precipitation in row %q: %v", line, err)
		}
		if p < 0 { // RH = -1: trace amount below 0.05 mm.
			p = 0
		}
		e, err := parseTenths(fields[iEvap])
		if err != nil {
			return nil, fmt.Errorf("bad evapotranspiration in row %q: %v", line, err)
		}
		recs = append(recs, spams.DayRecord{
			Date:   spams.Date(date.Year(), date.Month(), date.Day()),
			Precip: p,
			Evap:   e,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if iDate < 0 {
		return nil, fmt.Errorf("no %q column header line found", colDate)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no data rows found")
	}
	return recs, nil
}

// headerIndices resolves the positions of the date, precipitation and
// evapotranspiration columns from the "# STN,YYYYMMDD,..." header line.
// A column that the station does not record resolves to -1.
func headerIndices(line string) (iDate, iPrecip, iEvap int) {
	iDate, iPrecip, iEvap = -1, -1, -1
	cols := strings.Split(strings.TrimPrefix(line, "#"), ",")
	for i, c := range cols {
		switch strings.TrimSpace(c) {
		case colDate:
			iDate = i
		case colPrecip:
			iPrecip = i
		case colEvap:
			iEvap = i
		}
	}
	return iDate, iPrecip, iEvap
}

// parseTenths converts a 0.1 mm field to mm. Blank fields become NaN.
func parseTenths(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v / 10, nil
}

// FindStationFiles returns the KNMI station files (etmgeg_*.txt) in dir,
// sorted by name.
func FindStationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "etmgeg_*.txt"))
	if err != nil {
		return nil, fmt.Errorf("knmi: %v", err)
	}
	sort.Strings(files)
	return files, nil
}

// StationFile returns the path of the file for the given station number
// in dir, failing if it is not there.
func StationFile(dir, station string) (string, error) {
	path := filepath.Join(dir, "etmgeg_"+station+".txt")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("knmi: no file for station %s in %s: %v", station, dir, err)
	}
	return path, nil
}
