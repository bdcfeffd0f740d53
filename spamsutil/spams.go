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
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soilmodel/spams"
	"github.com/soilmodel/spams/knmi"
)

var log = logrus.New()

// Run loads the parameter and meteorological inputs, simulates one window
// for one parcel, and returns the resulting series and the identifier of
// the parcel that was simulated.
//
// LogFile is the path to the desired logfile location.
//
// ParamFile is the path to the TOML parameter file; MeteoFile the path of
// a specific KNMI station file, or else Station is looked up in MeteoDir.
//
// parcelID and at select the parcel (see selectParcel); startDate and
// endDate bound the reported window; lookback is the warm-up length in
// days, or -1 to derive one from the parcel's decay factor.
func Run(LogFile, ParamFile, MeteoDir, MeteoFile, Station, parcelID, at, startDate, endDate string, lookback int) (*spams.Series, string, error) {
	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return nil, "", fmt.Errorf("spams: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log.Out = io.MultiWriter(os.Stdout, logfile)

	start, err := parseDate(startDate)
	if err != nil {
		return nil, "", err
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, "", err
	}

	parcels, err := LoadParcels(os.ExpandEnv(ParamFile))
	if err != nil {
		return nil, "", err
	}
	parcel, err := selectParcel(parcels, parcelID, at)
	if err != nil {
		return nil, "", err
	}
	params, err := spams.NewParameterSet(parcel.Values)
	if err != nil {
		return nil, "", fmt.Errorf("spams: parcel %s: %w", parcel.ID, err)
	}

	meteoFile := os.ExpandEnv(MeteoFile)
	if meteoFile == "" {
		meteoFile, err = stationFile(os.ExpandEnv(MeteoDir), Station)
		if err != nil {
			return nil, "", err
		}
	}
	log.Infof("Reading meteorological record from %s", meteoFile)
	records, err := knmi.ReadFile(meteoFile)
	if err != nil {
		return nil, "", err
	}
	meteo, err := spams.NewMeteoSeries(records)
	if err != nil {
		return nil, "", err
	}
	log.Infof("Record covers %s to %s", meteo.Start().Format("2006-01-02"), meteo.End().Format("2006-01-02"))

	lb, err := lookbackFor(lookback, params)
	if err != nil {
		return nil, "", err
	}
	log.Infof("Simulating parcel %s from %s to %s with a %d-day warm-up",
		parcel.ID, start.Format("2006-01-02"), end.Format("2006-01-02"), lb)

	sim := &spams.Simulator{Params: params, Meteo: meteo, Lookback: lb}
	series, err := sim.Run(start, end)
	if err != nil {
		return nil, "", err
	}

	min, max := series.Bounds()
	log.Infof("Simulated %d days in %v; elevation range %.2f to %.2f mm",
		series.Len(), time.Since(startTime), min, max)
	return series, parcel.ID, nil
}

// stationFile resolves which KNMI file in dir to read: the named station
// when given, otherwise the single station file in the directory.
// Several station files with no station selection is an error rather than
// an arbitrary pick.
func stationFile(dir, station string) (string, error) {
	if station != "" {
		return knmi.StationFile(dir, station)
	}
	files, err := knmi.FindStationFiles(dir)
	if err != nil {
		return "", err
	}
	switch len(files) {
	case 0:
		return "", fmt.Errorf("spams: no KNMI station files (etmgeg_*.txt) in %s", dir)
	case 1:
		return files[0], nil
	default:
		return "", fmt.Errorf("spams: %d KNMI station files in %s; select one with --Station or --MeteoFile",
			len(files), dir)
	}
}
