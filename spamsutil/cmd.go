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

// Package spamsutil provides the command-line interface and the input and
// output adapters of the SPAMS surface displacement model.
package spamsutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/soilmodel/spams"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	Cfg = viper.New()
	Cfg.SetEnvPrefix("SPAMS")
	Cfg.AutomaticEnv()

	// Options are the configuration options available to SPAMS.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ParamFile",
			usage: `
              ParamFile is the path to the TOML file holding the calibrated
              model coefficients, one [parcels.<id>] table per parcel. The
              path can include environment variables.`,
			shorthand:  "p",
			defaultVal: "spams_params.toml",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), parcelsCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "MeteoDir",
			usage: `
              MeteoDir is the directory holding KNMI daily station files
              (etmgeg_<station>.txt). It is scanned when MeteoFile is not
              set. The path can include environment variables.`,
			defaultVal: "data",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "MeteoFile",
			usage: `
              MeteoFile is the path of a specific KNMI daily station file.
              When set it takes precedence over MeteoDir and Station. The
              path can include environment variables.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Station",
			usage: `
              Station is the KNMI station number whose file should be read
              from MeteoDir, for example 344 for Rotterdam.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Parcel",
			usage: `
              Parcel is the identifier of the parcel to simulate. It may be
              left empty when the parameter file holds exactly one parcel or
              when the at option is used instead.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "at",
			usage: `
              at selects the parcel nearest to an "x,y" location, in the
              coordinate system the parameter file uses.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "StartDate",
			usage: `
              StartDate is the first reported day of the simulation window,
              as YYYYMMDD or YYYY-MM-DD.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "EndDate",
			usage: `
              EndDate is the last reported day of the simulation window,
              as YYYYMMDD or YYYY-MM-DD.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Lookback",
			usage: `
              Lookback is the number of warm-up days simulated before
              StartDate to seed the moisture deficit; they are not reported.
              -1 derives a warm-up from the parcel's decay factor.`,
			defaultVal: -1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output table. The
              extension picks the format: .csv or .xlsx. It can include
              environment variables.`,
			shorthand:  "o",
			defaultVal: "spams_output.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which columns should be included in
              the output table, as a map of column names to expressions over
              the per-day model variables (elevation, deficit, drying,
              wetting, precip, evap, net, drying_flag).`,
			defaultVal: DefaultOutputVariables(),
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path of the figure the plot command renders.
              It can include environment variables.`,
			defaultVal: "spams_plot.png",
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "show",
			usage: `
              show opens the rendered figure with the system viewer.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
	}

	declareFlags()

	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(parcelsCmd)
	Root.AddCommand(plotCmd)
}

// declareFlags declares the command-line flags specified by the options
// table and binds them to the viper configuration.
func declareFlags() {
	for _, option := range options {
		for _, set := range option.flagsets {
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("spams: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// GetStringMapString returns a map[string]string from the viper
// configuration, accounting for the fact that it might be a json object
// if it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "spams",
	Short: "An empirical soft-soil surface displacement model.",
	Long: `SPAMS forward-simulates daily soft-soil surface elevation change from
calibrated empirical coefficients and a daily record of precipitation and
evapotranspiration. Use the subcommands specified below to access the model
functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SPAMS_var' where 'var' is
the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of SPAMS.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("SPAMS v%s\n", spams.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs one simulation window and writes the
// resulting series to a table.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model and write the displacement series.",
	Long: `run simulates daily surface elevation change for one parcel over
[StartDate, EndDate] and writes an output table with one row per day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		series, parcel, err := Run(
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			Cfg.GetString("ParamFile"),
			Cfg.GetString("MeteoDir"),
			Cfg.GetString("MeteoFile"),
			Cfg.GetString("Station"),
			Cfg.GetString("Parcel"),
			Cfg.GetString("at"),
			Cfg.GetString("StartDate"),
			Cfg.GetString("EndDate"),
			Cfg.GetInt("Lookback"),
		)
		if err != nil {
			return err
		}
		o, err := NewOutputter(outputFile, GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		if err := o.Output(series); err != nil {
			return err
		}
		cmd.Printf("Wrote %d days for parcel %s to %s\n", series.Len(), parcel, outputFile)
		return nil
	},
	DisableAutoGenTag: true,
}

// parcelsCmd is a command that lists the parcels in a parameter file.
var parcelsCmd = &cobra.Command{
	Use:   "parcels",
	Short: "List the parcels in the parameter file.",
	Long: `parcels prints the identifier of every parcel in the parameter
file, one per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		parcels, err := LoadParcels(Cfg.GetString("ParamFile"))
		if err != nil {
			return err
		}
		for _, id := range ParcelIDs(parcels) {
			cmd.Println(id)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// plotCmd is a command that runs one simulation window and renders it as
// a time-series figure.
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Run the model and render a time-series figure.",
	Long: `plot simulates daily surface elevation change for one parcel over
[StartDate, EndDate] and renders the total series together with its
irreversible (drying) and reversible (wetting) components.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plotFile := Cfg.GetString("PlotFile")
		series, parcel, err := Run(
			checkLogFile(Cfg.GetString("LogFile"), plotFile),
			Cfg.GetString("ParamFile"),
			Cfg.GetString("MeteoDir"),
			Cfg.GetString("MeteoFile"),
			Cfg.GetString("Station"),
			Cfg.GetString("Parcel"),
			Cfg.GetString("at"),
			Cfg.GetString("StartDate"),
			Cfg.GetString("EndDate"),
			Cfg.GetInt("Lookback"),
		)
		if err != nil {
			return err
		}
		if err := Plot(series, parcel, plotFile); err != nil {
			return err
		}
		cmd.Printf("Wrote figure for parcel %s to %s\n", parcel, plotFile)
		if Cfg.GetBool("show") {
			return open.Run(plotFile)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
