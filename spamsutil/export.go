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
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/Knetic/govaluate"
	"github.com/tealeg/xlsx"

	"github.com/soilmodel/spams"
)

// modelVariables are the per-day quantities that output expressions can
// refer to.
var modelVariables = []string{
	"elevation",   // relative surface elevation [mm]
	"deficit",     // moisture deficit [mm]
	"drying",      // cumulative drying-phase (irreversible) displacement [mm]
	"wetting",     // cumulative wetting-phase (reversible) displacement [mm]
	"precip",      // precipitation [mm]
	"evap",        // evapotranspiration [mm]
	"net",         // precip - evap [mm]
	"drying_flag", // 1 on drying days, 0 otherwise
}

// An Outputter writes a simulated series to a delimited file. The columns
// beyond the leading date are user-configurable expressions over the
// per-day model variables, in the same style as the configuration of a
// chemical transport model post-processor: each output variable maps a
// column name to an expression such as "elevation" or
// "-(drying + wetting)".
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	columns         []string // column order: sorted output variable names
	expressions     map[string]*govaluate.EvaluableExpression
}

// DefaultOutputVariables are the columns written when the user configures
// none.
func DefaultOutputVariables() map[string]string {
	return map[string]string{
		"elevation":    "elevation",
		"deficit":      "deficit",
		"irreversible": "drying",
		"reversible":   "wetting",
	}
}

// NewOutputter initializes an Outputter writing to fileName, whose
// extension picks the format (.csv or .xlsx). Expression functions
// 'exp(x)' and 'abs(x)' are built in.
func NewOutputter(fileName string, outputVariables map[string]string) (*Outputter, error) {
	if len(outputVariables) == 0 {
		outputVariables = DefaultOutputVariables()
	}
	funcs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("spams: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("spams: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
	}

	known := make(map[string]bool, len(modelVariables))
	for _, v := range modelVariables {
		known[v] = true
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		expressions:     make(map[string]*govaluate.EvaluableExpression, len(outputVariables)),
	}
	for name, exprStr := range outputVariables {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(exprStr, funcs)
		if err != nil {
			return nil, fmt.Errorf("spams: output variable %q: %v", name, err)
		}
		for _, v := range expr.Vars() {
			if !known[v] {
				return nil, fmt.Errorf("spams: output variable %q refers to unknown model variable %q (have: %v)",
					name, v, modelVariables)
			}
		}
		o.expressions[name] = expr
		o.columns = append(o.columns, name)
	}
	sort.Strings(o.columns)
	return o, nil
}

// Output evaluates the output expressions for every reported day and
// writes the table.
func (o *Outputter) Output(s *spams.Series) error {
	rows, err := o.rows(s)
	if err != nil {
		return err
	}
	switch filepath.Ext(o.fileName) {
	case ".xlsx":
		return o.writeXLSX(s, rows)
	default:
		return o.writeCSV(s, rows)
	}
}

func (o *Outputter) rows(s *spams.Series) ([][]float64, error) {
	rows := make([][]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		vars := map[string]interface{}{
			"elevation":   s.Elevation[i],
			"deficit":     s.Deficit[i],
			"drying":      s.Drying[i],
			"wetting":     s.Wetting[i],
			"precip":      s.Precip[i],
			"evap":        s.Evap[i],
			"net":         s.Precip[i] - s.Evap[i],
			"drying_flag": 0.,
		}
		if s.Phase[i] == spams.PhaseDrying {
			vars["drying_flag"] = 1.
		}
		row := make([]float64, len(o.columns))
		for j, name := range o.columns {
			v, err := o.expressions[name].Evaluate(vars)
			if err != nil {
				return nil, fmt.Errorf("spams: evaluating output variable %q on %s: %v",
					name, s.Dates[i].Format("2006-01-02"), err)
			}
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("spams: output variable %q is not numeric (%T)", name, v)
			}
			row[j] = f
		}
		rows[i] = row
	}
	return rows, nil
}

func (o *Outputter) writeCSV(s *spams.Series, rows [][]float64) error {
	f, err := os.Create(o.fileName)
	if err != nil {
		return fmt.Errorf("spams: problem creating output file: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"date"}, o.columns...)); err != nil {
		return err
	}
	rec := make([]string, len(o.columns)+1)
	for i, row := range rows {
		rec[0] = s.Dates[i].Format("2006-01-02")
		for j, v := range row {
			rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (o *Outputter) writeXLSX(s *spams.Series, rows [][]float64) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("displacement")
	if err != nil {
		return fmt.Errorf("spams: problem creating spreadsheet: %v", err)
	}
	header := sheet.AddRow()
	header.AddCell().SetString("date")
	for _, name := range o.columns {
		header.AddCell().SetString(name)
	}
	for i, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(s.Dates[i].Format("2006-01-02"))
		for _, v := range row {
			r.AddCell().SetFloat(v)
		}
	}
	return file.Save(o.fileName)
}
