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
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/soilmodel/spams"
)

// Plot renders a time-series figure of a simulated parcel to fileName
// (format chosen by extension, typically .png): the total relative
// elevation plus its irreversible (drying) and reversible (wetting)
// components.
func Plot(s *spams.Series, parcelID, fileName string) error {
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("spams: problem creating plot: %v", err)
	}
	p.Title.Text = fmt.Sprintf("Parcel %s", parcelID)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Relative height (mm)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	total, err := plotter.NewLine(seriesXYs(s, s.Elevation))
	if err != nil {
		return fmt.Errorf("spams: problem plotting total series: %v", err)
	}
	total.Color = color.NRGBA{170, 0, 170, 255}

	irr, err := plotter.NewLine(seriesXYs(s, s.Drying))
	if err != nil {
		return fmt.Errorf("spams: problem plotting irreversible series: %v", err)
	}
	irr.Color = color.NRGBA{127, 127, 127, 255}
	irr.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	rev, err := plotter.NewLine(seriesXYs(s, s.Wetting))
	if err != nil {
		return fmt.Errorf("spams: problem plotting reversible series: %v", err)
	}
	rev.Color = color.NRGBA{127, 127, 127, 255}
	rev.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}

	p.Add(plotter.NewGrid(), total, irr, rev)
	p.Legend.Add("Total", total)
	p.Legend.Add("Irreversible", irr)
	p.Legend.Add("Reversible", rev)
	p.Legend.Top = true

	if err := p.Save(12*vg.Inch, 6*vg.Inch, fileName); err != nil {
		return fmt.Errorf("spams: problem saving plot: %v", err)
	}
	return nil
}

func seriesXYs(s *spams.Series, values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(s.Dates[i].Unix())
		xys[i].Y = v
	}
	return xys
}
