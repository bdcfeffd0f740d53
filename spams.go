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

// Package spams implements a simple parameterized model for soft-soil
// surface displacement driven by daily meteorological input, after
// Conroy et al. (2023), https://doi.org/10.1016/j.geoderma.2023.116699.
//
// The model tracks a soil moisture deficit as a bounded exponential
// relaxation of the daily net water balance (precipitation minus
// evapotranspiration) and maps changes in the deficit to elevation change
// with separate gains for the drying and wetting phases, reproducing the
// asymmetric compaction-versus-recovery behavior of peat and clay soils.
// Model coefficients are assumed to have been estimated elsewhere, for
// example by inversion against extensometer or InSAR observations; this
// package only evaluates the forward model.
package spams

// Version gives the version number.
const Version = "1.2.1"
