// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package metrics holds the psychrometric math for the controller.
package metrics

import (
	"errors"
	"fmt"
	"math"
)

// Magnus approximation coefficients, valid for the -40..50°C range the
// enclosure ever sees.
const (
	magnusA = 17.27
	magnusB = 237.7 // °C
)

// ErrHumidityRange is returned when relative humidity is outside (0, 100].
// RH <= 0 is undefined for the formula (log of a non-positive number).
var ErrHumidityRange = errors.New("relative humidity must be in (0, 100]")

// DewPointC computes the dew point in Celsius from a dry-bulb temperature
// and relative humidity using the Magnus approximation. Inputs that would
// produce NaN or Inf are rejected instead.
func DewPointC(tempC, humidityPct float64) (float64, error) {
	if math.IsNaN(tempC) || math.IsInf(tempC, 0) {
		return 0, fmt.Errorf("temperature is not a finite number: %v", tempC)
	}
	if math.IsNaN(humidityPct) || humidityPct <= 0 || humidityPct > 100 {
		return 0, fmt.Errorf("%w: got %v", ErrHumidityRange, humidityPct)
	}

	gamma := (magnusA*tempC)/(magnusB+tempC) + math.Log(humidityPct/100.0)
	dew := (magnusB * gamma) / (magnusA - gamma)

	if math.IsNaN(dew) || math.IsInf(dew, 0) {
		return 0, fmt.Errorf("dew point not computable for T=%v RH=%v", tempC, humidityPct)
	}
	return dew, nil
}
