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

package weather

import (
	"math"
	"time"
)

// synodicDays is the mean length of a lunation.
const synodicDays = 29.53058867

// moonEpoch is a known new moon used as the phase reference.
var moonEpoch = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// estimateMoonPhase returns the phase fraction in [0, 1): 0 is new moon,
// 0.5 is full.
func estimateMoonPhase(target time.Time) float64 {
	diffDays := target.Sub(moonEpoch).Seconds() / 86400.0
	phase := math.Mod(diffDays, synodicDays) / synodicDays
	if phase < 0 {
		phase += 1
	}
	return phase
}

// describeMoonPhase labels a phase fraction and computes the illuminated
// percentage of the disc.
func describeMoonPhase(phase float64) (string, float64) {
	phase = math.Max(0, math.Min(1, phase))
	illumination := (1 - math.Cos(2*math.Pi*phase)) / 2 * 100

	var label string
	switch {
	case phase < 0.0625 || phase >= 0.9375:
		label = "New Moon"
	case phase < 0.1875:
		label = "Waxing Crescent"
	case phase < 0.3125:
		label = "First Quarter"
	case phase < 0.4375:
		label = "Waxing Gibbous"
	case phase < 0.5625:
		label = "Full Moon"
	case phase < 0.6875:
		label = "Waning Gibbous"
	case phase < 0.8125:
		label = "Last Quarter"
	default:
		label = "Waning Crescent"
	}
	return label, illumination
}
