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

package sensor

import "math"

// SpikeThresholdPct is the single-cycle humidity jump, in percentage
// points, beyond which a reading is suspect. Cheap humidity probes
// occasionally emit one-cycle glitches of 20+ points.
const SpikeThresholdPct = 15.0

// SpikeFilter suppresses single-cycle humidity glitches. A jump larger
// than the threshold is rejected once; if the next reading jumps again the
// new level is adopted as the baseline. A sustained real change therefore
// costs exactly one skipped cycle, while an isolated glitch is absorbed and
// the next normal reading is compared against the pre-glitch baseline.
type SpikeFilter struct {
	threshold    float64
	lastHumidity float64
	hasLast      bool
	pending      bool
}

// NewSpikeFilter returns a filter with the given jump threshold in
// percentage points.
func NewSpikeFilter(threshold float64) *SpikeFilter {
	return &SpikeFilter{threshold: threshold}
}

// Accept reports whether the humidity value should be used this cycle.
// A rejected value means the caller must skip the full control cycle:
// no relay decision, no timer updates.
func (f *SpikeFilter) Accept(humidity float64) bool {
	if !f.hasLast {
		f.lastHumidity = humidity
		f.hasLast = true
		f.pending = false
		return true
	}

	change := math.Abs(humidity - f.lastHumidity)
	if change <= f.threshold {
		f.lastHumidity = humidity
		f.pending = false
		return true
	}

	if !f.pending {
		// first large jump: reject once, keep the old baseline so the
		// next comparison is against pre-glitch data
		f.pending = true
		return false
	}

	// second consecutive large jump: the change is real, adopt it
	f.lastHumidity = humidity
	f.pending = false
	return true
}

// Pending reports whether a suspect jump is awaiting confirmation.
func (f *SpikeFilter) Pending() bool {
	return f.pending
}

// Baseline returns the humidity the next reading will be compared against.
func (f *SpikeFilter) Baseline() (float64, bool) {
	return f.lastHumidity, f.hasLast
}
