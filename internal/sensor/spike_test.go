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

import "testing"

func TestFirstValueAlwaysAccepted(t *testing.T) {
	f := NewSpikeFilter(SpikeThresholdPct)
	if !f.Accept(95) {
		t.Error("first value must be accepted unconditionally")
	}
	if base, ok := f.Baseline(); !ok || base != 95 {
		t.Errorf("baseline = %v/%v, want 95/true", base, ok)
	}
}

func TestSmallChangesAccepted(t *testing.T) {
	f := NewSpikeFilter(SpikeThresholdPct)
	for _, h := range []float64{60, 65, 58, 70, 72} {
		if !f.Accept(h) {
			t.Errorf("change to %v within threshold should be accepted", h)
		}
	}
	// exactly at the threshold is not a spike
	if !f.Accept(72 + SpikeThresholdPct) {
		t.Error("change equal to threshold should be accepted")
	}
}

func TestSingleGlitchAbsorbed(t *testing.T) {
	// one reading jumps >15 points above its neighbors, then the signal
	// returns to baseline: the spike must be dropped and the baseline
	// untouched
	f := NewSpikeFilter(SpikeThresholdPct)
	f.Accept(60)

	if f.Accept(90) {
		t.Fatal("glitch should be rejected")
	}
	if !f.Pending() {
		t.Error("filter should be pending after a rejected jump")
	}
	if base, _ := f.Baseline(); base != 60 {
		t.Errorf("baseline after glitch = %v, want 60 (unchanged)", base)
	}

	// next value back at baseline compares against pre-glitch data
	if !f.Accept(61) {
		t.Error("post-glitch return to baseline should be accepted")
	}
	if f.Pending() {
		t.Error("pending flag should clear on acceptance")
	}
}

func TestSustainedChangeAdoptedAfterOneSkip(t *testing.T) {
	// two consecutive large jumps in the same direction: the second is
	// adopted as the new baseline
	f := NewSpikeFilter(SpikeThresholdPct)
	f.Accept(60)

	if f.Accept(90) {
		t.Fatal("first jump should be rejected")
	}
	if !f.Accept(91) {
		t.Fatal("second consecutive jump should be adopted")
	}
	if base, _ := f.Baseline(); base != 91 {
		t.Errorf("baseline = %v, want 91", base)
	}
	if f.Pending() {
		t.Error("pending flag should clear after adoption")
	}
}

func TestAlternatingGlitches(t *testing.T) {
	f := NewSpikeFilter(SpikeThresholdPct)
	f.Accept(60)

	// glitch up, recover, glitch up again: each isolated glitch costs
	// one cycle and never shifts the baseline
	for i := 0; i < 3; i++ {
		if f.Accept(95) {
			t.Fatalf("glitch %d should be rejected", i)
		}
		if !f.Accept(62) {
			t.Fatalf("recovery %d should be accepted", i)
		}
	}
}
