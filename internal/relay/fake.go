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

package relay

// Fake records every Set call for assertions. It also serves as the "sim"
// relay when running without hardware.
type Fake struct {
	// Writes holds every state passed to Set, in order.
	Writes []bool

	// On is the current state.
	On bool

	// Closed tracks whether Close was called.
	Closed bool

	// SetError, if set, is returned by every Set.
	SetError error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, on)
	f.On = on
	return nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
