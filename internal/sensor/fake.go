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

import (
	"context"
	"errors"
)

// Fake is a test double that returns scripted samples. Once the script is
// exhausted the last sample repeats.
type Fake struct {
	Samples []Sample

	// ReadError, if set, is returned by every Read
	ReadError error

	// Closed tracks whether Close was called
	Closed bool

	index int
}

func NewFake(samples ...Sample) *Fake {
	return &Fake{Samples: samples}
}

func (f *Fake) Read(ctx context.Context) (Sample, error) {
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples scripted")
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
