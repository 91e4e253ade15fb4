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

//go:build !linux

package relay

import "errors"

// Real is not available on non-Linux platforms.
type Real struct{}

func NewReal(chipName string, pin int) (*Real, error) {
	return nil, errors.New("relay: gpio not supported on this platform (requires Linux)")
}

func (r *Real) Set(on bool) error {
	return errors.New("relay: gpio not supported")
}

func (r *Real) Close() error {
	return nil
}
