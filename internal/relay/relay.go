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

// Package relay drives the heater relay line. The real implementation uses
// the Linux GPIO character device; the fake allows testing without
// hardware.
package relay

// Relay energizes or releases the heater. Set is idempotent: repeated
// identical calls must not fail. Implementations start with the relay off
// and callers must force it off again before Close.
type Relay interface {
	Set(on bool) error
	Close() error
}
