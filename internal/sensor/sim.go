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
	"math"
	"time"
)

// Sim generates a slow diurnal temperature/humidity curve so the full
// stack can run on a bench without the probe or the relay board.
type Sim struct {
	start time.Time
}

func NewSim() *Sim {
	return &Sim{start: time.Now()}
}

func (s *Sim) Read(ctx context.Context) (Sample, error) {
	// 24h period compressed to 2h so transitions show up on the dashboard
	elapsed := time.Since(s.start).Seconds()
	phase := 2 * math.Pi * elapsed / 7200

	return Sample{
		TemperatureC: 10 + 8*math.Sin(phase),
		HumidityPct:  75 - 20*math.Sin(phase),
	}, nil
}

func (s *Sim) Close() error {
	return nil
}
