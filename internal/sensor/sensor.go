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

// Package sensor reads the enclosure temperature/humidity probe and
// sanitizes its output. The production backend is an RS485 transducer
// behind a Modbus TCP gateway; a simulated backend exists for running
// on a bench without hardware.
package sensor

import (
	"context"
	"fmt"

	"dewctl/internal/config"
)

// Sample is one raw probe observation.
type Sample struct {
	TemperatureC float64
	HumidityPct  float64
}

// Source yields one sample per poll. A read error means the control cycle
// is skipped entirely; it never stops the loop.
type Source interface {
	Read(ctx context.Context) (Sample, error)
	Close() error
}

// New builds the configured sensor backend.
func New(ctx context.Context, conf config.SensorConfig) (Source, error) {
	switch conf.Backend {
	case "modbus":
		return NewModbus(ctx, conf.Modbus)
	case "sim":
		return NewSim(), nil
	default:
		return nil, fmt.Errorf("unknown sensor backend %q", conf.Backend)
	}
}
