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

package events

import (
	"time"

	"dewctl/internal/weather"
	"dewctl/pkg/eventbus"
)

var (
	// TopicReadings carries one ReadingUpdate per successful control cycle.
	TopicReadings eventbus.Topic = "readings"
)

// ReadingUpdate is the per-cycle snapshot pushed to live dashboard
// clients. Field names match the wire format the dashboard consumes.
type ReadingUpdate struct {
	Timestamp   time.Time `json:"timestamp"`
	TempC       float64   `json:"temp_c"`
	HumidityPct float64   `json:"humidity_pct"`
	DewPointC   float64   `json:"dew_point_c"`
	RelayOn     bool      `json:"relay_on"`
	Mode        string    `json:"mode"`
	ManualOn    bool      `json:"manual_on"`
	Reason      string    `json:"reason,omitempty"`

	Weather *weather.Snapshot `json:"weather,omitempty"`
}
