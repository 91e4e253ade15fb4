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

package controller

import (
	"fmt"
	"time"

	"dewctl/internal/config"
	"dewctl/internal/state"
	"dewctl/internal/weather"
)

// Inputs is everything one decision needs: the sanitized reading, an
// atomic state snapshot, the latest weather (possibly nil), and the clock.
type Inputs struct {
	Now    time.Time
	Uptime time.Duration

	TempC       float64
	HumidityPct float64
	DewPointC   float64

	State   state.Snapshot
	Weather *weather.Snapshot
}

// Command is the outcome of one decision: the relay state to hold, why,
// and any timer mutations the caller must apply to controller state.
// Timer fields are instructions, not state; Decide itself mutates nothing.
type Command struct {
	RelayOn bool
	Reason  string

	// expired timers to clear before anything else
	ExpireForcedRun bool
	ExpireCooldown  bool

	// a new forced-run window to record; CooldownUntil is always
	// RunUntil plus the configured cooldown, never earlier
	StartForcedRun bool
	RunUntil       time.Time
	CooldownUntil  time.Time
}

// Engine evaluates the relay decision once per poll cycle. It is a pure
// function of its inputs, which keeps every branch directly testable.
//
// Branches are evaluated in fixed priority order, first match wins:
//
//	1. expire elapsed timers (always runs)
//	2. manual mode mirrors the requested state verbatim
//	3. daylight block forces the relay off
//	4. a forced run may start on a near-dew ambient forecast
//	5. an active forced run holds the relay on
//	6. hysteresis around the dew-point baseline
type Engine struct {
	offsetC        float64
	hysteresisC    float64
	forceDiffC     float64
	warmup         time.Duration
	daylightMargin time.Duration
	forceDuration  time.Duration
	forceCooldown  time.Duration
}

func NewEngine(conf config.ControlConfig) *Engine {
	return &Engine{
		offsetC:        conf.AmbientOffsetC,
		hysteresisC:    conf.HysteresisC,
		forceDiffC:     conf.ForceRun.TempDiffC,
		warmup:         time.Duration(conf.WarmupMinutes) * time.Minute,
		daylightMargin: time.Duration(conf.DaylightMarginMinutes) * time.Minute,
		forceDuration:  time.Duration(conf.ForceRun.DurationMinutes) * time.Minute,
		forceCooldown:  time.Duration(conf.ForceRun.CooldownMinutes) * time.Minute,
	}
}

func (e *Engine) Decide(in Inputs) Command {
	cmd := Command{RelayOn: in.State.RelayOn}

	// 1. expire elapsed timers before evaluating anything else
	forcedRunUntil := in.State.ForcedRunUntil
	cooldownUntil := in.State.CooldownUntil
	if forcedRunUntil != nil && !in.Now.Before(*forcedRunUntil) {
		cmd.ExpireForcedRun = true
		forcedRunUntil = nil
	}
	if cooldownUntil != nil && !in.Now.Before(*cooldownUntil) {
		cmd.ExpireCooldown = true
		cooldownUntil = nil
	}

	// 2. manual mode mirrors the operator's target, no timers touched
	if in.State.Mode == state.ModeManual {
		cmd.RelayOn = in.State.ManualOn
		cmd.Reason = "manual override"
		return cmd
	}

	// 3. no heating during full daylight, even mid forced run
	if e.daylightBlocked(in.Now, in.Weather) {
		cmd.RelayOn = false
		cmd.Reason = "daylight block active"
		return cmd
	}

	warmedUp := in.Uptime >= e.warmup
	inForcedRun := forcedRunUntil != nil
	cooldownActive := cooldownUntil != nil

	// 4. start a forced run when the ambient forecast sits near dew formation
	if warmedUp && !inForcedRun && !cooldownActive {
		if ambientT, ambientDew, ok := ambientPair(in.Weather); ok && ambientT-ambientDew <= e.forceDiffC {
			cmd.StartForcedRun = true
			cmd.RunUntil = in.Now.Add(e.forceDuration)
			cmd.CooldownUntil = cmd.RunUntil.Add(e.forceCooldown)
			cmd.RelayOn = true
			cmd.Reason = fmt.Sprintf("forced run started (ambient %.1f°C, dew %.1f°C)", ambientT, ambientDew)
			return cmd
		}
	}

	// 5. an in-progress forced run holds the relay on regardless of thresholds
	if inForcedRun {
		cmd.RelayOn = true
		cmd.Reason = fmt.Sprintf("forced run active until %s", forcedRunUntil.Format(time.Kitchen))
		return cmd
	}

	// 6. hysteresis: the ambient dew point is the baseline when known,
	// falling back to the enclosure's own dew point otherwise
	threshold := in.TempC - e.offsetC
	baseline := in.DewPointC
	source := "local"
	if in.Weather != nil && in.Weather.DewPointC != nil {
		baseline = *in.Weather.DewPointC
		source = "ambient"
	}

	switch {
	case threshold < baseline && !in.State.RelayOn:
		if !warmedUp {
			remaining := (e.warmup - in.Uptime).Round(time.Second)
			cmd.Reason = fmt.Sprintf("warm-up active (%s remaining); holding off", remaining)
			return cmd
		}
		if cooldownActive {
			cmd.Reason = fmt.Sprintf("cooldown active until %s; holding off", cooldownUntil.Format(time.Kitchen))
			return cmd
		}
		cmd.RelayOn = true
		cmd.Reason = fmt.Sprintf("auto on: threshold %.1f°C below %s dew %.1f°C", threshold, source, baseline)

	case threshold > baseline+e.hysteresisC && in.State.RelayOn:
		cmd.RelayOn = false
		cmd.Reason = fmt.Sprintf("auto off: threshold %.1f°C above %s dew %.1f°C + hysteresis", threshold, source, baseline)

	default:
		cmd.Reason = fmt.Sprintf("auto hold: threshold %.1f°C vs %s dew %.1f°C", threshold, source, baseline)
	}
	return cmd
}

// daylightBlocked reports whether now falls strictly inside the
// sunrise+margin .. sunset-margin window. Unknown sunrise or sunset
// means no block; heating at an odd hour beats heating all day.
func (e *Engine) daylightBlocked(now time.Time, w *weather.Snapshot) bool {
	if w == nil || w.Sunrise == nil || w.Sunset == nil {
		return false
	}
	start := w.Sunrise.Add(e.daylightMargin)
	end := w.Sunset.Add(-e.daylightMargin)
	return now.After(start) && now.Before(end)
}

func ambientPair(w *weather.Snapshot) (tempC, dewC float64, ok bool) {
	if w == nil || w.TemperatureC == nil || w.DewPointC == nil {
		return 0, 0, false
	}
	return *w.TemperatureC, *w.DewPointC, true
}
