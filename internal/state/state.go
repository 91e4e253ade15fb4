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

// Package state holds the one piece of long-lived mutable controller state,
// shared between the control loop and the web handlers. Every operation
// takes the same mutex so a reader never observes a torn combination of
// fields. No operation blocks beyond acquiring the lock.
package state

import (
	"sync"
	"time"

	"dewctl/internal/weather"
)

// Mode selects who drives the relay.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// Snapshot is an atomic copy of all controller fields.
type Snapshot struct {
	Mode     Mode  `json:"mode"`
	ManualOn bool  `json:"manual_on"`
	RelayOn  bool  `json:"relay_on"`

	Weather *weather.Snapshot `json:"weather"`

	// forced-run window and the cooldown that follows it; nil when inactive
	ForcedRunUntil *time.Time `json:"forced_run_until"`
	CooldownUntil  *time.Time `json:"cooldown_until"`
}

// Controller tracks relay mode, manual overrides, and forced-run timers.
// The zero value is not usable; call New.
type Controller struct {
	mu sync.Mutex

	mode           Mode
	manualOn       bool
	relayOn        bool
	weather        *weather.Snapshot
	forcedRunUntil *time.Time
	cooldownUntil  *time.Time
}

// New creates the controller state: auto mode, relay off.
func New() *Controller {
	return &Controller{mode: ModeAuto}
}

// Snapshot returns an atomic copy of all fields.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Mode:           c.mode,
		ManualOn:       c.manualOn,
		RelayOn:        c.relayOn,
		Weather:        c.weather,
		ForcedRunUntil: c.forcedRunUntil,
		CooldownUntil:  c.cooldownUntil,
	}
}

// SetAuto switches to automatic control. The manual target is left as-is so
// switching back to manual resumes the last requested state.
func (c *Controller) SetAuto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeAuto
}

// SetManual switches to manual control with the given relay target.
func (c *Controller) SetManual(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = ModeManual
	c.manualOn = on
}

// UpdateRelay records the relay state most recently commanded to hardware.
func (c *Controller) UpdateRelay(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relayOn = on
}

// UpdateWeather stores the latest ambient snapshot for the dashboard.
func (c *Controller) UpdateWeather(snap *weather.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weather = snap
}

// StartForcedRun sets both forced-run timers in one critical section.
// cooldownUntil must not precede runUntil; the decision engine constructs
// them as runUntil+cooldown so a violation is a programming defect.
func (c *Controller) StartForcedRun(runUntil, cooldownUntil time.Time) {
	if cooldownUntil.Before(runUntil) {
		panic("state: cooldown scheduled before forced-run end")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forcedRunUntil = &runUntil
	c.cooldownUntil = &cooldownUntil
}

// ClearForcedRun expires the forced-run timer, leaving cooldown in place.
func (c *Controller) ClearForcedRun() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forcedRunUntil = nil
}

// ClearCooldown expires the cooldown timer.
func (c *Controller) ClearCooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldownUntil = nil
}

// Timers returns the forced-run and cooldown deadlines; nil means inactive.
func (c *Controller) Timers() (forcedRunUntil, cooldownUntil *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forcedRunUntil, c.cooldownUntil
}
