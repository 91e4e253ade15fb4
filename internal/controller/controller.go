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

// Package controller runs the poll loop that keeps the dew heater relay in
// the right state: read the sensor, sanitize it, compute the dew point,
// consult the ambient forecast, decide, and apply.
package controller

import (
	"context"
	"time"

	"dewctl/internal/config"
	"dewctl/internal/events"
	"dewctl/internal/logs"
	"dewctl/internal/metrics"
	"dewctl/internal/relay"
	"dewctl/internal/sensor"
	"dewctl/internal/state"
	"dewctl/internal/weather"
	"dewctl/pkg/logger"
)

type Controller struct {
	conf   *config.Config
	log    *logger.Logger
	engine *Engine

	state   *state.Controller
	sensor  sensor.Source
	filter  *sensor.SpikeFilter
	relay   relay.Relay
	weather *weather.Service
	store   *logs.Store

	started time.Time
}

func New(conf *config.Config, st *state.Controller, src sensor.Source,
	rly relay.Relay, wsvc *weather.Service, store *logs.Store) *Controller {
	return &Controller{
		conf:    conf,
		log:     logger.New("controller"),
		engine:  NewEngine(conf.Control),
		state:   st,
		sensor:  src,
		filter:  sensor.NewSpikeFilter(sensor.SpikeThresholdPct),
		relay:   rly,
		weather: wsvc,
		store:   store,
		started: time.Now(),
	}
}

func (c *Controller) Run(ctx context.Context) {
	c.log.Info("Running...")
	defer c.log.Info("Stopped")

	// the heater must never stay energized past loop exit
	defer func() {
		if err := c.relay.Set(false); err != nil {
			c.log.Error("force relay off on exit: %v", err)
		}
		c.state.UpdateRelay(false)
		if err := c.relay.Close(); err != nil {
			c.log.Error("release relay: %v", err)
		}
	}()

	interval := time.Duration(c.conf.Control.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// first cycle immediately, then on the tick
	c.cycle(ctx)
	for {
		select {
		case <-ticker.C:
			c.cycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// cycle runs one full poll: a failed sensor read or a rejected humidity
// spike skips the whole cycle, relay and timers untouched.
func (c *Controller) cycle(ctx context.Context) {
	sample, err := c.sensor.Read(ctx)
	if err != nil {
		c.log.Warn("sensor read failed, skipping cycle: %v", err)
		return
	}

	if !c.filter.Accept(sample.HumidityPct) {
		c.log.Warn("humidity spike suspected (%.1f%%), skipping cycle", sample.HumidityPct)
		return
	}

	dewC, err := metrics.DewPointC(sample.TemperatureC, sample.HumidityPct)
	if err != nil {
		c.log.Warn("dew point rejected (T=%.1f°C RH=%.1f%%): %v",
			sample.TemperatureC, sample.HumidityPct, err)
		return
	}

	wsnap := c.weather.Get()
	c.state.UpdateWeather(wsnap)

	now := time.Now()
	snap := c.state.Snapshot()

	cmd := c.engine.Decide(Inputs{
		Now:         now,
		Uptime:      now.Sub(c.started),
		TempC:       sample.TemperatureC,
		HumidityPct: sample.HumidityPct,
		DewPointC:   dewC,
		State:       snap,
		Weather:     wsnap,
	})
	c.apply(now, snap, cmd, sample, dewC)

	relayOn := c.state.Snapshot().RelayOn
	if err := c.store.LogReading(logs.Reading{
		Timestamp:   now,
		TempC:       sample.TemperatureC,
		HumidityPct: sample.HumidityPct,
		DewPointC:   dewC,
		RelayOn:     relayOn,
		Mode:        string(snap.Mode),
	}); err != nil {
		c.log.Error("log reading: %v", err)
	}

	c.conf.EventBus.Publish(events.TopicReadings, events.ReadingUpdate{
		Timestamp:   now,
		TempC:       sample.TemperatureC,
		HumidityPct: sample.HumidityPct,
		DewPointC:   dewC,
		RelayOn:     relayOn,
		Mode:        string(snap.Mode),
		ManualOn:    snap.ManualOn,
		Reason:      cmd.Reason,
		Weather:     wsnap,
	})
}

// apply commits a decision: timer updates first, then the hardware write,
// issued only on an actual transition.
func (c *Controller) apply(now time.Time, snap state.Snapshot, cmd Command,
	sample sensor.Sample, dewC float64) {

	if cmd.ExpireForcedRun {
		c.state.ClearForcedRun()
		c.log.Info("forced run ended")
	}
	if cmd.ExpireCooldown {
		c.state.ClearCooldown()
		c.log.Info("cooldown ended")
	}
	if cmd.StartForcedRun {
		c.state.StartForcedRun(cmd.RunUntil, cmd.CooldownUntil)
		c.log.Info("%s", cmd.Reason)
	}

	if cmd.RelayOn == snap.RelayOn {
		c.log.Debug("relay holding %s: %s", onOff(snap.RelayOn), cmd.Reason)
		return
	}

	if err := c.relay.Set(cmd.RelayOn); err != nil {
		// state must keep mirroring hardware, so don't record the
		// new value; next cycle retries the transition
		c.log.Error("relay write failed: %v", err)
		return
	}
	c.state.UpdateRelay(cmd.RelayOn)
	c.log.Info("relay %s | temp %.1f°C hum %.1f%% dew %.1f°C | %s",
		onOff(cmd.RelayOn), sample.TemperatureC, sample.HumidityPct, dewC, cmd.Reason)

	if err := c.store.LogEvent(logs.Reading{
		Timestamp:   now,
		TempC:       sample.TemperatureC,
		HumidityPct: sample.HumidityPct,
		DewPointC:   dewC,
		RelayOn:     cmd.RelayOn,
		Mode:        string(snap.Mode),
	}, "relay_"+onOff(cmd.RelayOn), cmd.Reason); err != nil {
		c.log.Error("log event: %v", err)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
