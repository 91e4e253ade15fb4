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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dewctl/internal/config"
	"dewctl/internal/logs"
	"dewctl/internal/relay"
	"dewctl/internal/sensor"
	"dewctl/internal/state"
	"dewctl/internal/weather"
	"dewctl/pkg/eventbus"
)

func newTestController(t *testing.T, src *sensor.Fake) (*Controller, *relay.Fake) {
	t.Helper()

	conf := &config.Config{
		Control: config.ControlConfig{
			PollIntervalSeconds:   1,
			HysteresisC:           5.0,
			AmbientOffsetC:        5.0,
			WarmupMinutes:         15,
			DaylightMarginMinutes: 30,
			ForceRun: config.ForceRunConfig{
				TempDiffC:       6.0,
				DurationMinutes: 30,
				CooldownMinutes: 60,
			},
		},
		Weather:  config.WeatherConfig{CacheSeconds: 600},
		EventBus: eventbus.New(),
	}
	t.Cleanup(conf.EventBus.Close)

	store, err := logs.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	rly := relay.NewFake()
	c := New(conf, state.New(), src, rly, weather.New(conf), store)
	c.started = time.Now().Add(-time.Hour) // past the warm-up gate
	return c, rly
}

func TestNoRedundantHardwareWrites(t *testing.T) {
	// a humid enclosure with no ambient data demands heat every cycle,
	// but only the first cycle may actually write to hardware
	src := sensor.NewFake(sensor.Sample{TemperatureC: 10, HumidityPct: 95})
	c, rly := newTestController(t, src)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		c.cycle(ctx)
	}
	if len(rly.Writes) != 1 || rly.Writes[0] != true {
		t.Fatalf("expected exactly one ON write, got %v", rly.Writes)
	}
	if !c.state.Snapshot().RelayOn {
		t.Error("state must mirror the commanded relay")
	}
}

func TestSensorFailureSkipsCycle(t *testing.T) {
	src := sensor.NewFake()
	src.ReadError = errors.New("bus timeout")
	c, rly := newTestController(t, src)

	c.cycle(context.Background())
	if len(rly.Writes) != 0 {
		t.Errorf("failed read must not drive the relay, got writes %v", rly.Writes)
	}
}

func TestHumiditySpikeSkipsCycle(t *testing.T) {
	src := sensor.NewFake(
		sensor.Sample{TemperatureC: 10, HumidityPct: 95},
		sensor.Sample{TemperatureC: 10, HumidityPct: 60}, // glitch
		sensor.Sample{TemperatureC: 10, HumidityPct: 94},
	)
	c, _ := newTestController(t, src)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c.cycle(ctx)
	}

	// the glitched cycle logs nothing: 3 polls, 2 readings on disk
	now := time.Now()
	readings, err := c.store.LoadReadingsRange(now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("LoadReadingsRange: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 logged readings, got %d", len(readings))
	}
	if readings[1].HumidityPct != 94 {
		t.Errorf("post-glitch reading = %v, want 94", readings[1].HumidityPct)
	}
}

func TestTransitionEventCarriesReading(t *testing.T) {
	src := sensor.NewFake(sensor.Sample{TemperatureC: 10, HumidityPct: 95})
	c, rly := newTestController(t, src)

	c.cycle(context.Background())
	if !rly.On {
		t.Fatal("humid cycle should have energized the relay")
	}

	day := time.Now().Format("2006-01-02")
	raw, err := os.ReadFile(filepath.Join(c.store.Dir(), "dew_heater_events_"+day+".csv"))
	if err != nil {
		t.Fatalf("events file not created: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 transition row, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,temp_c,humidity_pct,dew_point_c,relay_on,event,detail" {
		t.Errorf("unexpected events header: %q", lines[0])
	}
	// the transition row must carry the reading that caused it
	for _, want := range []string{"10.00", "95.00", "9.2", "true", "relay_on"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("event row %q missing %q", lines[1], want)
		}
	}
}

func TestRelayForcedOffOnShutdown(t *testing.T) {
	src := sensor.NewFake(sensor.Sample{TemperatureC: 10, HumidityPct: 95})
	c, rly := newTestController(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	// let the immediate first cycle turn the relay on
	deadline := time.After(2 * time.Second)
	for c.state.Snapshot().RelayOn == false {
		select {
		case <-deadline:
			t.Fatal("relay never turned on")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if rly.On {
		t.Error("relay must be off after shutdown")
	}
	if !rly.Closed {
		t.Error("relay line must be released after shutdown")
	}
	if c.state.Snapshot().RelayOn {
		t.Error("state must record the forced off")
	}
}

func TestManualOverrideAppliedNextCycle(t *testing.T) {
	// dry readings that auto mode would never heat for
	src := sensor.NewFake(sensor.Sample{TemperatureC: 20, HumidityPct: 30})
	c, rly := newTestController(t, src)

	ctx := context.Background()
	c.cycle(ctx)
	if len(rly.Writes) != 0 {
		t.Fatalf("dry auto cycle should not drive relay, got %v", rly.Writes)
	}

	c.state.SetManual(true)
	c.cycle(ctx)
	if !rly.On {
		t.Fatal("manual target must be applied on the next cycle")
	}

	c.state.SetAuto()
	c.cycle(ctx)
	if rly.On {
		t.Fatal("back in auto, dry conditions must release the relay")
	}
}

func TestForcedRunTimersRecordedAtomically(t *testing.T) {
	src := sensor.NewFake(sensor.Sample{TemperatureC: 20, HumidityPct: 30})
	c, rly := newTestController(t, src)

	// near-dew ambient forecast triggers a forced run
	aTemp, aDew := 5.0, 0.5
	c.state.UpdateWeather(&weather.Snapshot{TemperatureC: &aTemp, DewPointC: &aDew})

	// decide directly so the weather cache (which has no data source in
	// tests) cannot overwrite the injected snapshot
	snap := c.state.Snapshot()
	now := time.Now()
	cmd := c.engine.Decide(Inputs{
		Now: now, Uptime: time.Hour,
		TempC: 20, HumidityPct: 30, DewPointC: 1.9,
		State: snap, Weather: snap.Weather,
	})
	c.apply(now, snap, cmd, sensor.Sample{TemperatureC: 20, HumidityPct: 30}, 1.9)

	run, cooldown := c.state.Timers()
	if run == nil || cooldown == nil {
		t.Fatal("forced-run timers not recorded")
	}
	if cooldown.Before(*run) {
		t.Error("cooldown before forced-run end")
	}
	if !rly.On {
		t.Error("forced run must energize the relay")
	}
}
