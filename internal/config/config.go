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

package config

import (
	"log"
	"os"

	"dewctl/pkg/eventbus"

	"gopkg.in/yaml.v3"
)

type WebConfig struct {
	Addr string `yaml:"addr"`
}

type ControlConfig struct {
	// Seconds between sensor polls.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// Temperature delta (Celsius) between the threshold temperature and the
	// dew point baseline that releases the relay once it is on.
	HysteresisC float64 `yaml:"hysteresis_c"`

	// Offset subtracted from the enclosure temperature to form the
	// threshold compared against the dew point baseline.
	AmbientOffsetC float64 `yaml:"ambient_offset_c"`

	// Auto ON transitions are blocked until the process has been up this long.
	WarmupMinutes int `yaml:"warmup_minutes"`

	// Relay stays off from sunrise+margin until sunset-margin.
	DaylightMarginMinutes int `yaml:"daylight_margin_minutes"`

	ForceRun ForceRunConfig `yaml:"force_run"`
}

type ForceRunConfig struct {
	// A forced run starts when ambient temperature minus ambient dew point
	// is at or below this delta.
	TempDiffC       float64 `yaml:"temp_diff_c"`
	DurationMinutes int     `yaml:"duration_minutes"`
	CooldownMinutes int     `yaml:"cooldown_minutes"`
}

type SensorConfig struct {
	// "modbus" for the RS485 temperature/humidity transducer behind a
	// Modbus TCP gateway, "sim" for a hardware-free simulated sensor.
	Backend string `yaml:"backend"`

	Modbus ModbusSensorConfig `yaml:"modbus"`
}

type ModbusSensorConfig struct {
	Addr           string `yaml:"addr"`
	SlaveID        byte   `yaml:"slave_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type RelayConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
}

type LogsConfig struct {
	Dir string `yaml:"dir"`

	// Default time range shown on the dashboard charts.
	DefaultRangeHours float64 `yaml:"default_range_hours"`
}

type WeatherConfig struct {
	Latitude     string `yaml:"latitude"`
	Longitude    string `yaml:"longitude"`
	LocationName string `yaml:"location_name"`

	// How long a successful fetch stays fresh.
	CacheSeconds int `yaml:"cache_seconds"`

	OpenMeteoURL       string `yaml:"open_meteo_url"`
	SevenTimerURL      string `yaml:"seventimer_url"`
	SevenTimerGraphURL string `yaml:"seventimer_graph_url"`
}

type AllSkyConfig struct {
	// Local AllSky capture directory, scanned for the newest image.
	ImagesRoot string `yaml:"images_root"`

	// Public AllSky page; when set the latest image is scraped and
	// proxied from there instead of the local directory.
	PublicURL string `yaml:"public_url"`
}

type Config struct {
	Web     WebConfig     `yaml:"web"`
	Control ControlConfig `yaml:"control"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Relay   RelayConfig   `yaml:"relay"`
	Logs    LogsConfig    `yaml:"logs"`
	Weather WeatherConfig `yaml:"weather"`
	AllSky  AllSkyConfig  `yaml:"allsky"`

	// not loaded from file, but added here to
	// pass to all services alongside config
	EventBus *eventbus.Bus `yaml:"-"`
}

func LoadFile(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		log.Fatalf("decode config: %v", err)
	}
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.Control.PollIntervalSeconds == 0 {
		c.Control.PollIntervalSeconds = 10
	}
	if c.Control.HysteresisC == 0 {
		c.Control.HysteresisC = 5.0
	}
	if c.Control.AmbientOffsetC == 0 {
		c.Control.AmbientOffsetC = 5.0
	}
	if c.Control.WarmupMinutes == 0 {
		c.Control.WarmupMinutes = 15
	}
	if c.Control.DaylightMarginMinutes == 0 {
		c.Control.DaylightMarginMinutes = 30
	}
	if c.Control.ForceRun.TempDiffC == 0 {
		c.Control.ForceRun.TempDiffC = 6.0
	}
	if c.Control.ForceRun.DurationMinutes == 0 {
		c.Control.ForceRun.DurationMinutes = 30
	}
	if c.Control.ForceRun.CooldownMinutes == 0 {
		c.Control.ForceRun.CooldownMinutes = 60
	}
	if c.Sensor.Backend == "" {
		c.Sensor.Backend = "modbus"
	}
	if c.Sensor.Modbus.SlaveID == 0 {
		c.Sensor.Modbus.SlaveID = 1
	}
	if c.Sensor.Modbus.TimeoutSeconds == 0 {
		c.Sensor.Modbus.TimeoutSeconds = 2
	}
	if c.Relay.Chip == "" {
		c.Relay.Chip = "gpiochip0"
	}
	if c.Relay.Pin == 0 {
		c.Relay.Pin = 26
	}
	if c.Logs.Dir == "" {
		c.Logs.Dir = "var/logs/readings"
	}
	if c.Logs.DefaultRangeHours == 0 {
		c.Logs.DefaultRangeHours = 6
	}
	if c.Weather.CacheSeconds == 0 {
		c.Weather.CacheSeconds = 600
	}
	if c.Weather.OpenMeteoURL == "" {
		c.Weather.OpenMeteoURL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.Weather.SevenTimerURL == "" {
		c.Weather.SevenTimerURL = "http://www.7timer.info/bin/api.pl"
	}
	if c.Weather.SevenTimerGraphURL == "" {
		c.Weather.SevenTimerGraphURL = "http://www.7timer.info/bin/astro.php"
	}
}
