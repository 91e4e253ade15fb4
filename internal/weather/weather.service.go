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

// Package weather fetches ambient conditions and astronomy forecasts for
// the decision engine and the dashboard. All external fetches are cached
// and degrade to stale data on failure; the control loop must keep running
// through network outages.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"dewctl/internal/config"
	"dewctl/pkg/logger"
)

// Snapshot is one observation of ambient conditions. Fields the upstream
// API may not deliver are pointers: nil means unknown, never zero.
type Snapshot struct {
	TemperatureC  *float64 `json:"temperature_c"`
	DewPointC     *float64 `json:"dew_point_c"`
	HumidityPct   *float64 `json:"humidity_pct"`
	CloudCoverPct *float64 `json:"cloud_cover_pct"`
	TempMaxC      *float64 `json:"temp_max_c"`
	TempMinC      *float64 `json:"temp_min_c"`

	Sunrise *time.Time `json:"sunrise"`
	Sunset  *time.Time `json:"sunset"`

	FetchedAt time.Time `json:"timestamp"`
	Location  string    `json:"location"`
	Summary   string    `json:"summary"`

	// astronomy decoration for the dashboard
	MoonPhaseName       string   `json:"moon_phase_name"`
	MoonIlluminationPct *float64 `json:"moon_illumination_pct"`
	SeeingQuality       string   `json:"seeing_quality,omitempty"`
	TransparencyQuality string   `json:"transparency_quality,omitempty"`
	PrecipitationChance string   `json:"precipitation_chance,omitempty"`
}

// Service fetches and caches ambient weather. Get never fails: it returns
// the freshest snapshot available, possibly stale, possibly nil if no fetch
// has ever succeeded.
type Service struct {
	conf   config.WeatherConfig
	log    *logger.Logger
	client *http.Client

	mu         sync.Mutex
	last       *Snapshot
	lastFetch  time.Time
	refreshing bool

	// configuration error reported once at startup, not per cycle
	configured bool
}

func New(appConf *config.Config) *Service {
	s := &Service{
		conf:       appConf.Weather,
		log:        logger.New("Weather"),
		client:     &http.Client{Timeout: 10 * time.Second},
		configured: appConf.Weather.Latitude != "" && appConf.Weather.Longitude != "",
	}
	if !s.configured {
		s.log.Error("latitude/longitude not configured; ambient weather disabled")
	}
	return s
}

// Run pre-warms the cache and keeps it fresh in the background so the first
// poll cycle already has ambient data. Should the cache still go stale
// between ticks, Get serves the stale snapshot and refreshes on its own.
func (s *Service) Run(ctx context.Context) {
	if !s.configured {
		return
	}
	s.log.Info("Running...")
	defer s.log.Info("Stopped")

	ttl := time.Duration(s.conf.CacheSeconds) * time.Second

	s.Get()
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Get()
		}
	}
}

// Get returns the cached snapshot if it is younger than the configured TTL.
// A stale snapshot is served immediately and refreshed in the background so
// a caller never waits out the upstream timeouts; Get only blocks when no
// fetch has ever succeeded. On refresh failure the previous snapshot stays.
// At most one refresh is in flight.
func (s *Service) Get() *Snapshot {
	if !s.configured {
		return nil
	}

	ttl := time.Duration(s.conf.CacheSeconds) * time.Second

	s.mu.Lock()
	if s.refreshing || (s.last != nil && time.Since(s.lastFetch) < ttl) {
		snap := s.last
		s.mu.Unlock()
		return snap
	}
	s.refreshing = true
	stale := s.last
	s.mu.Unlock()

	if stale != nil {
		go s.refresh()
		return stale
	}
	return s.refresh()
}

func (s *Service) refresh() *Snapshot {
	snap, err := s.fetch()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false
	if err != nil {
		s.log.Warn("ambient weather fetch failed: %v", err)
		return s.last
	}
	s.last = snap
	s.lastFetch = time.Now()
	return snap
}

// openMeteoResponse covers the subset of the forecast payload we use.
type openMeteoResponse struct {
	Current struct {
		Temperature2m      *float64 `json:"temperature_2m"`
		DewPoint2m         *float64 `json:"dew_point_2m"`
		RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
		CloudCover         *float64 `json:"cloud_cover"`
		WeatherCode        *int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		Sunrise        []string  `json:"sunrise"`
		Sunset         []string  `json:"sunset"`
	} `json:"daily"`
}

func (s *Service) fetch() (*Snapshot, error) {
	params := url.Values{
		"latitude":  {s.conf.Latitude},
		"longitude": {s.conf.Longitude},
		"current":   {"temperature_2m,dew_point_2m,relative_humidity_2m,cloud_cover,weather_code"},
		"daily":     {"temperature_2m_max,temperature_2m_min,sunrise,sunset"},
		"timezone":  {"auto"},
	}

	resp, err := s.client.Get(s.conf.OpenMeteoURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open-meteo HTTP %d", resp.StatusCode)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("open-meteo decode: %w", err)
	}

	// temperature and dew point drive the forced-run logic; a payload
	// without them is useless to the controller
	if payload.Current.Temperature2m == nil || payload.Current.DewPoint2m == nil {
		return nil, fmt.Errorf("open-meteo returned incomplete data")
	}

	now := time.Now()
	snap := &Snapshot{
		TemperatureC:  payload.Current.Temperature2m,
		DewPointC:     payload.Current.DewPoint2m,
		HumidityPct:   payload.Current.RelativeHumidity2m,
		CloudCoverPct: payload.Current.CloudCover,
		FetchedAt:     now,
		Location:      s.conf.LocationName,
		Summary:       describeWeather(payload.Current.WeatherCode, payload.Current.CloudCover),
	}

	if len(payload.Daily.TemperatureMax) > 0 {
		snap.TempMaxC = &payload.Daily.TemperatureMax[0]
	}
	if len(payload.Daily.TemperatureMin) > 0 {
		snap.TempMinC = &payload.Daily.TemperatureMin[0]
	}
	if len(payload.Daily.Sunrise) > 0 {
		snap.Sunrise = parseLocalTime(payload.Daily.Sunrise[0])
	}
	if len(payload.Daily.Sunset) > 0 {
		snap.Sunset = parseLocalTime(payload.Daily.Sunset[0])
	}

	phase := estimateMoonPhase(now)
	name, illum := describeMoonPhase(phase)
	snap.MoonPhaseName = name
	snap.MoonIlluminationPct = &illum

	// astro forecast is decoration only; ignore failures
	if astro, err := s.fetchSevenTimer(); err != nil {
		s.log.Debug("7timer fetch failed: %v", err)
	} else if astro != nil {
		snap.SeeingQuality = astro.seeing
		snap.TransparencyQuality = astro.transparency
		snap.PrecipitationChance = astro.precipitation
	}

	return snap, nil
}

// parseLocalTime parses Open-Meteo's local ISO timestamps (minute or second
// precision, no zone suffix) into local wall-clock time.
func parseLocalTime(value string) *time.Time {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// describeWeather translates numeric codes into friendly summary strings.
func describeWeather(code *int, cloudCover *float64) string {
	if code == nil {
		if cloudCover != nil {
			switch {
			case *cloudCover < 25:
				return "Clear"
			case *cloudCover < 60:
				return "Partly cloudy"
			default:
				return "Overcast"
			}
		}
		return "Fair"
	}
	conditions := map[int]string{
		0:  "Clear sky",
		1:  "Mainly clear",
		2:  "Partly cloudy",
		3:  "Overcast",
		45: "Fog",
		48: "Depositing rime fog",
		51: "Light drizzle",
		53: "Drizzle",
		55: "Dense drizzle",
		56: "Freezing drizzle",
		57: "Dense freezing drizzle",
		61: "Slight rain",
		63: "Rain",
		65: "Heavy rain",
		66: "Freezing rain",
		67: "Heavy freezing rain",
		71: "Slight snow",
		73: "Snow",
		75: "Heavy snow",
		77: "Snow grains",
		80: "Rain showers",
		81: "Rain showers",
		82: "Violent rain showers",
		85: "Snow showers",
		86: "Heavy snow showers",
		95: "Thunderstorm",
		96: "Thunderstorm with hail",
		99: "Heavy hailstorm",
	}
	if desc, ok := conditions[*code]; ok {
		return desc
	}
	return "Fair"
}
