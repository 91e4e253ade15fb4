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

package weather

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"dewctl/internal/config"
)

const meteoPayload = `{
	"current": {
		"temperature_2m": 8.5,
		"dew_point_2m": 6.1,
		"relative_humidity_2m": 85.0,
		"cloud_cover": 20.0,
		"weather_code": 1
	},
	"daily": {
		"temperature_2m_max": [14.0],
		"temperature_2m_min": [4.0],
		"sunrise": ["2026-08-29T06:30"],
		"sunset": ["2026-08-29T20:05"]
	}
}`

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conf := &config.Config{}
	conf.Weather = config.WeatherConfig{
		Latitude:           "45.0",
		Longitude:          "-75.0",
		CacheSeconds:       600,
		OpenMeteoURL:       srv.URL + "/forecast",
		SevenTimerURL:      srv.URL + "/7timer",
		SevenTimerGraphURL: srv.URL + "/astro.php",
	}
	return New(conf), srv
}

func meteoHandler(fetches *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forecast":
			fetches.Add(1)
			fmt.Fprint(w, meteoPayload)
		case "/7timer":
			fmt.Fprint(w, `{"dataseries":[{"seeing":2,"transparency":3,"prec_type":"none"}]}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestGetFetchesAndParses(t *testing.T) {
	var fetches atomic.Int64
	s, _ := newTestService(t, meteoHandler(&fetches))

	snap := s.Get()
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if snap.TemperatureC == nil || *snap.TemperatureC != 8.5 {
		t.Errorf("unexpected temperature: %+v", snap.TemperatureC)
	}
	if snap.DewPointC == nil || *snap.DewPointC != 6.1 {
		t.Errorf("unexpected dew point: %+v", snap.DewPointC)
	}
	if snap.Sunrise == nil || snap.Sunrise.Hour() != 6 || snap.Sunrise.Minute() != 30 {
		t.Errorf("unexpected sunrise: %+v", snap.Sunrise)
	}
	if snap.Sunset == nil || snap.Sunset.Hour() != 20 {
		t.Errorf("unexpected sunset: %+v", snap.Sunset)
	}
	if snap.Summary != "Mainly clear" {
		t.Errorf("unexpected summary: %q", snap.Summary)
	}
	if snap.SeeingQuality != "Good (level 2)" {
		t.Errorf("unexpected seeing: %q", snap.SeeingQuality)
	}
	if snap.MoonPhaseName == "" || snap.MoonIlluminationPct == nil {
		t.Error("expected moon decoration")
	}
}

func TestGetUsesCacheWithinTTL(t *testing.T) {
	var fetches atomic.Int64
	s, _ := newTestService(t, meteoHandler(&fetches))

	first := s.Get()
	second := s.Get()
	if first != second {
		t.Error("expected identical cached snapshot within TTL")
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", n)
	}
}

func TestGetReturnsStaleOnFailure(t *testing.T) {
	var fetches atomic.Int64
	var failing atomic.Bool
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		meteoHandler(&fetches)(w, r)
	})

	first := s.Get()
	if first == nil {
		t.Fatal("expected snapshot from healthy fetch")
	}

	// expire the cache, then break the upstream
	s.mu.Lock()
	s.lastFetch = time.Now().Add(-time.Hour)
	s.mu.Unlock()
	failing.Store(true)

	stale := s.Get()
	if stale != first {
		t.Error("expected stale snapshot on fetch failure")
	}
}

func TestGetServesStaleWithoutWaitingForRefresh(t *testing.T) {
	var fetches atomic.Int64
	var slow atomic.Bool
	release := make(chan struct{})
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() && r.URL.Path == "/forecast" {
			<-release
		}
		meteoHandler(&fetches)(w, r)
	})
	defer close(release)

	first := s.Get()
	if first == nil {
		t.Fatal("expected snapshot from healthy fetch")
	}

	// expire the cache, then make the upstream hang
	s.mu.Lock()
	s.lastFetch = time.Now().Add(-time.Hour)
	s.mu.Unlock()
	slow.Store(true)

	done := make(chan *Snapshot, 1)
	go func() { done <- s.Get() }()
	select {
	case snap := <-done:
		if snap != first {
			t.Error("expected the stale snapshot while the refresh is in flight")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Get must not block on a stale-cache refresh")
	}
}

func TestGetNilWhenNeverFetched(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	if snap := s.Get(); snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
}

func TestGetDisabledWithoutCoordinates(t *testing.T) {
	conf := &config.Config{}
	conf.Weather.CacheSeconds = 600
	s := New(conf)
	if snap := s.Get(); snap != nil {
		t.Errorf("expected nil snapshot without coordinates, got %+v", snap)
	}
}

func TestIncompletePayloadIsAFailure(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current": {"temperature_2m": 8.5}, "daily": {}}`)
	})
	if snap := s.Get(); snap != nil {
		t.Errorf("expected nil for payload missing dew point, got %+v", snap)
	}
}

func TestMoonPhaseLabels(t *testing.T) {
	cases := []struct {
		phase float64
		label string
	}{
		{0.0, "New Moon"},
		{0.25, "First Quarter"},
		{0.5, "Full Moon"},
		{0.75, "Last Quarter"},
		{0.97, "New Moon"},
	}
	for _, tc := range cases {
		label, _ := describeMoonPhase(tc.phase)
		if label != tc.label {
			t.Errorf("phase %v: got %q, want %q", tc.phase, label, tc.label)
		}
	}

	_, illum := describeMoonPhase(0.5)
	if illum < 99.9 || illum > 100.1 {
		t.Errorf("full moon illumination = %v, want ~100", illum)
	}
	_, illum = describeMoonPhase(0)
	if illum > 0.1 {
		t.Errorf("new moon illumination = %v, want ~0", illum)
	}
}

func TestKnownNewMoonEpoch(t *testing.T) {
	phase := estimateMoonPhase(moonEpoch)
	if phase > 0.01 && phase < 0.99 {
		t.Errorf("epoch phase = %v, want ~0", phase)
	}
}

func TestChartURLIncludesCoordinates(t *testing.T) {
	var fetches atomic.Int64
	s, _ := newTestService(t, meteoHandler(&fetches))
	u := s.ChartURL()
	for _, want := range []string{"lat=45.0", "lon=-75.0", "output=internal"} {
		if !strings.Contains(u, want) {
			t.Errorf("chart URL %q missing %q", u, want)
		}
	}
}
