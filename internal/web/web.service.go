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

// Package web serves the dashboard and the JSON control/history API, and
// streams live readings to browser clients over a websocket.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"dewctl/internal/config"
	"dewctl/internal/events"
	"dewctl/internal/logs"
	"dewctl/internal/state"
	"dewctl/internal/weather"
	"dewctl/pkg/logger"

	"github.com/gorilla/websocket"
)

type Service struct {
	conf    *config.Config
	log     *logger.Logger
	state   *state.Controller
	store   *logs.Store
	weather *weather.Service

	clients     *clientSync
	httpHandler http.Handler
}

func New(conf *config.Config, st *state.Controller, store *logs.Store,
	wsvc *weather.Service) *Service {
	s := &Service{
		conf:    conf,
		log:     logger.New("Web"),
		state:   st,
		store:   store,
		weather: wsvc,
		clients: newClientSync(),
	}
	s.httpHandler = s.buildHTTPHandler()
	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpHandler.ServeHTTP(w, r)
}

// Run forwards each published reading to every connected websocket client.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("Running...")
	defer s.log.Info("Stopped")
	defer s.clients.closeAll()

	updates, unsubscribe := s.conf.EventBus.Subscribe(ctx, events.TopicReadings, true)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			update, ok := ev.(events.ReadingUpdate)
			if !ok {
				s.log.Error("unexpected event type %T on readings topic", ev)
				continue
			}
			s.broadcast(update)
		}
	}
}

func (s *Service) broadcast(update events.ReadingUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		s.log.Error("marshal live update: %v", err)
		return
	}
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		s.log.Error("prepare live update: %v", err)
		return
	}
	s.clients.broadcast(pm, s.log)
}

func (s *Service) buildHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveDashboard)
	mux.HandleFunc("/api/control", s.serveControl)
	mux.HandleFunc("/api/readings", s.serveReadings)
	mux.HandleFunc("/api/weather", s.serveWeather)
	mux.HandleFunc("/api/astro-chart", s.serveAstroChart)
	mux.HandleFunc("/api/latest-image", s.serveLatestImageInfo)
	mux.HandleFunc("/latest-image", s.serveLatestImageFile)
	mux.HandleFunc("/api/live", s.serveWebSocket)
	return mux
}

type controlRequest struct {
	Mode     *string `json:"mode"`
	ManualOn *bool   `json:"manual_on"`
}

// serveControl reads or changes the controller mode. Mode changes only
// touch shared state; the control loop applies them on its next cycle.
func (s *Service) serveControl(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.state.Snapshot())

	case http.MethodPost:
		var req controlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		snap := s.state.Snapshot()
		mode := string(snap.Mode)
		if req.Mode != nil {
			mode = *req.Mode
		}

		switch mode {
		case string(state.ModeAuto):
			s.state.SetAuto()
			s.log.Info("controller set to automatic mode via API")
		case string(state.ModeManual):
			manualOn := snap.ManualOn
			if req.ManualOn != nil {
				manualOn = *req.ManualOn
			}
			s.state.SetManual(manualOn)
			s.log.Info("controller manual override -> %s", map[bool]string{true: "ON", false: "OFF"}[manualOn])
		default:
			writeError(w, http.StatusBadRequest, "mode must be 'auto' or 'manual'")
			return
		}
		writeJSON(w, http.StatusOK, s.state.Snapshot())

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type readingsResponse struct {
	Timestamps   []string  `json:"timestamps"`
	TemperatureC []float64 `json:"temperature_c"`
	HumidityPct  []float64 `json:"humidity_pct"`
	DewPointC    []float64 `json:"dew_point_c"`
	RelayState   []bool    `json:"relay_state"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
}

func (s *Service) serveReadings(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.parseTimeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := s.store.LoadReadingsRange(start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := readingsResponse{
		Timestamps:   make([]string, 0, len(readings)),
		TemperatureC: make([]float64, 0, len(readings)),
		HumidityPct:  make([]float64, 0, len(readings)),
		DewPointC:    make([]float64, 0, len(readings)),
		RelayState:   make([]bool, 0, len(readings)),
		Start:        start.Format(time.RFC3339),
		End:          end.Format(time.RFC3339),
	}
	for _, item := range readings {
		resp.Timestamps = append(resp.Timestamps, item.Timestamp.Format(time.RFC3339))
		resp.TemperatureC = append(resp.TemperatureC, item.TempC)
		resp.HumidityPct = append(resp.HumidityPct, item.HumidityPct)
		resp.DewPointC = append(resp.DewPointC, item.DewPointC)
		resp.RelayState = append(resp.RelayState, item.RelayOn)
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseTimeRange reads start/end RFC3339 query params, or a fractional
// hours parameter, falling back to the configured default range. An
// inverted range is swapped rather than rejected.
func (s *Service) parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	q := r.URL.Query()

	start := now.Add(-time.Duration(s.conf.Logs.DefaultRangeHours * float64(time.Hour)))
	if v := q.Get("hours"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidParam("hours")
		}
		start = now.Add(-time.Duration(hours * float64(time.Hour)))
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidParam("start")
		}
		start = t
	}

	end := now
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidParam("end")
		}
		end = t
	}

	if start.After(end) {
		start, end = end, start
	}
	return start, end, nil
}

func (s *Service) serveWeather(w http.ResponseWriter, r *http.Request) {
	snap := s.weather.Get()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no ambient weather data available")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Service) serveAstroChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": s.weather.ChartURL()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type invalidParamError string

func errInvalidParam(name string) error { return invalidParamError(name) }

func (e invalidParamError) Error() string {
	return "invalid " + string(e) + " value; expected RFC3339 or a number of hours"
}
