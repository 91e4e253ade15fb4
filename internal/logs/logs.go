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

// Package logs appends control-loop readings and relay events to daily CSV
// files, and reads them back for the history API. One file per day keeps
// files small and makes manual cleanup trivial.
package logs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"dewctl/pkg/logger"
)

const (
	readingsPrefix = "dew_heater_readings_"
	eventsPrefix   = "dew_heater_events_"
	dateLayout     = "2006-01-02"
)

var readingsHeader = []string{
	"timestamp", "temp_c", "humidity_pct", "dew_point_c", "relay_on", "mode",
}

var eventsHeader = []string{
	"timestamp", "temp_c", "humidity_pct", "dew_point_c", "relay_on", "event", "detail",
}

// Reading is one control-cycle sample as stored on disk.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	TempC       float64   `json:"temp_c"`
	HumidityPct float64   `json:"humidity_pct"`
	DewPointC   float64   `json:"dew_point_c"`
	RelayOn     bool      `json:"relay_on"`
	Mode        string    `json:"mode"`
}

// Store writes and reads the daily CSV files under a single directory.
type Store struct {
	dir string
	mu  sync.Mutex
	log *logger.Logger
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}
	return &Store{
		dir: dir,
		log: logger.New("logs"),
	}, nil
}

// Dir returns the directory holding the daily files.
func (s *Store) Dir() string {
	return s.dir
}

// LogReading appends one row to today's readings file, creating it with a
// header row when needed.
func (s *Store) LogReading(r Reading) error {
	row := []string{
		r.Timestamp.Format(time.RFC3339),
		strconv.FormatFloat(r.TempC, 'f', 2, 64),
		strconv.FormatFloat(r.HumidityPct, 'f', 2, 64),
		strconv.FormatFloat(r.DewPointC, 'f', 2, 64),
		strconv.FormatBool(r.RelayOn),
		r.Mode,
	}
	return s.appendRow(readingsPrefix, r.Timestamp, readingsHeader, row)
}

// LogEvent records a relay transition together with the reading that
// triggered it, so the events file stands on its own when diagnosing a
// night's heater activity.
func (s *Store) LogEvent(r Reading, event, detail string) error {
	row := []string{
		r.Timestamp.Format(time.RFC3339),
		strconv.FormatFloat(r.TempC, 'f', 2, 64),
		strconv.FormatFloat(r.HumidityPct, 'f', 2, 64),
		strconv.FormatFloat(r.DewPointC, 'f', 2, 64),
		strconv.FormatBool(r.RelayOn),
		event,
		detail,
	}
	return s.appendRow(eventsPrefix, r.Timestamp, eventsHeader, row)
}

func (s *Store) appendRow(prefix string, at time.Time, header, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, prefix+at.Format(dateLayout)+".csv")

	_, statErr := os.Stat(path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// LoadReadingsRange returns readings with start <= timestamp <= end, in
// file order. Missing day files are skipped; unparsable rows are logged
// and dropped so one bad line cannot take down the history API.
func (s *Store) LoadReadingsRange(start, end time.Time) ([]Reading, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end %v before start %v", end, start)
	}

	var out []Reading
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for !day.After(end) {
		path := filepath.Join(s.dir, readingsPrefix+day.Format(dateLayout)+".csv")
		rows, err := s.readDayFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("skipping %s: %v", path, err)
			}
			day = day.AddDate(0, 0, 1)
			continue
		}
		for _, r := range rows {
			if r.Timestamp.Before(start) || r.Timestamp.After(end) {
				continue
			}
			out = append(out, r)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}

func (s *Store) readDayFile(path string) ([]Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var out []Reading
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "timestamp" {
			continue
		}
		r, err := parseReading(rec)
		if err != nil {
			s.log.Debug("bad row %d in %s: %v", i, path, err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func parseReading(rec []string) (Reading, error) {
	if len(rec) < 6 {
		return Reading{}, fmt.Errorf("expected 6 fields, got %d", len(rec))
	}
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return Reading{}, fmt.Errorf("timestamp: %w", err)
	}
	temp, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("temp: %w", err)
	}
	hum, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("humidity: %w", err)
	}
	dew, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("dew point: %w", err)
	}
	relayOn, err := strconv.ParseBool(rec[4])
	if err != nil {
		return Reading{}, fmt.Errorf("relay state: %w", err)
	}
	return Reading{
		Timestamp:   ts,
		TempC:       temp,
		HumidityPct: hum,
		DewPointC:   dew,
		RelayOn:     relayOn,
		Mode:        rec[5],
	}, nil
}
