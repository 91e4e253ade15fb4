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

package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestLogReadingCreatesDailyFileWithHeader(t *testing.T) {
	s := mustStore(t)
	ts := time.Date(2026, 8, 29, 22, 15, 0, 0, time.UTC)

	err := s.LogReading(Reading{
		Timestamp: ts, TempC: 8.5, HumidityPct: 92.1, DewPointC: 7.3,
		RelayOn: true, Mode: "auto",
	})
	if err != nil {
		t.Fatalf("LogReading: %v", err)
	}

	path := filepath.Join(s.dir, "dew_heater_readings_2026-08-29.csv")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file not created: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,temp_c,humidity_pct,dew_point_c,relay_on,mode" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "8.50") || !strings.Contains(lines[1], "true") {
		t.Errorf("unexpected row: %q", lines[1])
	}
}

func TestHeaderWrittenOncePerDay(t *testing.T) {
	s := mustStore(t)
	ts := time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := Reading{Timestamp: ts.Add(time.Duration(i) * time.Minute), Mode: "auto"}
		if err := s.LogReading(r); err != nil {
			t.Fatalf("LogReading: %v", err)
		}
	}

	raw, _ := os.ReadFile(filepath.Join(s.dir, "dew_heater_readings_2026-08-29.csv"))
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 1 header + 3 rows, got %d lines", len(lines))
	}
}

func TestLoadReadingsRangeSpansDays(t *testing.T) {
	s := mustStore(t)

	// rows across two day files plus one outside the queried range
	stamps := []time.Time{
		time.Date(2026, 8, 28, 23, 50, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 0, 10, 0, 0, time.UTC),
		time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC),
	}
	for i, ts := range stamps {
		err := s.LogReading(Reading{Timestamp: ts, TempC: float64(i), Mode: "auto"})
		if err != nil {
			t.Fatalf("LogReading: %v", err)
		}
	}

	start := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC)
	got, err := s.LoadReadingsRange(start, end)
	if err != nil {
		t.Fatalf("LoadReadingsRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings in range, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(stamps[0]) || !got[1].Timestamp.Equal(stamps[1]) {
		t.Errorf("wrong readings returned: %+v", got)
	}
}

func TestLoadReadingsRangeMissingDaysSkipped(t *testing.T) {
	s := mustStore(t)
	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if err := s.LogReading(Reading{Timestamp: ts, Mode: "manual"}); err != nil {
		t.Fatalf("LogReading: %v", err)
	}

	// a week-wide window where only one day file exists
	got, err := s.LoadReadingsRange(ts.AddDate(0, 0, -3), ts.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("LoadReadingsRange: %v", err)
	}
	if len(got) != 1 || got[0].Mode != "manual" {
		t.Fatalf("expected the single logged reading, got %+v", got)
	}
}

func TestLoadReadingsRangeRejectsInvertedRange(t *testing.T) {
	s := mustStore(t)
	now := time.Now()
	if _, err := s.LoadReadingsRange(now, now.Add(-time.Hour)); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestBadRowsDropped(t *testing.T) {
	s := mustStore(t)
	ts := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if err := s.LogReading(Reading{Timestamp: ts, TempC: 5, Mode: "auto"}); err != nil {
		t.Fatalf("LogReading: %v", err)
	}

	// corrupt the file with a truncated line
	path := filepath.Join(s.dir, "dew_heater_readings_2026-08-29.csv")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("not-a-timestamp,x\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := s.LoadReadingsRange(ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("LoadReadingsRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the bad row to be dropped, got %d readings", len(got))
	}
}

func TestLogEvent(t *testing.T) {
	s := mustStore(t)
	ts := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	err := s.LogEvent(Reading{
		Timestamp: ts, TempC: 9.8, HumidityPct: 96.2, DewPointC: 9.1,
		RelayOn: true, Mode: "auto",
	}, "relay_on", "dew point reached")
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, "dew_heater_events_2026-08-29.csv"))
	if err != nil {
		t.Fatalf("events file not created: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,temp_c,humidity_pct,dew_point_c,relay_on,event,detail" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	// each transition row carries the full reading, not just the event name
	want := "2026-08-29T03:00:00Z,9.80,96.20,9.10,true,relay_on,dew point reached"
	if lines[1] != want {
		t.Errorf("event row = %q, want %q", lines[1], want)
	}
}
