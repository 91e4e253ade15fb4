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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type astroForecast struct {
	seeing        string
	transparency  string
	precipitation string
}

type sevenTimerResponse struct {
	DataSeries []struct {
		Seeing       *int    `json:"seeing"`
		Transparency *int    `json:"transparency"`
		PrecType     string  `json:"prec_type"`
		PrecAmount   *int    `json:"prec_amount"`
	} `json:"dataseries"`
}

// fetchSevenTimer pulls the 7timer astronomy forecast for the configured
// coordinates. Returns (nil, nil) when the series is empty.
func (s *Service) fetchSevenTimer() (*astroForecast, error) {
	params := url.Values{
		"lon":     {s.conf.Longitude},
		"lat":     {s.conf.Latitude},
		"product": {"astro"},
		"output":  {"json"},
	}

	resp, err := s.client.Get(s.conf.SevenTimerURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("7timer request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("7timer HTTP %d", resp.StatusCode)
	}

	var payload sevenTimerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("7timer decode: %w", err)
	}
	if len(payload.DataSeries) == 0 {
		return nil, nil
	}
	first := payload.DataSeries[0]

	precip := "None"
	if first.PrecType != "" && first.PrecType != "none" {
		chance := 50
		if first.PrecAmount != nil {
			chanceMap := map[int]int{1: 20, 2: 40, 3: 60, 4: 80}
			if pct, ok := chanceMap[*first.PrecAmount]; ok {
				chance = pct
			}
		}
		precip = fmt.Sprintf("%s (~%d%% chance)", titleCase(first.PrecType), chance)
	}

	return &astroForecast{
		seeing:        describeAstroIndex(first.Seeing),
		transparency:  describeAstroIndex(first.Transparency),
		precipitation: precip,
	}, nil
}

// describeAstroIndex maps 7timer's 1-8 quality levels to labels.
func describeAstroIndex(value *int) string {
	if value == nil {
		return ""
	}
	labels := map[int]string{
		1: "Excellent",
		2: "Good",
		3: "Average",
		4: "Below average",
		5: "Poor",
		6: "Poor",
		7: "Very poor",
		8: "Very poor",
	}
	if desc, ok := labels[*value]; ok {
		return fmt.Sprintf("%s (level %d)", desc, *value)
	}
	return fmt.Sprintf("Level %d", *value)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	head := s[:1]
	if head >= "a" && head <= "z" {
		head = string(head[0] - 'a' + 'A')
	}
	return head + s[1:]
}

// ChartURL builds the 7timer astro chart URL the dashboard embeds. The
// cache parameter busts intermediary caches once per call.
func (s *Service) ChartURL() string {
	params := url.Values{
		"lon":     {s.conf.Longitude},
		"lat":     {s.conf.Latitude},
		"ac":      {"0"},
		"lang":    {"en"},
		"unit":    {"0"},
		"output":  {"internal"},
		"tzshift": {"0"},
		"cache":   {fmt.Sprintf("%d", time.Now().Unix())},
	}
	return s.conf.SevenTimerGraphURL + "?" + params.Encode()
}
