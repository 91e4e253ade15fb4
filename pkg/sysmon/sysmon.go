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

// Package sysmon exposes host and process health for the controller's
// diagnostic pages. The dew controller runs unattended on a Pi at the
// telescope; disk and memory pressure are the usual failure modes.
package sysmon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"dewctl/pkg/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type Service struct {
	log     *logger.Logger
	started time.Time
	logDir  string
}

// New creates the monitor. logDir is reported so the dashboard shows where
// the CSV logs accumulate (that partition filling up kills the logger).
func New(logDir string) *Service {
	return &Service{
		log:     logger.New("System Monitor"),
		started: time.Now(),
		logDir:  logDir,
	}
}

// Uptime reports how long the process has been running.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.started)
}

func (s *Service) collect() map[string]any {
	cpuPercentList, _ := cpu.Percent(0, false)
	cpuPercent := 0.0
	if len(cpuPercentList) > 0 {
		cpuPercent = cpuPercentList[0]
	}

	vmem, _ := mem.VirtualMemory()
	totalDisk, freeDisk, usedDisk, _ := DiskUsage("/")

	p, err := process.NewProcess(int32(os.Getpid()))
	var procMem uint64
	var procCPU float64
	if err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			procMem = memInfo.RSS // resident memory
		}
		if cpuPct, err := p.CPUPercent(); err == nil {
			procCPU = cpuPct
		}
	}

	return map[string]any{
		"go_version":     runtime.Version(),
		"uptime_seconds": int64(s.Uptime().Seconds()),
		"log_dir":        s.logDir,
		"cpu": map[string]any{
			"system_percent":  cpuPercent,
			"process_percent": procCPU,
		},
		"memory": map[string]any{
			"system_total": vmem.Total,
			"system_used":  vmem.Used,
			"system_free":  vmem.Available,
			"process_rss":  procMem,
		},
		"disk": map[string]any{
			"total": totalDisk,
			"used":  usedDisk,
			"free":  freeDisk,
		},
	}
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics := s.collect()

	// JSON API
	if r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics)
		return
	}

	cpuStats := metrics["cpu"].(map[string]any)
	memStats := metrics["memory"].(map[string]any)
	diskStats := metrics["disk"].(map[string]any)

	gb := func(v any) float64 { return float64(v.(uint64)) / (1024 * 1024 * 1024) }
	mb := func(v any) float64 { return float64(v.(uint64)) / (1024 * 1024) }

	// HTML dashboard
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
	<title>Dew Controller System Monitor</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		h1 { color: #333; }
		table { border-collapse: collapse; width: 60%%; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.6em 1em; text-align: left; }
		th { background: #eee; }
	</style>
</head>
<body>
	<h1>System Monitor</h1>
	<h2>Process</h2>
	<p>Go version: %s, uptime: %ds, log dir: %s</p>
	<h2>CPU</h2>
	<table>
		<tr><th>System %%</th><th>Process %%</th></tr>
		<tr><td>%.2f%%</td><td>%.2f%%</td></tr>
	</table>
	<h2>Memory</h2>
	<table>
		<tr><th>System Total</th><th>System Used</th><th>System Free</th><th>Process RSS</th></tr>
		<tr>
			<td>%.2f GB</td>
			<td>%.2f GB</td>
			<td>%.2f GB</td>
			<td>%.2f MB</td>
		</tr>
	</table>
	<h2>Disk (/)</h2>
	<table>
		<tr><th>Total</th><th>Used</th><th>Free</th></tr>
		<tr>
			<td>%.2f GB</td>
			<td>%.2f GB</td>
			<td>%.2f GB</td>
		</tr>
	</table>
</body>
</html>
`,
		metrics["go_version"],
		metrics["uptime_seconds"],
		metrics["log_dir"],
		cpuStats["system_percent"], cpuStats["process_percent"],
		gb(memStats["system_total"]),
		gb(memStats["system_used"]),
		gb(memStats["system_free"]),
		mb(memStats["process_rss"]),
		gb(diskStats["total"]),
		gb(diskStats["used"]),
		gb(diskStats["free"]),
	)
}
