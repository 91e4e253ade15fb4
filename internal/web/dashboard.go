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

package web

import (
	"html/template"
	"net/http"
)

func (s *Service) serveDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "" {
		http.NotFound(w, r)
		return
	}

	tpl := `
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Dew Heater Controller</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js@4"></script>
  <style>
    body { font-family: Arial, sans-serif; margin: 2em; background: #10141c; color: #dde3ec; }
    h1 { margin-bottom: 0.2em; }
    .grid { display: grid; grid-template-columns: 1fr 1fr; gap: 1.2em; }
    .card { background: #1a2130; border-radius: 8px; padding: 1em 1.4em; }
    .card h2 { margin-top: 0.2em; font-size: 1.05em; color: #9fb2cc; }
    .reading { font-size: 1.6em; margin-right: 1em; }
    .relay-on { color: #51d88a; font-weight: bold; }
    .relay-off { color: #8892a6; font-weight: bold; }
    .btn { padding: 0.5em 1em; margin: 0.2em; font-size: 0.9em; background: #2c6bed;
           color: white; border: none; border-radius: 4px; cursor: pointer; }
    .btn:hover { background: #1f52c2; }
    .btn.active { background: #51d88a; color: #10141c; }
    .chart-wrap { grid-column: 1 / 3; }
    img.sky { max-width: 100%; border-radius: 6px; }
    table.wx td { padding: 0.15em 0.8em 0.15em 0; color: #c4cede; }
    .reason { font-size: 0.85em; color: #8892a6; margin-top: 0.6em; }
  </style>
</head>
<body>
  <h1>Dew Heater Controller</h1>
  <div class="grid">
    <div class="card">
      <h2>Enclosure</h2>
      <span class="reading" id="temp">--</span>
      <span class="reading" id="hum">--</span>
      <span class="reading" id="dew">--</span>
      <div>Relay: <span id="relay" class="relay-off">OFF</span></div>
      <div class="reason" id="reason"></div>
    </div>
    <div class="card">
      <h2>Control</h2>
      <button class="btn" id="btn-auto" onclick="setMode('auto')">Auto</button>
      <button class="btn" id="btn-on" onclick="setMode('manual', true)">Manual ON</button>
      <button class="btn" id="btn-off" onclick="setMode('manual', false)">Manual OFF</button>
      <div class="reason" id="timers"></div>
    </div>
    <div class="card">
      <h2>Ambient Weather</h2>
      <table class="wx" id="wx"><tr><td>no data</td></tr></table>
    </div>
    <div class="card">
      <h2>Sky</h2>
      <img class="sky" id="allsky" alt="latest AllSky capture" style="display:none">
      <p><a id="astro-chart" href="#" target="_blank" style="color:#2c6bed">astronomy forecast chart</a></p>
    </div>
    <div class="card chart-wrap">
      <h2>History (last {{.RangeHours}}h)</h2>
      <canvas id="chart" height="90"></canvas>
    </div>
  </div>

<script>
const fmt = (v, unit) => v == null ? '--' : v.toFixed(1) + unit;

function applyUpdate(u) {
  document.getElementById('temp').textContent = fmt(u.temp_c, '°C');
  document.getElementById('hum').textContent = fmt(u.humidity_pct, '%');
  document.getElementById('dew').textContent = fmt(u.dew_point_c, '°C dew');
  const relay = document.getElementById('relay');
  relay.textContent = u.relay_on ? 'ON' : 'OFF';
  relay.className = u.relay_on ? 'relay-on' : 'relay-off';
  if (u.reason) document.getElementById('reason').textContent = u.reason;
  markMode(u.mode, u.manual_on);
  if (u.weather) renderWeather(u.weather);
}

function markMode(mode, manualOn) {
  document.getElementById('btn-auto').classList.toggle('active', mode === 'auto');
  document.getElementById('btn-on').classList.toggle('active', mode === 'manual' && manualOn);
  document.getElementById('btn-off').classList.toggle('active', mode === 'manual' && !manualOn);
}

function renderWeather(wx) {
  const rows = [];
  const row = (k, v) => { if (v != null && v !== '') rows.push('<tr><td>' + k + '</td><td>' + v + '</td></tr>'); };
  row('Location', wx.location);
  row('Conditions', wx.summary);
  if (wx.temperature_c != null) row('Temperature', wx.temperature_c.toFixed(1) + '°C');
  if (wx.dew_point_c != null) row('Dew point', wx.dew_point_c.toFixed(1) + '°C');
  if (wx.cloud_cover_pct != null) row('Cloud cover', wx.cloud_cover_pct.toFixed(0) + '%');
  row('Seeing', wx.seeing_quality);
  row('Transparency', wx.transparency_quality);
  if (wx.moon_phase_name) row('Moon', wx.moon_phase_name + ' (' + wx.moon_illumination_pct.toFixed(0) + '%)');
  if (wx.sunrise) row('Sunrise', new Date(wx.sunrise).toLocaleTimeString());
  if (wx.sunset) row('Sunset', new Date(wx.sunset).toLocaleTimeString());
  document.getElementById('wx').innerHTML = rows.join('');
}

async function setMode(mode, manualOn) {
  const body = { mode: mode };
  if (manualOn !== undefined) body.manual_on = manualOn;
  const resp = await fetch('api/control', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(body),
  });
  const snap = await resp.json();
  markMode(snap.mode, snap.manual_on);
}

let chart;
async function loadHistory() {
  const resp = await fetch('api/readings');
  if (!resp.ok) return;
  const data = await resp.json();
  const labels = data.timestamps.map(t => new Date(t).toLocaleTimeString());
  const cfg = {
    type: 'line',
    data: {
      labels: labels,
      datasets: [
        { label: 'Temperature °C', data: data.temperature_c, borderColor: '#ed5f2c', tension: 0.3 },
        { label: 'Dew point °C', data: data.dew_point_c, borderColor: '#2c6bed', tension: 0.3 },
        { label: 'Humidity %', data: data.humidity_pct, borderColor: '#51d88a', tension: 0.3, yAxisID: 'y1' },
      ],
    },
    options: {
      animation: false,
      scales: {
        y: { position: 'left' },
        y1: { position: 'right', min: 0, max: 100, grid: { drawOnChartArea: false } },
      },
    },
  };
  if (chart) { chart.data = cfg.data; chart.update(); }
  else chart = new Chart(document.getElementById('chart'), cfg);
}

async function loadStatic() {
  const ctrl = await fetch('api/control');
  if (ctrl.ok) {
    const snap = await ctrl.json();
    markMode(snap.mode, snap.manual_on);
    if (snap.weather) renderWeather(snap.weather);
  }
  const img = await fetch('api/latest-image');
  if (img.ok) {
    const info = await img.json();
    const el = document.getElementById('allsky');
    el.src = info.url;
    el.style.display = 'block';
  }
  const astro = await fetch('api/astro-chart');
  if (astro.ok) {
    const info = await astro.json();
    document.getElementById('astro-chart').href = info.url;
  }
}

function connectLive() {
  const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  const base = location.pathname.endsWith('/') ? location.pathname : location.pathname + '/';
  const ws = new WebSocket(proto + location.host + base + 'api/live');
  ws.onmessage = ev => applyUpdate(JSON.parse(ev.data));
  ws.onclose = () => setTimeout(connectLive, 5000);
}

loadStatic();
loadHistory();
setInterval(loadHistory, 60000);
connectLive();
</script>
</body>
</html>
`
	t := template.Must(template.New("dashboard").Parse(tpl))
	_ = t.Execute(w, map[string]any{
		"RangeHours": s.conf.Logs.DefaultRangeHours,
	})
}
