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

package main

import (
	"os"
	"path/filepath"

	"dewctl/internal/config"
	"dewctl/internal/controller"
	"dewctl/internal/logs"
	"dewctl/internal/relay"
	"dewctl/internal/sensor"
	"dewctl/internal/state"
	"dewctl/internal/weather"
	"dewctl/internal/web"
	"dewctl/pkg/appctx"
	"dewctl/pkg/eventbus"
	"dewctl/pkg/logger"
	"dewctl/pkg/rootserv"
	"dewctl/pkg/service"
	"dewctl/pkg/sysmon"
)

func main() {

	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}

	logger.Init(filepath.Join(rootdir, "var/logs/dewctl.log"))
	log := logger.New("main")

	appConf := config.LoadFile(filepath.Join(rootdir, "var/config/dewctl.yml"))
	appConf.EventBus = eventbus.New()

	ctx, ctxCancel := appctx.New()

	sensorSource, err := sensor.New(ctx, appConf.Sensor)
	if err != nil {
		log.Fatal("init sensor: %v", err)
	}

	var heaterRelay relay.Relay
	heaterRelay, err = relay.NewReal(appConf.Relay.Chip, appConf.Relay.Pin)
	if err != nil {
		// bench runs pair the simulated sensor with a recording fake;
		// a real deployment must not start without its relay
		if appConf.Sensor.Backend != "sim" {
			log.Fatal("init relay: %v", err)
		}
		log.Warn("relay unavailable (%v); using a no-op relay for simulation", err)
		heaterRelay = relay.NewFake()
	}

	logDir := appConf.Logs.Dir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(rootdir, logDir)
	}
	store, err := logs.NewStore(logDir)
	if err != nil {
		log.Fatal("init reading logs: %v", err)
	}

	controllerState := state.New()

	// init services
	server := rootserv.New(appConf.Web.Addr)
	sysMonitorService := sysmon.New(logDir)
	weatherService := weather.New(appConf)
	webService := web.New(appConf, controllerState, store, weatherService)
	controllerService := controller.New(appConf, controllerState,
		sensorSource, heaterRelay, weatherService, store)

	// attach web handler enabled services
	server.Attach("/logger", "Logger", logger.WebService())
	server.Attach("/monitor", "System Monitor", sysMonitorService)
	server.Attach("/", "Dew Heater Dashboard", webService)

	// start runnable services
	exitCh := service.Start(ctx, ctxCancel, []service.Runnable{
		weatherService,
		controllerService,
		webService,
		server,
	})

	// waits for all services to stop
	code := <-exitCh
	logger.Close()
	os.Exit(code)
}
