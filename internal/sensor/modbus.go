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

package sensor

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"dewctl/internal/config"
	"dewctl/pkg/logger"

	"github.com/grid-x/modbus"
)

// SHT20-class transducer register map (XY-MD02 and clones): two input
// registers holding temperature and humidity as value*10.
const (
	regTemperature uint16 = 0x0001
	regHumidity    uint16 = 0x0002
)

// Modbus reads an RS485 temperature/humidity transducer through a Modbus
// TCP gateway.
type Modbus struct {
	mu      sync.Mutex
	conf    config.ModbusSensorConfig
	handler *modbus.TCPClientHandler
	client  modbus.Client
	log     *logger.Logger
}

// NewModbus connects to the gateway. Connection errors are returned rather
// than retried here; the caller decides whether a missing sensor is fatal.
func NewModbus(ctx context.Context, conf config.ModbusSensorConfig) (*Modbus, error) {
	m := &Modbus{
		conf: conf,
		log:  logger.New("Sensor"),
	}
	if err := m.connect(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Modbus) connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handler != nil {
		_ = m.handler.Close()
	}

	handler := modbus.NewTCPClientHandler(m.conf.Addr)
	handler.SlaveID = m.conf.SlaveID
	handler.Timeout = time.Duration(m.conf.TimeoutSeconds) * time.Second
	handler.ProtocolRecoveryTimeout = 250 * time.Millisecond
	handler.LinkRecoveryTimeout = 5 * time.Second

	m.log.Info("Connecting to %s...", m.conf.Addr)
	if err := handler.Connect(ctx); err != nil {
		return fmt.Errorf("modbus connect %s: %w", m.conf.Addr, err)
	}

	m.handler = handler
	m.client = modbus.NewClient(handler)
	m.log.Info("Connected to %s", m.conf.Addr)
	return nil
}

// Read fetches both registers in one request. Any transport or framing
// error is reported to the caller, which skips the cycle.
func (m *Modbus) Read(ctx context.Context) (Sample, error) {
	m.mu.Lock()
	raw, err := m.client.ReadInputRegisters(ctx, regTemperature, 2)
	m.mu.Unlock()

	if err != nil {
		// one reconnect attempt, next poll retries the read
		if cerr := m.connect(ctx); cerr != nil {
			m.log.Debug("reconnect failed: %v", cerr)
		}
		return Sample{}, fmt.Errorf("modbus read: %w", err)
	}
	if len(raw) < 4 {
		return Sample{}, fmt.Errorf("modbus read: short response (%d bytes)", len(raw))
	}

	// temperature is signed (sub-zero nights), humidity unsigned
	tempRaw := int16(binary.BigEndian.Uint16(raw[0:2]))
	humRaw := binary.BigEndian.Uint16(raw[2:4])

	sample := Sample{
		TemperatureC: float64(tempRaw) / 10.0,
		HumidityPct:  float64(humRaw) / 10.0,
	}
	if sample.HumidityPct < 0 || sample.HumidityPct > 100 {
		return Sample{}, fmt.Errorf("modbus read: humidity %.1f%% out of range", sample.HumidityPct)
	}
	return sample, nil
}

// Close closes the gateway connection.
func (m *Modbus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler != nil {
		return m.handler.Close()
	}
	return nil
}
