/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package scpi drives a microwave source with SCPI commands over a
// serial line, either directly or through a Prologix GPIB-USB
// controller.
package scpi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"jinr.ru/greenlab/go-odmr/pkg/device/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/log"
)

const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 2 * time.Second
	DefaultGPIBAddr    = 19
)

type Config struct {
	Port        string        `json:"port"`
	BaudRate    int           `json:"baud_rate"`
	Prologix    bool          `json:"prologix"`
	GPIBAddr    int           `json:"gpib_addr"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Port:        "/dev/ttyUSB0",
		BaudRate:    DefaultBaudRate,
		Prologix:    true,
		GPIBAddr:    DefaultGPIBAddr,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Opener opens the byte stream to the source.
type Opener func(cfg Config) (io.ReadWriteCloser, error)

// SerialOpener opens a serial port.
func SerialOpener(cfg Config) (io.ReadWriteCloser, error) {
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, err
	}
	if err = port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, err
	}
	if err = port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Microwave is a SCPI microwave source.
type Microwave struct {
	cfg      Config
	open     Opener
	commands CommandMap

	mu sync.Mutex
	rw io.ReadWriteCloser
	r  *bufio.Reader
	id string
}

var _ ifc.Microwave = &Microwave{}

// NewMicrowave ...
func NewMicrowave(cfg Config, open Opener) *Microwave {
	if open == nil {
		open = SerialOpener
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &Microwave{
		cfg:      cfg,
		open:     open,
		commands: DefaultCommandMap(),
	}
}

// WithCommands overrides entries of the command map.
func (m *Microwave) WithCommands(cmds CommandMap) *Microwave {
	for k, v := range cmds {
		m.commands[k] = v
	}
	return m
}

// ID is the identification string read on connect.
func (m *Microwave) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *Microwave) controller(format string, a ...interface{}) error {
	_, err := fmt.Fprintf(m.rw, "++%s\n", fmt.Sprintf(format, a...))
	return err
}

func (m *Microwave) write(cmd string) error {
	if m.rw == nil {
		return errors.New("not connected")
	}
	log.Debug("scpi: >> %s", cmd)
	_, err := fmt.Fprintf(m.rw, "%s\n", strings.TrimSpace(cmd))
	return err
}

func (m *Microwave) query(cmd string) (string, error) {
	if err := m.write(cmd); err != nil {
		return "", err
	}
	if m.cfg.Prologix {
		if err := m.controller(prologixRead); err != nil {
			return "", err
		}
	}
	line, err := m.r.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", errors.Wrapf(err, "reading reply to %q", cmd)
	}
	line = strings.TrimSpace(line)
	log.Debug("scpi: << %s", line)
	return line, nil
}

// Connect opens the port, sets up the Prologix controller if there
// is one and identifies the source.
func (m *Microwave) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rw != nil {
		return nil
	}
	rw, err := m.open(m.cfg)
	if err != nil {
		return errors.Wrapf(err, "opening %s", m.cfg.Port)
	}
	m.rw = rw
	m.r = bufio.NewReader(rw)

	if m.cfg.Prologix {
		for _, cmd := range []string{
			prologixMode,
			fmt.Sprintf(prologixAddr, m.cfg.GPIBAddr),
			prologixAuto,
			prologixEOI,
			prologixEOS,
			fmt.Sprintf(prologixTimeout, m.cfg.ReadTimeout.Milliseconds()),
			prologixEOT,
		} {
			if err = m.controller("%s", cmd); err != nil {
				m.drop()
				return err
			}
		}
	}
	if err = m.write(m.commands[CmdClear]); err != nil {
		m.drop()
		return err
	}
	id, err := m.query(m.commands[CmdIdentify])
	if err != nil {
		m.drop()
		return err
	}
	m.id = id
	log.Info("Connected to microwave source: %s", id)
	return nil
}

func (m *Microwave) drop() {
	if m.rw != nil {
		m.rw.Close()
	}
	m.rw = nil
	m.r = nil
}

// SetFrequency ...
func (m *Microwave) SetFrequency(ctx context.Context, hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("frequency must be positive: %g Hz", hz)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(fmt.Sprintf(m.commands[CmdFrequency], hz))
}

// SetPower ...
func (m *Microwave) SetPower(ctx context.Context, dbm float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(fmt.Sprintf(m.commands[CmdPower], dbm))
}

// SetOutput ...
func (m *Microwave) SetOutput(ctx context.Context, on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(fmt.Sprintf(m.commands[CmdOutput], state))
}

// Close returns the source to local control and closes the port.
func (m *Microwave) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rw == nil {
		return nil
	}
	var err error
	err = multierr.Append(err, m.write(m.commands[CmdLocal]))
	if m.cfg.Prologix {
		err = multierr.Append(err, m.controller(prologixLocal))
	}
	err = multierr.Append(err, m.rw.Close())
	m.rw = nil
	m.r = nil
	return err
}
