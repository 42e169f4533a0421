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

package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-odmr/pkg/device/scpi"
	"jinr.ru/greenlab/go-odmr/pkg/device/sim"
	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/scheduler"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

type ErrConfigFileExists struct {
	Path string
}

func (e ErrConfigFileExists) Error() string {
	return fmt.Sprintf("Config file already exists: %s", e.Path)
}

type ChannelsConfig struct {
	Roles     sequence.ChannelMap `json:"roles"`
	LowActive []sequence.Role     `json:"low_active,omitempty"`
}

func (c *ChannelsConfig) Layout() waveform.Layout {
	l := waveform.Layout{
		Channels:  sequence.ChannelMap{},
		LowActive: map[sequence.Role]bool{},
	}
	for r, ch := range c.Roles {
		l.Channels[r] = ch
	}
	for _, r := range c.LowActive {
		l.LowActive[r] = true
	}
	return l
}

type SchedulerConfig struct {
	WithRef     bool    `json:"with_ref"`
	EpochOmit   int     `json:"epoch_omit"`
	MWOnOff     bool    `json:"mw_on_off"`
	UseLockIn   bool    `json:"use_lockin"`
	PadRatio    float64 `json:"pad_ratio"`
	SignalIndex string  `json:"signal_index"`
	Power       float64 `json:"power"`
	Frequency   float64 `json:"frequency"`
	OutputDir   string  `json:"output_dir"`
}

type DeviceConfig struct {
	// Simulate replaces every instrument by the simulated bench.
	Simulate bool            `json:"simulate"`
	Timeout  time.Duration   `json:"timeout"`
	Limits   sequence.Limits `json:"limits"`
	// Microwave selects the MW driver when not simulating.
	Microwave string       `json:"microwave"`
	SCPI      *scpi.Config `json:"scpi,omitempty"`
	Model     *sim.Model   `json:"model,omitempty"`
	Seed      int64        `json:"seed"`
}

type ApiConfig struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

func (c *ApiConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}

type Config struct {
	Channels  *ChannelsConfig  `json:"channels"`
	Scheduler *SchedulerConfig `json:"scheduler"`
	Device    *DeviceConfig    `json:"device"`
	Api       *ApiConfig       `json:"api"`
	DBPath    string           `json:"db_path"`
	LogLevel  string           `json:"log_level"`
	filepath  string
}

// SchedulerOptions converts the scheduler section.
func (c *Config) SchedulerOptions() (scheduler.Options, error) {
	conv, err := result.ParseIndexConvention(c.Scheduler.SignalIndex)
	if err != nil {
		return scheduler.Options{}, err
	}
	return scheduler.Options{
		Layout:    c.Channels.Layout(),
		EpochOmit: c.Scheduler.EpochOmit,
		MWOnOff:   c.Scheduler.MWOnOff,
		PadRatio:  c.Scheduler.PadRatio,
		Signal:    conv,
		Power:     c.Scheduler.Power,
		Frequency: c.Scheduler.Frequency,
	}, nil
}

// Validate checks what can be checked without touching a device.
func (c *Config) Validate() error {
	if err := c.Channels.Roles.Validate(); err != nil {
		return errors.Wrap(err, "channels")
	}
	if _, err := result.ParseIndexConvention(c.Scheduler.SignalIndex); err != nil {
		return errors.Wrap(err, "scheduler")
	}
	if c.Scheduler.EpochOmit < 0 {
		return errors.Errorf("scheduler: epoch_omit must not be negative: %d", c.Scheduler.EpochOmit)
	}
	if !c.Device.Simulate && c.Device.Microwave != MicrowaveSim && c.Device.Microwave != MicrowaveSCPI {
		return errors.Errorf("device: unknown microwave driver: %s", c.Device.Microwave)
	}
	return nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the file over the current values, so that missing keys
// keep their defaults.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir)
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), ConfigFile)
}

func NewDefaultConfig() *Config {
	model := sim.DefaultModel()
	return &Config{
		Channels: &ChannelsConfig{
			Roles: sequence.DefaultChannelMap(),
		},
		Scheduler: &SchedulerConfig{
			WithRef:     true,
			PadRatio:    scheduler.DefaultPadRatio,
			SignalIndex: string(result.SignalEven),
			Frequency:   2.87e9,
			OutputDir:   filepath.Join(DefaultConfigDir(), OutputDir),
		},
		Device: &DeviceConfig{
			Simulate:  true,
			Timeout:   DefaultDeviceTimeout,
			Limits:    sequence.DefaultLimits(),
			Microwave: MicrowaveSCPI,
			SCPI:      scpi.NewDefaultConfig(),
			Model:     &model,
			Seed:      1,
		},
		Api: &ApiConfig{
			IP:   DefaultApiIP,
			Port: DefaultApiPort,
		},
		DBPath:   filepath.Join(DefaultConfigDir(), DBFile),
		LogLevel: DefaultLogLevel,
		filepath: DefaultConfigPath(),
	}
}
