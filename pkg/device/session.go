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

// Package device holds the session that owns the instruments of one
// setup and serializes every call to them.
package device

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"jinr.ru/greenlab/go-odmr/pkg/device/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
)

const (
	DeviceASG     = "asg"
	DeviceMW      = "mw"
	DeviceCounter = "counter"
	DeviceLaser   = "laser"

	DefaultTimeout = 10 * time.Second
)

// Instruments of one setup. Laser is optional; a laser driven only by
// its ASG channel needs no driver.
type Instruments struct {
	ASG     ifc.PulseGenerator
	MW      ifc.Microwave
	Counter ifc.Counter
	Laser   ifc.Laser
}

type Options struct {
	// Timeout bounds every single instrument call.
	Timeout time.Duration
	Limits  sequence.Limits
}

func DefaultOptions() Options {
	return Options{
		Timeout: DefaultTimeout,
		Limits:  sequence.DefaultLimits(),
	}
}

// Session is the single owner of a set of instruments. Each instrument
// has at most one call in flight; a call that outlives the timeout
// keeps its instrument busy until it returns.
type Session struct {
	inst   Instruments
	opts   Options
	guards map[string]chan struct{}
	loaded *sequence.Set
	closed bool
}

// NewSession ...
func NewSession(inst Instruments, opts Options) (*Session, error) {
	if inst.ASG == nil {
		return nil, ErrMissingInstrument{Device: DeviceASG}
	}
	if inst.MW == nil {
		return nil, ErrMissingInstrument{Device: DeviceMW}
	}
	if inst.Counter == nil {
		return nil, ErrMissingInstrument{Device: DeviceCounter}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Limits == (sequence.Limits{}) {
		opts.Limits = sequence.DefaultLimits()
	}
	s := &Session{
		inst:   inst,
		opts:   opts,
		guards: map[string]chan struct{}{},
	}
	for _, name := range []string{DeviceASG, DeviceMW, DeviceCounter, DeviceLaser} {
		s.guards[name] = make(chan struct{}, 1)
	}
	return s, nil
}

// call runs fn against one instrument with the session timeout.
func (s *Session) call(ctx context.Context, device, op string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug("%s: %s", device, op)
	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	guard := s.guards[device]
	select {
	case guard <- struct{}{}:
	case <-cctx.Done():
		return s.doneErr(ctx, device, op)
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-guard }()
		done <- fn(cctx)
	}()

	select {
	case err := <-done:
		if err != nil && cctx.Err() != nil {
			return s.doneErr(ctx, device, op)
		}
		return classify(device, op, err)
	case <-cctx.Done():
		return s.doneErr(ctx, device, op)
	}
}

func (s *Session) doneErr(ctx context.Context, device, op string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Error("%s: %s timed out after %s", device, op, s.opts.Timeout)
	return ErrDeviceTimeout{Device: device, Op: op, Timeout: s.opts.Timeout}
}

// classify keeps typed errors and wraps everything else as a
// connection error of the device.
func classify(device, op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		inv  sequence.ErrInvalidSequence
		conn ErrDeviceConnection
		tout ErrDeviceTimeout
	)
	if errors.As(err, &inv) || errors.As(err, &conn) || errors.As(err, &tout) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return ErrDeviceConnection{Device: device, Op: op, Err: err}
}

// Connect opens every instrument.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.call(ctx, DeviceASG, "connect", s.inst.ASG.Connect); err != nil {
		return err
	}
	if err := s.call(ctx, DeviceMW, "connect", s.inst.MW.Connect); err != nil {
		return err
	}
	if err := s.call(ctx, DeviceCounter, "connect", s.inst.Counter.Connect); err != nil {
		return err
	}
	if s.inst.Laser != nil {
		if err := s.call(ctx, DeviceLaser, "connect", s.inst.Laser.Connect); err != nil {
			return err
		}
	}
	return nil
}

// Prepare normalizes the set, repeats channels of different periods up
// to their common period and checks the result against the limits of
// the pulse generator. No I/O is done.
func (s *Session) Prepare(set *sequence.Set) (*sequence.Set, error) {
	n, err := set.Normalized().Expanded()
	if err != nil {
		return nil, err
	}
	if _, err := n.Period(); err != nil {
		return nil, err
	}
	if err := n.Validate(s.opts.Limits); err != nil {
		return nil, err
	}
	return n, nil
}

// LoadSequence validates the set and downloads it to the pulse
// generator. An illegal set never reaches the device.
func (s *Session) LoadSequence(ctx context.Context, set *sequence.Set) error {
	n, err := s.Prepare(set)
	if err != nil {
		log.Error("Rejected sequence: %s", err)
		return err
	}
	lists := n.Lists()
	if err := s.call(ctx, DeviceASG, "load", func(ctx context.Context) error {
		return s.inst.ASG.Load(ctx, lists)
	}); err != nil {
		return err
	}
	s.loaded = n
	return nil
}

// Loaded returns a copy of the set on the pulse generator, or nil.
func (s *Session) Loaded() *sequence.Set {
	if s.loaded == nil {
		return nil
	}
	return s.loaded.Clone()
}

// Start plays the loaded sequence count times and starts counting.
func (s *Session) Start(ctx context.Context, count int) error {
	if s.loaded == nil {
		return ErrNoSequence{}
	}
	if err := s.call(ctx, DeviceASG, "start", func(ctx context.Context) error {
		return s.inst.ASG.Start(ctx, count)
	}); err != nil {
		return err
	}
	return s.call(ctx, DeviceCounter, "start", s.inst.Counter.Start)
}

// Stop halts counter, pulse generator and MW output. Every instrument
// is asked to stop even if another one fails.
func (s *Session) Stop(ctx context.Context) error {
	var err error
	err = multierr.Append(err, s.call(ctx, DeviceCounter, "stop", s.inst.Counter.Stop))
	err = multierr.Append(err, s.call(ctx, DeviceASG, "stop", s.inst.ASG.Stop))
	err = multierr.Append(err, s.SetOutput(ctx, false))
	return err
}

// Close releases every instrument once. Later calls return nil.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	ctx := context.Background()
	closer := func(c interface{ Close() error }) func(context.Context) error {
		return func(context.Context) error { return c.Close() }
	}
	var err error
	err = multierr.Append(err, s.call(ctx, DeviceCounter, "close", closer(s.inst.Counter)))
	err = multierr.Append(err, s.call(ctx, DeviceASG, "close", closer(s.inst.ASG)))
	err = multierr.Append(err, s.call(ctx, DeviceMW, "close", closer(s.inst.MW)))
	if s.inst.Laser != nil {
		err = multierr.Append(err, s.call(ctx, DeviceLaser, "close", closer(s.inst.Laser)))
	}
	return err
}

// ConfigureCounter ...
func (s *Session) ConfigureCounter(ctx context.Context, setup ifc.CounterSetup) error {
	return s.call(ctx, DeviceCounter, "configure", func(ctx context.Context) error {
		return s.inst.Counter.Configure(ctx, setup)
	})
}

// Clear resets the counter buffer.
func (s *Session) Clear(ctx context.Context) error {
	return s.call(ctx, DeviceCounter, "clear", s.inst.Counter.Clear)
}

// ReadCounts ...
func (s *Session) ReadCounts(ctx context.Context) ([]float64, error) {
	var counts []float64
	err := s.call(ctx, DeviceCounter, "read", func(ctx context.Context) error {
		c, err := s.inst.Counter.ReadCounts(ctx)
		counts = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// SetFrequency in Hz.
func (s *Session) SetFrequency(ctx context.Context, hz float64) error {
	return s.call(ctx, DeviceMW, "set frequency", func(ctx context.Context) error {
		return s.inst.MW.SetFrequency(ctx, hz)
	})
}

// SetPower in dBm.
func (s *Session) SetPower(ctx context.Context, dbm float64) error {
	return s.call(ctx, DeviceMW, "set power", func(ctx context.Context) error {
		return s.inst.MW.SetPower(ctx, dbm)
	})
}

// SetOutput switches the MW output.
func (s *Session) SetOutput(ctx context.Context, on bool) error {
	return s.call(ctx, DeviceMW, "set output", func(ctx context.Context) error {
		return s.inst.MW.SetOutput(ctx, on)
	})
}

// SetLaser switches the laser driver, if there is one.
func (s *Session) SetLaser(ctx context.Context, on bool) error {
	if s.inst.Laser == nil {
		return ErrMissingInstrument{Device: DeviceLaser}
	}
	return s.call(ctx, DeviceLaser, "set output", func(ctx context.Context) error {
		return s.inst.Laser.SetOutput(ctx, on)
	})
}
