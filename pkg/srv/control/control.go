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

package control

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/device"
	"jinr.ru/greenlab/go-odmr/pkg/device/scpi"
	"jinr.ru/greenlab/go-odmr/pkg/device/sim"
	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/scheduler"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/srv"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/store"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

const closeTimeout = 30 * time.Second

type ControlServer struct {
	context.Context
	*config.Config
	sched     *scheduler.Scheduler
	state     *store.State
	api       ifc.ApiServer
	simulated bool

	mu      sync.Mutex
	sweep   string
	lastRun *store.Run
	wg      sync.WaitGroup
}

var _ ifc.ControlServer = &ControlServer{}

// NewInstruments builds the instruments the config asks for. Pulse
// generator and counter always come from the simulated bench; only the
// microwave source has a hardware driver.
func NewInstruments(cfg *config.Config) (device.Instruments, bool) {
	model := sim.DefaultModel()
	if cfg.Device.Model != nil {
		model = *cfg.Device.Model
	}
	bench := sim.NewBench(model, cfg.Channels.Roles, cfg.Device.Seed)
	inst := device.Instruments{
		ASG:     bench.ASG(),
		MW:      bench.MW(),
		Counter: bench.Counter(),
		Laser:   bench.Laser(),
	}
	if cfg.Device.Simulate || cfg.Device.Microwave == config.MicrowaveSim {
		return inst, true
	}
	scpiCfg := scpi.NewDefaultConfig()
	if cfg.Device.SCPI != nil {
		scpiCfg = cfg.Device.SCPI
	}
	inst.MW = scpi.NewMicrowave(*scpiCfg, scpi.SerialOpener)
	return inst, false
}

// NewControlServer ...
func NewControlServer(ctx context.Context, cfg *config.Config) (ifc.ControlServer, error) {
	state, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	inst, simulated := NewInstruments(cfg)
	s, err := NewControlServerWith(ctx, cfg, inst, state)
	if err != nil {
		state.Close()
		return nil, err
	}
	s.simulated = simulated
	return s, nil
}

// NewControlServerWith connects the given instruments and restores the
// stored π pulse calibration.
func NewControlServerWith(ctx context.Context, cfg *config.Config, inst device.Instruments, state *store.State) (*ControlServer, error) {
	log.Info("Initializing control server: api %s", cfg.Api.Address())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := cfg.SchedulerOptions()
	if err != nil {
		return nil, err
	}
	session, err := device.NewSession(inst, device.Options{
		Timeout: cfg.Device.Timeout,
		Limits:  cfg.Device.Limits,
	})
	if err != nil {
		return nil, err
	}
	// instruments opened so far are released on any failure below
	release := func(err error) error {
		return multierr.Append(err, session.Close())
	}
	if err := session.Connect(ctx); err != nil {
		return nil, release(err)
	}

	s := &ControlServer{
		Context:   ctx,
		Config:    cfg,
		sched:     scheduler.New(session, opts),
		state:     state,
		simulated: true,
	}
	pi, ok, err := state.GetPiPulse()
	if err != nil {
		return nil, release(err)
	}
	if ok {
		log.Info("Restored %s", pi)
		if err := s.sched.SetPiPulse(ctx, pi); err != nil {
			return nil, release(err)
		}
	}
	s.api = NewApiServer(ctx, cfg, s)
	return s, nil
}

func (s *ControlServer) Run() error {
	return s.api.Run()
}

// Close stops a running sweep and releases devices and database.
func (s *ControlServer) Close() error {
	// the server context may be done already
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	var err error
	err = multierr.Append(err, s.sched.Stop(ctx))
	s.wg.Wait()
	err = multierr.Append(err, s.sched.Close(ctx))
	err = multierr.Append(err, s.state.Close())
	return err
}

func (s *ControlServer) Configure(ctx context.Context, kind waveform.Kind, p waveform.Params) error {
	if kind == waveform.KindCW && s.Config.Scheduler.UseLockIn {
		p.LockIn = true
	}
	return s.sched.Configure(ctx, kind, p)
}

// StartSweep launches a sweep in the background. The result is
// persisted and indexed when it ends, also when it fails.
func (s *ControlServer) StartSweep(req ifc.SweepRequest) (*ifc.SweepStarted, error) {
	axis, err := req.Axis.Values()
	if err != nil {
		return nil, err
	}
	withRef := s.Config.Scheduler.WithRef
	if req.WithRef != nil {
		withRef = *req.WithRef
	}
	estimate, err := s.sched.Estimate(axis, withRef)
	if err != nil {
		return nil, err
	}
	status := s.sched.Status()
	name := req.Name
	if name == "" {
		name = string(status.Kind)
	}

	s.mu.Lock()
	if s.sweep != "" {
		running := s.sweep
		s.mu.Unlock()
		return nil, srv.ErrSweepRunning{Name: running}
	}
	s.sweep = name
	s.mu.Unlock()

	log.Info("Starting sweep %s: %d points, about %s", name, len(axis), estimate)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		acq, err := s.sched.RunSweep(s.Context, axis, withRef)
		s.finish(name, status, acq, err)
	}()
	return &ifc.SweepStarted{Name: name, Points: len(axis), Estimate: estimate.Seconds()}, nil
}

func (s *ControlServer) finish(name string, status scheduler.Status, acq *result.Acquisition, runErr error) {
	defer func() {
		s.mu.Lock()
		s.sweep = ""
		s.mu.Unlock()
	}()
	if runErr != nil {
		log.Error("Sweep %s failed after %d points: %s", name, acq.Points(), runErr)
	} else {
		log.Info("Sweep %s complete: %d points", name, acq.Points())
	}

	opts := result.RecordOptions{
		Name:       name,
		Kind:       string(status.Kind),
		Convention: s.sched.Options().Signal,
		Err:        runErr,
	}
	if st := s.sched.Strategy(); st != nil {
		opts.AxisName = st.SweepParam()
	}
	if status.Params != nil {
		opts.Dual = status.Params.DualReadout
		opts.Params = status.Params
	}
	rec, err := result.NewRecord(acq, opts)
	if err != nil {
		log.Error("Sweep %s: %s", name, err)
		return
	}
	var base string
	if acq.Points() > 0 {
		base, err = result.Persist(s.Config.Scheduler.OutputDir, rec)
		if err != nil {
			log.Error("Sweep %s: %s", name, err)
		} else {
			log.Info("Sweep %s saved to %s", name, base)
		}
	}
	run := store.RunOf(rec, base)
	if err := s.state.PutRun(run); err != nil {
		log.Error("Sweep %s: %s", name, err)
	}
	s.mu.Lock()
	s.lastRun = &run
	s.mu.Unlock()
}

func (s *ControlServer) StopSweep(ctx context.Context) error {
	return s.sched.Stop(ctx)
}

func (s *ControlServer) RunPoint(ctx context.Context, value, power float64) ([]float64, error) {
	s.mu.Lock()
	running := s.sweep
	s.mu.Unlock()
	if running != "" {
		return nil, srv.ErrSweepRunning{Name: running}
	}
	return s.sched.RunSinglePoint(ctx, value, power)
}

func (s *ControlServer) State() ifc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ifc.State{
		Status:    s.sched.Status(),
		Sweep:     s.sweep,
		LastRun:   s.lastRun,
		Simulated: s.simulated,
	}
}

func (s *ControlServer) Sequence() (*sequence.Set, error) {
	set := s.sched.Sequence()
	if set == nil {
		return nil, device.ErrNoSequence{}
	}
	return set, nil
}

func (s *ControlServer) SetFrequency(ctx context.Context, hz float64) error {
	return s.sched.SetFrequency(ctx, hz)
}

// SetPower also stores the π pulse regulated to the new power.
func (s *ControlServer) SetPower(ctx context.Context, dbm float64) error {
	if err := s.sched.SetPower(ctx, dbm); err != nil {
		return err
	}
	if pi := s.sched.PiPulse(); !pi.IsZero() {
		return s.state.PutPiPulse(pi)
	}
	return nil
}

func (s *ControlServer) SetChannel(ctx context.Context, role sequence.Role, on bool) error {
	return s.sched.SetChannel(ctx, role, on)
}

func (s *ControlServer) PiPulse() waveform.PiPulse {
	return s.sched.PiPulse()
}

func (s *ControlServer) SetPiPulse(ctx context.Context, pi waveform.PiPulse) error {
	if err := s.sched.SetPiPulse(ctx, pi); err != nil {
		return err
	}
	return s.state.PutPiPulse(pi)
}

func (s *ControlServer) RegulatePi(ctx context.Context, duration float64) (waveform.PiPulse, error) {
	pi, err := s.sched.RegulatePi(ctx, duration)
	if err != nil {
		return pi, err
	}
	return pi, s.state.PutPiPulse(pi)
}

func (s *ControlServer) Runs() ([]store.Run, error) {
	return s.state.ListRuns()
}

func (s *ControlServer) GetRun(id string) (*store.Run, error) {
	return s.state.GetRun(id)
}
