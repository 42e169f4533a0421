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

// Package scheduler drives an ODMR measurement: it builds and loads
// the sequence of one experiment kind, then runs single points or
// sweeps and collects the raw counts.
package scheduler

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"jinr.ru/greenlab/go-odmr/pkg/device"
	"jinr.ru/greenlab/go-odmr/pkg/device/ifc"
	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

// stopTimeout bounds the stop issued after a failed run, when the
// caller's context may already be done.
const stopTimeout = 5 * time.Second

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Options struct {
	Layout waveform.Layout `json:"layout"`
	// EpochOmit is the number of throwaway acquisitions at the first
	// point of a sweep.
	EpochOmit int `json:"epoch_omit"`
	// MWOnOff takes the reference with the MW output switched off
	// instead of loading a sequence with the MW channel inactive.
	MWOnOff  bool                   `json:"mw_on_off"`
	PadRatio float64                `json:"pad_ratio"`
	Signal   result.IndexConvention `json:"signal_index"`
	// Power is the MW power in dBm set before every run.
	Power float64 `json:"power"`
	// Frequency is the MW frequency used by time-domain kinds.
	Frequency float64 `json:"frequency"`
}

func DefaultOptions() Options {
	return Options{
		Layout:    waveform.DefaultLayout(),
		PadRatio:  DefaultPadRatio,
		Signal:    result.SignalEven,
		Frequency: 2.87e9,
	}
}

// Status is a snapshot for clients.
type Status struct {
	State     State            `json:"state"`
	Kind      waveform.Kind    `json:"kind,omitempty"`
	Params    *waveform.Params `json:"params,omitempty"`
	Timing    TimingConfig     `json:"timing"`
	Point     int              `json:"point"`
	Points    int              `json:"points"`
	Power     float64          `json:"power"`
	Frequency float64          `json:"frequency"`
	PiPulse   waveform.PiPulse `json:"pipulse"`
}

// Scheduler owns a device session. Runs are serialized; Stop and
// Status may be called from other goroutines while a run is going.
type Scheduler struct {
	session *device.Session
	opts    Options
	sleep   SleepFunc

	mu       sync.Mutex
	state    State
	strategy waveform.Strategy
	params   waveform.Params
	// autoPi means TPi follows the π pulse calibration.
	autoPi bool
	set    *sequence.Set
	timing TimingConfig
	pi     waveform.PiPulse
	power  float64
	freq   float64
	point  int
	points int
	cancel context.CancelFunc
	done   chan struct{}
}

func New(session *device.Session, opts Options) *Scheduler {
	if opts.PadRatio == 0 {
		opts.PadRatio = DefaultPadRatio
	}
	if opts.Signal == "" {
		opts.Signal = result.SignalEven
	}
	if opts.Layout.Channels == nil {
		opts.Layout = waveform.DefaultLayout()
	}
	return &Scheduler{
		session: session,
		opts:    opts,
		sleep:   sleepContext,
		power:   opts.Power,
		freq:    opts.Frequency,
	}
}

// WithSleep replaces the wait between start and readout.
func (s *Scheduler) WithSleep(fn SleepFunc) *Scheduler {
	s.sleep = fn
	return s
}

func (s *Scheduler) Options() Options {
	return s.opts
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:     s.state,
		Timing:    s.timing,
		Point:     s.point,
		Points:    s.points,
		Power:     s.power,
		Frequency: s.freq,
		PiPulse:   s.pi,
	}
	if s.strategy != nil {
		st.Kind = s.strategy.Kind()
		p := s.effective()
		st.Params = &p
	}
	return st
}

// Sequence returns a copy of the current sequence, or nil.
func (s *Scheduler) Sequence() *sequence.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		return nil
	}
	return s.set.Clone()
}

func (s *Scheduler) Strategy() waveform.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

func (s *Scheduler) Timing() TimingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

// effective returns the params with the calibrated π duration applied.
func (s *Scheduler) effective() waveform.Params {
	p := s.params
	if s.autoPi && !s.pi.IsZero() {
		p.TPi = s.pi.Nanoseconds()
	}
	return p
}

// idle takes the lock for a short non-run operation.
func (s *Scheduler) idle(op string) error {
	switch s.state {
	case Closed:
		return ErrAlreadyClosed{}
	case Running:
		return ErrInvalidState{From: Running, Op: op}
	}
	return nil
}

func counterSetup(st waveform.Strategy, p waveform.Params, period int64) ifc.CounterSetup {
	n := p.N
	if p.DualReadout {
		n *= 2
	}
	return ifc.CounterSetup{
		BinWidth: period,
		NValues:  n,
		Gated:    st.Kind() != waveform.KindCW,
		LockIn:   p.LockIn,
	}
}

// Configure builds the sequence of an experiment kind, checks it and
// downloads it. Bad params fail before any device I/O.
func (s *Scheduler) Configure(ctx context.Context, kind waveform.Kind, p waveform.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle("configure"); err != nil {
		return err
	}

	st, err := waveform.New(kind)
	if err != nil {
		return err
	}
	autoPi := st.NeedsPi() && p.TPi == 0 && !s.pi.IsZero()
	eff := p
	if autoPi {
		eff.TPi = s.pi.Nanoseconds()
	}
	set, err := waveform.Build(st, eff, s.opts.Layout)
	if err != nil {
		log.Error("Configure %s: %s", kind, err)
		return err
	}
	timing, err := s.load(ctx, set, eff.N)
	if err != nil {
		s.state = Idle
		return err
	}
	if err := s.session.ConfigureCounter(ctx, counterSetup(st, eff, timing.Period)); err != nil {
		s.state = Idle
		return err
	}

	s.strategy = st
	s.params = p
	s.autoPi = autoPi
	s.set = set
	s.timing = timing
	s.state = Configured
	log.Info("Configured %s: period %d ns, N %d, %.3f s per point", kind, timing.Period, timing.N, timing.PointDuration().Seconds())
	return nil
}

// load validates and downloads the set and returns its timing.
func (s *Scheduler) load(ctx context.Context, set *sequence.Set, n int) (TimingConfig, error) {
	prepared, err := s.session.Prepare(set)
	if err != nil {
		log.Error("Rejected sequence: %s", err)
		return TimingConfig{}, err
	}
	period, err := prepared.Period()
	if err != nil {
		return TimingConfig{}, err
	}
	if err := s.session.LoadSequence(ctx, set); err != nil {
		return TimingConfig{}, err
	}
	return NewTimingConfig(period, n, s.opts.PadRatio), nil
}

// SetChannel keeps one role active or inactive for the whole period,
// e.g. to switch the laser on for alignment.
func (s *Scheduler) SetChannel(ctx context.Context, r sequence.Role, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle("set channel"); err != nil {
		return err
	}
	if s.set == nil {
		return device.ErrNoSequence{}
	}
	set := s.set.Clone()
	train := s.opts.Layout.Inactive(r, s.timing.Period)
	if on {
		train = s.opts.Layout.Active(r, s.timing.Period)
	}
	if err := set.Put(r, train); err != nil {
		return err
	}
	if _, err := s.load(ctx, set, s.timing.N); err != nil {
		return err
	}
	s.set = set
	return nil
}

// SetFrequency sets the MW frequency used by time-domain kinds.
func (s *Scheduler) SetFrequency(ctx context.Context, hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle("set frequency"); err != nil {
		return err
	}
	if err := s.session.SetFrequency(ctx, hz); err != nil {
		return err
	}
	s.freq = hz
	return nil
}

// SetPower sets the MW power. A calibrated π pulse is rescaled to the
// new power and, if the sequence uses it, the sequence is rebuilt.
func (s *Scheduler) SetPower(ctx context.Context, dbm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle("set power"); err != nil {
		return err
	}
	return s.setPower(ctx, dbm)
}

func (s *Scheduler) setPower(ctx context.Context, dbm float64) error {
	if err := s.session.SetPower(ctx, dbm); err != nil {
		return err
	}
	s.power = dbm
	if s.pi.IsZero() || s.pi.Power == dbm {
		return nil
	}
	pi, err := s.pi.AtPower(dbm)
	if err != nil {
		return err
	}
	log.Info("Regulated %s", pi)
	s.pi = pi
	return s.rebuild(ctx)
}

// rebuild reloads the sequence after a π pulse change.
func (s *Scheduler) rebuild(ctx context.Context) error {
	if !s.autoPi || s.strategy == nil {
		return nil
	}
	set, err := waveform.Build(s.strategy, s.effective(), s.opts.Layout)
	if err != nil {
		return err
	}
	timing, err := s.load(ctx, set, s.params.N)
	if err != nil {
		return err
	}
	s.set = set
	s.timing = timing
	return s.session.ConfigureCounter(ctx, counterSetup(s.strategy, s.params, timing.Period))
}

// SetPiPulse replaces the π pulse calibration.
func (s *Scheduler) SetPiPulse(ctx context.Context, pi waveform.PiPulse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle("set π pulse"); err != nil {
		return err
	}
	if pi.Duration < 0 {
		return ErrConfiguration{Param: waveform.ParamTPi, Value: pi.Duration, What: "duration must not be negative"}
	}
	s.pi = pi
	if s.strategy != nil && s.strategy.NeedsPi() && s.params.TPi == 0 {
		s.autoPi = true
	}
	return s.rebuild(ctx)
}

// RegulatePi sets the MW power so that the π pulse lasts duration ns.
func (s *Scheduler) RegulatePi(ctx context.Context, duration float64) (waveform.PiPulse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle("regulate π pulse"); err != nil {
		return s.pi, err
	}
	pi, err := s.pi.AtDuration(duration)
	if err != nil {
		return s.pi, err
	}
	if err := s.session.SetPower(ctx, pi.Power); err != nil {
		return s.pi, err
	}
	s.power = pi.Power
	s.pi = pi
	log.Info("Regulated %s", pi)
	return pi, s.rebuild(ctx)
}

func (s *Scheduler) PiPulse() waveform.PiPulse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pi
}

// Estimate returns the expected duration of a sweep over axis.
func (s *Scheduler) Estimate(axis []float64, withRef bool) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.strategy == nil {
		return 0, device.ErrNoSequence{}
	}
	if s.strategy.Domain() == waveform.FrequencyDomain {
		return s.timing.Total(len(axis), withRef), nil
	}
	var total time.Duration
	base := s.effective()
	for _, x := range axis {
		p, err := waveform.WithSweepValue(s.strategy, base, nanoseconds(x))
		if err != nil {
			return 0, err
		}
		t := NewTimingConfig(s.strategy.Timeline(p).Period(), p.N, s.opts.PadRatio)
		total += t.Total(1, withRef)
	}
	return total, nil
}

func nanoseconds(x float64) int64 {
	return int64(math.Round(x))
}

// begin moves to Running. The returned context is cancelled by Stop.
func (s *Scheduler) begin(ctx context.Context, op string, points int) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idle(op); err != nil {
		return nil, err
	}
	if s.set == nil {
		return nil, ErrInvalidState{From: s.state, Op: op}
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.state = Running
	s.cancel = cancel
	s.done = make(chan struct{})
	s.point = 0
	s.points = points
	return runCtx, nil
}

// end returns to Idle; the last sequence stays loaded.
func (s *Scheduler) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	close(s.done)
	s.cancel = nil
	s.done = nil
	if s.state != Closed {
		s.state = Idle
	}
}

// abort stops every device after a failed run and returns err.
func (s *Scheduler) abort(err error) error {
	log.Error("Run aborted: %s", err)
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if stopErr := s.session.Stop(ctx); stopErr != nil {
		log.Error("Stop after abort: %s", stopErr)
	}
	return err
}

// acquire runs the loaded sequence for one dwell and reads the bins.
func (s *Scheduler) acquire(ctx context.Context, mwOn bool) ([]float64, error) {
	if err := s.session.Clear(ctx); err != nil {
		return nil, err
	}
	if err := s.session.SetOutput(ctx, mwOn); err != nil {
		return nil, err
	}
	if err := s.session.Start(ctx, 0); err != nil {
		return nil, err
	}
	if err := s.sleep(ctx, s.timing.PointDuration()); err != nil {
		return nil, err
	}
	counts, err := s.session.ReadCounts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.session.Stop(ctx); err != nil {
		return nil, err
	}
	return counts, nil
}

// acquireReference takes the same acquisition with the spin left
// alone, then restores the signal sequence.
func (s *Scheduler) acquireReference(ctx context.Context) ([]float64, error) {
	if s.opts.MWOnOff {
		return s.acquire(ctx, false)
	}
	ref := s.set.Clone()
	if err := ref.Put(sequence.RoleMW, s.opts.Layout.Inactive(sequence.RoleMW, s.timing.Period)); err != nil {
		return nil, err
	}
	if err := s.session.LoadSequence(ctx, ref); err != nil {
		return nil, err
	}
	counts, err := s.acquire(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := s.session.LoadSequence(ctx, s.set); err != nil {
		return nil, err
	}
	return counts, nil
}

// prepare sets the device state for one sweep value: the MW frequency
// in the frequency domain, a rebuilt sequence in the time domain.
func (s *Scheduler) prepare(ctx context.Context, x float64) error {
	if s.strategy.Domain() == waveform.FrequencyDomain {
		if err := s.session.SetFrequency(ctx, x); err != nil {
			return err
		}
		s.mu.Lock()
		s.freq = x
		s.mu.Unlock()
		return nil
	}
	p, err := waveform.WithSweepValue(s.strategy, s.effective(), nanoseconds(x))
	if err != nil {
		return err
	}
	set, err := waveform.Build(s.strategy, p, s.opts.Layout)
	if err != nil {
		return err
	}
	timing, err := s.load(ctx, set, p.N)
	if err != nil {
		return err
	}
	if timing.Period != s.timing.Period {
		if err := s.session.ConfigureCounter(ctx, counterSetup(s.strategy, p, timing.Period)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.set = set
	s.timing = timing
	s.mu.Unlock()
	return nil
}

// start sets the MW power and the fixed state of a run. Kinds using
// the π pulse are time-domain and rebuild their sequence per point,
// so a regulated π pulse needs no reload here.
func (s *Scheduler) start(ctx context.Context, power float64) error {
	if err := s.session.SetPower(ctx, power); err != nil {
		return err
	}
	s.mu.Lock()
	s.power = power
	if !s.pi.IsZero() && s.pi.Power != power {
		if pi, err := s.pi.AtPower(power); err == nil {
			s.pi = pi
			log.Info("Regulated %s", pi)
		}
	}
	s.mu.Unlock()
	if s.strategy.Domain() == waveform.TimeDomain {
		return s.session.SetFrequency(ctx, s.freq)
	}
	return s.session.LoadSequence(ctx, s.set)
}

// RunSinglePoint acquires the bins of one sweep value at the given MW
// power. The devices are stopped afterwards, also on error.
func (s *Scheduler) RunSinglePoint(ctx context.Context, x, power float64) ([]float64, error) {
	ctx, err := s.begin(ctx, "run", 1)
	if err != nil {
		return nil, err
	}
	defer s.end()

	if err := s.start(ctx, power); err != nil {
		return nil, s.abort(err)
	}
	if err := s.prepare(ctx, x); err != nil {
		return nil, s.abort(err)
	}
	counts, err := s.acquire(ctx, true)
	if err != nil {
		return nil, s.abort(err)
	}
	s.progress(1)
	return counts, nil
}

func (s *Scheduler) progress(point int) {
	s.mu.Lock()
	s.point = point
	s.mu.Unlock()
}

// RunSweep acquires every value of axis in order, with a reference
// acquisition per point if withRef. On failure or cancellation the
// devices are stopped and the points completed so far are returned
// along with the error.
func (s *Scheduler) RunSweep(ctx context.Context, axis []float64, withRef bool) (*result.Acquisition, error) {
	acq := &result.Acquisition{}
	if len(axis) == 0 {
		return acq, ErrConfiguration{Param: "axis", Value: axis, What: "axis is empty"}
	}
	ctx, err := s.begin(ctx, "sweep", len(axis))
	if err != nil {
		return acq, err
	}
	defer s.end()

	if err := s.start(ctx, s.power); err != nil {
		return acq, s.abort(err)
	}

	if s.opts.EpochOmit > 0 {
		if err := s.prepare(ctx, axis[0]); err != nil {
			return acq, s.abort(err)
		}
		for i := 0; i < s.opts.EpochOmit; i++ {
			if _, err := s.acquirePoint(ctx, withRef); err != nil {
				return acq, s.abort(err)
			}
		}
		log.Debug("Omitted %d epochs", s.opts.EpochOmit)
	}

	for i, x := range axis {
		if err := ctx.Err(); err != nil {
			return acq, s.abort(err)
		}
		if err := s.prepare(ctx, x); err != nil {
			return acq, s.abort(err)
		}
		sig, err := s.acquirePoint(ctx, withRef)
		if err != nil {
			return acq, s.abort(err)
		}
		acq.Append(x, sig[0], sig[1])
		s.progress(i + 1)
		log.Info("Point %d/%d at %g done", i+1, len(axis), x)
	}
	return acq, nil
}

// acquirePoint takes the signal and, if asked, the reference at the prepared
// sweep value.
func (s *Scheduler) acquirePoint(ctx context.Context, withRef bool) ([2][]float64, error) {
	var out [2][]float64
	sig, err := s.acquire(ctx, true)
	if err != nil {
		return out, err
	}
	out[0] = sig
	if withRef {
		ref, err := s.acquireReference(ctx)
		if err != nil {
			return out, err
		}
		out[1] = ref
	}
	return out, nil
}

// Stop cancels a running run and waits for it to wind down, or stops
// the devices if nothing runs. It is safe in any state.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return nil
	case Running:
		cancel, done := s.cancel, s.done
		s.mu.Unlock()
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Unlock()
	return s.session.Stop(ctx)
}

// Close stops everything and releases the devices. A run that does not
// wind down before ctx is done keeps the devices open and Close fails;
// it may be called again later. A second successful Close returns
// ErrAlreadyClosed.
func (s *Scheduler) Close(ctx context.Context) error {
	if s.State() == Closed {
		return ErrAlreadyClosed{}
	}
	stopErr := s.Stop(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Closed:
		return ErrAlreadyClosed{}
	case Running:
		if stopErr == nil {
			stopErr = ErrInvalidState{From: Running, Op: "close"}
		}
		return errors.Wrap(stopErr, "run still in flight")
	}
	s.state = Closed
	if stopErr != nil {
		log.Warning("Stop on close: %s", stopErr)
	}
	return s.session.Close()
}
