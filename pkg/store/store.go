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

// Package store keeps the run history and the π pulse calibration in
// a bbolt database so that both survive a server restart.
package store

import (
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

const (
	BucketRuns        = "runs"
	BucketCalibration = "calibration"

	KeyPiPulse = "pipulse"
)

type ErrNotFound struct {
	Bucket string
	Key    string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("Key not found: %s/%s", e.Bucket, e.Key)
}

// Run is the history entry of one sweep.
type Run struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Date      time.Time `json:"date"`
	Statistic string    `json:"statistic"`
	Points    int       `json:"points"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	// Base is the path of the data files without extension.
	Base string `json:"base,omitempty"`
}

// RunOf summarizes a persisted record.
func RunOf(r *result.Record, base string) Run {
	return Run{
		ID:        r.ID,
		Name:      r.Name,
		Kind:      r.Kind,
		Date:      r.Date,
		Statistic: r.Statistic,
		Points:    len(r.Axis),
		Status:    r.Status,
		Error:     r.Error,
		Base:      base,
	}
}

type State struct {
	DB *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*State, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{BucketRuns, BucketCalibration} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &State{DB: db}, nil
}

// Close ...
func (s *State) Close() error {
	return s.DB.Close()
}

func (s *State) put(bucket, key string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("Bucket not found: %s", bucket)
		}
		return b.Put([]byte(key), data)
	})
}

func (s *State) get(bucket, key string, v interface{}) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("Bucket not found: %s", bucket)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound{Bucket: bucket, Key: key}
		}
		return yaml.Unmarshal(data, v)
	})
}

// PutRun adds or replaces a history entry.
func (s *State) PutRun(run Run) error {
	log.Debug("Storing run: %s %s", run.ID, run.Status)
	return s.put(BucketRuns, run.ID, run)
}

// GetRun ...
func (s *State) GetRun(id string) (*Run, error) {
	run := &Run{}
	if err := s.get(BucketRuns, id, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the history, newest first.
func (s *State) ListRuns() ([]Run, error) {
	var runs []Run
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).ForEach(func(k, v []byte) error {
			var run Run
			if err := yaml.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("run %s: %w", k, err)
			}
			runs = append(runs, run)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Date.After(runs[j].Date)
	})
	return runs, nil
}

// DeleteRun removes a history entry. The data files are kept.
func (s *State) DeleteRun(id string) error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		if b.Get([]byte(id)) == nil {
			return ErrNotFound{Bucket: BucketRuns, Key: id}
		}
		return b.Delete([]byte(id))
	})
}

// PutPiPulse stores the π pulse calibration.
func (s *State) PutPiPulse(pi waveform.PiPulse) error {
	log.Debug("Storing %s", pi)
	return s.put(BucketCalibration, KeyPiPulse, pi)
}

// GetPiPulse returns the stored calibration; ok is false if there is
// none.
func (s *State) GetPiPulse() (pi waveform.PiPulse, ok bool, err error) {
	err = s.get(BucketCalibration, KeyPiPulse, &pi)
	if _, missing := err.(ErrNotFound); missing {
		return pi, false, nil
	}
	return pi, err == nil, err
}
