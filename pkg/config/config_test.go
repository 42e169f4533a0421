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
	"errors"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"jinr.ru/greenlab/go-odmr/pkg/result"
	"jinr.ru/greenlab/go-odmr/pkg/sequence"
)

func TestConfig(t *testing.T) {
	Convey("Given the default config in a temp dir", t, func() {
		cfg := NewDefaultConfig()
		cfg.SetPath(filepath.Join(t.TempDir(), "odmr", ConfigFile))
		So(cfg.Validate(), ShouldBeNil)

		Convey("It persists once and loads back", func() {
			cfg.Scheduler.EpochOmit = 3
			cfg.Channels.LowActive = []sequence.Role{sequence.RoleMW}
			So(cfg.Persist(false), ShouldBeNil)
			err := cfg.Persist(false)
			So(errors.As(err, &ErrConfigFileExists{}), ShouldBeTrue)
			So(cfg.Persist(true), ShouldBeNil)

			back := NewDefaultConfig()
			back.SetPath(cfg.Path())
			So(back.Load(), ShouldBeNil)
			So(back.Scheduler.EpochOmit, ShouldEqual, 3)
			So(back.Device.Timeout, ShouldEqual, DefaultDeviceTimeout)
			So(back.Channels.Roles, ShouldResemble, sequence.DefaultChannelMap())
			So(back.Channels.Layout().IsLowActive(sequence.RoleMW), ShouldBeTrue)
		})

		Convey("Scheduler options follow the config", func() {
			cfg.Scheduler.SignalIndex = "odd"
			opts, err := cfg.SchedulerOptions()
			So(err, ShouldBeNil)
			So(opts.Signal, ShouldEqual, result.SignalOdd)
			So(opts.Layout.Channels[sequence.RoleLaser], ShouldEqual, 1)
		})

		Convey("Bad values are refused", func() {
			cfg.Scheduler.SignalIndex = "third"
			So(cfg.Validate(), ShouldNotBeNil)
			cfg.Scheduler.SignalIndex = "even"
			cfg.Channels.Roles[sequence.RoleMW] = 1
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}
