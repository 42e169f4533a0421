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

package scpi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type fakePort struct {
	written bytes.Buffer
	reply   bytes.Buffer
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.reply.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.written.Write(b) }
func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) lines() []string {
	return strings.Split(strings.TrimSuffix(p.written.String(), "\n"), "\n")
}

func TestMicrowave(t *testing.T) {
	ctx := context.Background()

	Convey("Given a source behind a Prologix controller", t, func() {
		port := &fakePort{}
		port.reply.WriteString("Rohde&Schwarz,SMB100A,1.0\n")
		cfg := *NewDefaultConfig()
		var opened Config
		m := NewMicrowave(cfg, func(c Config) (io.ReadWriteCloser, error) {
			opened = c
			return port, nil
		})

		So(m.Connect(ctx), ShouldBeNil)

		Convey("Connect sets up the controller and identifies the source", func() {
			So(opened.Port, ShouldEqual, "/dev/ttyUSB0")
			So(port.lines(), ShouldResemble, []string{
				"++mode 1",
				"++addr 19",
				"++auto 0",
				"++eoi 1",
				"++eos 2",
				"++read_tmo_ms 2000",
				"++eot_enable 0",
				"*CLS",
				"*IDN?",
				"++read eoi",
			})
			So(m.ID(), ShouldEqual, "Rohde&Schwarz,SMB100A,1.0")
		})

		Convey("Settings are written as SCPI commands", func() {
			port.written.Reset()
			So(m.SetFrequency(ctx, 2.87e9), ShouldBeNil)
			So(m.SetPower(ctx, -10), ShouldBeNil)
			So(m.SetOutput(ctx, true), ShouldBeNil)
			So(m.SetOutput(ctx, false), ShouldBeNil)
			So(port.lines(), ShouldResemble, []string{
				"SOUR:FREQ 2870000000",
				"SOUR:POW -10.00",
				"OUTP:STAT ON",
				"OUTP:STAT OFF",
			})
		})

		Convey("A non-positive frequency is refused", func() {
			So(m.SetFrequency(ctx, 0), ShouldNotBeNil)
		})

		Convey("Close returns local control and closes the port", func() {
			port.written.Reset()
			So(m.Close(), ShouldBeNil)
			So(port.lines(), ShouldResemble, []string{"SYST:LOC", "++loc"})
			So(port.closed, ShouldBeTrue)
			So(m.Close(), ShouldBeNil)
			So(m.SetPower(ctx, 0), ShouldNotBeNil)
		})
	})

	Convey("A source without identification reply fails to connect", t, func() {
		port := &fakePort{}
		cfg := Config{Port: "/dev/ttyS0", Prologix: false}
		m := NewMicrowave(cfg, func(Config) (io.ReadWriteCloser, error) { return port, nil })
		So(m.Connect(ctx), ShouldNotBeNil)
		So(port.closed, ShouldBeTrue)
	})

	Convey("Open errors are reported", t, func() {
		m := NewMicrowave(Config{Port: "/dev/none"}, func(Config) (io.ReadWriteCloser, error) {
			return nil, errors.New("no such port")
		})
		err := m.Connect(ctx)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "/dev/none")
	})
}
