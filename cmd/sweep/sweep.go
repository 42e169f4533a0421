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

package sweep

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control/ifc"
)

const (
	NameOptionName    = "name"
	StartOptionName   = "start"
	StopOptionName    = "stop"
	StepOptionName    = "step"
	CountOptionName   = "count"
	ValuesOptionName  = "values"
	WithRefOptionName = "with-ref"
	WaitOptionName    = "wait"
	ValueOptionName   = "value"
	PowerOptionName   = "power"

	pollInterval = 500 * time.Millisecond
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run sweeps",
	}
	cmd.AddCommand(NewStartCommand(cfg))
	cmd.AddCommand(NewStopCommand(cfg))
	cmd.AddCommand(NewPointCommand(cfg))
	return cmd
}

func NewStartCommand(cfg *config.Config) *cobra.Command {
	var name string
	var start, stop, step float64
	var count int
	var values []float64
	var withRef, wait bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a sweep over frequencies (Hz) or durations (ns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := command.NewApiClient(cfg)
			req := ifc.SweepRequest{
				Name: name,
				Axis: command.Axis(start, stop, step, count, values),
			}
			if cmd.Flags().Changed(WithRefOptionName) {
				req.WithRef = &withRef
			}
			started, err := client.SweepStart(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sweep %s started: %d points, about %.1f s\n", started.Name, started.Points, started.Estimate)
			if !wait {
				return nil
			}
			for {
				time.Sleep(pollInterval)
				st, err := client.State()
				if err != nil {
					return err
				}
				if st.Sweep == "" {
					command.DrawState(cmd.OutOrStdout(), st)
					if st.LastRun != nil && st.LastRun.Error != "" {
						return fmt.Errorf("sweep %s: %s", st.LastRun.Name, st.LastRun.Error)
					}
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&name, NameOptionName, "", "Experiment name used in file names")
	cmd.Flags().Float64Var(&start, StartOptionName, 0, "First value")
	cmd.Flags().Float64Var(&stop, StopOptionName, 0, "Last value")
	cmd.Flags().Float64Var(&step, StepOptionName, 0, "Step")
	cmd.Flags().IntVar(&count, CountOptionName, 0, "Number of points instead of a step")
	cmd.Flags().Float64SliceVar(&values, ValuesOptionName, nil, "Explicit values instead of a range")
	cmd.Flags().BoolVar(&withRef, WithRefOptionName, false, "Take a reference without MW per point")
	cmd.Flags().BoolVar(&wait, WaitOptionName, false, "Wait until the sweep ends")
	return cmd
}

func NewStopCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := command.NewApiClient(cfg).SweepStop()
			if err != nil {
				return err
			}
			command.DrawState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func NewPointCommand(cfg *config.Config) *cobra.Command {
	var value, power float64
	cmd := &cobra.Command{
		Use:   "point",
		Short: "Acquire a single point",
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := command.NewApiClient(cfg).Point(value, power)
			if err != nil {
				return err
			}
			var sum float64
			for _, c := range counts {
				sum += c
			}
			mean := 0.0
			if len(counts) > 0 {
				mean = sum / float64(len(counts))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bins, mean %.3f, total %.0f\n", len(counts), mean, sum)
			return nil
		},
	}
	cmd.Flags().Float64Var(&value, ValueOptionName, 0, "Frequency (Hz) or duration (ns)")
	cmd.Flags().Float64Var(&power, PowerOptionName, cfg.Scheduler.Power, "MW power, dBm")
	cmd.MarkFlagRequired(ValueOptionName)
	return cmd
}
