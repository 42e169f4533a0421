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

package pipulse

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

const (
	FrequencyOptionName = "frequency"
	PowerOptionName     = "power"
	DurationOptionName  = "duration"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipulse",
		Short: "Manage the π pulse calibration",
	}
	cmd.AddCommand(NewGetCommand(cfg))
	cmd.AddCommand(NewSetCommand(cfg))
	cmd.AddCommand(NewRegulateCommand(cfg))
	return cmd
}

func NewGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the calibration",
		RunE: func(cmd *cobra.Command, args []string) error {
			pi, err := command.NewApiClient(cfg).PiPulse()
			if err != nil {
				return err
			}
			printPiPulse(cmd, pi)
			return nil
		},
	}
}

func NewSetCommand(cfg *config.Config) *cobra.Command {
	pi := waveform.PiPulse{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a calibration",
		RunE: func(cmd *cobra.Command, args []string) error {
			back, err := command.NewApiClient(cfg).SetPiPulse(pi)
			if err != nil {
				return err
			}
			printPiPulse(cmd, back)
			return nil
		},
	}
	cmd.Flags().Float64Var(&pi.Frequency, FrequencyOptionName, 2.87e9, "MW frequency, Hz")
	cmd.Flags().Float64Var(&pi.Power, PowerOptionName, 0, "MW power, dBm")
	cmd.Flags().Float64Var(&pi.Duration, DurationOptionName, 0, "π pulse duration, ns")
	cmd.MarkFlagRequired(DurationOptionName)
	return cmd
}

func NewRegulateCommand(cfg *config.Config) *cobra.Command {
	var duration float64
	cmd := &cobra.Command{
		Use:   "regulate",
		Short: "Set the MW power for the requested π duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			pi, err := command.NewApiClient(cfg).RegulatePi(duration)
			if err != nil {
				return err
			}
			printPiPulse(cmd, pi)
			return nil
		},
	}
	cmd.Flags().Float64Var(&duration, DurationOptionName, 0, "π pulse duration, ns")
	cmd.MarkFlagRequired(DurationOptionName)
	return cmd
}

func printPiPulse(cmd *cobra.Command, pi *waveform.PiPulse) {
	if pi.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), "No π pulse calibration")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "π pulse %.1f ns at %.6g Hz, %.2f dBm\n", pi.Duration, pi.Frequency, pi.Power)
}
