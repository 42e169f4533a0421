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

package mw

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control"
)

const (
	FrequencyOptionName = "frequency"
	PowerOptionName     = "power"
)

func NewCommand(cfg *config.Config) *cobra.Command {
	var frequency, power float64
	cmd := &cobra.Command{
		Use:   "mw",
		Short: "Set MW frequency and power",
		RunE: func(cmd *cobra.Command, args []string) error {
			setup := control.MWSetup{}
			if cmd.Flags().Changed(FrequencyOptionName) {
				setup.Frequency = &frequency
			}
			if cmd.Flags().Changed(PowerOptionName) {
				setup.Power = &power
			}
			st, err := command.NewApiClient(cfg).MW(setup)
			if err != nil {
				return err
			}
			command.DrawState(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().Float64Var(&frequency, FrequencyOptionName, 0, "MW frequency, Hz")
	cmd.Flags().Float64Var(&power, PowerOptionName, 0, "MW power, dBm; a calibrated π pulse follows")
	return cmd
}
