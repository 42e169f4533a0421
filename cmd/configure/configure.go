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

package configure

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/pkg/command"
	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/waveform"
)

const (
	KindOptionName        = "kind"
	NOptionName           = "n"
	OrderOptionName       = "order"
	DualReadoutOptionName = "dual-readout"
	LockInOptionName      = "lock-in"
)

func flagName(param string) string {
	return strings.ReplaceAll(param, "_", "-")
}

// NewCommand builds and loads the sequence of one experiment kind.
// Timing flags not given keep their defaults.
func NewCommand(cfg *config.Config) *cobra.Command {
	var kind string
	var n, order int
	var dual, lockIn bool
	durations := map[string]*int64{}
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Build and load the sequence of an experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := waveform.DefaultParams()
			p.N = n
			p.Order = order
			p.DualReadout = dual
			p.LockIn = lockIn
			for param, value := range durations {
				if !cmd.Flags().Changed(flagName(param)) {
					continue
				}
				var err error
				if p, err = p.With(param, *value); err != nil {
					return err
				}
			}
			st, err := command.NewApiClient(cfg).Configure(waveform.Kind(kind), p)
			if err != nil {
				return err
			}
			command.DrawState(cmd.OutOrStdout(), st)
			return nil
		},
	}
	kinds := make([]string, 0, len(waveform.Kinds()))
	for _, k := range waveform.Kinds() {
		kinds = append(kinds, string(k))
	}
	defaults := waveform.DefaultParams()
	cmd.Flags().StringVar(&kind, KindOptionName, string(waveform.KindCW), fmt.Sprintf("Experiment kind. One of: %s", strings.Join(kinds, ", ")))
	cmd.Flags().IntVar(&n, NOptionName, defaults.N, "Sequence repetitions per point")
	cmd.Flags().IntVar(&order, OrderOptionName, defaults.Order, "Decoupling order for dd")
	cmd.Flags().BoolVar(&dual, DualReadoutOptionName, false, "Read signal and reference in every period")
	cmd.Flags().BoolVar(&lockIn, LockInOptionName, false, "Chop the MW for lock-in detection (cw only)")
	for _, param := range waveform.DurationParams() {
		durations[param] = new(int64)
		cmd.Flags().Int64Var(durations[param], flagName(param), 0, fmt.Sprintf("%s, ns", param))
	}
	return cmd
}
