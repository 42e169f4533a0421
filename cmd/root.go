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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-odmr/cmd/channel"
	"jinr.ru/greenlab/go-odmr/cmd/completion"
	"jinr.ru/greenlab/go-odmr/cmd/config"
	"jinr.ru/greenlab/go-odmr/cmd/configure"
	"jinr.ru/greenlab/go-odmr/cmd/control"
	"jinr.ru/greenlab/go-odmr/cmd/mw"
	"jinr.ru/greenlab/go-odmr/cmd/pipulse"
	"jinr.ru/greenlab/go-odmr/cmd/runs"
	"jinr.ru/greenlab/go-odmr/cmd/sequence"
	"jinr.ru/greenlab/go-odmr/cmd/state"
	"jinr.ru/greenlab/go-odmr/cmd/sweep"
	pkgconfig "jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "go-odmr",
		Short: "Tool to run ODMR measurements on NV centers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := log.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(control.NewCommand(cfg))
	cmd.AddCommand(configure.NewCommand(cfg))
	cmd.AddCommand(sweep.NewCommand(cfg))
	cmd.AddCommand(state.NewCommand(cfg))
	cmd.AddCommand(sequence.NewCommand(cfg))
	cmd.AddCommand(pipulse.NewCommand(cfg))
	cmd.AddCommand(runs.NewCommand(cfg))
	cmd.AddCommand(mw.NewCommand(cfg))
	cmd.AddCommand(channel.NewCommand(cfg))
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
