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

package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jinr.ru/greenlab/go-odmr/pkg/config"
	"jinr.ru/greenlab/go-odmr/pkg/log"
	"jinr.ru/greenlab/go-odmr/pkg/srv/control"
)

// StartControlServer runs the API until it fails or the process is
// interrupted; devices are stopped and released either way.
func StartControlServer(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := control.NewControlServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Error("Closing control server: %s", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run()
	}()
	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
		return nil
	}
}
