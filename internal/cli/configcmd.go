/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pagesnap/internal/config"
)

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Path()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(c.Out, p)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every setting and where it comes from",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := c.Config
			dsn := "(unset)"
			if cfg.Storage.PostgresDSN != "" {
				dsn = "(set)"
			}
			rows := []struct{ key, val string }{
				{"snap.threshold", fmt.Sprintf("%g", cfg.Snap.Threshold)},
				{"gesture.cleanup_delay_ms", fmt.Sprintf("%d", cfg.Gesture.CleanupDelayMs)},
				{"gesture.min_size", fmt.Sprintf("%g", cfg.Gesture.MinSize)},
				{"storage.driver", cfg.Storage.Driver},
				{"storage.path", cfg.Storage.Path},
				{"storage.postgres_dsn", dsn},
				{"telemetry.opt_in", fmt.Sprintf("%t", cfg.Telemetry.OptIn)},
				{"logging.level", cfg.Logging.Level},
				{"logging.format", cfg.Logging.Format},
			}
			for _, r := range rows {
				v := r.val
				if env, ok := config.EnvOverrideFor(r.key); ok {
					v += "  " + styleDim.Render("("+env+")")
				}
				c.printKeyValue(r.key, v)
			}
		},
	})
	return cmd
}
