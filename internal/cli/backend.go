/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pagesnap/internal/backend"
	"pagesnap/internal/config"
)

func (c *CLI) backendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Shared run store: Postgres credentials and the runs API server",
	}
	cmd.AddCommand(c.setDSNCommand())
	cmd.AddCommand(c.serveCommand())
	return cmd
}

func (c *CLI) setDSNCommand() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "set-dsn [dsn]",
		Short: "Store the Postgres DSN in the OS keyring",
		Long: `Store the Postgres DSN in the OS keyring so it never lands in config.yaml.

Without an argument the DSN is read from stdin. --clear removes it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove {
				if err := config.SavePostgresDSN(""); err != nil {
					return err
				}
				c.printSuccess("postgres DSN removed from keyring")
				return nil
			}
			var dsn string
			if len(args) == 1 {
				dsn = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read dsn: %w", err)
				}
				dsn = line
			}
			dsn = strings.TrimSpace(dsn)
			if dsn == "" {
				return errors.New("empty dsn")
			}
			if err := config.SavePostgresDSN(dsn); err != nil {
				return fmt.Errorf("save dsn to keyring: %w", err)
			}
			c.printSuccess("postgres DSN stored in keyring")
			if c.Config.Storage.Driver != "postgres" {
				c.printDetail("set storage.driver: postgres (or %s=postgres) to use it", config.EnvStorageDriver)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the stored DSN")
	return cmd
}

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured run store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.store(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer st.Close()
			srv := backend.NewServer(st, os.Getenv(backend.EnvAuthSecret))
			c.printInfo("serving runs on %s", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
