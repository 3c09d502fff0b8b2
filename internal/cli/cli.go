/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the pagesnap command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pagesnap/internal/backend"
	"pagesnap/internal/config"
	applog "pagesnap/internal/log"
	"pagesnap/internal/storage"
	"pagesnap/internal/telemetry"
	"pagesnap/internal/version"
)

// EnvAPIToken holds a bearer token for --remote run stores.
const EnvAPIToken = "PAGESNAP_API_TOKEN"

// ErrExpectations is returned by replay when a gesture missed its expectation.
var ErrExpectations = errors.New("scene expectations not met")

// CLI holds shared state for all commands.
type CLI struct {
	Out    io.Writer
	Config config.AppConfig
	// Telemetry receives gesture summaries during replay; nil disables it.
	Telemetry *telemetry.Client
	// OpenStore replaces driver selection when set.
	OpenStore func(ctx context.Context) (storage.RunStore, error)
}

// New returns a CLI writing human output to out.
func New(out io.Writer, cfg config.AppConfig) *CLI {
	return &CLI{Out: out, Config: cfg}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pagesnap",
		Short: "PageSnap snaps page elements to each other while you drag them",
		Long: `PageSnap is a snap and alignment engine for page layout editors.

The CLI validates and replays scripted gesture scenes against the engine,
exports storyboards of every step, and keeps a history of replay runs.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.Out)
	root.SetVersionTemplate("pagesnap {{.Version}}\n")

	root.AddCommand(c.versionCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.schemaCommand())
	root.AddCommand(c.replayCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.backendCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.uiCommand())
	return root
}

// Execute runs the command tree with args (os.Args[1:] when nil).
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	if args != nil {
		root.SetArgs(args)
	}
	return root.ExecuteContext(ctx)
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(c.Out, "pagesnap %s\n", version.String())
		},
	}
}

// store opens the run store: a remote server when remote is set, otherwise the
// configured driver.
func (c *CLI) store(ctx context.Context, remote string) (storage.RunStore, error) {
	if remote = strings.TrimSpace(remote); remote != "" {
		cl := backend.NewClient(remote, os.Getenv(EnvAPIToken))
		if cl.Token == "" {
			if _, err := cl.Login(ctx, "cli", time.Hour); err != nil {
				return nil, fmt.Errorf("login to %s: %w", remote, err)
			}
		}
		return cl, nil
	}
	if c.OpenStore != nil {
		return c.OpenStore(ctx)
	}
	l := applog.WithComponent("cli")
	switch drv := c.Config.Storage.Driver; drv {
	case "", "sqlite":
		path := c.Config.Storage.Path
		if path == "" {
			p, err := storage.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		l.Debug("using sqlite run store", "path", path)
		return storage.OpenSQLite(path)
	case "postgres":
		if c.Config.Storage.PostgresDSN == "" {
			return nil, errors.New("storage.driver is postgres but no DSN is configured; run: pagesnap backend set-dsn <dsn>")
		}
		return backend.OpenPostgres(ctx, c.Config.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want sqlite or postgres)", drv)
	}
}
