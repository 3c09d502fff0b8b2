/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"pagesnap/internal/export"
	"pagesnap/internal/storage"
)

func (c *CLI) runsCommand() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored replay runs",
	}
	cmd.PersistentFlags().StringVar(&remote, "remote", "", "read from a pagesnap server instead of the local store")
	cmd.AddCommand(c.runsListCommand(&remote))
	cmd.AddCommand(c.runsShowCommand(&remote))
	cmd.AddCommand(c.runsStatsCommand())
	return cmd
}

func (c *CLI) runsListCommand(remote *string) *cobra.Command {
	var (
		limit  int
		failed bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.store(cmd.Context(), *remote)
			if err != nil {
				return err
			}
			defer st.Close()
			list, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if failed {
				list = lo.Filter(list, func(r storage.RunSummary, _ int) bool { return !r.Passed() })
			}
			if len(list) == 0 {
				c.printInfo("no runs")
				return nil
			}
			for _, r := range list {
				line := fmt.Sprintf("%s  %-24s %s", r.ID, lo.Ellipsis(r.Scene, 24), r.StartedAt.Local().Format(time.DateTime))
				if r.Passed() {
					c.printSuccess("%s", line)
				} else {
					c.printError("%s", line)
				}
				c.printStats(
					fmt.Sprintf("%d gestures", r.Gestures),
					fmt.Sprintf("%d/%d frames snapped", r.Snapped, r.Frames),
					fmt.Sprintf("threshold %g", r.Threshold),
				)
			}
			total := lo.SumBy(list, func(r storage.RunSummary) int { return r.Frames })
			c.printInfo("%s runs, %s frames", number("%d", len(list)), number("%d", total))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&failed, "failed", false, "only runs with expectation mismatches")
	return cmd
}

func (c *CLI) runsShowCommand(remote *string) *cobra.Command {
	var (
		asJSON bool
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run; optionally re-export its storyboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.store(cmd.Context(), *remote)
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.GetRun(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrRunNotFound) {
				return fmt.Errorf("no run with id %s", args[0])
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			c.printRun(run)
			if format != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				files, err := export.Run(run, f, out, export.Options{Labels: true})
				if err != nil {
					return err
				}
				for _, p := range files {
					c.printFile(p)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run document")
	cmd.Flags().StringVarP(&format, "export", "e", "", "write a storyboard: svg, png or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "storyboard", "output directory for --export")
	return cmd
}

func (c *CLI) runsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Snap statistics per scene (local SQLite store only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.store(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer st.Close()
			local, ok := st.(*storage.SQLiteStore)
			if !ok {
				return errors.New("runs stats needs the sqlite storage driver")
			}
			stats, err := local.SceneStats(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range stats {
				ratio := 0.0
				if s.Frames > 0 {
					ratio = float64(s.Snapped) / float64(s.Frames) * 100
				}
				c.printKeyValue(s.Scene, fmt.Sprintf("%d runs, %d frames, %.0f%% snapped", s.Runs, s.Frames, ratio))
			}
			return nil
		},
	}
}
