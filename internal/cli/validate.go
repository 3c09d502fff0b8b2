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

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"pagesnap/internal/scene"
)

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scene>...",
		Short: "Check scene files against the scene schema",
		Long: `Check one or more scene files (.json, .yaml, .yml or .toml).

Each file is decoded, validated against the embedded JSON Schema and then
checked for dangling element references. All problems of a file are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []string
			for _, path := range args {
				s, err := scene.Load(path)
				if err != nil {
					c.printError("%s", path)
					c.printDetail("%v", err)
					failed = append(failed, path)
					continue
				}
				resizes := lo.CountBy(s.Gestures, func(g scene.Gesture) bool { return g.Kind == "resize" })
				c.printSuccess("%s", path)
				c.printStats(
					fmt.Sprintf("%d elements", len(s.Elements)),
					fmt.Sprintf("%d moves", len(s.Gestures)-resizes),
					fmt.Sprintf("%d resizes", resizes),
				)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d scene files invalid", len(failed), len(args))
			}
			return nil
		},
	}
}

func (c *CLI) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for scene files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.Out.Write(scene.Schema())
			return err
		},
	}
}
