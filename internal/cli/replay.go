/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"pagesnap/internal/export"
	applog "pagesnap/internal/log"
	"pagesnap/internal/replay"
	"pagesnap/internal/scene"
)

type replayFlags struct {
	threshold float32
	export    string
	out       string
	scale     float64
	labels    bool
	font      string
	save      bool
	remote    string
	frames    []int
}

func (c *CLI) replayCommand() *cobra.Command {
	var f replayFlags
	cmd := &cobra.Command{
		Use:   "replay <scene>",
		Short: "Run the scripted gestures of a scene through the snap engine",
		Long: `Replay every gesture of a scene through the gesture controller and the
snap engine, step by step, on a virtual clock.

Each gesture's expectation (final bounds, snapped axes) is checked and the
command fails when any of them is missed. Use --export to write a storyboard
of every step and --save to keep the run in the run store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				f.threshold = 0
			}
			return c.runReplay(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().Float32Var(&f.threshold, "threshold", 0, "snap threshold override in canvas pixels")
	cmd.Flags().StringVarP(&f.export, "export", "e", "", "write a storyboard: svg, png or pdf")
	cmd.Flags().StringVarP(&f.out, "out", "o", "storyboard", "output directory for --export")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "pixels per canvas unit for png/svg output")
	cmd.Flags().BoolVar(&f.labels, "labels", true, "draw element ids and frame titles")
	cmd.Flags().StringVar(&f.font, "font", "", "TrueType font for png labels (default: built-in bitmap font)")
	cmd.Flags().IntSliceVar(&f.frames, "frames", nil, "export only these frame indexes")
	cmd.Flags().BoolVar(&f.save, "save", false, "store the run in the run store")
	cmd.Flags().StringVar(&f.remote, "remote", "", "save to a pagesnap server instead of the local store")
	return cmd
}

func (c *CLI) runReplay(ctx context.Context, path string, f replayFlags) error {
	l := applog.WithOperation(applog.WithComponent("cli"), "replay")
	s, err := scene.Load(path)
	if err != nil {
		return err
	}
	var format export.Format
	if f.export != "" {
		if format, err = export.ParseFormat(f.export); err != nil {
			return err
		}
	}

	opts := replay.Options{
		Threshold:    f.threshold,
		CleanupDelay: c.Config.Gesture.CleanupDelay(),
		MinSize:      c.Config.Gesture.MinSize,
		Telemetry:    c.Telemetry,
	}
	if opts.Threshold <= 0 && s.Threshold <= 0 {
		opts.Threshold = c.Config.Snap.Threshold
	}
	run, err := replay.Play(ctx, s, opts)
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}
	l.Info("replayed", slog.String("scene", run.Scene), slog.String("run", run.ID), slog.Int("frames", len(run.Frames)))
	c.printRun(run)

	if format != "" {
		files, err := export.Run(run, format, f.out, export.Options{Frames: f.frames, Scale: f.scale, Labels: f.labels, FontPath: f.font})
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		c.printInfo("wrote %s %s", number("%d", len(files)), strings.ToUpper(string(format)))
		for _, p := range files {
			c.printFile(p)
		}
	}

	if f.save {
		st, err := c.store(ctx, f.remote)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		c.printSuccess("saved run %s", run.ID)
	}

	if !run.Passed() {
		return fmt.Errorf("%w: %d mismatches", ErrExpectations, run.Stats().Mismatches)
	}
	return nil
}

// printRun writes the human summary of a run.
func (c *CLI) printRun(run *replay.Run) {
	c.printTitle("%s", run.Scene)
	c.printKeyValue("run", run.ID)
	c.printKeyValue("threshold", fmt.Sprintf("%g px", run.Threshold))
	for _, o := range run.Outcomes {
		frames := run.FramesOf(o.Gesture)
		snapped := lo.CountBy(frames, func(fr replay.Frame) bool { return fr.SnappedX || fr.SnappedY })
		b := o.Final
		desc := fmt.Sprintf("gesture %d %s %s -> {%g %g %g %g}", o.Gesture+1, o.Kind, o.Target, b.X, b.Y, b.Width, b.Height)
		switch {
		case len(o.Mismatches) > 0:
			c.printError("%s", desc)
			for _, m := range o.Mismatches {
				c.printDetail("%s", m)
			}
		case o.Cancelled:
			c.printWarning("%s (cancelled)", desc)
		default:
			c.printSuccess("%s", desc)
		}
		c.printStats(fmt.Sprintf("%d steps", len(frames)), fmt.Sprintf("%d snapped", snapped))
	}
	st := run.Stats()
	c.printStats(
		fmt.Sprintf("%d gestures", st.Gestures),
		fmt.Sprintf("%d frames", st.Frames),
		fmt.Sprintf("snap ratio %.0f%%", run.SnapRatio()*100),
	)
}
