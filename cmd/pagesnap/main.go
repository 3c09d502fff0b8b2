/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagesnap/internal/cli"
	"pagesnap/internal/config"
	"pagesnap/internal/crash"
	applog "pagesnap/internal/log"
	"pagesnap/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	// env-only logging until the config file has been read
	applog.Init(applog.FromEnv())
	cfg, err := config.Load()
	if err != nil {
		applog.WithComponent("cli").Warn("config not loaded; using defaults", slog.Any("err", err))
	}
	applog.Init(cfg.LogOptions())

	tel := telemetry.New(telemetry.Config{
		OptIn:     cfg.Telemetry.OptIn,
		EventsURL: cfg.Telemetry.EventsURL,
		CrashURL:  cfg.Telemetry.CrashURL,
	})
	telemetry.SetDefault(tel)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tel.Flush(ctx)
	}()

	cc := &crash.Context{Scene: sceneArg(os.Args[1:])}
	defer crash.Recover(cc)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stdout, cfg)
	c.Telemetry = tel
	if err := c.Execute(ctx, nil); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// sceneArg returns the scene path of "replay", "validate" or "ui" invocations
// so crash reports name it.
func sceneArg(args []string) string {
	if len(args) < 2 {
		return ""
	}
	switch args[0] {
	case "replay", "validate", "ui":
		for _, a := range args[1:] {
			if len(a) > 0 && a[0] != '-' {
				return a
			}
		}
	}
	return ""
}
