/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a top-level panic into a report file and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "pagesnap/internal/log"
	"pagesnap/internal/telemetry"
	"pagesnap/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Context describes what was running when the panic happened.
// A nil Context is valid; the report then goes to the temp dir.
type Context struct {
	// Dir receives the crash report. Empty means os.TempDir().
	Dir string
	// Scene is the scene file being replayed or edited, if any.
	Scene string
	// Autosave persists the in-memory layout and returns where it went.
	Autosave func() (string, error)
}

// Recover captures a panic, logs it with the stack, writes a report,
// runs the autosave hook and exits with code 2.
//
// Usage: defer crash.Recover(cc)
func Recover(cc *Context) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(cc, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if cc != nil && cc.Autosave != nil {
		if path, err := cc.Autosave(); err != nil {
			l.Error("autosave after crash failed", slog.Any("err", err))
		} else {
			l.Info("autosave after crash written", slog.String("path", path))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(cc *Context, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if cc != nil && cc.Dir != "" {
		dir = cc.Dir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("pagesnap-crash-%s.log", time.Now().Format("20060102-150405.000")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "PageSnap Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if cc != nil && cc.Scene != "" {
		_, _ = fmt.Fprintf(&buf, "Scene: %s\n", cc.Scene)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	// no-op unless the user opted in
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
