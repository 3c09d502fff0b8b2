/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded per-page undo/redo stacks of layout changes.
package undo

import (
	"sync"
	"time"
)

// Change is one reversible edit on a page. Before and After are opaque
// encodings of the affected state; their combined length is the size estimate.
type Change struct {
	Page   string
	Label  string // e.g. "move", "resize"
	Before []byte
	After  []byte
	TS     time.Time
}

func (c Change) size() int { return len(c.Before) + len(c.After) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest changes across pages are pruned when exceeded.
	MaxBytes int
	// MaxPerPage limits the undo depth per page (0 means unlimited).
	MaxPerPage int
	// MinInterval merges a change with the previous one on the same page when
	// both carry the same label and arrive within the interval.
	MinInterval time.Duration
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg        Config
	mu         sync.Mutex
	undo       map[string][]Change
	redo       map[string][]Change
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Change), redo: make(map[string][]Change)}
}

// Push records c and drops the page's redo stack.
func (m *Manager) Push(c Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(c.Page)
	stack := m.undo[c.Page]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		last := stack[n-1]
		if last.Label == c.Label && c.TS.Sub(last.TS) < m.cfg.MinInterval {
			merged := Change{Page: c.Page, Label: c.Label, Before: last.Before, After: c.After, TS: c.TS}
			m.totalBytes += merged.size() - last.size()
			stack[n-1] = merged
			m.enforceCapsLocked(c.Page)
			return
		}
	}
	m.undo[c.Page] = append(stack, c)
	m.totalBytes += c.size()
	m.enforceCapsLocked(c.Page)
}

// Undo pops the newest change of page; callers restore Change.Before.
func (m *Manager) Undo(page string) (Change, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[page]
	if len(stack) == 0 {
		return Change{}, false
	}
	c := stack[len(stack)-1]
	m.undo[page] = stack[:len(stack)-1]
	m.redo[page] = append(m.redo[page], c)
	return c, true
}

// Redo re-applies the last undone change; callers restore Change.After.
func (m *Manager) Redo(page string) (Change, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[page]
	if len(r) == 0 {
		return Change{}, false
	}
	c := r[len(r)-1]
	m.redo[page] = r[:len(r)-1]
	m.undo[page] = append(m.undo[page], c)
	return c, true
}

// CanUndo and CanRedo report whether the stacks hold anything for page.
func (m *Manager) CanUndo(page string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[page]) > 0
}

func (m *Manager) CanRedo(page string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[page]) > 0
}

// ClearPage forgets all history of page.
func (m *Manager) ClearPage(page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.undo[page] {
		m.totalBytes -= c.size()
	}
	m.dropRedoLocked(page)
	delete(m.undo, page)
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, pages int, changes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			pages++
		}
		changes += len(v)
	}
	return m.totalBytes, pages, changes
}

func (m *Manager) dropRedoLocked(page string) {
	for _, c := range m.redo[page] {
		m.totalBytes -= c.size()
	}
	delete(m.redo, page)
}

func (m *Manager) enforceCapsLocked(page string) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[page]
		if extra := len(stack) - m.cfg.MaxPerPage; extra > 0 {
			for _, c := range stack[:extra] {
				m.totalBytes -= c.size()
			}
			m.undo[page] = append([]Change(nil), stack[extra:]...)
		}
	}
	// global cap: prune the oldest change across all pages
	for m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var ts time.Time
		for p, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(ts) {
				oldest, ts, found = p, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= stack[0].size()
		if len(stack) == 1 {
			delete(m.undo, oldest)
		} else {
			m.undo[oldest] = stack[1:]
		}
	}
}
