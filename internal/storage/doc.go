/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists replay runs.
// The local store is a per-user SQLite file (WAL mode, meta/version tables, numbered migrations).
// Each run is kept as a JSON document next to denormalised summary columns and one row per frame,
// so listings never decode the full document. The Postgres store in internal/backend satisfies the same RunStore.
package storage
