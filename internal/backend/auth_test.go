/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := signToken("s3cret", "alice", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := verifyToken("s3cret", tok, now)
	if err != nil || sub != "alice" {
		t.Fatalf("verify = %q, %v", sub, err)
	}
	if _, err := verifyToken("other", tok, now); !errors.Is(err, errTokenSig) {
		t.Fatalf("want signature error, got %v", err)
	}
	if _, err := verifyToken("s3cret", tok, now.Add(2*time.Minute)); !errors.Is(err, errTokenExpired) {
		t.Fatalf("want expiry error, got %v", err)
	}
	if _, err := verifyToken("s3cret", "no-dot", now); !errors.Is(err, errTokenFormat) {
		t.Fatalf("want format error, got %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("migrations/0002_indexes.sql")
	if err != nil || v != 2 {
		t.Fatalf("parseVersion = %d, %v", v, err)
	}
	if _, err := parseVersion("indexes.sql"); err == nil {
		t.Fatalf("expected error without version prefix")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least two migrations, got %d", len(entries))
	}
}
