/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService     = "PageSnap"
	keyringPostgresDSN = "postgres_dsn"
)

// SecretStore abstracts the OS keyring, so we can stub in tests.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var secrets SecretStore = osKeyring{}

// osKeyring implements SecretStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// SavePostgresDSN stores the DSN in the OS keyring. An empty DSN removes it.
func SavePostgresDSN(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		err := secrets.Delete(keyringService, keyringPostgresDSN)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return secrets.Set(keyringService, keyringPostgresDSN, dsn)
}

// PostgresDSN reads the keyring entry; it returns "" when nothing is stored.
func PostgresDSN() (string, error) {
	dsn, err := secrets.Get(keyringService, keyringPostgresDSN)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return dsn, err
}

// SetSecretStore swaps the keyring backend and returns a restore func.
func SetSecretStore(s SecretStore) (restore func()) {
	prev := secrets
	secrets = s
	return func() { secrets = prev }
}
