/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	gojsonschema "github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScene wraps every schema or consistency failure.
var ErrInvalidScene = errors.New("invalid scene")

// Format names a scene file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

//go:embed scene.schema.json
var schemaJSON []byte

var schema = gojsonschema.NewBytesLoader(schemaJSON)

// Schema returns the embedded JSON Schema.
func Schema() []byte { return append([]byte(nil), schemaJSON...) }

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported scene file extension %q", filepath.Ext(path))
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes data in the given format into a generic document, validates
// it against the schema, then decodes it into a Scene and checks references.
func Parse(data []byte, f Format) (*Scene, error) {
	var doc any
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidScene, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidScene, err)
		}
	case FormatTOML:
		m := map[string]any{}
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("%w: decode toml: %v", ErrInvalidScene, err)
		}
		doc = m
	default:
		return nil, fmt.Errorf("unsupported scene format %q", f)
	}

	// one canonical JSON form for the schema and the typed decode
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	res, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(canonical))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidScene, strings.Join(msgs, "; "))
	}

	var s Scene
	if err := json.Unmarshal(canonical, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	if issues := s.check(); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScene, strings.Join(issues, "; "))
	}
	return &s, nil
}

// Encode writes s in the given format.
func Encode(s *Scene, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML, FormatTOML:
		// round-trip through a generic map so the json tags name the keys
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if f == FormatYAML {
			return yaml.Marshal(m)
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(m); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported scene format %q", f)
}
