// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package matcher

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/ManuGH/m3u2xmltv/internal/normalize"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// ErrInvalidTables is returned when a tables document cannot be used.
var ErrInvalidTables = errors.New("invalid matcher tables")

// Tables holds the data-driven parts of matching: the synonym table, the
// Canadian-exclusive brand pattern and the acceptance threshold.
type Tables struct {
	Version         int
	Threshold       float64
	CanadaExclusive *regexp.Regexp
	// Synonyms is keyed by normalize.ChannelName of the short name.
	Synonyms map[string][]string
}

type tablesFile struct {
	Version         int                 `yaml:"version"`
	Threshold       float64             `yaml:"threshold"`
	CanadaExclusive string              `yaml:"canada_exclusive"`
	Synonyms        map[string][]string `yaml:"synonyms"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() *Tables {
	defaultOnce.Do(func() {
		t, err := LoadTables(bytes.NewReader(defaultTablesYAML))
		if err != nil {
			panic(fmt.Sprintf("embedded matcher tables: %v", err))
		}
		defaultTables = t
	})
	return defaultTables
}

// LoadTablesFile reads a tables document from disk.
func LoadTablesFile(path string) (*Tables, error) {
	// #nosec G304 -- path comes from operator configuration
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open matcher tables: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadTables(f)
}

// LoadTables parses a tables document. Unknown keys are rejected and synonym
// keys are re-normalized, merging entries that collapse to the same key.
func LoadTables(r io.Reader) (*Tables, error) {
	var raw tablesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidTables, err)
	}

	if raw.Version < 1 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidTables, raw.Version)
	}
	if raw.Threshold <= 0 || raw.Threshold >= 1 {
		return nil, fmt.Errorf("%w: threshold %v outside (0,1)", ErrInvalidTables, raw.Threshold)
	}
	if raw.CanadaExclusive == "" {
		return nil, fmt.Errorf("%w: canada_exclusive pattern is empty", ErrInvalidTables)
	}
	re, err := regexp.Compile("(?i)" + raw.CanadaExclusive)
	if err != nil {
		return nil, fmt.Errorf("%w: canada_exclusive: %v", ErrInvalidTables, err)
	}

	keys := make([]string, 0, len(raw.Synonyms))
	for key := range raw.Synonyms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	syn := make(map[string][]string, len(raw.Synonyms))
	for _, key := range keys {
		k := normalize.ChannelName(key)
		if k == "" {
			continue
		}
		syn[k] = appendUnique(syn[k], raw.Synonyms[key]...)
	}

	return &Tables{
		Version:         raw.Version,
		Threshold:       raw.Threshold,
		CanadaExclusive: re,
		Synonyms:        syn,
	}, nil
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
