// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	DefaultBinary       = "sg"
	DefaultBatchSize    = 64
	DefaultContextLines = 3
	DefaultRef          = "main"
	DefaultCacheSize    = 128
)

// FileNames are the config files Discover looks for, in order
var FileNames = []string{".previewrc.json", ".previewrc.yaml", ".previewrc.yml", ".previewrc.hcl"}

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📁 WorkspaceConfig selects the files previews may be produced for
type WorkspaceConfig struct {
	Root    string   `json:"root,omitempty" yaml:"root,omitempty"`       // Workspace root, relative to the config file
	Include []string `json:"include,omitempty" yaml:"include,omitempty"` // Globs a file must match
	Ignore  []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`   // Globs that exclude a file
}

// 🌳 MatcherConfig configures the ast-grep process
type MatcherConfig struct {
	Binary    string   `json:"binary,omitempty" yaml:"binary,omitempty"`
	Args      []string `json:"args,omitempty" yaml:"args,omitempty"`
	Lang      string   `json:"lang,omitempty" yaml:"lang,omitempty"`
	BatchSize int      `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
}

// PreviewConfig configures the preview cache
type PreviewConfig struct {
	InvalidateOnChange bool `json:"invalidate_on_change,omitempty" yaml:"invalidate_on_change,omitempty"`
}

// DiffConfig configures the terminal diff view
type DiffConfig struct {
	ContextLines int `json:"context_lines,omitempty" yaml:"context_lines,omitempty"` // Zero uses DefaultContextLines
}

// 📦 RemoteConfig reads workspace files from a GitHub repository instead of disk
type RemoteConfig struct {
	Repo      string `json:"repo" yaml:"repo"` // owner/name or github.com/owner/name
	Ref       string `json:"ref,omitempty" yaml:"ref,omitempty"`
	CacheSize int    `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Workspace WorkspaceConfig `json:"workspace" yaml:"workspace"`
	Matcher   MatcherConfig   `json:"matcher" yaml:"matcher"`
	Preview   PreviewConfig   `json:"preview" yaml:"preview"`
	Diff      DiffConfig      `json:"diff" yaml:"diff"`
	Remote    *RemoteConfig   `json:"remote,omitempty" yaml:"remote,omitempty"`

	location string
}

// Default returns a validated config rooted at the current directory
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Location returns the file the config was loaded from, empty for defaults
func (cfg *Config) Location() string {
	return cfg.location
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	cfg.location = path
	if cfg.Workspace.Root != "" && !filepath.IsAbs(cfg.Workspace.Root) {
		cfg.Workspace.Root = filepath.Join(filepath.Dir(path), cfg.Workspace.Root)
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = filepath.Dir(path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Discover loads the first of FileNames found in dir, or defaults rooted at dir
func Discover(ctx context.Context, dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(ctx, path)
		} else if !os.IsNotExist(err) {
			return nil, errors.Errorf("checking %s: %w", path, err)
		}
	}

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("no config file found, using defaults")
	cfg := &Config{Workspace: WorkspaceConfig{Root: dir}}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.Matcher.BatchSize < 0 {
		return errors.Errorf("matcher.batch_size must not be negative")
	}
	if cfg.Diff.ContextLines < 0 {
		return errors.Errorf("diff.context_lines must not be negative")
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}
	cfg.Workspace.Root = filepath.Clean(cfg.Workspace.Root)

	if cfg.Matcher.Binary == "" {
		cfg.Matcher.Binary = DefaultBinary
	}
	if cfg.Matcher.BatchSize == 0 {
		cfg.Matcher.BatchSize = DefaultBatchSize
	}
	if cfg.Diff.ContextLines == 0 {
		cfg.Diff.ContextLines = DefaultContextLines
	}

	if cfg.Remote != nil {
		if cfg.Remote.Repo == "" {
			return errors.Errorf("remote.repo is required")
		}
		if cfg.Remote.CacheSize < 0 {
			return errors.Errorf("remote.cache_size must not be negative")
		}
		if cfg.Remote.Ref == "" {
			cfg.Remote.Ref = DefaultRef
		}
		if cfg.Remote.CacheSize == 0 {
			cfg.Remote.CacheSize = DefaultCacheSize
		}
	}

	return nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	if cfg.Remote != nil {
		return fmt.Sprintf("%s@%s (%s)", cfg.Remote.Repo, cfg.Remote.Ref, cfg.Matcher.Binary)
	}
	return fmt.Sprintf("%s (%s)", cfg.Workspace.Root, cfg.Matcher.Binary)
}
