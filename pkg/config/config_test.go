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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func TestLoad(t *testing.T) {
	t.Setenv("PREVIEWRC_TEST_LANG", "typescript")

	tests := []struct {
		name        string
		file        string
		config      string
		errContains string
		check       func(t *testing.T, dir string, cfg *Config)
	}{
		{
			name: "yaml_full",
			file: ".previewrc.yaml",
			config: `
workspace:
  root: src
  include: ["**/*.ts"]
  ignore: ["node_modules/**"]
matcher:
  binary: ast-grep
  args: ["--no-ignore", "hidden"]
  lang: ts
  batch_size: 16
preview:
  invalidate_on_change: true
diff:
  context_lines: 5
remote:
  repo: walteh/previewrc
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, filepath.Join(dir, "src"), cfg.Workspace.Root, "root should be relative to the config file")
				assert.Equal(t, []string{"**/*.ts"}, cfg.Workspace.Include)
				assert.Equal(t, []string{"node_modules/**"}, cfg.Workspace.Ignore)
				assert.Equal(t, "ast-grep", cfg.Matcher.Binary)
				assert.Equal(t, []string{"--no-ignore", "hidden"}, cfg.Matcher.Args)
				assert.Equal(t, "ts", cfg.Matcher.Lang)
				assert.Equal(t, 16, cfg.Matcher.BatchSize)
				assert.True(t, cfg.Preview.InvalidateOnChange)
				assert.Equal(t, 5, cfg.Diff.ContextLines)
				require.NotNil(t, cfg.Remote)
				assert.Equal(t, "walteh/previewrc", cfg.Remote.Repo)
				assert.Equal(t, DefaultRef, cfg.Remote.Ref)
				assert.Equal(t, DefaultCacheSize, cfg.Remote.CacheSize)
			},
		},
		{
			name:   "yaml_empty_uses_defaults",
			file:   ".previewrc.yml",
			config: "",
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, dir, cfg.Workspace.Root)
				assert.Equal(t, DefaultBinary, cfg.Matcher.Binary)
				assert.Equal(t, DefaultBatchSize, cfg.Matcher.BatchSize)
				assert.Equal(t, DefaultContextLines, cfg.Diff.ContextLines)
				assert.False(t, cfg.Preview.InvalidateOnChange)
				assert.Nil(t, cfg.Remote)
			},
		},
		{
			name:        "yaml_unknown_field",
			file:        ".previewrc.yaml",
			config:      "matcher:\n  binaryy: sg\n",
			errContains: "parsing YAML",
		},
		{
			name:   "json_full",
			file:   ".previewrc.json",
			config: `{"workspace":{"root":"/abs/ws","ignore":["dist/**"]},"matcher":{"lang":"go"},"remote":{"repo":"github.com/walteh/previewrc","ref":"v1","cache_size":8}}`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "/abs/ws", cfg.Workspace.Root)
				assert.Equal(t, []string{"dist/**"}, cfg.Workspace.Ignore)
				assert.Equal(t, "go", cfg.Matcher.Lang)
				assert.Equal(t, DefaultBinary, cfg.Matcher.Binary)
				require.NotNil(t, cfg.Remote)
				assert.Equal(t, "v1", cfg.Remote.Ref)
				assert.Equal(t, 8, cfg.Remote.CacheSize)
			},
		},
		{
			name:        "json_unknown_field",
			file:        ".previewrc.json",
			config:      `{"workspace":{"rooot":"."}}`,
			errContains: "parsing JSON",
		},
		{
			name:        "json_remote_without_repo",
			file:        ".previewrc.json",
			config:      `{"remote":{"ref":"main"}}`,
			errContains: "remote.repo is required",
		},
		{
			name:        "json_negative_batch_size",
			file:        ".previewrc.json",
			config:      `{"matcher":{"batch_size":-1}}`,
			errContains: "matcher.batch_size must not be negative",
		},
		{
			name: "hcl_full",
			file: ".previewrc.hcl",
			config: `
workspace {
  include = ["**/*.go"]
}

matcher {
  lang       = env.PREVIEWRC_TEST_LANG
  batch_size = 32
}

diff {
  context_lines = 1
}

remote {
  repo = "walteh/previewrc"
  ref  = "develop"
}
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, dir, cfg.Workspace.Root)
				assert.Equal(t, []string{"**/*.go"}, cfg.Workspace.Include)
				assert.Equal(t, "typescript", cfg.Matcher.Lang, "env variables should be available")
				assert.Equal(t, 32, cfg.Matcher.BatchSize)
				assert.Equal(t, 1, cfg.Diff.ContextLines)
				require.NotNil(t, cfg.Remote)
				assert.Equal(t, "develop", cfg.Remote.Ref)
			},
		},
		{
			name:        "hcl_syntax_error",
			file:        ".previewrc.hcl",
			config:      "matcher {",
			errContains: "parsing HCL",
		},
		{
			name:        "hcl_unknown_block",
			file:        ".previewrc.hcl",
			config:      "unknown {}\n",
			errContains: "decoding HCL",
		},
		{
			name:        "unsupported_extension",
			file:        "previewrc.toml",
			config:      "",
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0644), "writing config file should succeed")

			cfg, err := Load(testContext(t), path)
			if tt.errContains != "" {
				require.Error(t, err, "Load should return error")
				assert.Contains(t, err.Error(), tt.errContains, "error should contain expected message")
				return
			}

			require.NoError(t, err, "Load should succeed")
			assert.Equal(t, path, cfg.Location())
			tt.check(t, dir, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(testContext(t), filepath.Join(t.TempDir(), ".previewrc.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDiscover(t *testing.T) {
	t.Run("no_file_uses_defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Discover(testContext(t), dir)
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.Workspace.Root)
		assert.Equal(t, DefaultBinary, cfg.Matcher.Binary)
		assert.Empty(t, cfg.Location())
	})

	t.Run("json_preferred_over_yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".previewrc.json"), []byte(`{"matcher":{"lang":"json"}}`), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".previewrc.yaml"), []byte("matcher:\n  lang: yaml\n"), 0644))

		cfg, err := Discover(testContext(t), dir)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Matcher.Lang)
		assert.Equal(t, filepath.Join(dir, ".previewrc.json"), cfg.Location())
	})
}

func TestConfigString(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want string
	}{
		{
			name: "local",
			cfg:  &Config{Workspace: WorkspaceConfig{Root: "/ws"}, Matcher: MatcherConfig{Binary: "sg"}},
			want: "/ws (sg)",
		},
		{
			name: "remote",
			cfg:  &Config{Matcher: MatcherConfig{Binary: "sg"}, Remote: &RemoteConfig{Repo: "walteh/previewrc", Ref: "main"}},
			want: "walteh/previewrc@main (sg)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.String(), "String() should match")
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ".", cfg.Workspace.Root)
	assert.Equal(t, DefaultBatchSize, cfg.Matcher.BatchSize)
	assert.Equal(t, DefaultContextLines, cfg.Diff.ContextLines)
}
