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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// hclConfig mirrors Config with every block optional
type hclConfig struct {
	Workspace *struct {
		Root    string   `hcl:"root,optional"`
		Include []string `hcl:"include,optional"`
		Ignore  []string `hcl:"ignore,optional"`
	} `hcl:"workspace,block"`
	Matcher *struct {
		Binary    string   `hcl:"binary,optional"`
		Args      []string `hcl:"args,optional"`
		Lang      string   `hcl:"lang,optional"`
		BatchSize int      `hcl:"batch_size,optional"`
	} `hcl:"matcher,block"`
	Preview *struct {
		InvalidateOnChange bool `hcl:"invalidate_on_change,optional"`
	} `hcl:"preview,block"`
	Diff *struct {
		ContextLines int `hcl:"context_lines,optional"`
	} `hcl:"diff,block"`
	Remote *struct {
		Repo      string `hcl:"repo"`
		Ref       string `hcl:"ref,optional"`
		CacheSize int    `hcl:"cache_size,optional"`
	} `hcl:"remote,block"`
}

// 📝 Parse parses the config from HCL; expressions may read environment variables as env.NAME
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": environment(),
		},
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{}
	if w := hclCfg.Workspace; w != nil {
		cfg.Workspace = WorkspaceConfig{Root: w.Root, Include: w.Include, Ignore: w.Ignore}
	}
	if m := hclCfg.Matcher; m != nil {
		cfg.Matcher = MatcherConfig{Binary: m.Binary, Args: m.Args, Lang: m.Lang, BatchSize: m.BatchSize}
	}
	if pv := hclCfg.Preview; pv != nil {
		cfg.Preview.InvalidateOnChange = pv.InvalidateOnChange
	}
	if d := hclCfg.Diff; d != nil {
		cfg.Diff.ContextLines = d.ContextLines
	}
	if r := hclCfg.Remote; r != nil {
		cfg.Remote = &RemoteConfig{Repo: r.Repo, Ref: r.Ref, CacheSize: r.CacheSize}
	}

	return cfg, nil
}

func environment() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	return cty.ObjectVal(vars)
}
