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

// Package matcher is the boundary to whatever finds structural matches in a file.
package matcher

import (
	"context"

	"github.com/walteh/previewrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🔍 Spec describes one search/replace run scoped to a single file
type Spec struct {
	// Pattern is the search pattern
	Pattern string

	// Rewrite is the rewrite template applied to every match
	Rewrite string

	// Path is the canonical path of the target file
	Path string

	// Lang is the language of the file; optional when it can be inferred from Path
	Lang string

	// Content is the raw file content already read by the caller, if any
	Content []byte
}

// Validate checks that the spec can be run
func (s Spec) Validate() error {
	if s.Pattern == "" {
		return errors.Errorf("pattern is required")
	}
	if s.Path == "" && s.Content == nil {
		return errors.Errorf("path or content is required")
	}
	return nil
}

// 🎯 Matcher produces the match stream for a spec
type Matcher interface {
	Match(ctx context.Context, spec Spec) (text.MatchStream, error)
}

// MatcherFunc adapts a function to the Matcher interface
type MatcherFunc func(ctx context.Context, spec Spec) (text.MatchStream, error)

func (f MatcherFunc) Match(ctx context.Context, spec Spec) (text.MatchStream, error) {
	return f(ctx, spec)
}
