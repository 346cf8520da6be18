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

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNoWorkspace means there is no workspace root to resolve paths against
	ErrNoWorkspace = errors.Base("no workspace folder is open")

	// ErrOutsideWorkspace means a path escapes the workspace root
	ErrOutsideWorkspace = errors.Base("path is outside the workspace")

	// ErrIgnored means a path is excluded by the include/ignore globs
	ErrIgnored = errors.Base("path is excluded by the workspace globs")
)

// IsInputError reports whether err means there is no usable target file
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoWorkspace) || errors.Is(err, ErrOutsideWorkspace) || errors.Is(err, ErrIgnored)
}

// 📂 FileSource reads raw file bytes by workspace-relative, slash-separated path
type FileSource interface {
	ReadFile(ctx context.Context, rel string) ([]byte, error)
}

// 🗂️ Workspace resolves paths to canonical file identities and reads their bytes
type Workspace struct {
	root    string
	include []string
	ignore  []string
	source  FileSource
	local   bool
}

// Option configures a Workspace
type Option func(*Workspace)

// WithInclude restricts the workspace to paths matching at least one glob
func WithInclude(globs ...string) Option {
	return func(w *Workspace) {
		w.include = append(w.include, globs...)
	}
}

// WithIgnore excludes paths matching any glob
func WithIgnore(globs ...string) Option {
	return func(w *Workspace) {
		w.ignore = append(w.ignore, globs...)
	}
}

// WithSource replaces the local file system with another source of bytes
func WithSource(source FileSource) Option {
	return func(w *Workspace) {
		w.source = source
		w.local = false
	}
}

// 🏭 New creates a workspace rooted at root. An empty root yields ErrNoWorkspace.
func New(root string, opts ...Option) (*Workspace, error) {
	if root == "" {
		return nil, ErrNoWorkspace
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving workspace root: %w", err)
	}

	w := &Workspace{root: filepath.Clean(abs), local: true}
	w.source = &LocalSource{Root: w.root}
	for _, opt := range opts {
		opt(w)
	}

	for _, g := range append(append([]string{}, w.include...), w.ignore...) {
		if !doublestar.ValidatePattern(g) {
			return nil, errors.Errorf("invalid glob pattern %q", g)
		}
	}

	return w, nil
}

// Root returns the absolute workspace root
func (w *Workspace) Root() string {
	return w.root
}

// Local reports whether files are read from the local file system
func (w *Workspace) Local() bool {
	return w.local
}

// Resolve turns a workspace-relative (or absolute) path into its canonical absolute path
func (w *Workspace) Resolve(path string) (string, error) {
	if w == nil || w.root == "" {
		return "", ErrNoWorkspace
	}
	if path == "" {
		return "", errors.Errorf("empty path: %w", ErrOutsideWorkspace)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(w.root, path)
	}
	abs = filepath.Clean(abs)

	rel, err := w.Rel(abs)
	if err != nil {
		return "", err
	}

	if len(w.include) > 0 && !matchAny(w.include, rel) {
		return "", errors.Errorf("%s matches no include glob: %w", rel, ErrIgnored)
	}
	if matchAny(w.ignore, rel) {
		return "", errors.Errorf("%s matches an ignore glob: %w", rel, ErrIgnored)
	}

	return abs, nil
}

// Rel returns the slash-separated path of abs relative to the workspace root
func (w *Workspace) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", errors.Errorf("%s: %w", abs, ErrOutsideWorkspace)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%s: %w", abs, ErrOutsideWorkspace)
	}
	return filepath.ToSlash(rel), nil
}

// ReadFile reads the raw bytes of the file at the canonical path
func (w *Workspace) ReadFile(ctx context.Context, path string) ([]byte, error) {
	rel, err := w.Rel(path)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("path", rel).Bool("local", w.local).Msg("reading workspace file")

	content, err := w.source.ReadFile(ctx, rel)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", rel, err)
	}
	return content, nil
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// LocalSource reads files below Root on the local file system
type LocalSource struct {
	Root string
}

// ReadFile implements FileSource.ReadFile
func (s *LocalSource) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, errors.Errorf("reading file: %w", err)
	}
	return content, nil
}
