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

package github

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v60/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultCacheSize is the number of file blobs kept in memory
const DefaultCacheSize = 128

// GitHubClient defines the GitHub API operations the source needs
type GitHubClient interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
}

// githubClientWrapper wraps the GitHub client to implement our interface
type githubClientWrapper struct {
	client *github.Client
}

func (w *githubClientWrapper) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	return w.client.Repositories.GetContents(ctx, owner, repo, path, opts)
}

// 🐙 Source reads files of one GitHub repository at a fixed ref
type Source struct {
	client GitHubClient
	owner  string
	repo   string
	ref    string
	blobs  *lru.Cache[string, []byte]
}

// NewSource creates a source for repo ("owner/name" or "github.com/owner/name").
// GITHUB_TOKEN is used for authentication when set.
func NewSource(repo, ref string, cacheSize int) (*Source, error) {
	client := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}
	return NewSourceWithClient(&githubClientWrapper{client: client}, repo, ref, cacheSize)
}

// NewSourceWithClient creates a source backed by an existing client
func NewSourceWithClient(client GitHubClient, repo, ref string, cacheSize int) (*Source, error) {
	owner, name, err := parseRepo(repo)
	if err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	blobs, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, errors.Errorf("creating blob cache: %w", err)
	}
	return &Source{
		client: client,
		owner:  owner,
		repo:   name,
		ref:    ref,
		blobs:  blobs,
	}, nil
}

// 🔍 parseRepo parses a GitHub repository reference
func parseRepo(repo string) (owner, name string, err error) {
	parts := strings.Split(strings.Trim(repo, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", errors.Errorf("invalid repository format: %s", repo)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// Name returns "owner/name"
func (s *Source) Name() string {
	return s.owner + "/" + s.repo
}

// Root returns the virtual workspace root files of this source live under
func (s *Source) Root() string {
	return filepath.Join(string(filepath.Separator), "github.com", s.owner, s.repo)
}

// ReadFile implements workspace.FileSource.ReadFile
func (s *Source) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	rel = path.Clean(strings.TrimPrefix(rel, "/"))
	key := s.ref + ":" + rel
	if blob, ok := s.blobs.Get(key); ok {
		return append([]byte(nil), blob...), nil
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("repo", s.Name()).Str("ref", s.ref).Str("path", rel).Msg("fetching file from github")

	var opts *github.RepositoryContentGetOptions
	if s.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.ref}
	}

	file, _, _, err := s.client.GetContents(ctx, s.owner, s.repo, rel, opts)
	if err != nil {
		return nil, errors.Errorf("getting contents of %s: %w", rel, err)
	}
	if file == nil {
		return nil, errors.Errorf("%s is a directory", rel)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, errors.Errorf("decoding contents of %s: %w", rel, err)
	}

	blob := []byte(content)
	s.blobs.Add(key, blob)
	return append([]byte(nil), blob...), nil
}
