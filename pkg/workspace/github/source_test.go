package github

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

// 🔧 mockClient is a mock implementation of GitHubClient
type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	args := m.Called(ctx, owner, repo, path, opts)
	file, _ := args.Get(0).(*github.RepositoryContent)
	dir, _ := args.Get(1).([]*github.RepositoryContent)
	return file, dir, nil, args.Error(2)
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func base64File(content string) *github.RepositoryContent {
	return &github.RepositoryContent{
		Encoding: github.String("base64"),
		Content:  github.String(base64.StdEncoding.EncodeToString([]byte(content))),
	}
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "owner_name", input: "walteh/previewrc", wantOwner: "walteh", wantRepo: "previewrc"},
		{name: "with_host", input: "github.com/walteh/previewrc", wantOwner: "walteh", wantRepo: "previewrc"},
		{name: "trailing_slash", input: "walteh/previewrc/", wantOwner: "walteh", wantRepo: "previewrc"},
		{name: "empty", input: "", wantErr: true},
		{name: "missing_slash", input: "previewrc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := parseRepo(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid repository format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestSource_ReadFile(t *testing.T) {
	ctx := testContext(t)
	client := &mockClient{}
	client.On("GetContents", mock.Anything, "walteh", "previewrc", "pkg/a.go", &github.RepositoryContentGetOptions{Ref: "main"}).
		Return(base64File("package a\n"), nil, nil).Once()

	src, err := NewSourceWithClient(client, "walteh/previewrc", "main", 4)
	require.NoError(t, err)
	assert.Equal(t, "walteh/previewrc", src.Name())
	assert.Equal(t, filepath.Join(string(filepath.Separator), "github.com", "walteh", "previewrc"), src.Root())

	content, err := src.ReadFile(ctx, "pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a\n", string(content))

	// second read is served from the blob cache
	content[0] = 'X'
	again, err := src.ReadFile(ctx, "/pkg/./a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a\n", string(again))

	client.AssertExpectations(t)
}

func TestSource_ReadFileErrors(t *testing.T) {
	t.Run("api_error", func(t *testing.T) {
		client := &mockClient{}
		client.On("GetContents", mock.Anything, "walteh", "previewrc", "missing.go", mock.Anything).
			Return(nil, nil, errors.New("404 Not Found"))

		src, err := NewSourceWithClient(client, "walteh/previewrc", "main", 0)
		require.NoError(t, err)

		_, err = src.ReadFile(testContext(t), "missing.go")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting contents of missing.go")
		assert.Contains(t, err.Error(), "404 Not Found")
	})

	t.Run("directory", func(t *testing.T) {
		client := &mockClient{}
		client.On("GetContents", mock.Anything, "walteh", "previewrc", "pkg", mock.Anything).
			Return(nil, []*github.RepositoryContent{{Name: github.String("a.go")}}, nil)

		src, err := NewSourceWithClient(client, "walteh/previewrc", "", 0)
		require.NoError(t, err)

		_, err = src.ReadFile(testContext(t), "pkg")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is a directory")
	})
}
