package session

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/previewrc/pkg/matcher"
	"github.com/walteh/previewrc/pkg/preview"
	"github.com/walteh/previewrc/pkg/text"
	"github.com/walteh/previewrc/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

// 🔧 mockHost is a mock implementation of the Host interface
type mockHost struct {
	mock.Mock
}

func (m *mockHost) OpenFile(ctx context.Context, uri preview.URI, selection *Range) error {
	return m.Called(ctx, uri, selection).Error(0)
}

func (m *mockHost) OpenDiff(ctx context.Context, left, right preview.URI, title string) error {
	return m.Called(ctx, left, right, title).Error(0)
}

func (m *mockHost) RevealRange(ctx context.Context, uri preview.URI, r Range) error {
	return m.Called(ctx, uri, r).Error(0)
}

func (m *mockHost) ShowError(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

type recordingTracker struct {
	paths []string
}

func (t *recordingTracker) Track(path string) error {
	t.paths = append(t.paths, path)
	return nil
}

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func setupWorkspace(t *testing.T, files map[string][]byte) *workspace.Workspace {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}
	ws, err := workspace.New(root, workspace.WithIgnore("vendor/**"))
	require.NoError(t, err)
	return ws
}

func TestController_PreviewDiff(t *testing.T) {
	ctx := testContext(t)
	ws := setupWorkspace(t, map[string][]byte{"src/a.txt": []byte("foo bar foo")})
	path := filepath.Join(ws.Root(), "src", "a.txt")

	host := &mockHost{}
	host.On("OpenDiff", mock.Anything, preview.FileURI(path), preview.PreviewURI(path), "a.txt (preview)").Return(nil).Once()

	cache := preview.NewCache()
	tracker := &recordingTracker{}
	c := NewController(ws, matcher.NewLiteral(), cache, host, WithTracker(tracker))

	s, err := c.PreviewDiff(ctx, Request{FilePath: "src/a.txt", Pattern: "foo", Rewrite: "FOO"})
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, []State{
		StateIdle, StateRequested, StateMatching, StateStitching, StateCached, StateDiffOpened, StateIdle,
	}, s.History)
	assert.Equal(t, path, s.Path)
	require.NotNil(t, s.Stitch)
	assert.Equal(t, 2, s.Stitch.Applied)

	assert.Equal(t, "FOO bar FOO", cache.Read(path))
	assert.Equal(t, "FOO bar FOO", preview.NewContentProvider(cache).ProvideContent(ctx, preview.PreviewURI(path)))
	assert.Equal(t, []string{path}, tracker.paths)

	host.AssertExpectations(t)
}

func TestController_PreviewDiff_RevealsSelection(t *testing.T) {
	ctx := testContext(t)
	ws := setupWorkspace(t, map[string][]byte{"a.txt": []byte("foo bar foo")})
	path := filepath.Join(ws.Root(), "a.txt")
	sel := Range{Start: Position{Line: 0, Column: 4}, End: Position{Line: 0, Column: 7}}

	host := &mockHost{}
	host.On("OpenDiff", mock.Anything, preview.FileURI(path), preview.PreviewURI(path), mock.Anything).Return(nil).Once()
	host.On("RevealRange", mock.Anything, preview.PreviewURI(path), sel).Return(nil).Once()

	c := NewController(ws, matcher.NewLiteral(), preview.NewCache(), host)

	s, err := c.PreviewDiff(ctx, Request{FilePath: "a.txt", Pattern: "bar", Rewrite: "baz", Selection: &sel})
	require.NoError(t, err)
	assert.Equal(t, StateRangeRevealed, s.State)

	host.AssertExpectations(t)
}

func TestController_PreviewDiff_ExistingEntryWins(t *testing.T) {
	ctx := testContext(t)
	ws := setupWorkspace(t, map[string][]byte{"a.txt": []byte("foo bar foo")})
	path := filepath.Join(ws.Root(), "a.txt")

	var calls atomic.Int32
	m := matcher.MatcherFunc(func(ctx context.Context, spec matcher.Spec) (text.MatchStream, error) {
		calls.Add(1)
		return matcher.NewLiteral().Match(ctx, spec)
	})

	host := &mockHost{}
	host.On("OpenDiff", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Twice()

	cache := preview.NewCache()
	c := NewController(ws, m, cache, host)

	_, err := c.PreviewDiff(ctx, Request{FilePath: "a.txt", Pattern: "foo", Rewrite: "first"})
	require.NoError(t, err)

	s, err := c.PreviewDiff(ctx, Request{FilePath: "a.txt", Pattern: "foo", Rewrite: "second"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "matcher should run once")
	assert.Equal(t, []State{StateIdle, StateRequested, StateDiffOpened, StateIdle}, s.History)
	assert.Nil(t, s.Stitch)
	assert.Equal(t, "first bar first", cache.Read(path))

	// closing the preview evicts it, so the next request produces again
	preview.NewLifecycleHook(cache).DidClose(ctx, preview.PreviewURI(path))
	_, err = c.PreviewDiff(ctx, Request{FilePath: "a.txt", Pattern: "foo", Rewrite: "third"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "third bar third", cache.Read(path))
}

func TestController_PreviewDiff_InputErrorsAreSilent(t *testing.T) {
	ws := setupWorkspace(t, map[string][]byte{"a.txt": []byte("x"), "vendor/b.txt": []byte("x")})

	tests := []struct {
		name string
		ws   *workspace.Workspace
		path string
	}{
		{name: "no_workspace", ws: nil, path: "a.txt"},
		{name: "outside_workspace", ws: ws, path: "../elsewhere.txt"},
		{name: "ignored_file", ws: ws, path: "vendor/b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &mockHost{}
			cache := preview.NewCache()
			c := NewController(tt.ws, matcher.NewLiteral(), cache, host)

			s, err := c.PreviewDiff(testContext(t), Request{FilePath: tt.path, Pattern: "x", Rewrite: "y"})
			require.NoError(t, err)
			assert.Nil(t, s)
			assert.Equal(t, 0, cache.Len())
			host.AssertExpectations(t)
		})
	}
}

func TestController_PreviewDiff_Failures(t *testing.T) {
	tests := []struct {
		name      string
		content   []byte
		matcher   matcher.Matcher
		check     func(t *testing.T, err error)
		wantState []State
	}{
		{
			name:    "invalid_utf8",
			content: []byte{'o', 'k', 0xff},
			matcher: matcher.NewLiteral(),
			check: func(t *testing.T, err error) {
				var decodeErr *text.DecodeError
				require.True(t, errors.As(err, &decodeErr), "error should be a DecodeError")
				assert.Equal(t, 2, decodeErr.Offset)
			},
			wantState: []State{StateIdle, StateRequested, StateMatching, StateStitching, StateFailed},
		},
		{
			name:    "matcher_error",
			content: []byte("foo"),
			matcher: matcher.MatcherFunc(func(ctx context.Context, spec matcher.Spec) (text.MatchStream, error) {
				return nil, &matcher.ProcessError{ExitCode: 2, Stderr: "bad pattern"}
			}),
			check: func(t *testing.T, err error) {
				var procErr *matcher.ProcessError
				require.True(t, errors.As(err, &procErr), "error should be a ProcessError")
				assert.Contains(t, err.Error(), "bad pattern")
			},
			wantState: []State{StateIdle, StateRequested, StateMatching, StateFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			ws := setupWorkspace(t, map[string][]byte{"a.txt": tt.content})

			host := &mockHost{}
			host.On("ShowError", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()

			cache := preview.NewCache()
			c := NewController(ws, tt.matcher, cache, host)

			s, err := c.PreviewDiff(ctx, Request{FilePath: "a.txt", Pattern: "foo", Rewrite: "bar"})
			require.Error(t, err)
			require.NotNil(t, s)
			tt.check(t, err)

			assert.Equal(t, StateFailed, s.State)
			assert.Equal(t, tt.wantState, s.History)
			assert.Equal(t, err.Error(), "previewing a.txt: "+s.Err.Error())
			assert.Equal(t, 0, cache.Len(), "failed previews are not cached")
			host.AssertExpectations(t)
			host.AssertNotCalled(t, "OpenDiff", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

type memorySource map[string]string

func (m memorySource) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	content, ok := m[rel]
	if !ok {
		return nil, errors.Errorf("not found: %s", rel)
	}
	return []byte(content), nil
}

func TestController_PreviewDiff_RemoteWorkspace(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "github.com", "walteh", "previewrc")
	ws, err := workspace.New(root, workspace.WithSource(memorySource{"a.go": "foo bar foo"}))
	require.NoError(t, err)

	t.Run("requires_language", func(t *testing.T) {
		host := &mockHost{}
		host.On("ShowError", mock.Anything, mock.Anything).Return(nil).Once()

		c := NewController(ws, matcher.NewLiteral(), preview.NewCache(), host)
		_, err := c.PreviewDiff(testContext(t), Request{FilePath: "a.go", Pattern: "foo", Rewrite: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a language is required")
		host.AssertExpectations(t)
	})

	t.Run("default_language", func(t *testing.T) {
		var gotLang string
		m := matcher.MatcherFunc(func(ctx context.Context, spec matcher.Spec) (text.MatchStream, error) {
			gotLang = spec.Lang
			return matcher.NewLiteral().Match(ctx, spec)
		})

		host := &mockHost{}
		host.On("OpenDiff", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		tracker := &recordingTracker{}
		cache := preview.NewCache()
		c := NewController(ws, m, cache, host, WithDefaultLang("go"), WithTracker(tracker))
		_, err := c.PreviewDiff(testContext(t), Request{FilePath: "a.go", Pattern: "foo", Rewrite: "x"})
		require.NoError(t, err)

		assert.Equal(t, "go", gotLang)
		assert.Equal(t, "x bar x", cache.Read(filepath.Join(root, "a.go")))
		assert.Empty(t, tracker.paths, "remote files are not watched")
	})
}

func TestController_OpenFile(t *testing.T) {
	ctx := testContext(t)
	ws := setupWorkspace(t, map[string][]byte{"a.txt": []byte("x")})
	path := filepath.Join(ws.Root(), "a.txt")
	sel := &Range{Start: Position{Line: 1, Column: 2}, End: Position{Line: 1, Column: 5}}

	host := &mockHost{}
	host.On("OpenFile", mock.Anything, preview.FileURI(path), sel).Return(nil).Once()

	c := NewController(ws, matcher.NewLiteral(), preview.NewCache(), host)
	require.NoError(t, c.OpenFile(ctx, OpenFileRequest{FilePath: "a.txt", Selection: sel}))
	require.NoError(t, c.OpenFile(ctx, OpenFileRequest{FilePath: "../outside.txt"}))

	host.AssertExpectations(t)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Range
		wantErr bool
	}{
		{name: "full_range", input: "1:2-3:4", want: Range{Start: Position{1, 2}, End: Position{3, 4}}},
		{name: "single_position", input: "5:0", want: Range{Start: Position{5, 0}, End: Position{5, 0}}},
		{name: "missing_column", input: "5", wantErr: true},
		{name: "negative_line", input: "-1:0", wantErr: true},
		{name: "garbage_end", input: "1:2-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Range {
	t.Helper()
	r, err := ParseRange(s)
	require.NoError(t, err)
	return r
}

func TestController_PreviewDiff_CancelIsScopedToOneRequest(t *testing.T) {
	ws := setupWorkspace(t, map[string][]byte{"a.txt": []byte("foo bar foo")})
	path := filepath.Join(ws.Root(), "a.txt")

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	m := matcher.MatcherFunc(func(ctx context.Context, spec matcher.Spec) (text.MatchStream, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return matcher.NewLiteral().Match(ctx, spec)
	})

	host := &mockHost{}
	host.On("OpenDiff", mock.Anything, preview.FileURI(path), preview.PreviewURI(path), mock.Anything).Return(nil).Once()

	cache := preview.NewCache()
	c := NewController(ws, m, cache, host)

	firstCtx, cancelFirst := context.WithCancel(testContext(t))
	defer cancelFirst()

	type outcome struct {
		s   *Session
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		s, err := c.PreviewDiff(firstCtx, Request{FilePath: "a.txt", Pattern: "foo", Rewrite: "FOO"})
		first <- outcome{s, err}
	}()
	<-started

	second := make(chan outcome, 1)
	go func() {
		s, err := c.PreviewDiff(testContext(t), Request{FilePath: "a.txt", Pattern: "foo", Rewrite: "FOO"})
		second <- outcome{s, err}
	}()

	// give the second request a moment to join the in-flight production
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	got := <-first
	require.Error(t, got.err)
	assert.ErrorIs(t, got.err, context.Canceled)
	assert.Equal(t, StateFailed, got.s.State)

	close(release)

	got = <-second
	require.NoError(t, got.err, "the other request should not be failed by the cancellation")
	assert.Equal(t, StateIdle, got.s.State)
	assert.Equal(t, "FOO bar FOO", cache.Read(path))
	assert.Equal(t, int32(1), calls.Load())

	host.AssertExpectations(t)
	host.AssertNotCalled(t, "ShowError", mock.Anything, mock.Anything)
}
