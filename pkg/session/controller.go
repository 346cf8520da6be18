// Package session drives a preview request from the matcher to the host diff view.
package session

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/previewrc/pkg/matcher"
	"github.com/walteh/previewrc/pkg/preview"
	"github.com/walteh/previewrc/pkg/text"
	"github.com/walteh/previewrc/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

// Host is the editor surface a controller drives
type Host interface {
	OpenFile(ctx context.Context, uri preview.URI, selection *Range) error
	OpenDiff(ctx context.Context, left, right preview.URI, title string) error
	RevealRange(ctx context.Context, uri preview.URI, r Range) error
	ShowError(ctx context.Context, message string) error
}

// Tracker is told about every file a preview was produced from
type Tracker interface {
	Track(path string) error
}

// Option configures a Controller
type Option func(*Controller)

// WithDefaultLang sets the language used when a request names none
func WithDefaultLang(lang string) Option {
	return func(c *Controller) {
		c.lang = lang
	}
}

// WithTracker registers produced files with t
func WithTracker(t Tracker) Option {
	return func(c *Controller) {
		c.tracker = t
	}
}

// 🎬 Controller turns preview requests into cached previews and host commands
type Controller struct {
	workspace *workspace.Workspace
	matcher   matcher.Matcher
	cache     *preview.Cache
	host      Host
	lang      string
	tracker   Tracker
}

// NewController creates a controller; the cache is shared with the content provider and lifecycle hook
func NewController(ws *workspace.Workspace, m matcher.Matcher, cache *preview.Cache, host Host, opts ...Option) *Controller {
	c := &Controller{
		workspace: ws,
		matcher:   m,
		cache:     cache,
		host:      host,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PreviewDiff produces the preview for req and opens it next to the original file.
//
// Input errors are not reported: the result is (nil, nil). Matcher and
// stitching failures are shown through the host once and returned.
func (c *Controller) PreviewDiff(ctx context.Context, req Request) (*Session, error) {
	logger := zerolog.Ctx(ctx)
	s := newSession()
	s.transition(StateRequested)

	path, err := c.workspace.Resolve(req.FilePath)
	if err != nil {
		if workspace.IsInputError(err) {
			logger.Debug().Err(err).Str("file", req.FilePath).Msg("ignoring preview request")
			return nil, nil
		}
		s.fail(err)
		return s, errors.Errorf("resolving %s: %w", req.FilePath, err)
	}
	s.Path = path

	sessionLogger := logger.With().Str("session", s.ID.String()).Str("file", path).Logger()
	logger = &sessionLogger
	ctx = sessionLogger.WithContext(ctx)

	key := path
	if c.cache.Has(key) {
		logger.Debug().Msg("preview already cached")
	} else {
		_, _, err := c.cache.GetOrCreate(ctx, key, func(ctx context.Context) (string, error) {
			return c.produce(ctx, s, path, req)
		})
		if err != nil {
			s.fail(err)
			c.notify(ctx, err)
			return s, errors.Errorf("previewing %s: %w", req.FilePath, err)
		}
		s.transition(StateCached)
		c.track(ctx, path)
	}

	fileURI := preview.FileURI(path)
	previewURI := preview.PreviewURI(path)

	if err := c.host.OpenDiff(ctx, fileURI, previewURI, filepath.Base(path)+" (preview)"); err != nil {
		s.fail(err)
		return s, errors.Errorf("opening diff: %w", err)
	}
	s.transition(StateDiffOpened)

	if req.Selection != nil {
		if err := c.host.RevealRange(ctx, previewURI, *req.Selection); err != nil {
			s.fail(err)
			return s, errors.Errorf("revealing range: %w", err)
		}
		s.transition(StateRangeRevealed)
		return s, nil
	}

	s.transition(StateIdle)
	return s, nil
}

// produce reads the file once, runs the matcher and stitches its records
func (c *Controller) produce(ctx context.Context, s *Session, path string, req Request) (string, error) {
	lang := req.Lang
	if lang == "" {
		lang = c.lang
	}
	if !c.workspace.Local() && lang == "" {
		return "", errors.New("a language is required to preview remote files")
	}

	original, err := c.workspace.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}

	s.transition(StateMatching)
	stream, err := c.matcher.Match(ctx, matcher.Spec{
		Pattern: req.Pattern,
		Rewrite: req.Rewrite,
		Path:    path,
		Lang:    lang,
		Content: original,
	})
	if err != nil {
		return "", errors.Errorf("running matcher: %w", err)
	}

	s.transition(StateStitching)
	result, err := text.Stitch(ctx, original, stream)
	if err != nil {
		return "", errors.Errorf("stitching: %w", err)
	}
	s.setStitch(result)

	zerolog.Ctx(ctx).Debug().
		Int("applied", result.Applied).
		Int("dropped", len(result.Dropped)).
		Int("invalid", len(result.Invalid)).
		Msg("preview produced")

	return result.Text, nil
}

// OpenFile opens a workspace file in the host, optionally selecting a range
func (c *Controller) OpenFile(ctx context.Context, req OpenFileRequest) error {
	path, err := c.workspace.Resolve(req.FilePath)
	if err != nil {
		if workspace.IsInputError(err) {
			zerolog.Ctx(ctx).Debug().Err(err).Str("file", req.FilePath).Msg("ignoring open request")
			return nil
		}
		return errors.Errorf("resolving %s: %w", req.FilePath, err)
	}

	if err := c.host.OpenFile(ctx, preview.FileURI(path), req.Selection); err != nil {
		return errors.Errorf("opening file: %w", err)
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, err error) {
	// a request cancelled by its caller has no one left to notify
	if ctx.Err() != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("preview cancelled")
		return
	}
	if showErr := c.host.ShowError(ctx, err.Error()); showErr != nil {
		zerolog.Ctx(ctx).Warn().Err(showErr).Msg("failed to show error")
	}
}

func (c *Controller) track(ctx context.Context, path string) {
	if c.tracker == nil || !c.workspace.Local() {
		return
	}
	if err := c.tracker.Track(path); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", path).Msg("failed to watch file")
	}
}
