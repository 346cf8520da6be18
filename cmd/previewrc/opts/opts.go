package opts

import (
	"context"

	"github.com/walteh/previewrc/pkg/config"
	"github.com/walteh/previewrc/pkg/log"
	"github.com/walteh/previewrc/pkg/matcher"
	"github.com/walteh/previewrc/pkg/preview"
	"github.com/walteh/previewrc/pkg/session"
	"github.com/walteh/previewrc/pkg/watch"
	"github.com/walteh/previewrc/pkg/workspace"
	"github.com/walteh/previewrc/pkg/workspace/github"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Config     *config.Config
	Workspace  *workspace.Workspace
	Matcher    matcher.Matcher
	Cache      *preview.Cache
	Provider   *preview.ContentProvider
	Hook       *preview.LifecycleHook
	UserLogger *log.Logger

	// Watcher is nil unless previews are invalidated on file changes
	Watcher *watch.Watcher
}

// Init wires the preview components described by cfg into o
func (o *RootOpts) Init(ctx context.Context, cfg *config.Config, literal bool) error {
	ws, err := newWorkspace(cfg)
	if err != nil {
		return err
	}

	var m matcher.Matcher
	if literal {
		m = &matcher.Literal{BatchSize: cfg.Matcher.BatchSize}
	} else {
		sg := matcher.NewAstGrep(cfg.Matcher.Binary, cfg.Matcher.Args...)
		sg.BatchSize = cfg.Matcher.BatchSize
		m = sg
	}

	cache := preview.NewCache()

	o.Config = cfg
	o.Workspace = ws
	o.Matcher = m
	o.Cache = cache
	o.Provider = preview.NewContentProvider(cache)
	o.Hook = preview.NewLifecycleHook(cache)

	if cfg.Preview.InvalidateOnChange && ws.Local() {
		w, err := watch.New(func(ctx context.Context, path string) {
			if !cache.Has(path) {
				return
			}
			cache.Evict(path)
			if o.UserLogger != nil {
				o.UserLogger.Infof("%s changed on disk, preview discarded", path)
			}
		})
		if err != nil {
			return errors.Errorf("creating watcher: %w", err)
		}
		o.Watcher = w
	}

	return nil
}

func newWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	opts := []workspace.Option{
		workspace.WithInclude(cfg.Workspace.Include...),
		workspace.WithIgnore(cfg.Workspace.Ignore...),
	}

	root := cfg.Workspace.Root
	if cfg.Remote != nil {
		src, err := github.NewSource(cfg.Remote.Repo, cfg.Remote.Ref, cfg.Remote.CacheSize)
		if err != nil {
			return nil, errors.Errorf("creating github source: %w", err)
		}
		root = src.Root()
		opts = append(opts, workspace.WithSource(src))
	}

	ws, err := workspace.New(root, opts...)
	if err != nil {
		return nil, errors.Errorf("creating workspace: %w", err)
	}
	return ws, nil
}

// Controller creates a session controller driving host
func (o *RootOpts) Controller(host session.Host) *session.Controller {
	sessionOpts := []session.Option{session.WithDefaultLang(o.Config.Matcher.Lang)}
	if o.Watcher != nil {
		sessionOpts = append(sessionOpts, session.WithTracker(o.Watcher))
	}
	return session.NewController(o.Workspace, o.Matcher, o.Cache, host, sessionOpts...)
}

// Close releases resources held by the options
func (o *RootOpts) Close() error {
	if o.Watcher != nil {
		return o.Watcher.Close()
	}
	return nil
}
