package preview

import (
	"context"

	"github.com/rs/zerolog"
)

// Evictor removes a cached preview by key
type Evictor interface {
	Evict(key string)
}

// EvictorFunc adapts a function to the Evictor interface
type EvictorFunc func(key string)

func (f EvictorFunc) Evict(key string) {
	f(key)
}

// 🧹 LifecycleHook drops previews when the host closes their document
type LifecycleHook struct {
	evictor Evictor
}

// NewLifecycleHook creates a hook that evicts through evictor
func NewLifecycleHook(evictor Evictor) *LifecycleHook {
	return &LifecycleHook{evictor: evictor}
}

// DidClose handles a host "document closed" event for any document.
// Only preview documents evict; everything else is ignored.
func (h *LifecycleHook) DidClose(ctx context.Context, uri URI) {
	if !uri.IsPreview() {
		return
	}
	zerolog.Ctx(ctx).Debug().Str("path", uri.Path).Msg("preview document closed")
	h.evictor.Evict(uri.Path)
}
