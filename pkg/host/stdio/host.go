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

// Package stdio speaks a JSON-lines protocol with an editor front-end.
//
// Every inbound and outbound message is one JSON object on its own line.
// Commands the host sends are fire-and-forget; replies carry the id of the
// request they answer.
package stdio

import (
	"context"
	"io"
	"sync"

	"github.com/walteh/previewrc/pkg/preview"
	"github.com/walteh/previewrc/pkg/session"
	"gitlab.com/tozd/go/errors"
)

var _ session.Host = (*Host)(nil)

// 📡 Host implements session.Host by writing commands to the front-end
type Host struct {
	mu  sync.Mutex
	out io.Writer
}

// NewHost creates a host writing messages to out
func NewHost(out io.Writer) *Host {
	return &Host{out: out}
}

// send writes one message line
func (h *Host) send(m *message) error {
	raw, err := m.bytes()
	if err != nil {
		return errors.Errorf("encoding message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.out.Write(append(raw, '\n')); err != nil {
		return errors.Errorf("writing message: %w", err)
	}
	return nil
}

// OpenFile implements session.Host.OpenFile
func (h *Host) OpenFile(ctx context.Context, uri preview.URI, selection *session.Range) error {
	m := newMessage().set("command", CommandOpen).set("uri", uri.String())
	if selection != nil {
		m.set("selection", selection)
	}
	return h.send(m)
}

// OpenDiff implements session.Host.OpenDiff
func (h *Host) OpenDiff(ctx context.Context, left, right preview.URI, title string) error {
	return h.send(newMessage().
		set("command", CommandDiff).
		set("left", left.String()).
		set("right", right.String()).
		set("title", title))
}

// RevealRange implements session.Host.RevealRange
func (h *Host) RevealRange(ctx context.Context, uri preview.URI, r session.Range) error {
	return h.send(newMessage().
		set("command", CommandRevealRange).
		set("uri", uri.String()).
		set("range", r))
}

// ShowError implements session.Host.ShowError
func (h *Host) ShowError(ctx context.Context, message string) error {
	return h.send(newMessage().set("command", CommandShowError).set("message", message))
}
