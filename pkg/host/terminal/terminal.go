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

// Package terminal renders previews as colored line diffs on a terminal.
package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/previewrc/pkg/preview"
	"github.com/walteh/previewrc/pkg/session"
	"github.com/walteh/previewrc/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

var _ session.Host = (*Host)(nil)

// 🖥️ Host implements session.Host by printing to a writer.
//
// Preview documents it shows stay open until Close is called, which reports
// them closed to the lifecycle hook.
type Host struct {
	out          io.Writer
	workspace    *workspace.Workspace
	provider     *preview.ContentProvider
	hook         *preview.LifecycleHook
	contextLines int

	mu   sync.Mutex
	open map[preview.URI]bool
}

// New creates a terminal host
func New(out io.Writer, ws *workspace.Workspace, provider *preview.ContentProvider, hook *preview.LifecycleHook, contextLines int) *Host {
	return &Host{
		out:          out,
		workspace:    ws,
		provider:     provider,
		hook:         hook,
		contextLines: contextLines,
		open:         make(map[preview.URI]bool),
	}
}

// read returns the text of a document, served by the content provider for preview URIs
func (h *Host) read(ctx context.Context, uri preview.URI) (string, error) {
	if uri.Scheme == h.provider.Scheme() {
		return h.provider.ProvideContent(ctx, uri), nil
	}
	content, err := h.workspace.ReadFile(ctx, uri.Path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (h *Host) rel(uri preview.URI) string {
	if rel, err := h.workspace.Rel(uri.Path); err == nil {
		return rel
	}
	return uri.Path
}

func (h *Host) markOpen(uri preview.URI) {
	if !uri.IsPreview() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open[uri] = true
}

// OpenFile prints the file, or only the selected lines when a selection is given
func (h *Host) OpenFile(ctx context.Context, uri preview.URI, selection *session.Range) error {
	content, err := h.read(ctx, uri)
	if err != nil {
		return errors.Errorf("opening %s: %w", uri, err)
	}
	h.markOpen(uri)

	pterm.Info.WithWriter(h.out).Println(h.rel(uri))
	return h.writeLines(content, selection)
}

// OpenDiff prints a line diff between left and right
func (h *Host) OpenDiff(ctx context.Context, left, right preview.URI, title string) error {
	before, err := h.read(ctx, left)
	if err != nil {
		return errors.Errorf("opening %s: %w", left, err)
	}
	after, err := h.read(ctx, right)
	if err != nil {
		return errors.Errorf("opening %s: %w", right, err)
	}
	h.markOpen(left)
	h.markOpen(right)

	zerolog.Ctx(ctx).Debug().Str("left", left.String()).Str("right", right.String()).Msg("rendering diff")

	bold := color.New(color.Bold)
	if _, err := bold.Fprintf(h.out, "--- %s\n+++ %s\n", h.rel(left), title); err != nil {
		return errors.Errorf("writing diff header: %w", err)
	}

	lines := LineDiff(before, after, h.contextLines)
	if len(lines) == 0 {
		pterm.Info.WithWriter(h.out).Println("no changes")
		return nil
	}
	if err := WriteDiff(h.out, lines); err != nil {
		return errors.Errorf("writing diff: %w", err)
	}
	return nil
}

// RevealRange prints the lines of r in the document
func (h *Host) RevealRange(ctx context.Context, uri preview.URI, r session.Range) error {
	content, err := h.read(ctx, uri)
	if err != nil {
		return errors.Errorf("revealing %s: %w", uri, err)
	}
	pterm.Info.WithWriter(h.out).Printfln("%s %s", h.rel(uri), r)
	return h.writeLines(content, &r)
}

// ShowError prints an error notification
func (h *Host) ShowError(ctx context.Context, message string) error {
	pterm.Error.WithWriter(h.out).Println(message)
	return nil
}

// Close reports every preview document shown so far as closed
func (h *Host) Close(ctx context.Context) {
	h.mu.Lock()
	uris := make([]preview.URI, 0, len(h.open))
	for uri := range h.open {
		uris = append(uris, uri)
	}
	h.open = make(map[preview.URI]bool)
	h.mu.Unlock()

	for _, uri := range uris {
		h.hook.DidClose(ctx, uri)
	}
}

// writeLines prints numbered lines; a selection limits output to its lines
func (h *Host) writeLines(content string, selection *session.Range) error {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	first, last := 0, len(lines)-1
	if selection != nil {
		first = max(0, selection.Start.Line)
		last = min(last, selection.End.Line)
	}

	faint := color.New(color.Faint)
	for i := first; i <= last; i++ {
		if _, err := fmt.Fprintf(h.out, "%s %s\n", faint.Sprintf("%4d", i+1), lines[i]); err != nil {
			return errors.Errorf("writing lines: %w", err)
		}
	}
	return nil
}
