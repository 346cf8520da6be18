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

package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	stateWidth  = 15 // Width for session state
	countsWidth = 30 // Width for record counts
)

// 🎯 PreviewOperation represents one preview for logging
type PreviewOperation struct {
	Path      string // File path
	State     string // Final session state
	Applied   int    // Records applied
	Dropped   int    // Records dropped as overlapping
	Invalid   int    // Records outside the file
	FromCache bool   // Whether an existing preview was reused
	Failed    bool   // Whether the preview failed
}

// 🎯 Logger handles user-facing console output.
//
// Every message is mirrored to zlog at debug level so it can be correlated with
// the structured log; zlog never writes to console.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger printing to console and mirroring to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 📝 formatPreviewOperation formats a preview for display
func (l *Logger) formatPreviewOperation(op PreviewOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case op.Failed:
		symbol = '✗'
		symbolColor = color.FgRed
	case op.FromCache:
		symbol = '•'
		symbolColor = color.FgCyan
	case op.Applied > 0:
		symbol = '⟳'
		symbolColor = color.FgBlue
	default:
		symbol = '-'
		symbolColor = color.FgYellow
	}

	counts := fmt.Sprintf("%d applied", op.Applied)
	if op.Dropped > 0 {
		counts += fmt.Sprintf(", %d dropped", op.Dropped)
	}
	if op.Invalid > 0 {
		counts += fmt.Sprintf(", %d invalid", op.Invalid)
	}
	if op.FromCache {
		counts = "cached"
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		color.New(color.FgMagenta).Sprint(fmt.Sprintf("%-*s", stateWidth, op.State)),
		fmt.Sprintf("%-*s", countsWidth, counts))
}

// 📝 LogPreview logs a finished preview
func (l *Logger) LogPreview(op PreviewOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, l.formatPreviewOperation(op))

	l.zlog.Debug().
		Str("file", op.Path).
		Str("state", op.State).
		Int("applied", op.Applied).
		Int("dropped", op.Dropped).
		Int("invalid", op.Invalid).
		Bool("from_cache", op.FromCache).
		Bool("failed", op.Failed).
		Msg("preview")
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	nameText := color.New(color.Bold, color.FgCyan).Sprint("previewrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", nameText, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Debug().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Debug().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Debug().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Debug().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}
