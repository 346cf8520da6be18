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

package session

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/walteh/previewrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// 🚦 State is a step of a preview session
type State int

const (
	StateIdle          State = iota
	StateRequested           // request accepted, not yet resolved
	StateMatching            // matcher stream opened
	StateStitching           // records being applied
	StateCached              // preview stored in the cache
	StateDiffOpened          // host asked to show the diff
	StateRangeRevealed       // host asked to reveal the selection
	StateFailed              // terminal failure
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateMatching:
		return "matching"
	case StateStitching:
		return "stitching"
	case StateCached:
		return "cached"
	case StateDiffOpened:
		return "diff_opened"
	case StateRangeRevealed:
		return "range_revealed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Position is a zero-based line and column
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a span between two positions
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// ParseRange parses "L:C-L:C". A single "L:C" is an empty range at that position.
func ParseRange(s string) (Range, error) {
	startRaw, endRaw, hasEnd := strings.Cut(strings.TrimSpace(s), "-")
	start, err := parsePosition(startRaw)
	if err != nil {
		return Range{}, errors.Errorf("parsing range %q: %w", s, err)
	}
	if !hasEnd {
		return Range{Start: start, End: start}, nil
	}
	end, err := parsePosition(endRaw)
	if err != nil {
		return Range{}, errors.Errorf("parsing range %q: %w", s, err)
	}
	return Range{Start: start, End: end}, nil
}

func parsePosition(s string) (Position, error) {
	lineRaw, colRaw, ok := strings.Cut(s, ":")
	if !ok {
		return Position{}, errors.Errorf("position %q is not line:column", s)
	}
	line, err := strconv.Atoi(lineRaw)
	if err != nil || line < 0 {
		return Position{}, errors.Errorf("invalid line %q", lineRaw)
	}
	col, err := strconv.Atoi(colRaw)
	if err != nil || col < 0 {
		return Position{}, errors.Errorf("invalid column %q", colRaw)
	}
	return Position{Line: line, Column: col}, nil
}

// Request asks for a preview of rewriting one file
type Request struct {
	FilePath  string
	Pattern   string
	Rewrite   string
	Lang      string
	Selection *Range
}

// OpenFileRequest asks the host to open a workspace file
type OpenFileRequest struct {
	FilePath  string
	Selection *Range
}

// 📄 Session records one pass through the preview flow
type Session struct {
	ID      uuid.UUID
	Path    string
	State   State
	History []State
	Err     error

	// Stitch is nil when the preview came from the cache
	Stitch *text.Result

	// a failed session is final; a production it started may still be
	// running for other callers and must not touch it
	mu     sync.Mutex
	failed bool
}

func newSession() *Session {
	return &Session{
		ID:      uuid.New(),
		State:   StateIdle,
		History: []State{StateIdle},
	}
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}
	s.State = to
	s.History = append(s.History, to)
}

func (s *Session) setStitch(result *text.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return
	}
	s.Stitch = result
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = true
	s.Err = err
	s.State = StateFailed
	s.History = append(s.History, StateFailed)
}
