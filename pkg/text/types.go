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

package text

import (
	"context"
	"fmt"
	"io"
)

// ByteRange is a half-open span [Start, End) of byte offsets into the original content
type ByteRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes covered by the range
func (r ByteRange) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// MatchRecord is one structural match found in a file
type MatchRecord struct {
	// Range is the matched span of the original bytes
	Range ByteRange

	// Replacement is the text substituted for Range; nil means the match carries no rewrite
	Replacement *string
}

// Replace is a shorthand for building a MatchRecord with a replacement
func Replace(start, end uint64, replacement string) MatchRecord {
	return MatchRecord{
		Range:       ByteRange{Start: start, End: end},
		Replacement: &replacement,
	}
}

// ReplacementResolver supplies the replacement text for a record
type ReplacementResolver func(MatchRecord) string

// EmbeddedReplacement resolves the replacement carried by the record itself.
// A missing replacement resolves to the empty string.
func EmbeddedReplacement(r MatchRecord) string {
	if r.Replacement == nil {
		return ""
	}
	return *r.Replacement
}

// 🌊 MatchStream is a finite, lazily produced sequence of match batches.
//
// Next returns the next batch in arrival order. It returns io.EOF once the
// stream is exhausted; any other error terminates the stream.
type MatchStream interface {
	Next(ctx context.Context) ([]MatchRecord, error)
}

// Result contains the outcome of a stitching pass
type Result struct {
	// Text is the final rewritten content
	Text string

	// Applied is the number of records whose replacement made it into Text
	Applied int

	// Dropped lists records discarded because they started before already consumed input
	Dropped []ByteRange

	// Invalid lists records discarded because their range does not fit the original content
	Invalid []ByteRange

	// Grows is the number of buffer reallocations the pass needed
	Grows int
}

// WasModified reports whether any replacement was applied
func (r *Result) WasModified() bool {
	return r.Applied > 0
}

// records is an in-memory MatchStream delivering a single batch
type records struct {
	batch []MatchRecord
	done  bool
}

// Records returns a MatchStream that yields the given records as one batch
func Records(rs ...MatchRecord) MatchStream {
	return &records{batch: rs}
}

func (s *records) Next(ctx context.Context) ([]MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.batch, nil
}

// batches is an in-memory MatchStream delivering pre-chunked batches
type batches struct {
	chunks [][]MatchRecord
}

// Batches returns a MatchStream that yields each chunk as its own batch
func Batches(chunks ...[]MatchRecord) MatchStream {
	return &batches{chunks: chunks}
}

func (s *batches) Next(ctx context.Context) ([]MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return next, nil
}
