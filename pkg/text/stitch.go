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
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DecodeError reports that the stitched bytes are not valid UTF-8 text
type DecodeError struct {
	// Offset is the byte offset of the first invalid sequence in the stitched output
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stitched content is not valid utf-8 at byte %d", e.Offset)
}

// StitchOption configures a stitching pass
type StitchOption func(*stitchOptions)

type stitchOptions struct {
	resolver ReplacementResolver
}

// WithResolver overrides how replacement text is resolved for each record
func WithResolver(r ReplacementResolver) StitchOption {
	return func(o *stitchOptions) {
		if r != nil {
			o.resolver = r
		}
	}
}

// 🧵 Stitch rebuilds content by interleaving unmatched original bytes with replacement text.
//
// Records are applied strictly in arrival order. A record that starts before
// the end of the previously applied record is dropped, so the first record in
// the stream wins. The stream is consumed exactly once.
func Stitch(ctx context.Context, original []byte, stream MatchStream, opts ...StitchOption) (*Result, error) {
	o := stitchOptions{resolver: EmbeddedReplacement}
	for _, opt := range opts {
		opt(&o)
	}

	logger := zerolog.Ctx(ctx)
	size := uint64(len(original))
	out := NewRewriteBuffer(len(original))
	result := &Result{}

	var cursor uint64
	for {
		batch, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Errorf("reading match stream: %w", err)
		}

		for _, r := range batch {
			if r.Range.End < r.Range.Start || r.Range.End > size {
				result.Invalid = append(result.Invalid, r.Range)
				continue
			}
			if r.Range.Start < cursor {
				result.Dropped = append(result.Dropped, r.Range)
				continue
			}

			out.Append(original[cursor:r.Range.Start])
			out.AppendString(o.resolver(r))
			cursor = r.Range.End
			result.Applied++
		}
	}

	out.Append(original[cursor:])
	result.Grows = out.Grows()

	final := out.Final()
	if !utf8.Valid(final) {
		return nil, &DecodeError{Offset: firstInvalid(final)}
	}
	result.Text = string(final)

	if len(result.Dropped) > 0 || len(result.Invalid) > 0 {
		logger.Debug().
			Int("applied", result.Applied).
			Int("dropped", len(result.Dropped)).
			Int("invalid", len(result.Invalid)).
			Msg("discarded match records while stitching")
	}

	return result, nil
}

func firstInvalid(p []byte) int {
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(p)
}
