package matcher

import (
	"bytes"
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/previewrc/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// Literal implements Matcher using plain substring search.
//
// Every non-overlapping occurrence of Spec.Pattern becomes one record whose
// replacement is Spec.Rewrite. It needs no external process.
type Literal struct {
	// BatchSize caps the number of records per batch; zero emits a single batch
	BatchSize int
}

// NewLiteral creates a new Literal matcher
func NewLiteral() *Literal {
	return &Literal{}
}

// Match implements Matcher.Match
func (m *Literal) Match(ctx context.Context, spec Spec) (text.MatchStream, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.Errorf("validating spec: %w", err)
	}

	content := spec.Content
	if content == nil {
		data, err := os.ReadFile(spec.Path)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", spec.Path, err)
		}
		content = data
	}

	pattern := []byte(spec.Pattern)
	var records []text.MatchRecord
	for offset := 0; offset <= len(content); {
		idx := bytes.Index(content[offset:], pattern)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(pattern)
		records = append(records, text.Replace(uint64(start), uint64(end), spec.Rewrite))
		offset = end
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", spec.Path).
		Int("matches", len(records)).
		Msg("literal match complete")

	if m.BatchSize <= 0 || len(records) <= m.BatchSize {
		return text.Records(records...), nil
	}

	var chunks [][]text.MatchRecord
	for len(records) > m.BatchSize {
		chunks = append(chunks, records[:m.BatchSize])
		records = records[m.BatchSize:]
	}
	chunks = append(chunks, records)
	return text.Batches(chunks...), nil
}
