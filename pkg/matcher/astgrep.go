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

package matcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/walteh/previewrc/pkg/text"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBinary is the ast-grep executable name
	DefaultBinary = "sg"

	// DefaultBatchSize is the number of records handed to the consumer at once
	DefaultBatchSize = 64
)

// ProcessError reports that the matcher process exited unsuccessfully
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("matcher exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("matcher exited with code %d: %s", e.ExitCode, msg)
}

// 🌳 AstGrep runs the ast-grep CLI and streams its JSON output as match records
type AstGrep struct {
	// Binary is the executable to run
	Binary string

	// Args are appended after the generated arguments
	Args []string

	// BatchSize caps the number of records per batch
	BatchSize int
}

// NewAstGrep creates an AstGrep matcher; an empty binary falls back to DefaultBinary
func NewAstGrep(binary string, args ...string) *AstGrep {
	if binary == "" {
		binary = DefaultBinary
	}
	return &AstGrep{
		Binary:    binary,
		Args:      args,
		BatchSize: DefaultBatchSize,
	}
}

// usesStdin reports whether the content is piped instead of read from disk.
// Piping needs an explicit language because there is no file name to infer it from.
func (m *AstGrep) usesStdin(spec Spec) bool {
	return spec.Content != nil && spec.Lang != ""
}

// Arguments returns the command line arguments for a spec
func (m *AstGrep) Arguments(spec Spec) []string {
	args := []string{
		"run",
		"--pattern", spec.Pattern,
		"--rewrite", spec.Rewrite,
		"--json=stream",
	}
	if spec.Lang != "" {
		args = append(args, "--lang", spec.Lang)
	}
	args = append(args, m.Args...)
	if m.usesStdin(spec) {
		return append(args, "--stdin")
	}
	return append(args, spec.Path)
}

// Match implements Matcher.Match
func (m *AstGrep) Match(ctx context.Context, spec Spec) (text.MatchStream, error) {
	if err := spec.Validate(); err != nil {
		return nil, errors.Errorf("validating spec: %w", err)
	}
	if !m.usesStdin(spec) && spec.Path == "" {
		return nil, errors.Errorf("path is required when no language is set")
	}

	logger := zerolog.Ctx(ctx)
	args := m.Arguments(spec)
	cmd := exec.CommandContext(ctx, m.Binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	var stdin io.WriteCloser
	if m.usesStdin(spec) {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, errors.Errorf("opening matcher stdin: %w", err)
		}
		stdin = pipe
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("opening matcher stdout: %w", err)
	}

	logger.Debug().Str("binary", m.Binary).Strs("args", args).Msg("starting matcher")
	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting matcher %s: %w", m.Binary, err)
	}

	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	stream := &processStream{batches: make(chan []text.MatchRecord)}
	go func() {
		g, gctx := errgroup.WithContext(ctx)
		if stdin != nil {
			g.Go(func() error {
				defer stdin.Close()
				if _, err := stdin.Write(spec.Content); err != nil {
					return errors.Errorf("writing matcher stdin: %w", err)
				}
				return nil
			})
		}
		g.Go(func() error {
			err := decodeStream(gctx, stdout, batchSize, stream.batches)
			if err != nil {
				// keep the process from blocking on a full pipe so Wait can return
				_, _ = io.Copy(io.Discard, stdout)
			}
			return err
		})

		decodeErr := g.Wait()
		waitErr := cmd.Wait()

		switch {
		case ctx.Err() != nil:
			stream.err = errors.Errorf("matcher cancelled: %w", ctx.Err())
		case waitErr != nil:
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				stream.err = &ProcessError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
			} else {
				stream.err = errors.Errorf("waiting for matcher: %w", waitErr)
			}
		case decodeErr != nil:
			stream.err = decodeErr
		}

		logger.Debug().Err(stream.err).Msg("matcher finished")
		close(stream.batches)
	}()

	return stream, nil
}

// processStream is the MatchStream fed by a running matcher process
type processStream struct {
	batches chan []text.MatchRecord
	// err is written before batches is closed
	err error
}

func (s *processStream) Next(ctx context.Context) ([]text.MatchRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case batch, ok := <-s.batches:
		if !ok {
			if s.err != nil {
				return nil, s.err
			}
			return nil, io.EOF
		}
		return batch, nil
	}
}

// decodeStream reads newline-delimited JSON from r and sends batches of records to out.
// Each line holds one match object or an array of them.
func decodeStream(ctx context.Context, r io.Reader, batchSize int, out chan<- []text.MatchRecord) error {
	reader := bufio.NewReader(r)
	batch := make([]text.MatchRecord, 0, batchSize)

	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- batch:
		}
		batch = make([]text.MatchRecord, 0, batchSize)
		return nil
	}

	for lineNo := 1; ; lineNo++ {
		line, readErr := reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			records, err := DecodeLine(ctx, line)
			if err != nil {
				return errors.Errorf("decoding matcher output line %d: %w", lineNo, err)
			}
			for _, rec := range records {
				batch = append(batch, rec)
				if len(batch) >= batchSize {
					if err := send(); err != nil {
						return err
					}
				}
			}
		}
		if readErr == io.EOF {
			return send()
		}
		if readErr != nil {
			return errors.Errorf("reading matcher output: %w", readErr)
		}
	}
}

// DecodeLine turns one line of matcher output into records.
//
// The output is treated as untyped: objects without a byte range are skipped
// and a missing replacement is left nil.
func DecodeLine(ctx context.Context, line []byte) ([]text.MatchRecord, error) {
	if !gjson.ValidBytes(line) {
		return nil, errors.Errorf("invalid json: %.80q", line)
	}

	parsed := gjson.ParseBytes(line)
	var objects []gjson.Result
	switch {
	case parsed.IsArray():
		objects = parsed.Array()
	case parsed.IsObject():
		objects = []gjson.Result{parsed}
	default:
		return nil, errors.Errorf("unexpected json value of type %s", parsed.Type)
	}

	records := make([]text.MatchRecord, 0, len(objects))
	for _, obj := range objects {
		start := obj.Get("range.byteOffset.start")
		end := obj.Get("range.byteOffset.end")
		if start.Type != gjson.Number || end.Type != gjson.Number {
			zerolog.Ctx(ctx).Debug().Str("object", obj.Raw).Msg("skipping match without byte offsets")
			continue
		}

		rec := text.MatchRecord{
			Range: text.ByteRange{Start: start.Uint(), End: end.Uint()},
		}
		if replacement := obj.Get("replacement"); replacement.Exists() && replacement.Type != gjson.Null {
			s := replacement.String()
			rec.Replacement = &s
		}
		records = append(records, rec)
	}
	return records, nil
}
