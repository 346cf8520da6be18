package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineKind classifies a rendered diff line
type LineKind int

const (
	LineEqual LineKind = iota
	LineDelete
	LineInsert
	LineSkip // elided unchanged lines
)

// DiffLine is one line of a rendered diff
type DiffLine struct {
	Kind LineKind
	Text string
	// Skipped is the number of elided lines for LineSkip
	Skipped int
}

// LineDiff compares two texts line by line, keeping contextLines unchanged
// lines around every change. A negative contextLines keeps every line.
func LineDiff(before, after string, contextLines int) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var all []DiffLine
	for _, d := range diffs {
		kind := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = LineDelete
		case diffmatchpatch.DiffInsert:
			kind = LineInsert
		}
		for _, line := range splitLines(d.Text) {
			all = append(all, DiffLine{Kind: kind, Text: line})
		}
	}

	if contextLines < 0 {
		return all
	}
	return elide(all, contextLines)
}

// elide replaces runs of equal lines further than context from a change with a LineSkip
func elide(all []DiffLine, context int) []DiffLine {
	keep := make([]bool, len(all))
	for i, l := range all {
		if l.Kind == LineEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(all)-1, i+context); j++ {
			keep[j] = true
		}
	}

	var out []DiffLine
	skipped := 0
	for i, l := range all {
		if keep[i] {
			if skipped > 0 {
				out = append(out, DiffLine{Kind: LineSkip, Skipped: skipped})
				skipped = 0
			}
			out = append(out, l)
			continue
		}
		skipped++
	}
	if skipped > 0 && len(out) > 0 {
		out = append(out, DiffLine{Kind: LineSkip, Skipped: skipped})
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// WriteDiff renders lines with +/- markers, coloured when color output is enabled
func WriteDiff(w io.Writer, lines []DiffLine) error {
	del := color.New(color.FgRed)
	ins := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	for _, l := range lines {
		var err error
		switch l.Kind {
		case LineDelete:
			_, err = del.Fprintln(w, "-"+l.Text)
		case LineInsert:
			_, err = ins.Fprintln(w, "+"+l.Text)
		case LineSkip:
			_, err = faint.Fprintf(w, "@@ %d unchanged lines @@\n", l.Skipped)
		default:
			_, err = fmt.Fprintln(w, " "+l.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
