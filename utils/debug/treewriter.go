// Package debug has helpers producing human readable dumps.
package debug

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
)

// TreeWriter accumulates an indented tree, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

// WriteTo copies accumulated text to w.
func (tw TreeWriter) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, tw.w.String())
	return int64(n), err
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label with quoted value.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// List writes label followed by items in natural order on one line. Empty
// lists are skipped.
func (tw TreeWriter) List(depth int, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sorted := append([]string(nil), items...)
	sort.Sort(natural.StringSlice(sorted))
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(strings.Join(sorted, ", "))
	tw.w.WriteByte('\n')
}

// Counts writes label followed by name=count pairs in natural order of
// names. Empty maps are skipped.
func (tw TreeWriter) Counts(depth int, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	items := make([]string, 0, len(counts))
	for k, v := range counts {
		items = append(items, k+"="+strconv.Itoa(v))
	}
	tw.List(depth, label, items)
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
