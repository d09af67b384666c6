// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.
// Package dbg is the DebugInfoSink (spec §4.7): two required variants
// (no-op, line-emitting) plus an optional inline-source variant. Generalizes
// falcon's Assembler.comment (a bare "# text" emitter with no dedup) into a
// stateful sink that tracks the last-emitted source location and, for the
// inline variant, which lines have already been quoted.
package dbg

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/ember-lang/ptxgen/internal/ir"
)

// Sink is consulted once per IR node as it is lowered (spec §4.7: "on each
// IR node with a valid source location different from the last-emitted
// one, writes `.loc`"). Emit returns the text to prepend before the node's
// instructions, or "" if nothing should be emitted.
type Sink interface {
	Emit(loc ir.SourceLoc) string
	// RenderFileTable writes the end-of-module `.file i "path"`
	// declarations (spec §6 item 7).
	RenderFileTable(b *strings.Builder)
}

// NoopSink never emits anything.
type NoopSink struct{}

func (NoopSink) Emit(ir.SourceLoc) string                { return "" }
func (NoopSink) RenderFileTable(b *strings.Builder)      {}

// LineSink emits `.loc <fileIndex> <line> <column>` whenever the source
// location changes from the last one emitted, assigning file indices
// monotonically on first sight (spec §4.7).
type LineSink struct {
	mu       sync.Mutex
	files    map[string]int
	fileList []string
	lastFile string
	lastLine int
	lastCol  int
	hasLast  bool
}

// NewLineSink returns an empty LineSink.
func NewLineSink() *LineSink {
	return &LineSink{files: make(map[string]int)}
}

func (s *LineSink) fileIndex(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.files[path]; ok {
		return idx
	}
	idx := len(s.fileList)
	s.files[path] = idx
	s.fileList = append(s.fileList, path)
	return idx
}

func (s *LineSink) Emit(loc ir.SourceLoc) string {
	if !loc.Valid {
		return ""
	}
	if s.hasLast && s.lastFile == loc.File && s.lastLine == loc.Line && s.lastCol == loc.Column {
		return ""
	}
	s.lastFile, s.lastLine, s.lastCol, s.hasLast = loc.File, loc.Line, loc.Column, true
	idx := s.fileIndex(loc.File)
	return fmt.Sprintf("\t.loc %d %d %d\n", idx, loc.Line, loc.Column)
}

func (s *LineSink) RenderFileTable(b *strings.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, path := range s.fileList {
		fmt.Fprintf(b, ".file %d %q\n", i, path)
	}
}

// InlineSourceSink wraps a LineSink and additionally appends the
// referenced source line as a `// <text>` comment the first time each
// (file, line) pair is seen, using a bitset per file to de-duplicate dense
// small-integer line numbers cheaply (spec §4.7 "may inline source lines
// as comments"; D.6 grounds the bitset choice).
type InlineSourceSink struct {
	*LineSink
	mu      sync.Mutex
	seen    map[string]*bitset.BitSet
	sources map[string][]string
}

// NewInlineSourceSink returns an InlineSourceSink that reads source files
// lazily and caches them (spec §5: "file reads for inline source happen
// once per unique file and are cached").
func NewInlineSourceSink() *InlineSourceSink {
	return &InlineSourceSink{
		LineSink: NewLineSink(),
		seen:     make(map[string]*bitset.BitSet),
		sources:  make(map[string][]string),
	}
}

func (s *InlineSourceSink) Emit(loc ir.SourceLoc) string {
	base := s.LineSink.Emit(loc)
	if !loc.Valid {
		return base
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.seen[loc.File]
	if !ok {
		set = bitset.New(1024)
		s.seen[loc.File] = set
	}
	line := uint(loc.Line)
	if set.Test(line) {
		return base
	}
	set.Set(line)
	text := s.lineText(loc.File, loc.Line)
	if text == "" {
		return base
	}
	return base + "\t// " + text + "\n"
}

func (s *InlineSourceSink) lineText(path string, line int) string {
	lines, ok := s.sources[path]
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			s.sources[path] = nil
			return ""
		}
		lines = strings.Split(string(data), "\n")
		s.sources[path] = lines
	}
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}
