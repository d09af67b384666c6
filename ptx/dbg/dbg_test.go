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
package dbg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-lang/ptxgen/internal/ir"
)

func TestNoopSinkNeverEmits(t *testing.T) {
	s := NoopSink{}
	assert.Equal(t, "", s.Emit(ir.SourceLoc{File: "a.c", Line: 1, Valid: true}))
	var b strings.Builder
	s.RenderFileTable(&b)
	assert.Equal(t, "", b.String())
}

func TestLineSinkEmitsOnLocationChange(t *testing.T) {
	s := NewLineSink()
	loc1 := ir.SourceLoc{File: "a.c", Line: 10, Column: 1, Valid: true}
	out1 := s.Emit(loc1)
	assert.Equal(t, "\t.loc 0 10 1\n", out1)

	// Same location again: nothing emitted.
	out2 := s.Emit(loc1)
	assert.Equal(t, "", out2)

	loc2 := ir.SourceLoc{File: "a.c", Line: 11, Column: 1, Valid: true}
	out3 := s.Emit(loc2)
	assert.Equal(t, "\t.loc 0 11 1\n", out3)
}

func TestLineSinkInvalidLocationNeverEmits(t *testing.T) {
	s := NewLineSink()
	assert.Equal(t, "", s.Emit(ir.SourceLoc{Valid: false}))
}

func TestLineSinkFileIndexAssignment(t *testing.T) {
	s := NewLineSink()
	s.Emit(ir.SourceLoc{File: "a.c", Line: 1, Column: 1, Valid: true})
	s.Emit(ir.SourceLoc{File: "b.c", Line: 1, Column: 1, Valid: true})
	s.Emit(ir.SourceLoc{File: "a.c", Line: 2, Column: 1, Valid: true})

	var b strings.Builder
	s.RenderFileTable(&b)
	text := b.String()
	assert.Contains(t, text, `.file 0 "a.c"`)
	assert.Contains(t, text, `.file 1 "b.c"`)
}

func TestInlineSourceSinkAppendsSourceOnceThenSuppresses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "k.cu")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0644))

	s := NewInlineSourceSink()
	loc := ir.SourceLoc{File: path, Line: 1, Column: 1, Valid: true}
	out1 := s.Emit(loc)
	assert.Contains(t, out1, ".loc 0 1 1")
	assert.Contains(t, out1, "// line one")

	// Moving to line 2 quotes line two; moving back to line 1 emits a fresh
	// .loc, but the source line must only be quoted once per (file, line).
	loc2 := ir.SourceLoc{File: path, Line: 2, Column: 1, Valid: true}
	out2 := s.Emit(loc2)
	assert.Contains(t, out2, "// line two")

	loc1Again := ir.SourceLoc{File: path, Line: 1, Column: 1, Valid: true}
	out3 := s.Emit(loc1Again)
	assert.NotContains(t, out3, "// line one")
}

func TestInlineSourceSinkMissingFileDegradesGracefully(t *testing.T) {
	s := NewInlineSourceSink()
	out := s.Emit(ir.SourceLoc{File: "/does/not/exist.cu", Line: 1, Column: 1, Valid: true})
	assert.Contains(t, out, ".loc")
	assert.NotContains(t, out, "//")
}
