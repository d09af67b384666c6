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
package lower

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/internal/ir/fixture"
	"github.com/ember-lang/ptxgen/ptx/dbg"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/types"
)

func newTestFlags() Flags {
	return Flags{
		Arch:      isa.Arch{Major: 7, Minor: 5},
		Gate:      isa.NewCapabilityGate(),
		PtrIs64:   true,
		Alignment: fixture.Alignment{},
	}
}

func TestLowerVectorAddProducesAllExpectedInstructions(t *testing.T) {
	method, _ := fixture.VectorAdd()
	d := New(newTestFlags(), NewStringPool(), nil)
	result, err := d.Lower(method)
	require.NoError(t, err)

	assert.Contains(t, result.Body, "mov.u32")
	assert.Contains(t, result.Body, "mul.lo.s32")
	assert.Contains(t, result.Body, "add.s32")
	assert.Contains(t, result.Body, "setp.lt.s32")
	assert.Contains(t, result.Body, "ld.global.f32")
	assert.Contains(t, result.Body, "st.global.f32")
	assert.Contains(t, result.Body, "add.f32")
	assert.Contains(t, result.Body, "ret;")
	assert.NotEmpty(t, result.Declarations)
}

func TestLowerVectorAddBlockStructure(t *testing.T) {
	method, _ := fixture.VectorAdd()
	d := New(newTestFlags(), NewStringPool(), nil)
	result, err := d.Lower(method)
	require.NoError(t, err)

	// Reverse-post-order means the entry block's label and its conditional
	// branch both appear before the body block's label.
	entryIdx := strings.Index(result.Body, "BB0:")
	braIdx := strings.Index(result.Body, "bra")
	bodyIdx := strings.Index(result.Body, "BB1:")
	require.GreaterOrEqual(t, entryIdx, 0)
	require.GreaterOrEqual(t, bodyIdx, 0)
	assert.Less(t, entryIdx, braIdx)
	assert.Less(t, braIdx, bodyIdx)
}

func TestLowerEmitsNoDebugLocWithoutSourceLocations(t *testing.T) {
	method, _ := fixture.VectorAdd()
	sink := dbg.NewLineSink()
	d := New(newTestFlags(), NewStringPool(), sink)
	_, err := d.Lower(method)
	require.NoError(t, err)
	// The fixture program carries no source locations, so the sink should
	// never have emitted a .loc line.
	var b strings.Builder
	sink.RenderFileTable(&b)
	assert.Empty(t, b.String())
}

func TestStringPoolInterningIsStable(t *testing.T) {
	pool := NewStringPool()
	a := pool.Intern("utf8", "hello")
	b := pool.Intern("utf8", "hello")
	c := pool.Intern("utf8", "world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, pool.Entries(), 2)
}

func TestStringPoolMergeKeepsEarlierSymbol(t *testing.T) {
	p1 := NewStringPool()
	s1 := p1.Intern("utf8", "shared")

	p2 := NewStringPool()
	p2.Intern("utf8", "shared")

	remap := p1.Merge(p2)
	for _, newSym := range remap {
		assert.Equal(t, s1, newSym)
	}
}

func TestLowerBoolParamNarrowsFromS32Slot(t *testing.T) {
	b := fixture.NewBuilder()
	entry := b.NewBlock(ir.BlockReturn)
	flag := b.Val(entry, ir.KindParam, 0, fixture.Prim(types.Pred), 0)
	b.SetCtrl(entry, flag)
	method := b.Build("pred_identity", entry, []ir.Param{{Name: "flag", Type: fixture.Prim(types.Pred)}}, fixture.Prim(types.Pred))

	d := New(newTestFlags(), NewStringPool(), nil)
	result, err := d.Lower(method)
	require.NoError(t, err)

	assert.Contains(t, result.Body, "ld.param.s32")
	assert.Contains(t, result.Body, "setp.ne.s32")
	assert.Contains(t, result.Body, "selp.u32")
	assert.Contains(t, result.Body, "st.param.s32")
	assert.NotContains(t, result.Body, "ld.param.pred")
	assert.NotContains(t, result.Body, "st.param.pred")
}

func TestLowerF16ConstUsesHalfWidthHexLiteral(t *testing.T) {
	b := fixture.NewBuilder()
	entry := b.NewBlock(ir.BlockReturn)
	f16 := fixture.Prim(types.F16)
	b.Val(entry, ir.KindConst, 0, f16, 1.5)
	method := b.Build("half_const", entry, nil, fixture.Void())

	d := New(newTestFlags(), NewStringPool(), nil)
	result, err := d.Lower(method)
	require.NoError(t, err)

	assert.Contains(t, result.Body, "mov.f16")
	assert.Contains(t, result.Body, "0h3E00")
}

func TestLowerInlinePTXSubstitutesArgsAndDestination(t *testing.T) {
	b := fixture.NewBuilder()
	entry := b.NewBlock(ir.BlockReturn)
	s32 := fixture.Prim(types.Int32)
	a := b.Val(entry, ir.KindParam, 0, s32, 0)
	c := b.Val(entry, ir.KindConst, 0, s32, int64(7))
	b.Val(entry, ir.KindInlinePTX, 0, s32, []string{"add.s32 {out}, {0}, {1};"}, a, c)
	method := b.Build("inline_add", entry, []ir.Param{{Name: "a", Type: s32}}, fixture.Void())

	d := New(newTestFlags(), NewStringPool(), nil)
	result, err := d.Lower(method)
	require.NoError(t, err)

	assert.Contains(t, result.Body, "add.s32 %r2, %r0, %r1;")
	assert.NotContains(t, result.Body, "{out}")
	assert.NotContains(t, result.Body, "{0}")
	assert.NotContains(t, result.Body, "{1}")
}

func TestLowerInlinePTXVoidEmitsTextVerbatimWithNoDestination(t *testing.T) {
	b := fixture.NewBuilder()
	entry := b.NewBlock(ir.BlockReturn)
	b.Val(entry, ir.KindInlinePTX, 0, fixture.Void(), []string{"bar.sync 0;"})
	b.SetCtrl(entry, nil)
	method := b.Build("inline_barrier", entry, nil, fixture.Void())

	d := New(newTestFlags(), NewStringPool(), nil)
	result, err := d.Lower(method)
	require.NoError(t, err)
	assert.Contains(t, result.Body, "bar.sync 0;")
}

func TestReversePostOrderVisitsEntryFirst(t *testing.T) {
	method, _ := fixture.VectorAdd()
	order := reversePostOrder(method.Entry())
	require.NotEmpty(t, order)
	assert.Equal(t, method.Entry().ID(), order[0].ID())
}
