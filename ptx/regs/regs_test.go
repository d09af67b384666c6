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
package regs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-lang/ptxgen/internal/ir/fixture"
	"github.com/ember-lang/ptxgen/ptx/types"
)

func TestAllocateNamesAreSequential(t *testing.T) {
	a := NewAllocator(true)
	r0 := a.Allocate(Int32)
	r1 := a.Allocate(Int32)
	assert.Equal(t, "%r0", r0.Name())
	assert.Equal(t, "%r1", r1.Name())
}

func TestFreeIDsAreReusedLIFO(t *testing.T) {
	a := NewAllocator(true)
	r0 := a.Allocate(Int32)
	r1 := a.Allocate(Int32)
	a.Free(r1)
	r2 := a.Allocate(Int32)
	// r1's id is reused for r2 (LIFO free-list), not a fresh counter bump.
	assert.Equal(t, r1.ID, r2.ID)
	assert.NotEqual(t, r0.ID, r2.ID)
}

func TestDeclarationsTrackPeakConcurrentLive(t *testing.T) {
	a := NewAllocator(true)
	r0 := a.Allocate(Int32)
	r1 := a.Allocate(Int32)
	a.Free(r0)
	a.Free(r1)
	a.Allocate(Int32) // reuses a freed id; peak stays at 2

	decls := a.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, Int32, decls[0].Kind)
	assert.Equal(t, 2, decls[0].Count)
}

func TestDeclarationsOmitUnusedBanks(t *testing.T) {
	a := NewAllocator(true)
	a.Allocate(Predicate)
	decls := a.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, Predicate, decls[0].Kind)
}

func TestPointerKindSelection(t *testing.T) {
	assert.Equal(t, Int64, NewAllocator(true).PointerKind())
	assert.Equal(t, Int32, NewAllocator(false).PointerKind())
}

func TestBindAndLoad(t *testing.T) {
	a := NewAllocator(true)
	reg := NewPrimitive(a.Allocate(Int32))
	require.NoError(t, a.Bind(1, &reg))

	got, err := a.Load(1)
	require.NoError(t, err)
	assert.Equal(t, reg, *got)
}

func TestBindTwiceIsInternalInvariant(t *testing.T) {
	a := NewAllocator(true)
	reg := NewPrimitive(a.Allocate(Int32))
	require.NoError(t, a.Bind(1, &reg))
	err := a.Bind(1, &reg)
	require.Error(t, err)
}

func TestLoadUnboundValueIsInvalidIR(t *testing.T) {
	a := NewAllocator(true)
	_, err := a.Load(42)
	require.Error(t, err)
}

func TestAliasSharesBinding(t *testing.T) {
	a := NewAllocator(true)
	reg := NewPrimitive(a.Allocate(Int32))
	require.NoError(t, a.Bind(1, &reg))
	require.NoError(t, a.Alias(2, 1))

	got1, err := a.Load(1)
	require.NoError(t, err)
	got2, err := a.Load(2)
	require.NoError(t, err)
	assert.Same(t, got1, got2)
}

func TestIntrinsicNeverConsumesBankID(t *testing.T) {
	a := NewAllocator(true)
	before := a.Allocate(Int32)
	a.Free(before)

	ir := Intrinsic(IntrinsicTid, 0)
	assert.True(t, ir.IsIntrinsic())
	assert.Equal(t, "%tid.x", ir.Name())

	after := a.Allocate(Int32)
	assert.Equal(t, before.ID, after.ID)
}

func TestKindForMapsElementTypes(t *testing.T) {
	assert.Equal(t, Predicate, KindFor(types.Pred))
	assert.Equal(t, Int16, KindFor(types.Int8))
	assert.Equal(t, Int16, KindFor(types.F16))
	assert.Equal(t, Int32, KindFor(types.Ptr32))
	assert.Equal(t, Int64, KindFor(types.Ptr64))
	assert.Equal(t, Float32, KindFor(types.F32))
	assert.Equal(t, Float64, KindFor(types.F64))
}

func TestDeclLineFormat(t *testing.T) {
	d := DeclBank{Kind: Int32, Count: 3}
	assert.Equal(t, "\t.reg .b32 \t%r<3>;\n", d.DeclLine())
}

func TestBuildStructuredPrimitive(t *testing.T) {
	a := NewAllocator(true)
	reg := BuildStructured(a, fixture.Prim(types.F32))
	assert.False(t, reg.Compound)
	assert.Equal(t, Float32, reg.Primitive.Kind)
}

func TestBuildStructuredStructDecomposesFields(t *testing.T) {
	a := NewAllocator(true)
	st := fixture.Struct([]string{"x", "y"}, []*fixture.Type{fixture.Prim(types.F32), fixture.Prim(types.Int32)})
	reg := BuildStructured(a, st)
	require.True(t, reg.Compound)
	require.Len(t, reg.Children, 2)

	x, ok := reg.FieldByName("x")
	require.True(t, ok)
	assert.Equal(t, Float32, x.Primitive.Kind)

	y, ok := reg.FieldByName("y")
	require.True(t, ok)
	assert.Equal(t, Int32, y.Primitive.Kind)
}

func TestFlattenOrdersByOffset(t *testing.T) {
	a := NewAllocator(true)
	st := fixture.Struct([]string{"a", "b"}, []*fixture.Type{fixture.Prim(types.Int32), fixture.Prim(types.F64)})
	reg := BuildStructured(a, st)
	flat := Flatten(reg)
	require.Len(t, flat, 2)
	assert.Equal(t, 0, flat[0].Offset)
	assert.Equal(t, 8, flat[1].Offset) // f64 field aligned to 8 after a 4-byte int32
}

func TestFreeStructuredReleasesEveryLeaf(t *testing.T) {
	a := NewAllocator(true)
	st := fixture.Struct([]string{"a", "b"}, []*fixture.Type{fixture.Prim(types.Int32), fixture.Prim(types.Int32)})
	reg := BuildStructured(a, st)
	FreeStructured(a, reg)

	// Both leaves freed, so a fresh allocation from the same bank reuses
	// one of the freed ids rather than growing the counter.
	next := a.Allocate(Int32)
	assert.Less(t, next.ID, 2)
}

func TestWithFieldReplacesOnlyNamedChild(t *testing.T) {
	a := NewAllocator(true)
	st := fixture.Struct([]string{"x", "y"}, []*fixture.Type{fixture.Prim(types.F32), fixture.Prim(types.Int32)})
	reg := BuildStructured(a, st)
	replacement := NewPrimitive(a.Allocate(Int32))

	updated := reg.WithField("y", replacement)
	y, ok := updated.FieldByName("y")
	require.True(t, ok)
	assert.Equal(t, replacement, y)

	x, ok := updated.FieldByName("x")
	require.True(t, ok)
	origX, _ := reg.FieldByName("x")
	assert.Equal(t, origX, x)
}
