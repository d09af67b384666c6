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
package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/types"
)

func TestBuilderValWiresUses(t *testing.T) {
	b := NewBuilder()
	blk := b.NewBlock(ir.BlockReturn)

	lhs := b.Val(blk, ir.KindParam, 0, Prim(types.Int32), 0)
	rhs := b.Val(blk, ir.KindParam, 0, Prim(types.Int32), 1)
	sum := b.Val(blk, ir.KindArithmetic, isa.OpAdd, Prim(types.Int32), nil, lhs, rhs)

	assert.Equal(t, []ir.Value{sum}, lhs.Uses())
	assert.Equal(t, []ir.Value{sum}, rhs.Uses())
	assert.Empty(t, sum.Uses())
	assert.Equal(t, []ir.Value{lhs, rhs}, sum.Args())
}

func TestBuilderValAssignsSequentialIDs(t *testing.T) {
	b := NewBuilder()
	blk := b.NewBlock(ir.BlockReturn)
	v0 := b.Val(blk, ir.KindParam, 0, Prim(types.Int32), 0)
	v1 := b.Val(blk, ir.KindParam, 0, Prim(types.Int32), 1)
	assert.Equal(t, 0, v0.ID())
	assert.Equal(t, 1, v1.ID())
}

func TestBuilderNewBlockAssignsSequentialIDs(t *testing.T) {
	b := NewBuilder()
	first := b.NewBlock(ir.BlockGoto)
	second := b.NewBlock(ir.BlockReturn)
	assert.Equal(t, 0, first.ID())
	assert.Equal(t, 1, second.ID())
	assert.Equal(t, ir.BlockGoto, first.Kind())
	assert.Equal(t, ir.BlockReturn, second.Kind())
}

func TestBuilderLinkWiresPredsAndSuccs(t *testing.T) {
	b := NewBuilder()
	from := b.NewBlock(ir.BlockGoto)
	to := b.NewBlock(ir.BlockReturn)
	b.Link(from, to)

	require.Len(t, from.Succs(), 1)
	require.Len(t, to.Preds(), 1)
	assert.Equal(t, to.ID(), from.Succs()[0].ID())
	assert.Equal(t, from.ID(), to.Preds()[0].ID())
}

func TestBuilderSetCtrlMarksControlUse(t *testing.T) {
	b := NewBuilder()
	blk := b.NewBlock(ir.BlockIf)
	cond := b.Val(blk, ir.KindCompare, isa.OpCmpLt, Prim(types.Pred), nil)
	assert.False(t, cond.UsedByControl())

	b.SetCtrl(blk, cond)
	assert.True(t, cond.UsedByControl())
	assert.Equal(t, cond.ID(), blk.Ctrl().ID())
}

func TestBlockCtrlNilWhenUnset(t *testing.T) {
	b := NewBuilder()
	blk := b.NewBlock(ir.BlockReturn)
	assert.Nil(t, blk.Ctrl())
}

func TestBuilderBuildReturnsAllBlocks(t *testing.T) {
	b := NewBuilder()
	entry := b.NewBlock(ir.BlockGoto)
	exit := b.NewBlock(ir.BlockReturn)
	b.Link(entry, exit)

	m := b.Build("f", entry, nil, Void())
	assert.Equal(t, "f", m.Name())
	assert.Equal(t, entry.ID(), m.Entry().ID())
	assert.Len(t, m.Blocks(), 2)
	assert.True(t, m.ReturnType().IsVoid())
}

func TestPrimType(t *testing.T) {
	ty := Prim(types.F32)
	assert.Equal(t, types.F32, ty.ElementType())
	assert.Equal(t, 4, ty.SizeOf())
	assert.Equal(t, 4, ty.AlignOf())
	assert.False(t, ty.IsStruct())
	assert.False(t, ty.IsArray())
	assert.False(t, ty.IsVoid())
	assert.False(t, ty.IsPointer())
}

func TestVoidType(t *testing.T) {
	assert.True(t, Void().IsVoid())
}

func TestPtrType(t *testing.T) {
	pointee := Prim(types.F32)
	ptr := Ptr(types.Global, pointee)
	assert.True(t, ptr.IsPointer())
	assert.Equal(t, types.Global, ptr.AddressSpace())
	assert.Equal(t, 8, ptr.SizeOf())
	require.NotNil(t, ptr.PointeeType())
	assert.Equal(t, pointee, ptr.PointeeType())
}

func TestPtrTypeNilPointeeReturnsNilInterface(t *testing.T) {
	ptr := &Type{isPtr: true}
	assert.Nil(t, ptr.PointeeType())
}

func TestArrayType(t *testing.T) {
	elem := Prim(types.Int32)
	arr := Array(elem, 4)
	assert.True(t, arr.IsArray())
	assert.Equal(t, 4, arr.ArrayLen())
	assert.Equal(t, 16, arr.SizeOf())
	assert.Equal(t, elem.AlignOf(), arr.AlignOf())
	require.NotNil(t, arr.ElemType())
}

func TestStructTypePacksFieldsSequentially(t *testing.T) {
	st := Struct([]string{"x", "y"}, []*Type{Prim(types.F32), Prim(types.F32)})
	require.Len(t, st.Fields(), 2)
	assert.Equal(t, "x", st.Fields()[0].Name)
	assert.Equal(t, 0, st.Fields()[0].Offset)
	assert.Equal(t, "y", st.Fields()[1].Name)
	assert.Equal(t, 4, st.Fields()[1].Offset)
	assert.Equal(t, 8, st.SizeOf())
}

func TestStructTypeInsertsAlignmentPadding(t *testing.T) {
	// A leading i8 forces padding before an 8-byte-aligned pointer field.
	i8 := &Type{elem: types.Int8, size: 1, align: 1}
	ptr := Ptr(types.Global, Prim(types.F32))
	st := Struct([]string{"flag", "p"}, []*Type{i8, ptr})
	assert.Equal(t, 0, st.Fields()[0].Offset)
	assert.Equal(t, 8, st.Fields()[1].Offset)
	assert.Equal(t, 16, st.SizeOf())
	assert.Equal(t, 8, st.AlignOf())
}

func TestAlignmentOfPointerUsesPointeeAlignment(t *testing.T) {
	b := NewBuilder()
	blk := b.NewBlock(ir.BlockReturn)
	pointee := Prim(types.F64)
	v := b.Val(blk, ir.KindParam, 0, Ptr(types.Global, pointee), 0)

	var oracle ir.AlignmentOracle = Alignment{}
	assert.Equal(t, pointee.AlignOf(), oracle.AlignmentOf(v))
}

func TestAlignmentOfNonPointerUsesOwnAlignment(t *testing.T) {
	b := NewBuilder()
	blk := b.NewBlock(ir.BlockReturn)
	v := b.Val(blk, ir.KindParam, 0, Prim(types.Int64), 0)

	var oracle ir.AlignmentOracle = Alignment{}
	assert.Equal(t, 8, oracle.AlignmentOf(v))
}

func TestVectorAddShape(t *testing.T) {
	method, ep := VectorAdd()

	assert.Equal(t, "vector_add", method.Name())
	assert.Equal(t, "vector_add", ep.MethodName)
	require.Len(t, method.Params(), 4)
	assert.Equal(t, ir.ImplicitlyGrouped, ep.Group)
	require.Len(t, method.Blocks(), 3)

	entry := method.Entry()
	assert.Equal(t, ir.BlockIf, entry.Kind())
	require.NotNil(t, entry.Ctrl())
	require.Len(t, entry.Succs(), 2)
}

func TestVectorAddIndexIsUsedByBothAddressComputationsAndCompare(t *testing.T) {
	method, _ := VectorAdd()
	entry := method.Entry()

	var idx ir.Value
	for _, v := range entry.Values() {
		if v.Kind() == ir.KindArithmetic && v.Op() == isa.OpAdd {
			idx = v
		}
	}
	require.NotNil(t, idx)

	body := method.Blocks()[1]
	addressUses := 0
	for _, v := range body.Values() {
		if v.Kind() == ir.KindAddressOfElement {
			addressUses++
		}
	}
	assert.Equal(t, 3, addressUses)
	// idx feeds the compare (control use) plus the three address computations.
	assert.Len(t, idx.Uses(), 4)
}
