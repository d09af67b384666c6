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
	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// Alignment is a trivial ir.AlignmentOracle that reports every pointer's
// natural element alignment — the safe, pessimistic fallback the contract
// documents (internal/ir.go AlignmentOracle).
type Alignment struct{}

func (Alignment) AlignmentOf(v ir.Value) int {
	t := v.Type()
	if t.IsPointer() && t.PointeeType() != nil {
		return t.PointeeType().AlignOf()
	}
	return t.AlignOf()
}

// VectorAdd builds a bounds-checked elementwise `out[i] = a[i] + b[i]`
// kernel: three f32 global pointers and an i32 length, entry block computes
// the global thread index and branches on `idx < n`, the body loads both
// operands, adds, and stores, the exit block returns. Exercises Intrinsic,
// Arithmetic, Compare, AddressOfElement, Load, Store, and all three block
// terminator kinds — the smoke-test program for cmd/ptxgen-compile-one and
// the ptx package's end-to-end tests.
func VectorAdd() (*Method, ir.EntryPoint) {
	b := NewBuilder()

	f32 := Prim(types.F32)
	s32 := Prim(types.Int32)
	ptrF32 := Ptr(types.Global, f32)

	entry := b.NewBlock(ir.BlockIf)
	body := b.NewBlock(ir.BlockGoto)
	exit := b.NewBlock(ir.BlockReturn)
	b.Link(entry, body)
	b.Link(entry, exit)
	b.Link(body, exit)

	pa := b.Val(entry, ir.KindParam, 0, ptrF32, 0)
	pb := b.Val(entry, ir.KindParam, 0, ptrF32, 1)
	pout := b.Val(entry, ir.KindParam, 0, ptrF32, 2)
	pn := b.Val(entry, ir.KindParam, 0, s32, 3)

	tid := b.Val(entry, ir.KindIntrinsic, 0, s32, ir.IntrinsicRef{Kind: ir.IntrinsicTid, Dim: 0})
	ctaid := b.Val(entry, ir.KindIntrinsic, 0, s32, ir.IntrinsicRef{Kind: ir.IntrinsicCtaid, Dim: 0})
	ntid := b.Val(entry, ir.KindIntrinsic, 0, s32, ir.IntrinsicRef{Kind: ir.IntrinsicNtid, Dim: 0})
	blockOffset := b.Val(entry, ir.KindArithmetic, isa.OpMul, s32, nil, ctaid, ntid)
	idx := b.Val(entry, ir.KindArithmetic, isa.OpAdd, s32, nil, tid, blockOffset)
	cmp := b.Val(entry, ir.KindCompare, isa.OpCmpLt, Prim(types.Pred), nil, idx, pn)
	b.SetCtrl(entry, cmp)

	addrA := b.Val(body, ir.KindAddressOfElement, 0, ptrF32, nil, pa, idx)
	addrB := b.Val(body, ir.KindAddressOfElement, 0, ptrF32, nil, pb, idx)
	addrOut := b.Val(body, ir.KindAddressOfElement, 0, ptrF32, nil, pout, idx)
	loadA := b.Val(body, ir.KindLoad, 0, f32, nil, addrA)
	loadB := b.Val(body, ir.KindLoad, 0, f32, nil, addrB)
	sum := b.Val(body, ir.KindArithmetic, isa.OpAdd, f32, nil, loadA, loadB)
	b.Val(body, ir.KindStore, 0, Void(), nil, addrOut, sum)

	params := []ir.Param{
		{Name: "a", Type: ptrF32},
		{Name: "b", Type: ptrF32},
		{Name: "out", Type: ptrF32},
		{Name: "n", Type: s32},
	}
	m := b.Build("vector_add", entry, params, Void())

	ep := ir.EntryPoint{
		MethodName: "vector_add",
		Params:     params,
		ReturnType: Void(),
		Group:      ir.ImplicitlyGrouped,
	}
	return m, ep
}
