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
// Package regs is RegisterModel + Allocator (spec §4.2): virtual register
// banks per kind, a free-list allocator, the SSA value <-> register binding
// map, and structured-register decomposition for composite IR values.
//
// Generalizes two never-wired teacher attempts. falcon's
// codegen/register_x86.go defines a flat physical-register list
// (RAX_..R15_) with a callerSaved() helper but nothing in lower_x86.go or
// asm_x86.go ever calls it — codegen/asm_x86.go.Assembler.allocateStackSlot
// hands out a fresh stack slot per virtual register instead, so the
// "allocator" never reuses anything. falcon's codegen/lsra.go +
// lsra_interval.go + lsra_moveResolver.go implement a real ~1,500-line
// linear-scan allocator with live intervals and a move resolver, but it is
// likewise dead code — nothing calls lsra(lir) either. regs.Allocator is
// the free-list shape register_x86.go gestures at, actually wired into the
// per-kind pools spec §4.2 asks for, with lsra_interval.go's bookkeeping
// idea (how many slots were live at once, per bank) repurposed as the peak
// counter that drives the one-shot .reg declaration emission.
package regs

import (
	"fmt"

	"github.com/ember-lang/ptxgen/ptx/types"
)

// Kind is the spec §3 RegisterKind: {Predicate, Int16, Int32, Int64,
// Float32, Float64, intrinsic(...)}.
type Kind int

const (
	Predicate Kind = iota
	Int16
	Int32
	Int64
	Float32
	Float64
	numOrdinaryKinds

	// Intrinsic kinds never go through the allocator's free-list; they are
	// synthesized on demand (spec §3 "intrinsic registers are synthesized
	// without consuming the id counter").
	IntrinsicTid
	IntrinsicCtaid
	IntrinsicNtid
	IntrinsicNctaid
	IntrinsicLaneId
	IntrinsicDynamicSmem
)

// String names a bank for logging (spec §A.1 "peak register counts per
// bank").
func (k Kind) String() string {
	switch k {
	case Predicate:
		return "pred"
	case Int16:
		return "b16"
	case Int32:
		return "b32"
	case Int64:
		return "b64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return "intrinsic"
	}
}

// prefix is the PTX declaration prefix for an ordinary bank, e.g. "%p",
// "%rs", "%r", "%rd", "%f", "%fd" — the conventional nvcc-generated names.
func (k Kind) prefix() string {
	switch k {
	case Predicate:
		return "%p"
	case Int16:
		return "%rs"
	case Int32:
		return "%r"
	case Int64:
		return "%rd"
	case Float32:
		return "%f"
	case Float64:
		return "%fd"
	default:
		return "%?"
	}
}

// declType is the ".reg .<type>" token for an ordinary bank's declaration
// line.
func (k Kind) declType() string {
	switch k {
	case Predicate:
		return "pred"
	case Int16:
		return "b16"
	case Int32:
		return "b32"
	case Int64:
		return "b64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return "b32"
	}
}

// KindFor maps an ElementType to the register bank that holds it (spec
// §3: "int8 maps to 16-bit opcodes with sign/zero extension ... 1-bit
// values use .pred").
func KindFor(e types.ElementType) Kind {
	switch e {
	case types.Pred:
		return Predicate
	case types.Int8, types.Uint8, types.Int16, types.Uint16, types.F16:
		return Int16
	case types.Int32, types.Uint32, types.Ptr32:
		return Int32
	case types.Int64, types.Uint64, types.Ptr64:
		return Int64
	case types.F32:
		return Float32
	case types.F64:
		return Float64
	default:
		return Int32
	}
}

// VirtualRegister is either an ordinary allocated register (kind + numeric
// id) or an intrinsic device register (kind + dimension), per spec §3.
// BasicValueType carries the element type the caller allocated it for, so
// the emitter can pick suffixes without re-deriving them.
type VirtualRegister struct {
	Kind      Kind
	ID        int // -1 for intrinsic registers
	Dim       int // dimension (x=0,y=1,z=2) for intrinsic registers only
	BasicType types.ElementType
}

// IsIntrinsic reports whether v was synthesized rather than allocated.
func (v VirtualRegister) IsIntrinsic() bool {
	return v.Kind >= IntrinsicTid
}

// Name renders the operand text the emitter writes: "%r7" for an ordinary
// register, or the intrinsic's own spelling ("%tid.x", "%laneid", ...)
// (spec §4.3 "intrinsic registers spell themselves").
func (v VirtualRegister) Name() string {
	switch v.Kind {
	case IntrinsicTid:
		return "%tid." + dimName(v.Dim)
	case IntrinsicCtaid:
		return "%ctaid." + dimName(v.Dim)
	case IntrinsicNtid:
		return "%ntid." + dimName(v.Dim)
	case IntrinsicNctaid:
		return "%nctaid." + dimName(v.Dim)
	case IntrinsicLaneId:
		return "%laneid"
	case IntrinsicDynamicSmem:
		return "%dynamic_smem_size"
	default:
		return fmt.Sprintf("%s%d", v.Kind.prefix(), v.ID)
	}
}

func dimName(d int) string {
	switch d {
	case 0:
		return "x"
	case 1:
		return "y"
	case 2:
		return "z"
	default:
		return "x"
	}
}

// ConstantRegister is an immediate literal wrapped as a register-shaped
// operand (spec §3: "Created per IR constant use"; "has same kind as a
// primitive"). It never occupies a bank slot and is never freed.
type ConstantRegister struct {
	BasicType types.ElementType
	// IntValue / FloatValue hold the literal; exactly one is meaningful,
	// selected by BasicType.IsFloat().
	IntValue   int64
	FloatValue float64
}
