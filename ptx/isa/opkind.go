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
// Package isa is InstructionTable + CapabilityGate (spec §4.1, §4.6): the
// static (OpKind, ElementType, flags) -> opcode mapping and the
// architecture capability gate that restricts it. Generalizes falcon's
// codegen/arch_x86.go register/ABI tables and the inline
// map[ssa.Op]LIROp switches in codegen/lower_x86.go into one data table.
package isa

// OpKind is the closed tagged union of spec §3's OpKind: a single Go enum
// rather than an open interface hierarchy, per DESIGN NOTES §9
// ("Polymorphic IR value visitor: model as a closed sum type ... avoid
// open-class hierarchies"). Unary/Binary/Ternary/Compare/Atomic are
// grouped by contiguous ranges so InstructionTable can classify an OpKind's
// arity cheaply (see OpKind.Arity).
type OpKind int

const (
	// Unary
	OpNeg OpKind = iota
	OpNot
	OpAbs
	OpRcp
	OpIsNaN
	OpIsInf
	OpSqrt
	OpRsqrt
	OpSin
	OpCos
	OpTanh
	OpLog2
	OpExp2
	OpFloor
	OpCeil
	OpPopC
	OpCLZ
	unaryEnd

	// Binary
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpMax
	OpMin
	OpCopySign
	binaryEnd

	// Ternary
	OpFMA
	ternaryEnd

	// Compare (ordered)
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	// Compare (unordered/unsigned variant of the same predicates)
	OpCmpEqU
	OpCmpNeU
	OpCmpLtU
	OpCmpLeU
	OpCmpGtU
	OpCmpGeU
	compareEnd

	// Atomic read-modify-write
	OpAtomExch
	OpAtomAdd
	OpAtomAnd
	OpAtomOr
	OpAtomXor
	OpAtomMax
	OpAtomMin
	OpAtomCAS
	atomicEnd
)

// Arity classifies an OpKind by operand count, used by the arithmetic
// lowering handler to decide how many operands to pull off the IR value
// before consulting InstructionTable.
type Arity int

const (
	ArityUnary Arity = iota
	ArityBinary
	ArityTernary
	ArityCompare
	ArityAtomic
)

func (op OpKind) Arity() Arity {
	switch {
	case op < unaryEnd:
		return ArityUnary
	case op < binaryEnd:
		return ArityBinary
	case op < ternaryEnd:
		return ArityTernary
	case op < compareEnd:
		return ArityCompare
	case op < atomicEnd:
		return ArityAtomic
	default:
		return ArityUnary
	}
}

// IsUnordered reports whether op is one of the "unsigned/unordered" compare
// variants (spec §4.1 Compare table: "for floats when the 'unsigned/
// unordered' flag is set, use unordered variants").
func (op OpKind) IsUnordered() bool {
	return op >= OpCmpEqU && op < compareEnd
}

// Ordered strips the unordered flag off a compare OpKind, returning the
// base comparison (Eq/Ne/Lt/Le/Gt/Ge) it shares suffixes with.
func (op OpKind) Ordered() OpKind {
	if op.IsUnordered() {
		return op - (OpCmpEqU - OpCmpEq)
	}
	return op
}

var opKindNames = map[OpKind]string{
	OpNeg: "neg", OpNot: "not", OpAbs: "abs", OpRcp: "rcp",
	OpIsNaN: "isnan", OpIsInf: "isinf", OpSqrt: "sqrt", OpRsqrt: "rsqrt",
	OpSin: "sin", OpCos: "cos", OpTanh: "tanh", OpLog2: "log2", OpExp2: "exp2",
	OpFloor: "floor", OpCeil: "ceil", OpPopC: "popc", OpCLZ: "clz",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr",
	OpMax: "max", OpMin: "min", OpCopySign: "copysign",
	OpFMA: "fma",
	OpCmpEq: "eq", OpCmpNe: "ne", OpCmpLt: "lt", OpCmpLe: "le", OpCmpGt: "gt", OpCmpGe: "ge",
	OpCmpEqU: "equ", OpCmpNeU: "neu", OpCmpLtU: "ltu", OpCmpLeU: "leu", OpCmpGtU: "gtu", OpCmpGeU: "geu",
	OpAtomExch: "exch", OpAtomAdd: "add", OpAtomAnd: "and", OpAtomOr: "or",
	OpAtomXor: "xor", OpAtomMax: "max", OpAtomMin: "min", OpAtomCAS: "cas",
}

func (op OpKind) String() string {
	if name, ok := opKindNames[op]; ok {
		return name
	}
	return "unknown"
}
