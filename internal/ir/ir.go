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
// Package ir is the read-only IR contract ptxgen consumes (spec §6): the
// driver hands the backend already-optimized IR methods, and the backend
// only ever reads through these interfaces — it never mutates the IR and
// never runs its own optimization passes (out of scope, spec §1). This
// generalizes falcon's ast.Type (type predicates) and compile/ssa.Value /
// compile/ssa.Block (the SSA graph shape) into interfaces a real driver's
// IR types must satisfy, rather than concrete structs ptxgen owns.
package ir

import (
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// ValueKind is the closed tag dispatched on by LoweringDispatcher (spec
// §4.4): one entry per per-IR-node-kind handler.
type ValueKind int

const (
	KindConst ValueKind = iota
	KindParam
	KindArithmetic // Op() is a Unary/Binary/Ternary isa.OpKind
	KindCompare    // Op() is a Compare isa.OpKind
	KindAtomicRMW  // Op() is an Atomic isa.OpKind
	KindAtomicCAS
	KindConvert
	KindSelect
	KindLoad
	KindStore
	KindAddressOfElement
	KindAddressOfField
	KindAlignTo
	KindAddressSpaceCast
	KindNull
	KindStringConst
	KindStructBuild
	KindGetField
	KindSetField
	KindIntrinsic // ThreadIdx/BlockIdx/BlockDim/GridDim/LaneId
	KindDynamicSharedMemLen
	KindShuffle
	KindSubShuffle
	KindBarrier
	KindPredicateBarrier
	KindMemBarrier
	KindCall
	KindInlinePTX
	KindPhi
	KindBroadcast    // Open Question 2: routed to UnsupportedOperation
	KindWarpSizeValue // ditto
)

// IntrinsicKind names which device pseudo-register an Intrinsic value
// reads (spec §4.4 "Intrinsic device constants").
type IntrinsicKind int

const (
	IntrinsicTid IntrinsicKind = iota
	IntrinsicCtaid
	IntrinsicNtid
	IntrinsicNctaid
	IntrinsicLaneId
)

// Dim is a thread/block-index dimension, 0/1/2 for x/y/z.
type Dim int

// IntrinsicRef is the payload a KindIntrinsic value's Sym() returns:
// which device pseudo-register, and which dimension.
type IntrinsicRef struct {
	Kind IntrinsicKind
	Dim  Dim
}

// Type is the read-only type-model contract (spec §6 "a type model
// exposing element types, pointer types with address space, structure
// types with field offsets and alignments, array types with element type
// and length").
type Type interface {
	// ElementType returns the scalar tag for a primitive type; callers
	// must only call this when IsStruct()/IsArray() are both false.
	ElementType() types.ElementType
	IsStruct() bool
	IsArray() bool
	IsVoid() bool

	// Pointer types report their pointee's address space.
	IsPointer() bool
	AddressSpace() types.AddressSpace
	PointeeType() Type

	// Struct types: ordered fields, each with a byte offset and alignment.
	Fields() []Field
	// Array types: element type and static length.
	ElemType() Type
	ArrayLen() int

	// SizeOf and AlignOf are used by address arithmetic and the
	// vectorization partitioner; for primitives these equal
	// ElementType().Width().
	SizeOf() int
	AlignOf() int
}

// Field is one member of a struct Type, in declaration order.
type Field struct {
	Name   string
	Type   Type
	Offset int
}

// SourceLoc is a (file, line, column) triple; DebugInfoSink only consumes
// line/column (spec §1: "source-level debug-info extraction beyond
// line/column" is out of scope — the driver resolves richer info itself).
type SourceLoc struct {
	File   string
	Line   int
	Column int
	Valid  bool
}

// Value is one SSA value (spec §3's non-void "SSA value" entity). Mirrors
// falcon's ssa.Value shape (Id, Op, Args, Sym, Block, Uses) generalized to
// the PTX op set.
type Value interface {
	ID() int
	Kind() ValueKind
	Op() isa.OpKind // valid for KindArithmetic/KindCompare/KindAtomicRMW
	Type() Type
	Args() []Value
	Block() Block
	Uses() []Value
	UsedByControl() bool // this value is a block's Ctrl (branch condition)
	Loc() SourceLoc

	// Sym carries kind-specific immediate payload: the literal for
	// KindConst, the parameter index for KindParam, the callee symbol
	// name for KindCall, the interned text for KindStringConst, the
	// intrinsic kind+dimension for KindIntrinsic, the inline-PTX fragment
	// list for KindInlinePTX, the field index for KindGetField/
	// KindSetField, the constant byte offset for KindAddressOfField, the
	// constant alignment for KindAlignTo (or nil if non-constant), the
	// predicate-barrier/shuffle/membar variant tag otherwise.
	Sym() interface{}
}

// BlockKind is a block's terminator shape (mirrors falcon's ssa.BlockKind).
type BlockKind int

const (
	BlockGoto BlockKind = iota
	BlockIf
	BlockReturn
)

// Block is one basic block; Values is pre-ordered caller-side (no
// unscheduled values), matching spec §4.4's "walks basic blocks in a
// stable order (e.g. reverse post-order)" — RPO is the dispatcher's job
// (ptx/lower), not the IR's, so Block only exposes structure.
type Block interface {
	ID() int
	Kind() BlockKind
	Values() []Value
	Preds() []Block
	Succs() []Block
	Ctrl() Value // branch condition for BlockIf, return value for BlockReturn (nil if void)
}

// Param is one formal parameter of a Method.
type Param struct {
	Name string
	Type Type
}

// GroupKind distinguishes implicitly- vs explicitly-grouped kernels (spec
// §6 "Entry-point descriptor").
type GroupKind int

const (
	ExplicitlyGrouped GroupKind = iota
	ImplicitlyGrouped
)

// EntryPoint is the spec §6 "Entry-point descriptor": the method to
// compile, its parameters, and its kernel grouping.
type EntryPoint struct {
	MethodName string
	Params     []Param
	ReturnType Type
	Group      GroupKind
	// KernelIndexType is only meaningful when Group == ImplicitlyGrouped.
	KernelIndexType Type
}

// Method is one already-optimized IR function body (spec §1: "the driver
// supplies one method at a time"). Blocks is in the order the frontend
// produced them; Entry is the unique entry block.
type Method interface {
	Name() string
	Entry() Block
	Blocks() []Block
	Params() []Param
	ReturnType() Type
}

// AlignmentOracle is the pointer-alignment collaborator (spec §6: "a
// pointer-alignment oracle returning a safe lower bound"). Vectorized
// load/store selection (spec invariant 4) consults this instead of
// re-deriving alignment itself.
type AlignmentOracle interface {
	// AlignmentOf returns a conservative lower bound, in bytes, on the
	// alignment of the pointer value v. Implementations must never return
	// an alignment greater than the true one; returning the element's
	// natural alignment is always a safe, if pessimistic, fallback.
	AlignmentOf(v Value) int
}
