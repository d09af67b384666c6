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
package isa

import (
	"fmt"

	"github.com/ember-lang/ptxgen/ptx/perr"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// Flags carries the per-lookup modifiers InstructionTable consults beyond
// (OpKind, ElementType): fast-math relaxation and the capability gate for
// the selected architecture (spec §4.1).
type Flags struct {
	FastMath bool
	Arch     Arch
	Gate     *CapabilityGate
}

// Mnemonic is a fully assembled opcode-plus-suffix-chain string, e.g.
// "add.s32" or "cvt.rn.f32.s32" (spec §4.3 contract: "mnemonic, zero or
// more .suffix tokens"). InstructionTable returns these as a single string
// and the emitter (ptx/emit) writes it verbatim ahead of the operands,
// without splitting it.
type Mnemonic string

type key struct {
	op   OpKind
	elem types.ElementType
	fast bool
}

var table map[key]Mnemonic

func init() {
	table = map[key]Mnemonic{}
	registerUnary()
	registerBinary()
	registerTernary()
	registerAtomic()
}

func reg(op OpKind, elem types.ElementType, fast bool, mnem string) {
	table[key{op, elem, fast}] = Mnemonic(mnem)
}

// registerUnary fills in standard and fast-math unary arithmetic (spec
// §4.1 "Unary arithmetic": fast-math uses .approx.ftz for reciprocal, sin,
// cos, log2, exp2, sqrt, rsqrt, tanh).
func registerUnary() {
	for _, e := range []types.ElementType{types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint8, types.Uint16, types.Uint32, types.Uint64} {
		reg(OpNeg, e, false, "neg."+arithElem(e).String())
		reg(OpNot, e, false, "not."+types.BasicValueKindOf(e).String())
		reg(OpAbs, e, false, "abs."+arithElem(e).String())
		reg(OpPopC, e, false, "popc."+widthSuffix(e))
		reg(OpCLZ, e, false, "clz."+widthSuffix(e))
	}
	for _, e := range []types.ElementType{types.F32, types.F64} {
		reg(OpNeg, e, false, "neg."+e.String())
		reg(OpAbs, e, false, "abs."+e.String())
		reg(OpFloor, e, false, "cvt.rmi."+e.String()+"."+e.String())
		reg(OpCeil, e, false, "cvt.rpi."+e.String()+"."+e.String())
	}
	approxFtz := []OpKind{OpRcp, OpSin, OpCos, OpLog2, OpExp2, OpSqrt, OpRsqrt, OpTanh}
	for _, op := range approxFtz {
		reg(op, types.F32, false, strictName(op)+".f32")
		reg(op, types.F32, true, op.String()+".approx.ftz.f32")
	}
	reg(OpRcp, types.F64, false, "rcp.rn.f64")
	reg(OpSqrt, types.F64, false, "sqrt.rn.f64")
	reg(OpIsNaN, types.F32, false, "testp.notanumber.f32")
	reg(OpIsNaN, types.F64, false, "testp.notanumber.f64")
	reg(OpIsInf, types.F32, false, "testp.infinite.f32")
	reg(OpIsInf, types.F64, false, "testp.infinite.f64")
}

// strictName is the non-approximate mnemonic base for the transcendental
// ops, which PTX only defines in .approx form — strict mode on these
// element/op pairs is therefore an UnsupportedOperation, not a real
// mnemonic; callers that need strict sin/cos/etc must decompose earlier.
// sqrt and rcp do have strict .rn forms, handled as special cases.
func strictName(op OpKind) string {
	switch op {
	case OpRcp:
		return "rcp.rn"
	case OpSqrt:
		return "sqrt.rn"
	default:
		return op.String()
	}
}

func widthSuffix(e types.ElementType) string {
	if e.Width() <= 4 {
		return "b32"
	}
	return "b64"
}

// arithElem maps Int8/Uint8 onto their 16-bit counterparts for the PTX
// opcodes that have no 8-bit arithmetic form (spec §4.1 tie-break: "int8
// maps to 16-bit opcodes with sign/zero extension"). ptx/regs.KindFor
// already allocates Int8/Uint8 values out of the 16-bit register bank, so
// the opcode suffix has to agree or the mnemonic and the operand register
// class mismatch.
func arithElem(e types.ElementType) types.ElementType {
	switch e {
	case types.Int8:
		return types.Int16
	case types.Uint8:
		return types.Uint16
	default:
		return e
	}
}

// registerBinary fills in standard and fast-math binary arithmetic (spec
// §4.1 "Binary arithmetic").
func registerBinary() {
	intTypes := []types.ElementType{types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint8, types.Uint16, types.Uint32, types.Uint64}
	for _, e := range intTypes {
		reg(OpAdd, e, false, "add."+arithElem(e).String())
		reg(OpSub, e, false, "sub."+arithElem(e).String())
		reg(OpMul, e, false, "mul.lo."+arithElem(e).String())
		reg(OpDiv, e, false, "div."+arithElem(e).String())
		reg(OpRem, e, false, "rem."+arithElem(e).String())
		reg(OpAnd, e, false, "and."+types.BasicValueKindOf(e).String())
		reg(OpOr, e, false, "or."+types.BasicValueKindOf(e).String())
		reg(OpXor, e, false, "xor."+types.BasicValueKindOf(e).String())
		reg(OpShl, e, false, "shl."+types.BasicValueKindOf(e).String())
		reg(OpShr, e, false, "shr."+arithElem(e).String())
		reg(OpMax, e, false, "max."+arithElem(e).String())
		reg(OpMin, e, false, "min."+arithElem(e).String())
	}
	for _, e := range []types.ElementType{types.F32, types.F64} {
		reg(OpAdd, e, false, "add."+e.String())
		reg(OpSub, e, false, "sub."+e.String())
		reg(OpMul, e, false, "mul."+e.String())
		reg(OpDiv, e, false, "div.rn."+e.String())
		reg(OpMax, e, false, "max."+e.String())
		reg(OpMin, e, false, "min."+e.String())
		reg(OpCopySign, e, false, "copysign."+e.String())
	}
	// f32 fast-math variants (spec: ".ftz" for add/sub/mul/min/max,
	// ".approx.ftz" for div).
	reg(OpAdd, types.F32, true, "add.ftz.f32")
	reg(OpSub, types.F32, true, "sub.ftz.f32")
	reg(OpMul, types.F32, true, "mul.ftz.f32")
	reg(OpDiv, types.F32, true, "div.approx.ftz.f32")
	reg(OpMax, types.F32, true, "max.ftz.f32")
	reg(OpMin, types.F32, true, "min.ftz.f32")
	// f16 fast-math arithmetic, gated by CapF16ArithA at lookup time.
	reg(OpAdd, types.F16, true, "add.ftz.f16")
	reg(OpSub, types.F16, true, "sub.ftz.f16")
	reg(OpMul, types.F16, true, "mul.ftz.f16")
	reg(OpMax, types.F16, false, "max.f16")
	reg(OpMin, types.F16, false, "min.f16")

	// Compare: setp.<cmp>.<type> (spec §4.1 "Compare" table). All cmp
	// variants, including the unordered ones, apply to every element type;
	// the unordered forms are only meaningful for floats but are harmless
	// (never looked up) for integers.
	for _, e := range append(append([]types.ElementType{}, intTypes...), types.F32, types.F64, types.F16, types.Ptr32, types.Ptr64) {
		for op, name := range map[OpKind]string{
			OpCmpEq: "eq", OpCmpNe: "ne", OpCmpLt: "lt", OpCmpLe: "le", OpCmpGt: "gt", OpCmpGe: "ge",
			OpCmpEqU: "equ", OpCmpNeU: "neu", OpCmpLtU: "ltu", OpCmpLeU: "leu", OpCmpGtU: "gtu", OpCmpGeU: "geu",
		} {
			reg(op, e, false, "setp."+name+"."+e.String())
		}
	}
}

func registerTernary() {
	intTypes := []types.ElementType{types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint8, types.Uint16, types.Uint32, types.Uint64}
	for _, e := range intTypes {
		// Open Question 1, decided in SPEC_FULL.md ("Open Questions —
		// decisions", item 1): mad.lo.<type>
		// for the IR's declared width, including s16 — no implicit
		// widening to s32. Int8/Uint8 still widen to 16-bit (arithElem)
		// since PTX has no 8-bit mad.lo form.
		reg(OpFMA, e, false, "mad.lo."+arithElem(e).String())
	}
	reg(OpFMA, types.F32, false, "fma.rn.f32")
	reg(OpFMA, types.F64, false, "fma.rn.f64")
}

// registerAtomic fills in the reduction-only (red.*) forms; the full
// atom.* (result-returning) forms share the same type suffix and are
// synthesized at lookup time in AtomicMnemonic() below, since they differ only in
// the "red"/"atom" prefix and whether a destination register is declared —
// a concern of the lowering handler, not the table.
func registerAtomic() {
	ops := map[OpKind]string{
		OpAtomExch: "exch", OpAtomAdd: "add", OpAtomAnd: "and", OpAtomOr: "or",
		OpAtomXor: "xor", OpAtomMax: "max", OpAtomMin: "min", OpAtomCAS: "cas",
	}
	intTypes := []types.ElementType{types.Int32, types.Int64, types.Uint32, types.Uint64}
	for op, name := range ops {
		for _, e := range intTypes {
			reg(op, e, false, Mnemonic(name+"."+e.String()))
		}
	}
	reg(OpAtomAdd, types.F16, false, "add.f16")
	reg(OpAtomAdd, types.F32, false, "add.f32")
	reg(OpAtomAdd, types.F64, false, "add.f64")
}

// Lookup is InstructionTable's principal operation (spec §4.1): given
// (op, elem, flags), return the opcode-plus-suffix mnemonic or fail with
// UnsupportedOperation / UnsupportedOnArchitecture.
func Lookup(op OpKind, elem types.ElementType, flags Flags) (Mnemonic, error) {
	if cap, needed := gatedCapability(op, elem, flags.FastMath); needed {
		gate := flags.Gate
		if gate == nil {
			gate = defaultGate
		}
		if !gate.Supports(flags.Arch, cap) {
			return "", &perr.UnsupportedOnArchitecture{
				Op: op.String(), Type: elem.String(), Arch: flags.Arch.String(),
			}
		}
	}
	if flags.FastMath {
		if m, ok := table[key{op, elem, true}]; ok {
			return m, nil
		}
	}
	if m, ok := table[key{op, elem, false}]; ok {
		return m, nil
	}
	return "", &perr.UnsupportedOperation{Op: op.String(), Type: elem.String()}
}

var defaultGate = NewCapabilityGate()

// gatedCapability reports which Capability (if any) guards this
// (op, elem, fastMath) lookup.
func gatedCapability(op OpKind, elem types.ElementType, fastMath bool) (Capability, bool) {
	switch {
	case elem == types.F16 && fastMath && (op == OpAdd || op == OpSub || op == OpMul):
		return CapF16ArithA, true
	case elem == types.F16 && op == OpMin:
		return CapF16Min, true
	case elem == types.F16 && op == OpMax:
		return CapF16Max, true
	case elem == types.F16 && op == OpTanh:
		return CapF16Tanh, true
	case elem == types.F32 && op == OpTanh:
		return CapF32Tanh, true
	default:
		return "", false
	}
}

// SelectMnemonic returns the selp.{b16|b32|b64} opcode for the given
// result element type (spec §4.1 "Select" table).
func SelectMnemonic(result types.ElementType) Mnemonic {
	return Mnemonic("selp." + types.BasicValueKindOf(result).String())
}

// AddressSpaceCastMnemonic returns the cvta/cvta.to mnemonic for crossing
// between a named address space and generic (spec §4.1, §4.5).
func AddressSpaceCastMnemonic(space types.AddressSpace, toGeneric bool, ptrWidth types.ElementType) Mnemonic {
	suffix := ptrWidth.TypeSuffix()
	if toGeneric {
		return Mnemonic(fmt.Sprintf("cvta%s.%s", space.Suffix(), suffix))
	}
	return Mnemonic(fmt.Sprintf("cvta.to%s.%s", space.Suffix(), suffix))
}

// ConvertMnemonic builds the cvt[.<rounding>].<dst>.<src> mnemonic (spec
// §4.1 "Convert": rounding defaults to nearest-even for int->float,
// round-to-zero for float->int, plain for widening float->float).
func ConvertMnemonic(dst, src types.ElementType) Mnemonic {
	rounding := ""
	switch {
	case dst.IsFloat() && !src.IsFloat():
		rounding = "rn."
	case !dst.IsFloat() && src.IsFloat():
		rounding = "rz."
	case dst.IsFloat() && src.IsFloat() && dst.Width() < src.Width():
		rounding = "rn."
	}
	return Mnemonic(fmt.Sprintf("cvt.%s%s.%s", rounding, dst.TypeSuffix(), src.TypeSuffix()))
}

// VectorSuffix returns "v2" or "v4" for a vectorized load/store of the
// given lane count (spec §4.1 "Vector suffixes"); callers are expected to
// have already validated lanes is 2 or 4 (invariant 4 / property 5).
func VectorSuffix(lanes int) string {
	switch lanes {
	case 2:
		return "v2"
	case 4:
		return "v4"
	default:
		return fmt.Sprintf("v%d", lanes)
	}
}

// ShuffleMnemonic returns shfl.sync.<kind>.b32 (spec §4.1 "Shuffles").
func ShuffleMnemonic(kind string) Mnemonic {
	return Mnemonic("shfl.sync." + kind + ".b32")
}

// BarrierMnemonic and PredicateBarrierMnemonic realize spec §4.1
// "Barriers".
func BarrierMnemonic(warpLevel bool) Mnemonic {
	if warpLevel {
		return "bar.warp.sync"
	}
	return "bar.sync"
}

func PredicateBarrierMnemonic(kind string) Mnemonic {
	switch kind {
	case "popc":
		return "bar.red.popc.u32"
	case "and":
		return "bar.red.and.pred"
	case "or":
		return "bar.red.or.pred"
	default:
		panic("unknown predicate barrier kind " + kind)
	}
}

// MemBarrierMnemonic realizes spec §4.1 "membar.{cta|gl|sys}".
func MemBarrierMnemonic(scope string) Mnemonic {
	return Mnemonic("membar." + scope)
}

// AtomicMnemonic picks between the reduction-only (red.*) and
// result-returning (atom.*) forms (spec §4.4 "Atomic read-modify-write":
// "choose red.* (no result) or atom.* (result) based on whether the value
// is used"), and prefixes the address-space suffix (omitted for
// generic/local, per spec).
func AtomicMnemonic(op OpKind, elem types.ElementType, space types.AddressSpace, hasResult bool, flags Flags) (Mnemonic, error) {
	base, err := Lookup(op, elem, Flags{Arch: flags.Arch, Gate: flags.Gate})
	if err != nil {
		return "", err
	}
	prefix := "red"
	if hasResult {
		prefix = "atom"
	}
	spaceSuffix := ""
	if space == types.Global || space == types.Shared {
		spaceSuffix = space.Suffix()
	}
	return Mnemonic(fmt.Sprintf("%s%s.%s", prefix, spaceSuffix, base)), nil
}

// AtomicCASMnemonic realizes "atom.cas.<space>.b32/b64" (spec §4.4
// "Atomic CAS").
func AtomicCASMnemonic(elem types.ElementType, space types.AddressSpace) Mnemonic {
	spaceSuffix := ""
	if space == types.Global || space == types.Shared {
		spaceSuffix = space.Suffix()
	}
	return Mnemonic(fmt.Sprintf("atom.cas%s.%s", spaceSuffix, types.BasicValueKindOf(elem).String()))
}
