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
// Package emit is the Emitter (spec §4.3): a thin textual writer that turns
// a mnemonic plus typed operands into one PTX instruction line, with
// optional predication. Grounded on falcon's codegen/asm_x86.go Assembler
// (emit0/emit1/emit2, operand(), buf string accumulator) — generalized
// from a fixed two-operand x86 shape to PTX's variadic operand lists and
// leading predication guard.
package emit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/regs"
)

// Operand is anything Emitter can render as an instruction argument.
type Operand interface {
	operandText() string
}

// Reg wraps a VirtualRegister as an operand.
type Reg struct{ V regs.VirtualRegister }

func (r Reg) operandText() string { return r.V.Name() }

// Const wraps a ConstantRegister as an immediate operand (spec §4.3
// "immediate ... integers in decimal, f32/f64 in big-endian IEEE-754 hex").
type Const struct{ V regs.ConstantRegister }

func (c Const) operandText() string {
	if c.V.BasicType.IsFloat() {
		return floatHex(c.V.FloatValue, c.V.BasicType.Width())
	}
	return strconv.FormatInt(c.V.IntValue, 10)
}

// floatHex renders f as PTX's 0hXXXX (f16), 0fXXXXXXXX (f32), or
// 0dXXXXXXXXXXXXXXXX (f64) big-endian hex literal (spec invariant 5: "F16
// constants are represented as their raw 16-bit bit pattern").
func floatHex(f float64, width int) string {
	switch width {
	case 2:
		bits := float16Bits(float32(f))
		return fmt.Sprintf("0h%04X", bits)
	case 4:
		bits := math.Float32bits(float32(f))
		return fmt.Sprintf("0f%08X", bits)
	default:
		bits := math.Float64bits(f)
		return fmt.Sprintf("0d%016X", bits)
	}
}

// float16Bits converts f to its IEEE-754 binary16 bit pattern, rounding to
// nearest with ties going away from zero via the +0x1000 bias on the
// mantissa before truncating. Subnormal and overflow ranges are handled
// separately since they don't fit the normal exponent-bias arithmetic.
func float16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127
	mant := bits & 0x7fffff

	switch {
	case (bits>>23)&0xff == 0xff: // f32 Inf/NaN
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp > 15: // overflow
		return sign | 0x7c00
	case exp < -24: // underflows even a subnormal f16
		return sign
	case exp < -14: // subnormal f16
		shift := uint(-14 - exp)
		m := (mant | 0x800000) >> (shift + 13)
		return sign | uint16(m)
	default:
		m := mant + 0x1000
		if m&0x800000 != 0 {
			m = 0
			exp++
			if exp > 15 {
				return sign | 0x7c00
			}
		}
		return sign | uint16(exp+15)<<10 | uint16(m>>13)
	}
}

// Deref renders a memory operand "[base]" or "[base+offset]" (spec §4.3
// "dereferenced register (bracketed, optional constant offset)").
type Deref struct {
	Base   regs.VirtualRegister
	Offset int
}

func (d Deref) operandText() string {
	if d.Offset == 0 {
		return "[" + d.Base.Name() + "]"
	}
	sign := "+"
	off := d.Offset
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("[%s%s%d]", d.Base.Name(), sign, off)
}

// Label renders a branch-target or block label operand.
type Label struct{ Name string }

func (l Label) operandText() string { return l.Name }

// Raw passes through caller-formatted text verbatim, used for symbol names
// and inline-PTX fragments that don't fit another operand shape.
type Raw struct{ Text string }

func (r Raw) operandText() string { return r.Text }

// VectorGroup renders a "{r1, r2, r3, r4}" destination group for a
// vectorized load (spec §4.3 "vector register group").
type VectorGroup struct{ Lanes []regs.VirtualRegister }

func (g VectorGroup) operandText() string {
	names := make([]string, len(g.Lanes))
	for i, l := range g.Lanes {
		names[i] = l.Name()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Emitter accumulates one method's instruction text (spec §4.3: "writes one
// line of PTX text per instruction"). It has no knowledge of register
// allocation or lowering; it only renders what it's told to.
type Emitter struct {
	buf strings.Builder
}

// New returns an empty Emitter.
func New() *Emitter { return &Emitter{} }

// String returns the accumulated instruction text.
func (e *Emitter) String() string { return e.buf.String() }

// Comment writes a "// text" line, matching falcon's asm.comment but using
// PTX's own comment syntax.
func (e *Emitter) Comment(text string) {
	fmt.Fprintf(&e.buf, "\t// %s\n", text)
}

// Label writes a "name:" line.
func (e *Emitter) Label(name string) {
	fmt.Fprintf(&e.buf, "%s:\n", name)
}

// Instr writes one unpredicated instruction: mnemonic and a comma-separated
// operand list (spec §4.3 principal operation). Guarded instructions go
// through PredicatedInstr, which takes the guard register and its negation
// explicitly, so no zero VirtualRegister (which would read as %p0) is ever
// used as a "no guard" marker.
func (e *Emitter) Instr(mnem isa.Mnemonic, operands ...Operand) {
	e.instr(mnem, nil, false, operands...)
}

// PredicatedInstr writes an instruction guarded by "@%pN" or "@!%pN" (spec
// §4.3 "predication guard: @%p or @!%p prefix").
func (e *Emitter) PredicatedInstr(mnem isa.Mnemonic, pred regs.VirtualRegister, negated bool, operands ...Operand) {
	e.instr(mnem, &pred, negated, operands...)
}

func (e *Emitter) instr(mnem isa.Mnemonic, pred *regs.VirtualRegister, negated bool, operands ...Operand) {
	e.buf.WriteByte('\t')
	if pred != nil {
		e.buf.WriteByte('@')
		if negated {
			e.buf.WriteByte('!')
		}
		e.buf.WriteString(pred.Name())
		e.buf.WriteByte(' ')
	}
	e.buf.WriteString(string(mnem))
	if len(operands) > 0 {
		e.buf.WriteByte('\t')
		texts := make([]string, len(operands))
		for i, op := range operands {
			texts[i] = op.operandText()
		}
		e.buf.WriteString(strings.Join(texts, ", "))
	}
	e.buf.WriteString(";\n")
}

// RawLine appends pre-formatted text verbatim with no trailing ';' added
// (a newline is added if the text lacks one),
// used for inline-PTX fragments (spec §4.4 "InlinePTX: splices the
// fragment's text in verbatim").
func (e *Emitter) RawLine(text string) {
	e.buf.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		e.buf.WriteByte('\n')
	}
}
