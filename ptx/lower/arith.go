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
	"fmt"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/emit"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/perr"
	"github.com/ember-lang/ptxgen/ptx/regs"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// primitive loads v's binding and requires it to be a leaf register —
// callers that can legally receive a composite value go through
// structured() instead.
func (d *Dispatcher) primitive(v ir.Value) (regs.VirtualRegister, error) {
	s, err := d.alloc.Load(v.ID())
	if err != nil {
		return regs.VirtualRegister{}, err
	}
	if s.Compound {
		return regs.VirtualRegister{}, &perr.InvalidIR{Reason: fmt.Sprintf("value %d is structured, expected a primitive", v.ID())}
	}
	return s.Primitive, nil
}

// structured loads v's binding as a StructuredRegister tree, primitive or
// compound.
func (d *Dispatcher) structured(v ir.Value) (*regs.StructuredRegister, error) {
	return d.alloc.Load(v.ID())
}

func (d *Dispatcher) bindPrimitive(v ir.Value, r regs.VirtualRegister) error {
	s := regs.NewPrimitive(r)
	return d.alloc.Bind(v.ID(), &s)
}

// lowerConst allocates a fresh register and moves the literal into it (spec
// §4.4 implicit in "Null/zero value" handler and the end-to-end scenarios
// "mov f32 constant 1.0 -> %f5").
func (d *Dispatcher) lowerConst(v ir.Value) error {
	elem := v.Type().ElementType()
	kind := regs.KindFor(elem)
	dst := d.alloc.Allocate(kind)
	dst.BasicType = elem
	cst := d.constantOf(v, elem)
	d.emit.Instr(isa.Mnemonic("mov."+elem.TypeSuffix()), emit.Reg{V: dst}, emit.Const{V: cst})
	return d.bindPrimitive(v, dst)
}

func (d *Dispatcher) constantOf(v ir.Value, elem interface{ IsFloat() bool }) regs.ConstantRegister {
	sym := v.Sym()
	if elem.IsFloat() {
		f, _ := sym.(float64)
		return regs.ConstantRegister{BasicType: v.Type().ElementType(), FloatValue: f}
	}
	i, ok := sym.(int64)
	if !ok {
		if b, isBool := sym.(bool); isBool {
			if b {
				i = 1
			}
		}
	}
	return regs.ConstantRegister{BasicType: v.Type().ElementType(), IntValue: i}
}

// lowerParamUse binds a parameter value to a fresh register loaded from its
// `.param` slot (spec §4.4 "Params" state: "loading each into its bound
// register"). The driver's Sym() carries the parameter index. A predicate
// parameter's `.param` slot holds the RemapForCall'd s32, per the
// invariant that a predicate never crosses an I/O boundary (spec §4,
// TypeEncoding), so it is loaded into an s32 temp and narrowed back to a
// predicate register with setp.ne.s32.
func (d *Dispatcher) lowerParamUse(v ir.Value) error {
	idx, _ := v.Sym().(int)
	elem := v.Type().ElementType()
	slot := types.RemapForCall(elem)
	kind := regs.KindFor(slot)
	tmp := d.alloc.Allocate(kind)
	tmp.BasicType = slot
	d.emit.Instr(isa.Mnemonic("ld.param."+slot.TypeSuffix()), emit.Reg{V: tmp}, emit.Raw{Text: fmt.Sprintf("[param_%d]", idx)})
	if elem == types.Pred {
		dst := d.alloc.Allocate(regs.Predicate)
		d.emit.Instr(isa.Mnemonic("setp.ne."+slot.TypeSuffix()), emit.Reg{V: dst}, emit.Reg{V: tmp}, emit.Const{V: regs.ConstantRegister{BasicType: slot, IntValue: 0}})
		return d.bindPrimitive(v, dst)
	}
	return d.bindPrimitive(v, tmp)
}

// remapToCallSlot converts r into a register suitable for storing into a
// `.param` slot at a call or return boundary (spec §4, TypeEncoding: a
// predicate never crosses an I/O boundary — it is materialized into the
// RemapForCall'd s32 first). Non-predicate registers pass through
// unchanged.
func (d *Dispatcher) remapToCallSlot(r regs.VirtualRegister) regs.VirtualRegister {
	if r.BasicType != types.Pred {
		return r
	}
	tmp := d.alloc.Allocate(regs.KindFor(types.Int32))
	tmp.BasicType = types.Int32
	d.emit.Instr("selp.u32", emit.Reg{V: tmp},
		emit.Const{V: regs.ConstantRegister{BasicType: types.Int32, IntValue: 1}},
		emit.Const{V: regs.ConstantRegister{BasicType: types.Int32, IntValue: 0}},
		emit.Reg{V: r})
	return tmp
}

// boolEmulate implements the §4.4 Boolean-compare-emulation fallback:
// Eq(a,b) => xor then not; Ne(a,b) => xor. Used when either compare operand
// is predicate-kind, since setp has no predicate-typed operand form.
func (d *Dispatcher) boolEmulate(v ir.Value, op isa.OpKind, a, b regs.VirtualRegister) error {
	dst := d.alloc.Allocate(regs.Predicate)
	d.emit.Instr("xor.pred", emit.Reg{V: dst}, emit.Reg{V: a}, emit.Reg{V: b})
	if op.Ordered() == isa.OpCmpEq {
		d.emit.Instr("not.pred", emit.Reg{V: dst}, emit.Reg{V: dst})
	}
	return d.bindPrimitive(v, dst)
}

// lowerArithmetic handles unary/binary/ternary arithmetic (spec §4.4
// "Arithmetic (unary/binary/ternary)"): allocate a result register of the
// first operand's kind, look up the opcode, append result then operands.
func (d *Dispatcher) lowerArithmetic(v ir.Value) error {
	args := v.Args()
	elem := args[0].Type().ElementType()
	mnem, err := d.lookup(v.Op(), elem)
	if err != nil {
		return err
	}
	operands := make([]regs.VirtualRegister, len(args))
	for i, a := range args {
		r, err := d.primitive(a)
		if err != nil {
			return err
		}
		operands[i] = r
	}
	dst := d.alloc.Allocate(regs.KindFor(v.Type().ElementType()))
	dst.BasicType = v.Type().ElementType()
	ops := make([]emit.Operand, 0, len(operands)+1)
	ops = append(ops, emit.Reg{V: dst})
	for _, r := range operands {
		ops = append(ops, emit.Reg{V: r})
	}
	d.emit.Instr(mnem, ops...)
	return d.bindPrimitive(v, dst)
}

// lowerCompare handles `setp.<cmp>.<type>`, falling through to the Boolean
// emulation path when either operand is predicate-kind (spec §4.4
// "Compare").
func (d *Dispatcher) lowerCompare(v ir.Value) error {
	args := v.Args()
	left, err := d.primitive(args[0])
	if err != nil {
		return err
	}
	right, err := d.primitive(args[1])
	if err != nil {
		return err
	}
	if left.Kind == regs.Predicate || right.Kind == regs.Predicate {
		return d.boolEmulate(v, v.Op(), left, right)
	}
	elem := args[0].Type().ElementType()
	mnem, err := d.lookup(v.Op(), elem)
	if err != nil {
		return err
	}
	dst := d.alloc.Allocate(regs.Predicate)
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: left}, emit.Reg{V: right})
	return d.bindPrimitive(v, dst)
}

// lowerConvert emits a single `cvt...` instruction (spec §4.4 "Convert":
// "address-space casts are separate (§4.5)").
func (d *Dispatcher) lowerConvert(v ir.Value) error {
	src, err := d.primitive(v.Args()[0])
	if err != nil {
		return err
	}
	dstElem := v.Type().ElementType()
	mnem := isa.ConvertMnemonic(dstElem, src.BasicType)
	dst := d.alloc.Allocate(regs.KindFor(dstElem))
	dst.BasicType = dstElem
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: src})
	return d.bindPrimitive(v, dst)
}

// lowerSelect implements predicate select (spec §4.4 "Predicate select"):
// 1-bit results get two predicated moves so both possibilities land in the
// same register; wider results get a single selp; composite results
// recurse field-wise.
func (d *Dispatcher) lowerSelect(v ir.Value) error {
	args := v.Args() // cond, ifTrue, ifFalse
	cond, err := d.primitive(args[0])
	if err != nil {
		return err
	}
	return d.selectInto(v, cond, args[1], args[2])
}

func (d *Dispatcher) selectInto(v ir.Value, cond regs.VirtualRegister, whenTrue, whenFalse ir.Value) error {
	if v.Type().IsStruct() || v.Type().IsArray() {
		trueS, err := d.structured(whenTrue)
		if err != nil {
			return err
		}
		falseS, err := d.structured(whenFalse)
		if err != nil {
			return err
		}
		result := regs.BuildStructured(d.alloc, v.Type())
		flatT := regs.Flatten(*trueS)
		flatF := regs.Flatten(*falseS)
		flatR := regs.Flatten(result)
		for i := range flatR {
			if err := d.selectPrimitive(flatR[i].Reg, cond, flatT[i].Reg, flatF[i].Reg); err != nil {
				return err
			}
		}
		return d.alloc.Bind(v.ID(), &result)
	}
	t, err := d.primitive(whenTrue)
	if err != nil {
		return err
	}
	f, err := d.primitive(whenFalse)
	if err != nil {
		return err
	}
	dst := d.alloc.Allocate(regs.KindFor(v.Type().ElementType()))
	dst.BasicType = v.Type().ElementType()
	if err := d.selectPrimitive(dst, cond, t, f); err != nil {
		return err
	}
	return d.bindPrimitive(v, dst)
}

func (d *Dispatcher) selectPrimitive(dst, cond, whenTrue, whenFalse regs.VirtualRegister) error {
	if dst.BasicType.IsPredicate() || dst.Kind == regs.Predicate {
		d.emit.PredicatedInstr("mov.pred", cond, false, emit.Reg{V: dst}, emit.Reg{V: whenTrue})
		d.emit.PredicatedInstr("mov.pred", cond, true, emit.Reg{V: dst}, emit.Reg{V: whenFalse})
		return nil
	}
	mnem := isa.SelectMnemonic(dst.BasicType)
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: whenTrue}, emit.Reg{V: whenFalse}, emit.Reg{V: cond})
	return nil
}

// movePhi emits the copy that resolves one phi's incoming edge (spec §4.4
// "wiring phi-moves on block exits"), mirroring falcon's resolvePhi but
// driven from the predecessor side (see dispatcher.go resolvePhisInto).
func (d *Dispatcher) movePhi(phi ir.Value, incoming ir.Value) error {
	dst, err := d.phiBinding(phi)
	if err != nil {
		return err
	}
	src, err := d.primitive(incoming)
	if err != nil {
		return err
	}
	if dst.ID == src.ID && dst.Kind == src.Kind {
		return nil
	}
	d.emit.Instr(isa.Mnemonic("mov."+dst.BasicType.TypeSuffix()), emit.Reg{V: dst}, emit.Reg{V: src})
	return nil
}

// phiBinding returns phi's register, allocating and binding one on first
// encounter (a phi value has no defining instruction of its own; its
// register is just a destination every predecessor's move writes into).
func (d *Dispatcher) phiBinding(phi ir.Value) (regs.VirtualRegister, error) {
	if s, err := d.structured(phi); err == nil {
		return s.Primitive, nil
	}
	elem := phi.Type().ElementType()
	dst := d.alloc.Allocate(regs.KindFor(elem))
	dst.BasicType = elem
	if err := d.bindPrimitive(phi, dst); err != nil {
		return regs.VirtualRegister{}, err
	}
	return dst, nil
}
