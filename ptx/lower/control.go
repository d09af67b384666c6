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
	"strings"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/emit"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/regs"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// lowerControl emits blk's terminator (spec §4.4 "Body" state: "emitting
// labels and per-value instructions, and wiring phi-moves on block exits"),
// mirroring falcon's lowerBlockControl but for PTX's bra/ret rather than
// x86 conditional jumps.
func (d *Dispatcher) lowerControl(blk ir.Block) error {
	switch blk.Kind() {
	case ir.BlockGoto:
		d.emit.Instr("bra", emit.Label{Name: blockLabel(blk.Succs()[0])})
		return nil
	case ir.BlockReturn:
		ctrl := blk.Ctrl()
		if ctrl != nil {
			r, err := d.primitive(ctrl)
			if err != nil {
				return err
			}
			r = d.remapToCallSlot(r)
			d.emit.Instr(isa.Mnemonic("st.param."+r.BasicType.TypeSuffix()), emit.Raw{Text: "[retval0]"}, emit.Reg{V: r})
		}
		d.emit.Instr("ret")
		return nil
	case ir.BlockIf:
		ctrl := blk.Ctrl()
		cond, err := d.primitive(ctrl)
		if err != nil {
			return err
		}
		d.emit.PredicatedInstr("bra", cond, false, emit.Label{Name: blockLabel(blk.Succs()[0])})
		d.emit.Instr("bra", emit.Label{Name: blockLabel(blk.Succs()[1])})
		return nil
	default:
		return internalErr(fmt.Sprintf("unhandled block kind %d", blk.Kind()))
	}
}

// lowerCall implements the §4.4 Call handler: a brace-delimited scope with
// one `.param` per argument (and one for a non-void return), storing each
// argument then calling, then loading the return value back.
func (d *Dispatcher) lowerCall(v ir.Value) error {
	callee, _ := v.Sym().(string)
	args := v.Args()

	d.emit.RawLine("\t{")
	paramNames := make([]string, len(args))
	for i, a := range args {
		r, err := d.primitive(a)
		if err != nil {
			return err
		}
		r = d.remapToCallSlot(r)
		pname := fmt.Sprintf(".param_%d", i)
		paramNames[i] = pname
		d.emit.RawLine(fmt.Sprintf("\t.param .%s %s;", r.BasicType.TypeSuffix(), pname))
		d.emit.Instr(isa.Mnemonic("st.param."+r.BasicType.TypeSuffix()), emit.Raw{Text: "[" + pname + "]"}, emit.Reg{V: r})
	}

	void := v.Type().IsVoid()
	var retName string
	if !void {
		retName = ".retval0"
		d.emit.RawLine(fmt.Sprintf("\t.param .%s %s;", types.RemapForCall(v.Type().ElementType()).TypeSuffix(), retName))
	}

	argList := "(" + strings.Join(paramNames, ", ") + ")"
	if void {
		d.emit.Instr("call.uni", emit.Raw{Text: callee}, emit.Raw{Text: argList})
	} else {
		d.emit.Instr("call.uni", emit.Raw{Text: "(" + retName + ")"}, emit.Raw{Text: callee}, emit.Raw{Text: argList})
	}

	if !void {
		elem := v.Type().ElementType()
		slot := types.RemapForCall(elem)
		tmp := d.alloc.Allocate(regs.KindFor(slot))
		tmp.BasicType = slot
		d.emit.Instr(isa.Mnemonic("ld.param."+slot.TypeSuffix()), emit.Reg{V: tmp}, emit.Raw{Text: "[" + retName + "]"})
		dst := tmp
		if elem == types.Pred {
			dst = d.alloc.Allocate(regs.Predicate)
			d.emit.Instr(isa.Mnemonic("setp.ne."+slot.TypeSuffix()), emit.Reg{V: dst}, emit.Reg{V: tmp}, emit.Const{V: regs.ConstantRegister{BasicType: slot, IntValue: 0}})
		}
		if err := d.bindPrimitive(v, dst); err != nil {
			return err
		}
	}
	d.emit.RawLine("\t}")
	return nil
}

// lowerInlinePTX implements the §4.4 "Inline PTX emission" handler: the
// fragment list is joined verbatim, then "{0}", "{1}", ... placeholders are
// substituted with the allocated register of the corresponding Args()
// entry, and — for a non-void node — "{out}" is substituted with a freshly
// allocated destination register, which is the same register returned to
// bindPrimitive so the emitted text and the bound value agree.
func (d *Dispatcher) lowerInlinePTX(v ir.Value) error {
	fragments, _ := v.Sym().([]string)
	text := strings.Join(fragments, "")

	for i, a := range v.Args() {
		r, err := d.primitive(a)
		if err != nil {
			return err
		}
		text = strings.ReplaceAll(text, fmt.Sprintf("{%d}", i), r.Name())
	}

	if v.Type().IsVoid() {
		d.emit.RawLine(text)
		return nil
	}

	elem := v.Type().ElementType()
	dst := d.alloc.Allocate(regs.KindFor(elem))
	dst.BasicType = elem
	text = strings.ReplaceAll(text, "{out}", dst.Name())
	d.emit.RawLine(text)
	return d.bindPrimitive(v, dst)
}
