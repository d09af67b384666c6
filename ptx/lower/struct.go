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
	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/emit"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/perr"
	"github.com/ember-lang/ptxgen/ptx/regs"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// lowerNull implements the §4.4 "Null / zero value" handler: recurse for
// composite types, emit a zero-literal move for primitives.
func (d *Dispatcher) lowerNull(v ir.Value) error {
	t := v.Type()
	if t.IsStruct() || t.IsArray() {
		result := regs.BuildStructured(d.alloc, t)
		for _, flat := range regs.Flatten(result) {
			d.zeroFill(flat.Reg)
		}
		return d.alloc.Bind(v.ID(), &result)
	}
	elem := t.ElementType()
	dst := d.alloc.Allocate(regs.KindFor(elem))
	dst.BasicType = elem
	d.zeroFill(dst)
	return d.bindPrimitive(v, dst)
}

func (d *Dispatcher) zeroFill(r regs.VirtualRegister) {
	if r.Kind == regs.Predicate {
		d.emit.Instr("mov.pred", emit.Reg{V: r}, emit.Raw{Text: "0"})
		return
	}
	d.emit.Instr(isa.Mnemonic("mov."+r.BasicType.TypeSuffix()), emit.Reg{V: r}, emit.Const{V: regs.ConstantRegister{BasicType: r.BasicType}})
}

// lowerStringConst implements the §4.4 "String constant" handler: intern
// the (encoding, text) pair, then at the use site move the symbol's
// address into a register and address-space-cast it from global to
// generic.
func (d *Dispatcher) lowerStringConst(v ir.Value) error {
	text, _ := v.Sym().(string)
	sym := d.pool.Intern("utf8", text)

	ptrElem := d.ptrElem()
	globalAddr := d.alloc.Allocate(d.ptrKind())
	globalAddr.BasicType = ptrElem
	d.emit.Instr(isa.Mnemonic("mov."+ptrElem.TypeSuffix()), emit.Reg{V: globalAddr}, emit.Raw{Text: sym})

	dst := d.alloc.Allocate(d.ptrKind())
	dst.BasicType = ptrElem
	mnem := isa.AddressSpaceCastMnemonic(types.Global, true, ptrElem)
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: globalAddr})
	d.alloc.Free(globalAddr)
	return d.bindPrimitive(v, dst)
}

// lowerStructBuild implements the §4.4 "Structure build" handler: compose
// the StructuredRegister tree from the already-bound field values without
// emitting any instructions.
func (d *Dispatcher) lowerStructBuild(v ir.Value) error {
	fields := v.Type().Fields()
	args := v.Args()
	children := make([]regs.StructuredChild, len(fields))
	for i, f := range fields {
		fieldReg, err := d.structured(args[i])
		if err != nil {
			return err
		}
		children[i] = regs.StructuredChild{Name: f.Name, FieldOffset: f.Offset, Reg: *fieldReg}
	}
	result := regs.StructuredRegister{Compound: true, Children: children}
	return d.alloc.Bind(v.ID(), &result)
}

// lowerGetField implements the §4.4 "GetField" handler: slice the child
// list, no instructions emitted.
func (d *Dispatcher) lowerGetField(v ir.Value) error {
	idx, _ := v.Sym().(int)
	base, err := d.structured(v.Args()[0])
	if err != nil {
		return err
	}
	field, ok := base.FieldByIndex(idx)
	if !ok {
		return &perr.InvalidIR{Reason: "GetField index out of range"}
	}
	return d.alloc.Bind(v.ID(), &field)
}

// lowerSetField implements the §4.4 "SetField" handler: produces a new
// structured value sharing every other field's register, no instructions
// emitted.
func (d *Dispatcher) lowerSetField(v ir.Value) error {
	idx, _ := v.Sym().(int)
	base, err := d.structured(v.Args()[0])
	if err != nil {
		return err
	}
	updated, err := d.structured(v.Args()[1])
	if err != nil {
		return err
	}
	result := base.WithFieldIndex(idx, *updated)
	return d.alloc.Bind(v.ID(), &result)
}
