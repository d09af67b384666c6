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
	"github.com/ember-lang/ptxgen/ptx/regs"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// lowerAtomicRMW implements the §4.4 "Atomic read-modify-work" handler:
// red.* (no result) when the value is unused, atom.* (returns old value)
// otherwise.
func (d *Dispatcher) lowerAtomicRMW(v ir.Value) error {
	ptr := v.Args()[0]
	operand := v.Args()[1]
	space, err := d.pointerAddrSpace(ptr)
	if err != nil {
		return err
	}
	base, err := d.primitive(ptr)
	if err != nil {
		return err
	}
	operandReg, err := d.primitive(operand)
	if err != nil {
		return err
	}
	elem := operand.Type().ElementType()
	hasResult := len(v.Uses()) > 0
	mnem, err := isa.AtomicMnemonic(v.Op(), elem, space, hasResult,
		isa.Flags{Arch: d.flags.Arch, Gate: d.flags.Gate, FastMath: d.flags.FastMath})
	if err != nil {
		return err
	}
	addr := emit.Deref{Base: base}
	if hasResult {
		dst := d.alloc.Allocate(regs.KindFor(elem))
		dst.BasicType = elem
		d.emit.Instr(mnem, emit.Reg{V: dst}, addr, emit.Reg{V: operandReg})
		return d.bindPrimitive(v, dst)
	}
	d.emit.Instr(mnem, addr, emit.Reg{V: operandReg})
	return nil
}

// lowerAtomicCAS implements `atom.cas.<space>.b32/b64` (spec §4.4 "Atomic
// CAS"): result, dereferenced address, new value, compare value.
func (d *Dispatcher) lowerAtomicCAS(v ir.Value) error {
	ptr := v.Args()[0]
	compare := v.Args()[1]
	newValue := v.Args()[2]
	space, err := d.pointerAddrSpace(ptr)
	if err != nil {
		return err
	}
	base, err := d.primitive(ptr)
	if err != nil {
		return err
	}
	cmpReg, err := d.primitive(compare)
	if err != nil {
		return err
	}
	newReg, err := d.primitive(newValue)
	if err != nil {
		return err
	}
	elem := newValue.Type().ElementType()
	mnem := isa.AtomicCASMnemonic(elem, space)
	dst := d.alloc.Allocate(regs.KindFor(elem))
	dst.BasicType = elem
	// Operand order per spec §4.4 "Atomic CAS": result, address, new value,
	// compare value.
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Deref{Base: base}, emit.Reg{V: newReg}, emit.Reg{V: cmpReg})
	return d.bindPrimitive(v, dst)
}

// lowerBarrier implements `bar.warp.sync 0xffffffff` / `bar.sync 0` (spec
// §4.4 "Barrier"). The driver tags which via Sym().
func (d *Dispatcher) lowerBarrier(v ir.Value) error {
	warpLevel, _ := v.Sym().(bool)
	mnem := isa.BarrierMnemonic(warpLevel)
	if warpLevel {
		d.emit.Instr(mnem, emit.Raw{Text: "0xffffffff"})
	} else {
		d.emit.Instr(mnem, emit.Raw{Text: "0"})
	}
	return nil
}

// lowerPredicateBarrier implements `bar.red.{popc.u32|and.pred|or.pred}`
// (spec §4.4 "Predicate barrier").
func (d *Dispatcher) lowerPredicateBarrier(v ir.Value) error {
	kind, _ := v.Sym().(string)
	src, err := d.primitive(v.Args()[0])
	if err != nil {
		return err
	}
	mnem := isa.PredicateBarrierMnemonic(kind)
	if kind == "popc" {
		dst := d.alloc.Allocate(regs.Int32)
		dst.BasicType = types.Uint32
		d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: src})
		return d.bindPrimitive(v, dst)
	}
	dst := d.alloc.Allocate(regs.Predicate)
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: src})
	return d.bindPrimitive(v, dst)
}

// lowerMemBarrier implements `membar.{cta|gl|sys}` (spec §4.4 "Memory
// barrier").
func (d *Dispatcher) lowerMemBarrier(v ir.Value) error {
	scope, _ := v.Sym().(string)
	d.emit.Instr(isa.MemBarrierMnemonic(scope))
	return nil
}
