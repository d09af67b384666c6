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

// vecRun is one contiguous, alignment-qualified run of same-typed primitive
// leaves chosen for a single v2/v4 load or store (spec §4.4 "for structured
// element types, compute a list of contiguous same-kind primitive ranges
// that are (a) power-of-two size 2 or 4 and (b) aligned").
type vecRun struct {
	lanes  int
	offset int
	elem   types.ElementType
	regs   []regs.VirtualRegister
}

// partition splits flat (in ascending-offset order, one pointer's worth of
// primitives) into vector-eligible runs and scalar remainders, given a
// conservative byte alignment of the base pointer (spec invariant 4,
// testable property 5). Predicate-kind leaves never join a run (Open
// Question 3 decision).
func partition(flat []regs.FlatPrimitive, alignment int) []vecRun {
	var runs []vecRun
	i := 0
outer:
	for i < len(flat) {
		if flat[i].Reg.Kind == regs.Predicate {
			runs = append(runs, vecRun{lanes: 1, offset: flat[i].Offset, elem: flat[i].Reg.BasicType, regs: flatSlice(flat[i : i+1]).toRegs()})
			i++
			continue
		}
		width := flat[i].Reg.BasicType.Width()
		for _, lanes := range []int{4, 2} {
			if i+lanes > len(flat) {
				continue
			}
			run := flat[i : i+lanes]
			if !sameTypeContiguous(run, width) {
				continue
			}
			vecWidth := width * lanes
			if alignment%vecWidth != 0 || flat[i].Offset%vecWidth != 0 {
				continue
			}
			runs = append(runs, vecRun{lanes: lanes, offset: flat[i].Offset, elem: flat[i].Reg.BasicType, regs: flatSlice(run).toRegs()})
			i += lanes
			continue outer
		}
		runs = append(runs, vecRun{lanes: 1, offset: flat[i].Offset, elem: flat[i].Reg.BasicType, regs: flatSlice(flat[i : i+1]).toRegs()})
		i++
	}
	return runs
}

type flatSlice []regs.FlatPrimitive

func (s flatSlice) toRegs() []regs.VirtualRegister {
	out := make([]regs.VirtualRegister, len(s))
	for i, f := range s {
		out[i] = f.Reg
	}
	return out
}

func sameTypeContiguous(run []regs.FlatPrimitive, width int) bool {
	for i, f := range run {
		if f.Reg.Kind == regs.Predicate {
			return false
		}
		if f.Reg.BasicType != run[0].Reg.BasicType {
			return false
		}
		if f.Offset != run[0].Offset+i*width {
			return false
		}
	}
	return true
}

func (d *Dispatcher) pointerAddrSpace(ptr ir.Value) (types.AddressSpace, error) {
	t := ptr.Type()
	if !t.IsPointer() {
		return 0, &perr.InvalidIR{Reason: fmt.Sprintf("value %d is not a pointer type", ptr.ID())}
	}
	return t.AddressSpace(), nil
}

// lowerLoad implements the §4.4 Load handler: computes pointer alignment,
// partitions the pointee's flattened primitives into vector/scalar runs,
// and emits one ld per run.
func (d *Dispatcher) lowerLoad(v ir.Value) error {
	ptr := v.Args()[0]
	space, err := d.pointerAddrSpace(ptr)
	if err != nil {
		return err
	}
	base, err := d.primitive(ptr)
	if err != nil {
		return err
	}
	result := regs.BuildStructured(d.alloc, v.Type())
	alignment := v.Type().AlignOf()
	if d.flags.Alignment != nil {
		if a := d.flags.Alignment.AlignmentOf(ptr); a > 0 {
			alignment = a
		}
	}
	for _, run := range partition(regs.Flatten(result), alignment) {
		d.emitIO(base, space, run, true)
	}
	return d.alloc.Bind(v.ID(), &result)
}

// lowerStore is lowerLoad's dual (spec §4.4 Load/Store handler).
func (d *Dispatcher) lowerStore(v ir.Value) error {
	ptr := v.Args()[0]
	value := v.Args()[1]
	space, err := d.pointerAddrSpace(ptr)
	if err != nil {
		return err
	}
	base, err := d.primitive(ptr)
	if err != nil {
		return err
	}
	src, err := d.structured(value)
	if err != nil {
		return err
	}
	alignment := value.Type().AlignOf()
	if d.flags.Alignment != nil {
		if a := d.flags.Alignment.AlignmentOf(ptr); a > 0 {
			alignment = a
		}
	}
	for _, run := range partition(regs.Flatten(*src), alignment) {
		d.emitIO(base, space, run, false)
	}
	return nil
}

func (d *Dispatcher) emitIO(base regs.VirtualRegister, space types.AddressSpace, run vecRun, isLoad bool) {
	op := "ld"
	if !isLoad {
		op = "st"
	}
	mnem := op + space.Suffix()
	if run.lanes > 1 {
		mnem += "." + isa.VectorSuffix(run.lanes)
	}
	mnem += "." + run.elem.TypeSuffix()
	addr := emit.Deref{Base: base, Offset: run.offset}
	if run.lanes == 1 {
		if isLoad {
			d.emit.Instr(isa.Mnemonic(mnem), emit.Reg{V: run.regs[0]}, addr)
		} else {
			d.emit.Instr(isa.Mnemonic(mnem), addr, emit.Reg{V: run.regs[0]})
		}
		return
	}
	group := emit.VectorGroup{Lanes: run.regs}
	if isLoad {
		d.emit.Instr(isa.Mnemonic(mnem), group, addr)
	} else {
		d.emit.Instr(isa.Mnemonic(mnem), addr, group)
	}
}

// lowerAddressOfElement implements `pointer + index * element_size` (spec
// §4.4 "AddressOf-element"): 32-bit index uses mul.wide(.u32) then add;
// 64-bit index uses a single mad.lo.
func (d *Dispatcher) lowerAddressOfElement(v ir.Value) error {
	args := v.Args() // base pointer, index
	base, err := d.primitive(args[0])
	if err != nil {
		return err
	}
	index, err := d.primitive(args[1])
	if err != nil {
		return err
	}
	elemSize := v.Type().PointeeType().SizeOf()
	ptrElem := d.ptrElem()
	dst := d.alloc.Allocate(d.ptrKind())
	dst.BasicType = ptrElem

	if index.BasicType.Width() >= 8 {
		// 64-bit index: single mad.lo.<ptr_type>.
		scale := d.alloc.Allocate(d.ptrKind())
		scale.BasicType = ptrElem
		d.emit.Instr(isa.Mnemonic("mov."+ptrElem.TypeSuffix()), emit.Reg{V: scale}, emit.Const{V: regs.ConstantRegister{BasicType: ptrElem, IntValue: int64(elemSize)}})
		d.emit.Instr(isa.Mnemonic("mad.lo."+ptrElem.TypeSuffix()), emit.Reg{V: dst}, emit.Reg{V: index}, emit.Reg{V: scale}, emit.Reg{V: base})
		d.alloc.Free(scale)
		return d.bindPrimitive(v, dst)
	}

	// 32-bit index: mul.wide.u32 when the platform pointer is 64-bit,
	// otherwise a plain mul.u32, into a platform-width temp, then add.
	tmp := d.alloc.Allocate(d.ptrKind())
	tmp.BasicType = ptrElem
	mulMnem := "mul.u32"
	if d.flags.PtrIs64 {
		mulMnem = "mul.wide.u32"
	}
	d.emit.Instr(isa.Mnemonic(mulMnem), emit.Reg{V: tmp}, emit.Reg{V: index}, emit.Const{V: regs.ConstantRegister{BasicType: types.Uint32, IntValue: int64(elemSize)}})
	d.emit.Instr(isa.Mnemonic("add."+ptrElem.TypeSuffix()), emit.Reg{V: dst}, emit.Reg{V: base}, emit.Reg{V: tmp})
	d.alloc.Free(tmp)
	return d.bindPrimitive(v, dst)
}

// lowerAddressOfField implements `pointer + constant offset` (spec §4.4
// "AddressOf-field"): a zero offset aliases the source; otherwise a plain
// add with an inline constant.
func (d *Dispatcher) lowerAddressOfField(v ir.Value) error {
	base := v.Args()[0]
	offset, _ := v.Sym().(int)
	if offset == 0 {
		return d.alloc.Alias(v.ID(), base.ID())
	}
	baseReg, err := d.primitive(base)
	if err != nil {
		return err
	}
	ptrElem := d.ptrElem()
	dst := d.alloc.Allocate(d.ptrKind())
	dst.BasicType = ptrElem
	d.emit.Instr(isa.Mnemonic("add."+ptrElem.TypeSuffix()), emit.Reg{V: dst}, emit.Reg{V: baseReg}, emit.Const{V: regs.ConstantRegister{BasicType: ptrElem, IntValue: int64(offset)}})
	return d.bindPrimitive(v, dst)
}

// lowerAlignTo implements `base_offset = ptr & (alignment-1); result = zero
// ? ptr : ptr + (alignment - base_offset)` via a predicate split (spec
// §4.4 "AlignTo"): one move predicated on base_offset==0, an add
// predicated on its negation.
func (d *Dispatcher) lowerAlignTo(v ir.Value) error {
	ptr := v.Args()[0]
	ptrReg, err := d.primitive(ptr)
	if err != nil {
		return err
	}
	ptrElem := d.ptrElem()

	var alignReg regs.VirtualRegister
	if constAlign, ok := v.Sym().(int); ok {
		alignReg = d.alloc.Allocate(d.ptrKind())
		alignReg.BasicType = ptrElem
		d.emit.Instr(isa.Mnemonic("mov."+ptrElem.TypeSuffix()), emit.Reg{V: alignReg}, emit.Const{V: regs.ConstantRegister{BasicType: ptrElem, IntValue: int64(constAlign)}})
	} else {
		raw, err := d.primitive(v.Args()[1])
		if err != nil {
			return err
		}
		if raw.BasicType != ptrElem {
			alignReg = d.alloc.Allocate(d.ptrKind())
			alignReg.BasicType = ptrElem
			d.emit.Instr(isa.ConvertMnemonic(ptrElem, raw.BasicType), emit.Reg{V: alignReg}, emit.Reg{V: raw})
		} else {
			alignReg = raw
		}
	}

	mask := d.alloc.Allocate(d.ptrKind())
	mask.BasicType = ptrElem
	d.emit.Instr(isa.Mnemonic("sub."+ptrElem.TypeSuffix()), emit.Reg{V: mask}, emit.Reg{V: alignReg}, emit.Const{V: regs.ConstantRegister{BasicType: ptrElem, IntValue: 1}})

	baseOffset := d.alloc.Allocate(d.ptrKind())
	baseOffset.BasicType = ptrElem
	d.emit.Instr(isa.Mnemonic("and."+types.BasicValueKindOf(ptrElem).String()), emit.Reg{V: baseOffset}, emit.Reg{V: ptrReg}, emit.Reg{V: mask})

	isZero := d.alloc.Allocate(regs.Predicate)
	d.emit.Instr(isa.Mnemonic("setp.eq."+ptrElem.TypeSuffix()), emit.Reg{V: isZero}, emit.Reg{V: baseOffset}, emit.Const{V: regs.ConstantRegister{BasicType: ptrElem, IntValue: 0}})

	delta := d.alloc.Allocate(d.ptrKind())
	delta.BasicType = ptrElem
	d.emit.Instr(isa.Mnemonic("sub."+ptrElem.TypeSuffix()), emit.Reg{V: delta}, emit.Reg{V: alignReg}, emit.Reg{V: baseOffset})

	dst := d.alloc.Allocate(d.ptrKind())
	dst.BasicType = ptrElem
	d.emit.PredicatedInstr(isa.Mnemonic("mov."+ptrElem.TypeSuffix()), isZero, false, emit.Reg{V: dst}, emit.Reg{V: ptrReg})
	d.emit.PredicatedInstr(isa.Mnemonic("add."+ptrElem.TypeSuffix()), isZero, true, emit.Reg{V: dst}, emit.Reg{V: ptrReg}, emit.Reg{V: delta})

	d.alloc.Free(mask)
	d.alloc.Free(baseOffset)
	d.alloc.Free(delta)
	return d.bindPrimitive(v, dst)
}

// lowerAddressSpaceCast implements `cvta`/`cvta.to` (spec §4.5): always an
// explicit instruction, never an implicit retag (invariant 6).
func (d *Dispatcher) lowerAddressSpaceCast(v ir.Value) error {
	src, err := d.primitive(v.Args()[0])
	if err != nil {
		return err
	}
	dstType := v.Type()
	ptrElem := d.ptrElem()
	dst := d.alloc.Allocate(d.ptrKind())
	dst.BasicType = ptrElem

	toGeneric := dstType.AddressSpace() == types.Generic
	space := dstType.AddressSpace()
	if toGeneric {
		space = v.Args()[0].Type().AddressSpace()
	}
	mnem := isa.AddressSpaceCastMnemonic(space, toGeneric, ptrElem)
	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: src})
	return d.bindPrimitive(v, dst)
}
