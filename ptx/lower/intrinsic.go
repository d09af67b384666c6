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

// lowerIntrinsic implements the §4.4 "Intrinsic device constants" handler:
// allocate a 32-bit hardware register and emit a move from the matching
// pseudo-register.
func (d *Dispatcher) lowerIntrinsic(v ir.Value) error {
	ref, _ := v.Sym().(ir.IntrinsicRef)
	src := regs.Intrinsic(intrinsicKindToRegKind(ref.Kind), int(ref.Dim))
	dst := d.alloc.Allocate(regs.Int32)
	dst.BasicType = types.Uint32
	d.emit.Instr(isa.Mnemonic("mov.u32"), emit.Reg{V: dst}, emit.Reg{V: src})
	return d.bindPrimitive(v, dst)
}

func intrinsicKindToRegKind(k ir.IntrinsicKind) regs.Kind {
	switch k {
	case ir.IntrinsicTid:
		return regs.IntrinsicTid
	case ir.IntrinsicCtaid:
		return regs.IntrinsicCtaid
	case ir.IntrinsicNtid:
		return regs.IntrinsicNtid
	case ir.IntrinsicNctaid:
		return regs.IntrinsicNctaid
	case ir.IntrinsicLaneId:
		return regs.IntrinsicLaneId
	default:
		return regs.IntrinsicTid
	}
}

// lowerDynamicSharedMemLen implements the §4.4 "Dynamic shared memory
// length" handler: read `%dynamic_smem_size` (bytes) and divide by the
// array element size with an unsigned divide.
func (d *Dispatcher) lowerDynamicSharedMemLen(v ir.Value) error {
	bytes := regs.Intrinsic(regs.IntrinsicDynamicSmem, 0)
	elemSize, _ := v.Sym().(int)
	if elemSize <= 0 {
		elemSize = 1
	}
	dst := d.alloc.Allocate(regs.Int32)
	dst.BasicType = types.Uint32
	d.emit.Instr(isa.Mnemonic("div.u32"), emit.Reg{V: dst}, emit.Reg{V: bytes}, emit.Const{V: regs.ConstantRegister{BasicType: types.Uint32, IntValue: int64(elemSize)}})
	return d.bindPrimitive(v, dst)
}

// shuffleSpec is the payload a KindShuffle/KindSubShuffle value's Sym()
// returns: the shuffle kind token ("idx"/"down"/"up"/"bfly") and, for
// sub-warp shuffles, the requested width used to compute the clamp/member
// mask at runtime.
type shuffleSpec struct {
	Kind  string
	Width int // 0 for full-warp shuffles
}

// lowerShuffle implements the §4.4 "Warp and sub-warp shuffle" handler:
// `shfl.sync.<kind>.b32 dst, src, delta, mask, member_mask`.
func (d *Dispatcher) lowerShuffle(v ir.Value, sub bool) error {
	spec, _ := v.Sym().(shuffleSpec)
	args := v.Args() // value, delta
	src, err := d.primitive(args[0])
	if err != nil {
		return err
	}
	delta, err := d.primitive(args[1])
	if err != nil {
		return err
	}
	mnem := isa.ShuffleMnemonic(spec.Kind)
	dst := d.alloc.Allocate(src.Kind)
	dst.BasicType = src.BasicType

	var clamp, memberMask emit.Operand
	if !sub {
		c := int64(0)
		if spec.Kind != "up" {
			c = 0x1f
		}
		clamp = emit.Const{V: regs.ConstantRegister{BasicType: types.Uint32, IntValue: c}}
		memberMask = emit.Const{V: regs.ConstantRegister{BasicType: types.Uint32, IntValue: 0xffffffff}}
	} else {
		clampReg := d.alloc.Allocate(regs.Int32)
		clampReg.BasicType = types.Uint32
		maskReg := d.alloc.Allocate(regs.Int32)
		maskReg.BasicType = types.Uint32
		d.emit.Instr("mov.u32", emit.Reg{V: clampReg}, emit.Const{V: regs.ConstantRegister{BasicType: types.Uint32, IntValue: int64(spec.Width - 1)}})
		d.emit.Instr("mov.u32", emit.Reg{V: maskReg}, emit.Const{V: regs.ConstantRegister{BasicType: types.Uint32, IntValue: (1 << uint(spec.Width)) - 1}})
		clamp = emit.Reg{V: clampReg}
		memberMask = emit.Reg{V: maskReg}
	}

	d.emit.Instr(mnem, emit.Reg{V: dst}, emit.Reg{V: src}, emit.Reg{V: delta}, clamp, memberMask)
	return d.bindPrimitive(v, dst)
}
