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
package fixture

import (
	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/isa"
)

// Value is the fixture's concrete ir.Value, mirroring falcon's ssa.Value
// shape (Id, Op, Args, Sym, Block, Uses) with an added Kind tag since the
// fixture's values span more kinds than one Op enum distinguishes.
type Value struct {
	id            int
	kind          ir.ValueKind
	op            isa.OpKind
	typ           ir.Type
	args          []ir.Value
	block         *Block
	uses          []ir.Value
	usedByControl bool
	loc           ir.SourceLoc
	sym           interface{}
}

func (v *Value) ID() int                  { return v.id }
func (v *Value) Kind() ir.ValueKind        { return v.kind }
func (v *Value) Op() isa.OpKind            { return v.op }
func (v *Value) Type() ir.Type             { return v.typ }
func (v *Value) Args() []ir.Value          { return v.args }
func (v *Value) Block() ir.Block           { return v.block }
func (v *Value) Uses() []ir.Value          { return v.uses }
func (v *Value) UsedByControl() bool       { return v.usedByControl }
func (v *Value) Loc() ir.SourceLoc         { return v.loc }
func (v *Value) Sym() interface{}          { return v.sym }

// Block is the fixture's concrete ir.Block.
type Block struct {
	id     int
	kind   ir.BlockKind
	values []*Value
	preds  []*Block
	succs  []*Block
	ctrl   *Value
}

func (b *Block) ID() int         { return b.id }
func (b *Block) Kind() ir.BlockKind { return b.kind }

func (b *Block) Values() []ir.Value {
	out := make([]ir.Value, len(b.values))
	for i, v := range b.values {
		out[i] = v
	}
	return out
}

func (b *Block) Preds() []ir.Block {
	out := make([]ir.Block, len(b.preds))
	for i, p := range b.preds {
		out[i] = p
	}
	return out
}

func (b *Block) Succs() []ir.Block {
	out := make([]ir.Block, len(b.succs))
	for i, s := range b.succs {
		out[i] = s
	}
	return out
}

func (b *Block) Ctrl() ir.Value {
	if b.ctrl == nil {
		return nil
	}
	return b.ctrl
}

// Method is the fixture's concrete ir.Method.
type Method struct {
	name       string
	entry      *Block
	blocks     []*Block
	params     []ir.Param
	returnType ir.Type
}

func (m *Method) Name() string       { return m.name }
func (m *Method) Entry() ir.Block    { return m.entry }
func (m *Method) Params() []ir.Param { return m.params }
func (m *Method) ReturnType() ir.Type { return m.returnType }

func (m *Method) Blocks() []ir.Block {
	out := make([]ir.Block, len(m.blocks))
	for i, b := range m.blocks {
		out[i] = b
	}
	return out
}

// Builder assembles one Method one value/block at a time, mirroring
// falcon's GraphBuilder/Block.NewValue pair (graph.go, hir.go) generalized
// from a single-Op AST lowering to the full PTX ir.ValueKind set, with no
// SSA-construction machinery (sealing, phi elimination) since fixture
// programs are written directly in SSA form rather than derived from an
// AST with mutable locals.
type Builder struct {
	nextID int
	blocks []*Block
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// NewBlock appends a fresh block of the given terminator kind.
func (b *Builder) NewBlock(kind ir.BlockKind) *Block {
	blk := &Block{id: len(b.blocks), kind: kind}
	b.blocks = append(b.blocks, blk)
	return blk
}

// Link wires from->to as a predecessor/successor edge.
func (b *Builder) Link(from, to *Block) {
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// SetCtrl sets blk's terminator condition/return value and marks v as
// control-used.
func (b *Builder) SetCtrl(blk *Block, v *Value) {
	blk.ctrl = v
	if v != nil {
		v.usedByControl = true
	}
}

// Val appends a new value of kind/op/type/sym to blk, wiring args' Uses
// lists (spec §3 "Uses: values that use this value as an argument").
func (b *Builder) Val(blk *Block, kind ir.ValueKind, op isa.OpKind, t ir.Type, sym interface{}, args ...*Value) *Value {
	irArgs := make([]ir.Value, len(args))
	for i, a := range args {
		irArgs[i] = a
	}
	v := &Value{id: b.nextID, kind: kind, op: op, typ: t, args: irArgs, block: blk, sym: sym}
	b.nextID++
	blk.values = append(blk.values, v)
	for _, a := range args {
		a.uses = append(a.uses, v)
	}
	return v
}

// Build finalizes the Method. entry must be one of the blocks created via
// NewBlock on this Builder.
func (b *Builder) Build(name string, entry *Block, params []ir.Param, returnType ir.Type) *Method {
	return &Method{name: name, entry: entry, blocks: b.blocks, params: params, returnType: returnType}
}
