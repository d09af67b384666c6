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
package regs

import (
	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// StructuredRegister is the closed tagged union spec §3 describes for
// composite SSA values: "either a single VirtualRegister (Primitive) or an
// ordered list of named child StructuredRegisters (Compound), recursively,
// mirroring the IR's struct/array type shape." It is never an interface
// hierarchy — one struct with a tag, matching falcon's enum-over-interface
// preference for ssa.Op/LIROp.
type StructuredRegister struct {
	// Compound is false for a leaf; true when Children is populated.
	Compound bool

	// Primitive is meaningful when !Compound.
	Primitive VirtualRegister

	// IRType is the element type of a leaf, copied from the register's
	// BasicType by NewPrimitive; Compound registers leave it zero.
	IRType types.ElementType
	// Children is populated when Compound; one entry per struct field or
	// array element, in declaration order. FieldOffset is the byte offset
	// from the start of the composite, used by AddressOf-field and the
	// flattening helper below.
	Children []StructuredChild
}

// StructuredChild names one member of a Compound StructuredRegister.
type StructuredChild struct {
	Name        string
	FieldOffset int
	Reg         StructuredRegister
}

// NewPrimitive wraps a single hardware register as a leaf StructuredRegister.
func NewPrimitive(reg VirtualRegister) StructuredRegister {
	return StructuredRegister{Primitive: reg, IRType: reg.BasicType}
}

// BuildStructured allocates a fresh StructuredRegister matching t's shape,
// recursively decomposing struct and array types into their field/element
// registers (spec §3: "Structured values ... decompose recursively until
// every leaf is a primitive register"). Every leaf consumes one Allocate
// call from the matching bank.
func BuildStructured(a *Allocator, t ir.Type) StructuredRegister {
	if !t.IsStruct() && !t.IsArray() {
		return NewPrimitive(a.AllocateForElem(t.ElementType()))
	}

	if t.IsStruct() {
		fields := t.Fields()
		children := make([]StructuredChild, len(fields))
		for i, f := range fields {
			children[i] = StructuredChild{
				Name:        f.Name,
				FieldOffset: f.Offset,
				Reg:         BuildStructured(a, f.Type),
			}
		}
		return StructuredRegister{Compound: true, Children: children}
	}

	// Array: synthesize one child per element, offset by element size.
	elemType := t.ElemType()
	elemSize := elemType.SizeOf()
	n := t.ArrayLen()
	children := make([]StructuredChild, n)
	for i := 0; i < n; i++ {
		children[i] = StructuredChild{
			FieldOffset: i * elemSize,
			Reg:         BuildStructured(a, elemType),
		}
	}
	return StructuredRegister{Compound: true, Children: children}
}

// FreeStructured releases every leaf register in reg back to its bank
// (spec §4.2 "free(register)" applied recursively to a composite).
func FreeStructured(a *Allocator, reg StructuredRegister) {
	if !reg.Compound {
		a.Free(reg.Primitive)
		return
	}
	for _, c := range reg.Children {
		FreeStructured(a, c.Reg)
	}
}

// FlatPrimitive is one leaf of a flattened StructuredRegister, with its
// byte offset from the start of the composite (0 for a bare primitive).
// The vectorization partitioner (spec §4.4 invariant 4) groups contiguous
// runs of FlatPrimitives with matching BasicType and ascending offsets
// differing by exactly the element width into v2/v4 candidates.
type FlatPrimitive struct {
	Offset int
	Reg    VirtualRegister
}

// Flatten walks reg in declaration order, producing one FlatPrimitive per
// leaf with its absolute byte offset from base.
func Flatten(reg StructuredRegister) []FlatPrimitive {
	return flattenAt(reg, 0)
}

func flattenAt(reg StructuredRegister, base int) []FlatPrimitive {
	if !reg.Compound {
		return []FlatPrimitive{{Offset: base, Reg: reg.Primitive}}
	}
	var out []FlatPrimitive
	for _, c := range reg.Children {
		out = append(out, flattenAt(c.Reg, base+c.FieldOffset)...)
	}
	return out
}

// FieldByName looks up a named child of a Compound StructuredRegister
// (spec §4.4 "GetField/SetField address a named child"). Returns false if
// reg is a leaf or has no such field.
func (s StructuredRegister) FieldByName(name string) (StructuredRegister, bool) {
	if !s.Compound {
		return StructuredRegister{}, false
	}
	for _, c := range s.Children {
		if c.Name == name {
			return c.Reg, true
		}
	}
	return StructuredRegister{}, false
}

// FieldByIndex looks up the idx'th child in declaration order — children
// are built in the same order as the source ir.Type's Fields(), so a
// caller holding a field index (rather than a name) can index directly.
func (s StructuredRegister) FieldByIndex(idx int) (StructuredRegister, bool) {
	if !s.Compound || idx < 0 || idx >= len(s.Children) {
		return StructuredRegister{}, false
	}
	return s.Children[idx].Reg, true
}

// WithFieldIndex is WithField keyed by declaration-order index instead of
// name (spec §4.4 "SetField").
func (s StructuredRegister) WithFieldIndex(idx int, updated StructuredRegister) StructuredRegister {
	children := make([]StructuredChild, len(s.Children))
	copy(children, s.Children)
	if idx >= 0 && idx < len(children) {
		children[idx].Reg = updated
	}
	return StructuredRegister{Compound: true, Children: children}
}

// WithField returns a copy of s with the named child replaced by updated
// (spec §4.4 "SetField produces a new structured value sharing every other
// field's register"). s must be Compound; a name with no matching child
// yields an unchanged copy. ptx/lower's SetField path uses WithFieldIndex
// rather than this name-keyed form.
func (s StructuredRegister) WithField(name string, updated StructuredRegister) StructuredRegister {
	children := make([]StructuredChild, len(s.Children))
	copy(children, s.Children)
	for i, c := range children {
		if c.Name == name {
			children[i].Reg = updated
			break
		}
	}
	return StructuredRegister{Compound: true, Children: children}
}
