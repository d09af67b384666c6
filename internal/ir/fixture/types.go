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

// Package fixture is a small in-memory implementation of the internal/ir
// contract, used by the example CLI and package tests in place of a real
// driver's IR. Adapted from falcon's ast.Type predicate-switch shape
// (ast.go's IsInt/IsFloat/...), generalized to satisfy ir.Type instead of
// growing its own bespoke type-predicate set.
package fixture

import (
	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// Type is the fixture's concrete ir.Type. Exactly one of the "kind"
// branches below is populated, matching the closed set ir.Type's
// predicates describe.
type Type struct {
	elem     types.ElementType
	isStruct bool
	isArray  bool
	isVoid   bool
	isPtr    bool
	space    types.AddressSpace
	pointee  *Type
	fields   []ir.Field
	elemType *Type
	arrayLen int
	size     int
	align    int
}

// Prim returns a primitive scalar type.
func Prim(e types.ElementType) *Type {
	return &Type{elem: e, size: e.Width(), align: e.Width()}
}

// Void returns the void return type.
func Void() *Type { return &Type{isVoid: true} }

// Ptr returns a pointer type to pointee in the given address space.
func Ptr(space types.AddressSpace, pointee *Type) *Type {
	ptrElem := types.Ptr64
	return &Type{isPtr: true, elem: ptrElem, space: space, pointee: pointee, size: 8, align: 8}
}

// Struct returns a struct type; fieldTypes supplies one *Type per field in
// fields. Each field is placed at the next offset that is a multiple of its
// alignment (padding is inserted as needed); the struct's alignment is the
// largest field alignment. No tail padding is added to the size.
func Struct(names []string, fieldTypes []*Type) *Type {
	offset := 0
	fields := make([]ir.Field, len(names))
	maxAlign := 1
	for i, t := range fieldTypes {
		if t.align > maxAlign {
			maxAlign = t.align
		}
		if rem := offset % t.align; rem != 0 {
			offset += t.align - rem
		}
		fields[i] = ir.Field{Name: names[i], Type: t, Offset: offset}
		offset += t.size
	}
	return &Type{isStruct: true, fields: fields, size: offset, align: maxAlign}
}

// Array returns a fixed-length array type.
func Array(elem *Type, n int) *Type {
	return &Type{isArray: true, elemType: elem, arrayLen: n, size: elem.size * n, align: elem.align}
}

func (t *Type) ElementType() types.ElementType { return t.elem }
func (t *Type) IsStruct() bool                 { return t.isStruct }
func (t *Type) IsArray() bool                  { return t.isArray }
func (t *Type) IsVoid() bool                   { return t.isVoid }
func (t *Type) IsPointer() bool                { return t.isPtr }
func (t *Type) AddressSpace() types.AddressSpace { return t.space }

func (t *Type) PointeeType() ir.Type {
	if t.pointee == nil {
		return nil
	}
	return t.pointee
}

func (t *Type) Fields() []ir.Field { return t.fields }

func (t *Type) ElemType() ir.Type {
	if t.elemType == nil {
		return nil
	}
	return t.elemType
}

func (t *Type) ArrayLen() int { return t.arrayLen }
func (t *Type) SizeOf() int   { return t.size }
func (t *Type) AlignOf() int  { return t.align }
