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
	"fmt"

	"github.com/ember-lang/ptxgen/ptx/perr"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// bankState is one ordinary bank's free-list allocator (spec §4.2,
// invariant 3: "Freed register ids are reused LIFO within the same bank;
// the id counter never decreases"). peak is the declaration count IFF no
// further allocations happen — it only ever grows, tracking "how many ids
// were handed out at once" the way falcon's lsra_interval.go tracked live
// ranges, just collapsed to a single high-water mark since PTX has no
// physical registers to assign underneath.
type bankState struct {
	nextID int
	free   []int // LIFO free stack
	live   int   // currently-allocated count
	peak   int   // high-water mark of live; declaration count = peak
}

func (b *bankState) allocate() int {
	var id int
	if n := len(b.free); n > 0 {
		id = b.free[n-1]
		b.free = b.free[:n-1]
	} else {
		id = b.nextID
		b.nextID++
	}
	b.live++
	if b.live > b.peak {
		b.peak = b.live
	}
	return id
}

func (b *bankState) release(id int) {
	b.free = append(b.free, id)
	b.live--
}

// Allocator is RegisterModel + Allocator (spec §4.2): per-kind pools, the
// SSA value binding map, and structured-register composition. One
// Allocator lives for the duration of compiling a single method (spec §5:
// "Allocator state ... Lives for the duration of one method").
type Allocator struct {
	banks    [numOrdinaryKinds]bankState
	bindings map[int]*StructuredRegister
	ptrKind  Kind // platform register width, chosen once per backend instance
}

// NewAllocator constructs an Allocator for one method. ptrIs64 selects
// whether AddressOf/pointer-width temporaries come from the Int64 or Int32
// bank (spec §4.2 "Pointer width: chosen once per backend instance").
func NewAllocator(ptrIs64 bool) *Allocator {
	ptrKind := Int32
	if ptrIs64 {
		ptrKind = Int64
	}
	return &Allocator{
		bindings: make(map[int]*StructuredRegister),
		ptrKind:  ptrKind,
	}
}

// PointerKind is the platform register bank for address values.
func (a *Allocator) PointerKind() Kind { return a.ptrKind }

// Allocate hands out a fresh VirtualRegister from kind's bank (spec §4.2
// "allocate(kind) -> VirtualRegister").
func (a *Allocator) Allocate(kind Kind) VirtualRegister {
	id := a.banks[kind].allocate()
	return VirtualRegister{Kind: kind, ID: id}
}

// AllocateForElem allocates from the bank matching elem's natural kind and
// stamps BasicType so the emitter can pick suffixes without re-deriving
// them from the bank alone (int8/uint8 and f16 all share the Int16 bank,
// for instance, but need different suffixes).
func (a *Allocator) AllocateForElem(elem types.ElementType) VirtualRegister {
	kind := KindFor(elem)
	id := a.banks[kind].allocate()
	return VirtualRegister{Kind: kind, ID: id, BasicType: elem}
}

// Free releases reg back to its bank's free stack (spec §4.2 "free(register)
// - push id back on the free stack"). Intrinsic registers and constants are
// no-ops: they never consumed a slot.
func (a *Allocator) Free(reg VirtualRegister) {
	if reg.IsIntrinsic() || reg.ID < 0 {
		return
	}
	a.banks[reg.Kind].release(reg.ID)
}

// Intrinsic synthesizes an intrinsic device register without touching any
// bank's id counter (spec §3 invariant: "intrinsic registers are
// synthesized without consuming the id counter").
func Intrinsic(kind Kind, dim int) VirtualRegister {
	return VirtualRegister{Kind: kind, ID: -1, Dim: dim}
}

// Bind installs reg as valueID's binding (spec §4.2 "bind(ir_value,
// structured_register) - installs into the binding map; fails if the value
// is already bound"). Re-binding is an InternalInvariant: every lowering
// handler should bind each SSA value exactly once (spec invariant 1).
func (a *Allocator) Bind(valueID int, reg *StructuredRegister) error {
	if _, exists := a.bindings[valueID]; exists {
		return &perr.InternalInvariant{Reason: fmt.Sprintf("value %d already bound", valueID)}
	}
	a.bindings[valueID] = reg
	return nil
}

// Alias installs the same StructuredRegister under a second value id (spec
// §4.2 "alias(to, from) - installs the same structured register under a
// second value id"), used for zero-cost casts like a zero-offset
// AddressOf-field.
func (a *Allocator) Alias(toValueID, fromValueID int) error {
	src, ok := a.bindings[fromValueID]
	if !ok {
		return &perr.InternalInvariant{Reason: fmt.Sprintf("value %d has no binding to alias from", fromValueID)}
	}
	return a.Bind(toValueID, src)
}

// Load looks up valueID's binding (spec §4.2 "load(ir_value) ->
// StructuredRegister"). Returns InvalidIR if the value was never bound —
// this is the direct check for spec invariant 1 / testable property 3.
func (a *Allocator) Load(valueID int) (*StructuredRegister, error) {
	reg, ok := a.bindings[valueID]
	if !ok {
		return nil, &perr.InvalidIR{Reason: fmt.Sprintf("value %d used before a binding was established", valueID)}
	}
	return reg, nil
}

// EnsureHardware materializes prim into a real register if it is a
// constant, emitting the move the caller is responsible for appending
// (spec §4.2 "ensure_hardware(primitive) - if the primitive is actually a
// constant register, allocate a hardware register and emit a move;
// returns the hardware register"). Since ConstantRegister never appears
// inside a bound StructuredRegister (it's a transient emit-time operand,
// not something Load returns), this reduces to "allocate a fresh register
// of the same kind" — callers hold the ConstantRegister value themselves
// and decide whether materialization is needed at the use site.
func (a *Allocator) EnsureHardware(kind Kind) VirtualRegister {
	id := a.banks[kind].allocate()
	return VirtualRegister{Kind: kind, ID: id}
}

// DeclBank is one bank's emitted ".reg .<type> %<prefix><N>;" declaration
// line worth of information.
type DeclBank struct {
	Kind  Kind
	Count int
}

// Declarations returns one DeclBank per ordinary bank whose peak count is
// greater than zero (spec §4.2 "Declaration block: ... one line per bank
// whose counter is > 0, with the upper bound equal to the peak count"),
// realizing testable property 2 (declaration count == peak concurrent live
// registers).
func (a *Allocator) Declarations() []DeclBank {
	var decls []DeclBank
	for k := Predicate; k < numOrdinaryKinds; k++ {
		if peak := a.banks[k].peak; peak > 0 {
			decls = append(decls, DeclBank{Kind: k, Count: peak})
		}
	}
	return decls
}

// DeclLine renders one bank's ".reg" declaration, e.g. ".reg .b32 %r<3>;"
// in the module assembler's patch-in format: ".reg .b32 %r<3>;" using PTX's
// register-range shorthand, or one-per-line form if the caller prefers —
// ptxgen uses the range shorthand ("%r<N>") which ptxas accepts and which
// keeps the declaration block at one line per bank regardless of peak size.
func (d DeclBank) DeclLine() string {
	return fmt.Sprintf("\t.reg .%s \t%s<%d>;\n", d.Kind.declType(), d.Kind.prefix(), d.Count)
}
