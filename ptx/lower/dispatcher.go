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
// Package lower is the LoweringDispatcher (spec §4.4): one handler per IR
// value kind, driving register allocation, InstructionTable lookups, and
// Emitter calls as it walks a method's basic blocks in reverse post-order.
// Generalizes falcon's codegen/lower_x86.go lowerValue/lowerBlock dispatch
// (per-ssa.Op switch, visited-map block walk) from x86 LIR ops to PTX IR
// value kinds.
package lower

import (
	"fmt"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/dbg"
	"github.com/ember-lang/ptxgen/ptx/emit"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/perr"
	"github.com/ember-lang/ptxgen/ptx/regs"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// Flags carries the per-method compilation switches the dispatcher consults
// on every InstructionTable lookup and every vectorization decision (spec §6
// Target descriptor: fast_math, pointer width, architecture).
type Flags struct {
	Arch      isa.Arch
	Gate      *isa.CapabilityGate
	FastMath  bool
	PtrIs64   bool
	Alignment ir.AlignmentOracle
}

// Dispatcher lowers one method at a time (spec §4.4, §5: "one method is
// lowered from start to finish by one task"). It owns no state that
// survives past a single Lower call except the data handed in at
// construction.
type Dispatcher struct {
	flags Flags
	emit  *emit.Emitter
	alloc *regs.Allocator
	pool  *StringPool
	sink  dbg.Sink
}

// New constructs a Dispatcher for one method. pool is the (possibly shared;
// StringPool locks internally) string-constant interning table (spec §3 "String-
// constant pool ... module-wide, additive only"). sink receives one Emit
// call per lowered value (spec §4.7); pass dbg.NoopSink{} when debug info
// is disabled.
func New(flags Flags, pool *StringPool, sink dbg.Sink) *Dispatcher {
	if sink == nil {
		sink = dbg.NoopSink{}
	}
	return &Dispatcher{
		flags: flags,
		emit:  emit.New(),
		alloc: regs.NewAllocator(flags.PtrIs64),
		pool:  pool,
		sink:  sink,
	}
}

// ptrKind is the platform register bank chosen once per Dispatcher instance.
func (d *Dispatcher) ptrKind() regs.Kind { return d.alloc.PointerKind() }

func (d *Dispatcher) ptrElem() types.ElementType {
	if d.flags.PtrIs64 {
		return types.Ptr64
	}
	return types.Ptr32
}

// lookup wraps isa.Lookup with this dispatcher's arch/gate/fast-math flags.
func (d *Dispatcher) lookup(op isa.OpKind, elem types.ElementType) (isa.Mnemonic, error) {
	return isa.Lookup(op, elem, isa.Flags{Arch: d.flags.Arch, Gate: d.flags.Gate, FastMath: d.flags.FastMath})
}

// Result is what Lower returns: the method's body text (without the
// surrounding `.reg` declarations, which ptx/module patches in after
// reading Declarations) plus the peak register counts needed for that
// patch, and the method's parameter count.
type Result struct {
	Body         string
	Declarations []regs.DeclBank
	ParamCount   int
}

// Lower emits one method's parameter comments and then its body, block by
// block in reverse post-order (spec §4.4). The header, `.reg` declarations
// and `.file` table are rendered afterwards by ptx/module; no `.local`
// depot is emitted. m.Entry/m.Blocks/m.Params/m.ReturnType come
// from the read-only IR contract (spec §6).
func (d *Dispatcher) Lower(m ir.Method) (Result, error) {
	if err := d.lowerParams(m); err != nil {
		return Result{}, err
	}
	order := reversePostOrder(m.Entry())
	bound := make(map[int]bool)
	for _, blk := range order {
		d.emit.Label(blockLabel(blk))
		for _, v := range blk.Values() {
			if v.Kind() == ir.KindPhi {
				// Phi moves are resolved at predecessor exits below, not here.
				continue
			}
			if loc := d.sink.Emit(v.Loc()); loc != "" {
				d.emit.RawLine(loc)
			}
			if err := d.lowerValue(v); err != nil {
				return Result{}, err
			}
			bound[v.ID()] = true
		}
		if err := d.resolvePhisInto(blk); err != nil {
			return Result{}, err
		}
		if err := d.lowerControl(blk); err != nil {
			return Result{}, err
		}
	}
	return Result{
		Body:         d.emit.String(),
		Declarations: d.alloc.Declarations(),
		ParamCount:   len(m.Params()),
	}, nil
}

func blockLabel(b ir.Block) string { return fmt.Sprintf("BB%d", b.ID()) }

// reversePostOrder computes a stable RPO over the block graph reachable
// from entry (spec §4.4 "walks basic blocks in a stable order (e.g.
// reverse post-order)"), by a depth-first postorder walk followed by
// reversal — the standard construction, in contrast to falcon's
// lowerBlock, which does a preorder visited-map walk (preds-before-self)
// because x86 LIR has no phi resolution at block exits to worry about.
func reversePostOrder(entry ir.Block) []ir.Block {
	visited := make(map[int]bool)
	var post []ir.Block
	var visit func(b ir.Block)
	visit = func(b ir.Block) {
		if visited[b.ID()] {
			return
		}
		visited[b.ID()] = true
		for _, s := range b.Succs() {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	rpo := make([]ir.Block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// lowerParams writes one "// param i: name" comment per parameter (spec
// §4.4 "Params" state). It binds nothing: a parameter is loaded from its
// `.param` slot when a value first uses it (lowerParamUse).
func (d *Dispatcher) lowerParams(m ir.Method) error {
	for i, p := range m.Params() {
		d.emit.Comment(fmt.Sprintf("param %d: %s", i, p.Name))
	}
	return nil
}

// lowerValue dispatches on ValueKind (spec §4.4, DESIGN NOTES §9 closed sum
// type visitor).
func (d *Dispatcher) lowerValue(v ir.Value) error {
	switch v.Kind() {
	case ir.KindConst:
		return d.lowerConst(v)
	case ir.KindParam:
		return d.lowerParamUse(v)
	case ir.KindArithmetic:
		return d.lowerArithmetic(v)
	case ir.KindCompare:
		return d.lowerCompare(v)
	case ir.KindConvert:
		return d.lowerConvert(v)
	case ir.KindSelect:
		return d.lowerSelect(v)
	case ir.KindAtomicRMW:
		return d.lowerAtomicRMW(v)
	case ir.KindAtomicCAS:
		return d.lowerAtomicCAS(v)
	case ir.KindLoad:
		return d.lowerLoad(v)
	case ir.KindStore:
		return d.lowerStore(v)
	case ir.KindAddressOfElement:
		return d.lowerAddressOfElement(v)
	case ir.KindAddressOfField:
		return d.lowerAddressOfField(v)
	case ir.KindAlignTo:
		return d.lowerAlignTo(v)
	case ir.KindAddressSpaceCast:
		return d.lowerAddressSpaceCast(v)
	case ir.KindNull:
		return d.lowerNull(v)
	case ir.KindStringConst:
		return d.lowerStringConst(v)
	case ir.KindStructBuild:
		return d.lowerStructBuild(v)
	case ir.KindGetField:
		return d.lowerGetField(v)
	case ir.KindSetField:
		return d.lowerSetField(v)
	case ir.KindIntrinsic:
		return d.lowerIntrinsic(v)
	case ir.KindDynamicSharedMemLen:
		return d.lowerDynamicSharedMemLen(v)
	case ir.KindShuffle:
		return d.lowerShuffle(v, false)
	case ir.KindSubShuffle:
		return d.lowerShuffle(v, true)
	case ir.KindBarrier:
		return d.lowerBarrier(v)
	case ir.KindPredicateBarrier:
		return d.lowerPredicateBarrier(v)
	case ir.KindMemBarrier:
		return d.lowerMemBarrier(v)
	case ir.KindCall:
		return d.lowerCall(v)
	case ir.KindInlinePTX:
		return d.lowerInlinePTX(v)
	case ir.KindBroadcast, ir.KindWarpSizeValue:
		// Open Question 2: no earlier pass in the available corpus is known
		// to expand these, so the conservative choice is taken.
		return &perr.UnsupportedOperation{Op: "broadcast/warpsize", Type: v.Type().ElementType().String()}
	case ir.KindPhi:
		return internalErr("phi should have been resolved by resolvePhisInto")
	default:
		return internalErr(fmt.Sprintf("unhandled value kind %d", v.Kind()))
	}
}

func internalErr(reason string) error {
	return &perr.InternalInvariant{Reason: reason}
}

// resolvePhisInto emits the phi-move at the exit of blk for every phi in
// each of blk's successors whose incoming value comes from blk (spec §4.4
// "wiring phi-moves on block exits"), mirroring falcon's resolvePhi but
// moved to the predecessor's exit rather than the phi's own block, since
// PTX has no SSA-preserving move instruction that runs "at" a phi.
func (d *Dispatcher) resolvePhisInto(blk ir.Block) error {
	for _, succ := range blk.Succs() {
		predIndex := -1
		for i, p := range succ.Preds() {
			if p.ID() == blk.ID() {
				predIndex = i
				break
			}
		}
		if predIndex < 0 {
			continue
		}
		for _, v := range succ.Values() {
			if v.Kind() != ir.KindPhi {
				continue
			}
			incoming := v.Args()[predIndex]
			if err := d.movePhi(v, incoming); err != nil {
				return err
			}
		}
	}
	return nil
}
