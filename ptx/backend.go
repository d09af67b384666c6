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
// Package ptx is the public library surface (spec §2): Backend, Target,
// EntryPoint, and the two entry points CompileMethod/FinalizeModule.
// Generalizes the teacher's top-level compile.CompileTheWorld/CompileText
// orchestration (driving codegen.CodeGen over every ast.Func), minus the
// gcc/linker invocation that produces a .o file — there is no SASS, no
// driver loading, only text out (spec §1 Non-goals).
package ptx

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/dbg"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/lower"
	"github.com/ember-lang/ptxgen/ptx/module"
	"github.com/ember-lang/ptxgen/ptx/perr"
)

// EntryPoint re-exports the spec §6 entry-point descriptor.
type EntryPoint = ir.EntryPoint

// Backend compiles methods against one fixed Target (spec §5: "Backend
// holds no package-level mutable state"). The only shared, synchronized
// state across concurrent CompileMethod calls is the string pool.
type Backend struct {
	target Target
	gate   *isa.CapabilityGate
	log    *logrus.Entry

	mu   sync.Mutex
	pool *lower.StringPool
}

// NewBackend validates target (spec §4.6 "architectures below the minimum
// supported are rejected at backend construction") and returns a Backend
// ready for concurrent CompileMethod calls. log may be nil, in which case
// a discard logger is used (spec §A.1).
func NewBackend(target Target, log *logrus.Entry) (*Backend, error) {
	arch := target.Arch()
	if !arch.Valid() {
		return nil, &perr.UnknownArchitecture{Major: target.ArchMajor, Minor: target.ArchMinor}
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &Backend{
		target: target,
		gate:   isa.NewCapabilityGate(),
		log:    log,
		pool:   lower.NewStringPool(),
	}, nil
}

// debugSink picks the DebugInfoSink variant the Target's flags call for
// (spec §4.7: no-op, line-emitting, or inline-source).
func (b *Backend) debugSink() dbg.Sink {
	if !b.target.Flags.EmitDebugInfo {
		return dbg.NoopSink{}
	}
	if b.target.Flags.InlineSource {
		return dbg.NewInlineSourceSink()
	}
	return dbg.NewLineSink()
}

// CompiledMethod is what CompileMethod returns: enough to hand to
// module.Assembler.AddMethod, plus the sink used (the driver's
// FinalizeModule call needs the same sink instance if it wants file-table
// rendering across the whole module — callers sharing one Backend across
// methods get a fresh sink per CompileMethod since debug info is tracked
// per source-location stream, not per module; see DESIGN.md).
type CompiledMethod struct {
	Body module.MethodBody
	Sink dbg.Sink
}

// CompileMethod lowers one method to PTX text (spec §6 entry point 1).
// ep describes the method's grouping/parameters; m is the read-only IR
// body. Concurrent CompileMethod calls on the same Backend for different
// methods are safe (spec §5) — the only shared state is the string pool;
// b.mu guards reading the pool pointer, and the pool locks its own
// contents.
func (b *Backend) CompileMethod(ep EntryPoint, m ir.Method, alignment ir.AlignmentOracle) (CompiledMethod, error) {
	b.mu.Lock()
	pool := b.pool
	b.mu.Unlock()

	sink := b.debugSink()
	flags := lower.Flags{
		Arch:      b.target.Arch(),
		Gate:      b.gate,
		FastMath:  b.target.Flags.FastMath,
		PtrIs64:   b.target.PointerBits == 64,
		Alignment: alignment,
	}
	d := lower.New(flags, pool, sink)
	result, err := d.Lower(m)
	if err != nil {
		return CompiledMethod{}, err
	}

	b.log.WithFields(logrus.Fields{
		"method":      m.Name(),
		"blocks":      len(m.Blocks()),
		"declarations": len(result.Declarations),
	}).Debug("method compiled")
	for _, decl := range result.Declarations {
		b.log.WithFields(logrus.Fields{
			"method": m.Name(),
			"bank":   decl.Kind.String(),
			"peak":   decl.Count,
		}).Debug("peak register occupancy")
	}

	return CompiledMethod{
		Body: module.MethodBody{
			Name:       ep.MethodName,
			Params:     m.Params(),
			ReturnType: m.ReturnType(),
			IsKernel:   true,
			Result:     result,
		},
		Sink: sink,
	}, nil
}

// FinalizeModule assembles the complete module text from already-compiled
// methods (spec §6 entry point 2). sink is the DebugInfoSink whose file
// table should be rendered at end-of-module; pass the Sink from the last
// CompiledMethod when debug info is enabled, or nil otherwise.
func (b *Backend) FinalizeModule(methods []CompiledMethod, sink dbg.Sink) string {
	asm := module.NewAssembler(b.target.Arch(), b.target.PointerBits, b.target.Flags.EmitDebugInfo, b.target.Flags.InlineSource, b.pool, sink)
	for _, cm := range methods {
		asm.AddMethod(cm.Body)
	}
	return asm.Finalize()
}
