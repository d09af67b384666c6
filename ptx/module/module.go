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
// Package module is the ModuleAssembler (spec §4.7 / §6 produced
// artifact): header, string-constant pool, and per-method bodies with the
// register-declaration block patched in after lowering completes.
// Generalizes falcon's codegen/asm_x86.go CodeGen driver (emit read-only
// data, then per-function prologue/body/epilogue, then patch the frame-size
// symbol) from one x86 text section per function to PTX's single linear
// module text with a two-insertion-point patch (spec §3 Output buffer,
// §9 "Patchable output").
package module

import (
	"fmt"
	"strings"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/ptx/dbg"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/lower"
	"github.com/ember-lang/ptxgen/ptx/types"
)

// ToolName/ToolVersion stamp the produced-artifact banner (spec §6 item 1).
const (
	ToolName    = "ptxgen"
	ToolVersion = "0.1.0"
	ISAVersion  = "6.4"
)

// MethodBody is one compiled method's text plus the metadata needed to
// render its `.visible .entry`/`.func` signature and patch in its `.reg`
// declarations (spec §4.4 state machine "Done": "patches in register
// declarations").
type MethodBody struct {
	Name       string
	Params     []ir.Param
	ReturnType ir.Type
	IsKernel   bool
	Result     lower.Result
}

// Assembler accumulates one module's worth of methods and the shared
// string pool, in the order AddMethod is called (spec §5: "instruction
// emission order is the deterministic traversal order").
type Assembler struct {
	arch     isa.Arch
	ptrBits  int
	debug    bool
	inline   bool
	pool     *lower.StringPool
	methods  []MethodBody
	debugSrc dbg.Sink
}

// NewAssembler constructs an Assembler for one module (spec §6 Target
// descriptor: arch_major/minor, pointer width, emit_debug_info,
// inline_source).
func NewAssembler(arch isa.Arch, ptrBits int, emitDebugInfo, inlineSource bool, pool *lower.StringPool, sink dbg.Sink) *Assembler {
	if sink == nil {
		sink = dbg.NoopSink{}
	}
	return &Assembler{arch: arch, ptrBits: ptrBits, debug: emitDebugInfo, inline: inlineSource, pool: pool, debugSrc: sink}
}

// AddMethod appends one already-lowered method body (spec §6 item 6).
func (a *Assembler) AddMethod(m MethodBody) {
	a.methods = append(a.methods, m)
}

// Finalize renders the complete module text (spec §6 produced artifact,
// items 1-7, in order).
func (a *Assembler) Finalize() string {
	var b strings.Builder

	fmt.Fprintf(&b, "// Generated by %s %s\n", ToolName, ToolVersion)
	fmt.Fprintf(&b, ".version %s\n", ISAVersion)
	target := a.arch.TargetString()
	if a.debug {
		target += ", debug"
	}
	fmt.Fprintf(&b, ".target %s\n", target)
	fmt.Fprintf(&b, ".address_size %d\n", a.ptrBits)
	b.WriteByte('\n')

	for _, s := range a.pool.Entries() {
		b.WriteString(renderStringConst(s))
	}
	if len(a.pool.Entries()) > 0 {
		b.WriteByte('\n')
	}

	for _, m := range a.methods {
		a.renderMethod(&b, m)
		b.WriteByte('\n')
	}

	a.debugSrc.RenderFileTable(&b)

	return b.String()
}

func renderStringConst(s lower.InternedString) string {
	bytes := []byte(s.Text)
	parts := make([]string, 0, len(bytes)+1)
	for _, c := range bytes {
		parts = append(parts, fmt.Sprintf("%d", c))
	}
	parts = append(parts, "0")
	return fmt.Sprintf(".global .align 2 .b8 %s[%d] = {%s};\n", s.Symbol, len(bytes)+1, strings.Join(parts, ", "))
}

// renderMethod writes one method's signature, `.reg` declarations, and
// lowered body (spec §6 item 6). No `.local` depot is written.
func (a *Assembler) renderMethod(b *strings.Builder, m MethodBody) {
	qualifier := ".func"
	if m.IsKernel {
		qualifier = ".visible .entry"
	}
	retPart := ""
	if !m.ReturnType.IsVoid() {
		retPart = fmt.Sprintf("(.param .%s retval0) ", types.RemapForCall(m.ReturnType.ElementType()).TypeSuffix())
	}
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		suffix := types.RemapForCall(p.Type.ElementType()).TypeSuffix()
		if p.Type.IsStruct() || p.Type.IsArray() || p.Type.IsPointer() {
			suffix = "u" + fmt.Sprint(a.ptrBits)
		}
		params[i] = fmt.Sprintf(".param .%s param_%d", suffix, i)
	}
	fmt.Fprintf(b, "%s %s%s(\n\t%s\n)\n{\n", qualifier, retPart, m.Name, strings.Join(params, ",\n\t"))

	for _, d := range m.Result.Declarations {
		b.WriteString(d.DeclLine())
	}

	b.WriteString(m.Result.Body)
	b.WriteString("}\n")
}
