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
package module

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ember-lang/ptxgen/internal/ir"
	"github.com/ember-lang/ptxgen/internal/ir/fixture"
	"github.com/ember-lang/ptxgen/ptx/dbg"
	"github.com/ember-lang/ptxgen/ptx/isa"
	"github.com/ember-lang/ptxgen/ptx/lower"
	"github.com/ember-lang/ptxgen/ptx/regs"
	"github.com/ember-lang/ptxgen/ptx/types"
)

func TestFinalizeHeaderFields(t *testing.T) {
	pool := lower.NewStringPool()
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, false, false, pool, nil)
	text := asm.Finalize()

	assert.Contains(t, text, ".version 6.4\n")
	assert.Contains(t, text, ".target sm_75\n")
	assert.Contains(t, text, ".address_size 64\n")
}

func TestFinalizeDebugTargetSuffix(t *testing.T) {
	pool := lower.NewStringPool()
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, true, false, pool, dbg.NewLineSink())
	text := asm.Finalize()
	assert.Contains(t, text, ".target sm_75, debug\n")
}

func TestFinalizeRendersStringPoolEntries(t *testing.T) {
	pool := lower.NewStringPool()
	pool.Intern("utf8", "hi")
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, false, false, pool, nil)
	text := asm.Finalize()
	assert.Contains(t, text, ".global .align 2 .b8 $str0[3] = {104, 105, 0};")
}

func TestFinalizeNonKernelUsesFuncQualifier(t *testing.T) {
	pool := lower.NewStringPool()
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, false, false, pool, nil)
	asm.AddMethod(MethodBody{
		Name:       "helper",
		ReturnType: fixture.Void(),
		IsKernel:   false,
		Result:     lower.Result{Body: "\tret;\n"},
	})
	text := asm.Finalize()
	assert.True(t, strings.Contains(text, ".func"))
	assert.False(t, strings.Contains(text, ".visible .entry"))
}

func TestFinalizeKernelUsesEntryQualifierAndParams(t *testing.T) {
	pool := lower.NewStringPool()
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, false, false, pool, nil)
	asm.AddMethod(MethodBody{
		Name: "kernel_fn",
		Params: []ir.Param{
			{Name: "n", Type: fixture.Prim(types.Int32)},
		},
		ReturnType: fixture.Void(),
		IsKernel:   true,
		Result:     lower.Result{Body: "\tret;\n"},
	})
	text := asm.Finalize()
	assert.Contains(t, text, ".visible .entry kernel_fn(")
	assert.Contains(t, text, ".param .s32 param_0")
}

func TestFinalizeRemapsPredicateParamAndReturnToS32(t *testing.T) {
	pool := lower.NewStringPool()
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, false, false, pool, nil)
	asm.AddMethod(MethodBody{
		Name: "predicate_io",
		Params: []ir.Param{
			{Name: "flag", Type: fixture.Prim(types.Pred)},
		},
		ReturnType: fixture.Prim(types.Pred),
		IsKernel:   true,
		Result:     lower.Result{Body: "\tret;\n"},
	})
	text := asm.Finalize()
	assert.Contains(t, text, ".param .s32 param_0")
	assert.Contains(t, text, ".param .s32 retval0")
	assert.NotContains(t, text, ".param .pred")
}

func TestFinalizeRendersRegisterDeclarations(t *testing.T) {
	pool := lower.NewStringPool()
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, false, false, pool, nil)
	asm.AddMethod(MethodBody{
		Name:       "kernel_fn",
		ReturnType: fixture.Void(),
		IsKernel:   true,
		Result: lower.Result{
			Body:         "\tret;\n",
			Declarations: []regs.DeclBank{{Kind: regs.Int32, Count: 2}},
		},
	})
	text := asm.Finalize()
	assert.Contains(t, text, "\t.reg .b32 \t%r<2>;\n")
}

func TestFinalizeAppendsFileTableFromSink(t *testing.T) {
	pool := lower.NewStringPool()
	sink := dbg.NewLineSink()
	sink.Emit(ir.SourceLoc{File: "a.cu", Line: 1, Column: 1, Valid: true})
	asm := NewAssembler(isa.Arch{Major: 7, Minor: 5}, 64, true, false, pool, sink)
	text := asm.Finalize()
	assert.Contains(t, text, `.file 0 "a.cu"`)
}
