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
package isa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-lang/ptxgen/ptx/perr"
	"github.com/ember-lang/ptxgen/ptx/types"
)

func TestOpKindArity(t *testing.T) {
	assert.Equal(t, ArityUnary, OpNeg.Arity())
	assert.Equal(t, ArityBinary, OpAdd.Arity())
	assert.Equal(t, ArityTernary, OpFMA.Arity())
	assert.Equal(t, ArityCompare, OpCmpLt.Arity())
	assert.Equal(t, ArityAtomic, OpAtomAdd.Arity())
}

func TestOpKindUnorderedRoundTrip(t *testing.T) {
	assert.True(t, OpCmpLtU.IsUnordered())
	assert.False(t, OpCmpLt.IsUnordered())
	assert.Equal(t, OpCmpLt, OpCmpLtU.Ordered())
	assert.Equal(t, OpCmpLt, OpCmpLt.Ordered())
}

func TestLookupBasicArithmetic(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate()}
	m, err := Lookup(OpAdd, types.Int32, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("add.s32"), m)

	m, err = Lookup(OpMul, types.Int32, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("mul.lo.s32"), m)
}

func TestLookupFastMathFallsBackWhenNoVariant(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate(), FastMath: true}
	// Int32 add has no fast-math variant registered, so fast lookup must
	// fall back to the standard mnemonic rather than failing.
	m, err := Lookup(OpAdd, types.Int32, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("add.s32"), m)
}

func TestLookupFastMathPrefersVariant(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate(), FastMath: true}
	m, err := Lookup(OpAdd, types.F32, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("add.ftz.f32"), m)
}

func TestLookupUnsupportedOperation(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate()}
	_, err := Lookup(OpTanh, types.Int32, flags)
	require.Error(t, err)
	var unsupported *perr.UnsupportedOperation
	assert.True(t, errors.As(err, &unsupported))
}

func TestLookupGatedByCapability(t *testing.T) {
	gate := NewCapabilityGate()
	old := Flags{Arch: Arch{Major: 7, Minor: 0}, Gate: gate}
	_, err := Lookup(OpMin, types.F16, old)
	require.Error(t, err)
	var onArch *perr.UnsupportedOnArchitecture
	require.True(t, errors.As(err, &onArch))

	new := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: gate}
	m, err := Lookup(OpMin, types.F16, new)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("min.f16"), m)
}

func TestCapabilityGateUnknownAlwaysSupported(t *testing.T) {
	gate := NewCapabilityGate()
	assert.True(t, gate.Supports(Arch{Major: 3, Minor: 0}, Capability("not_a_real_capability")))
}

func TestArchValid(t *testing.T) {
	assert.True(t, Arch{Major: MinArchMajor, Minor: 0}.Valid())
	assert.False(t, Arch{Major: MinArchMajor - 1, Minor: 0}.Valid())
}

func TestArchStrings(t *testing.T) {
	a := Arch{Major: 7, Minor: 5}
	assert.Equal(t, "sm_75", a.String())
	assert.Equal(t, "sm_75", a.TargetString())
}

func TestConvertMnemonicRounding(t *testing.T) {
	assert.Equal(t, Mnemonic("cvt.rn.f32.s32"), ConvertMnemonic(types.F32, types.Int32))
	assert.Equal(t, Mnemonic("cvt.rz.s32.f32"), ConvertMnemonic(types.Int32, types.F32))
	assert.Equal(t, Mnemonic("cvt.f64.f32"), ConvertMnemonic(types.F64, types.F32))
	assert.Equal(t, Mnemonic("cvt.rn.f32.f64"), ConvertMnemonic(types.F32, types.F64))
}

func TestLookupInt8ArithmeticWidensToS16(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate()}
	m, err := Lookup(OpAdd, types.Int8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("add.s16"), m)

	m, err = Lookup(OpMul, types.Int8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("mul.lo.s16"), m)

	m, err = Lookup(OpNeg, types.Int8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("neg.s16"), m)

	m, err = Lookup(OpFMA, types.Int8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("mad.lo.s16"), m)
}

func TestLookupUint8ArithmeticWidensToU16(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate()}
	m, err := Lookup(OpSub, types.Uint8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("sub.u16"), m)

	m, err = Lookup(OpMax, types.Uint8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("max.u16"), m)

	m, err = Lookup(OpAbs, types.Uint8, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("abs.u16"), m)
}

func TestVectorSuffix(t *testing.T) {
	assert.Equal(t, "v2", VectorSuffix(2))
	assert.Equal(t, "v4", VectorSuffix(4))
}

func TestAtomicMnemonicPrefixSelection(t *testing.T) {
	flags := Flags{Arch: Arch{Major: 7, Minor: 5}, Gate: NewCapabilityGate()}
	m, err := AtomicMnemonic(OpAtomAdd, types.Int32, types.Global, true, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("atom.global.add.s32"), m)

	m, err = AtomicMnemonic(OpAtomAdd, types.Int32, types.Global, false, flags)
	require.NoError(t, err)
	assert.Equal(t, Mnemonic("red.global.add.s32"), m)
}
