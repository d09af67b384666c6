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
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Arch is the target shader-model architecture (spec §6 Target descriptor:
// arch_major, arch_minor). MinArchMajor is the minimum major version the
// spec requires backend construction to accept (§4.6: "Architectures below
// the minimum supported are rejected at backend construction").
const MinArchMajor = 3

type Arch struct {
	Major int
	Minor int
}

func (a Arch) String() string { return fmt.Sprintf("sm_%d%d", a.Major, a.Minor) }

// TargetString is the ".target sm_<major><minor>" token for the module
// header (spec §6, produced-artifact line 3).
func (a Arch) TargetString() string { return a.String() }

func (a Arch) version() *semver.Version {
	return semver.New(uint64(a.Major), uint64(a.Minor), 0, "", "")
}

// Valid reports whether a meets the minimum-supported-architecture floor.
func (a Arch) Valid() bool { return a.Major >= MinArchMajor }

// Capability names a Boolean feature flag a shader-model architecture may
// or may not advertise (spec §4.6). Kept as plain strings rather than an
// enum so CapabilityGate's backing table (below) can stay pure data, per
// DESIGN NOTES §9 ("Capability gate as data, not code").
type Capability string

const (
	CapF16Min    Capability = "f16_min"
	CapF16Max    Capability = "f16_max"
	CapF16Tanh   Capability = "f16_tanh"
	CapF32Tanh   Capability = "f32_tanh"
	CapF16ArithA Capability = "f16_add_sub_mul" // .ftz add/sub/mul on f16, gated per spec §4.1
)

type capabilityRule struct {
	name       Capability
	constraint *semver.Constraints
}

// CapabilityGate answers "is this capability available on this
// architecture" as a table lookup (spec §4.6), built once from a literal
// version-gated table — mirroring falcon's register/ABI tables in
// codegen/arch_x86.go, which are likewise plain package-level data rather
// than branchy code.
type CapabilityGate struct {
	rules []capabilityRule
}

// NewCapabilityGate builds the default capability table. Minor-version
// gating below is a conservative, documented judgment call: f16 min/max/tanh
// and f32 tanh are gated behind sm_75+ (Turing), and the f16 .ftz
// add/sub/mul forms (CapF16ArithA) behind sm_70+.
func NewCapabilityGate() *CapabilityGate {
	sm75 := mustConstraint(">= 7.5")
	sm70 := mustConstraint(">= 7.0")
	return &CapabilityGate{rules: []capabilityRule{
		{CapF16Min, sm75},
		{CapF16Max, sm75},
		{CapF16Tanh, sm75},
		{CapF32Tanh, sm75},
		{CapF16ArithA, sm70},
	}}
}

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// Supports reports whether capability cap is available on arch. Unknown
// capabilities (no rule registered) are always supported — the gate only
// restricts capabilities it explicitly knows are architecture-dependent;
// everything else is assumed baseline (available since MinArchMajor).
func (g *CapabilityGate) Supports(arch Arch, cap Capability) bool {
	v := arch.version()
	for _, r := range g.rules {
		if r.name == cap {
			return r.constraint.Check(v)
		}
	}
	return true
}
