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
package ptx

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ember-lang/ptxgen/ptx/isa"
)

// Flags is the spec §6 Target descriptor's flag set: the teacher's
// top-of-file `const Debug... = true/false` toggles in compile.go,
// generalized into one struct field group.
type Flags struct {
	FastMath          bool `yaml:"fast_math"`
	EnableAssertions  bool `yaml:"enable_assertions"`
	EmitDebugInfo     bool `yaml:"emit_debug_info"`
	InlineSource      bool `yaml:"inline_source"`
	InliningEnabled   bool `yaml:"inlining_enabled"`
	OptimizationLevel int  `yaml:"optimization_level"`
}

// Target is the spec §6 Target descriptor: architecture, ISA version,
// pointer width, and flags. ISAVersion is parsed and carried but not read
// by the backend: the module header's `.version` line is always
// module.ISAVersion ("6.4").
type Target struct {
	ArchMajor  int    `yaml:"arch_major"`
	ArchMinor  int    `yaml:"arch_minor"`
	ISAVersion string `yaml:"isa_version"`
	PointerBits int   `yaml:"pointer_bits"`
	Flags      Flags  `yaml:"flags"`
}

// Arch returns the isa.Arch this Target names.
func (t Target) Arch() isa.Arch { return isa.Arch{Major: t.ArchMajor, Minor: t.ArchMinor} }

// LoadTarget parses a Target from YAML (spec §A.2: the out-of-scope
// "context/configuration loading" collaborator's shape made concrete
// enough to unit test). Defaults isa_version to "6.4" and pointer_bits to
// 64 when the document omits them.
func LoadTarget(r io.Reader) (Target, error) {
	t := Target{ISAVersion: "6.4", PointerBits: 64}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return Target{}, fmt.Errorf("ptx: loading target: %w", err)
	}
	if !t.Arch().Valid() {
		return Target{}, &UnknownArchitecture{Major: t.ArchMajor, Minor: t.ArchMinor}
	}
	return t, nil
}
