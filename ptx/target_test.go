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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTargetDefaults(t *testing.T) {
	target, err := LoadTarget(strings.NewReader("arch_major: 7\narch_minor: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, "6.4", target.ISAVersion)
	assert.Equal(t, 64, target.PointerBits)
}

func TestLoadTargetOverridesDefaults(t *testing.T) {
	doc := "arch_major: 7\narch_minor: 5\nisa_version: \"7.0\"\npointer_bits: 32\nflags:\n  fast_math: true\n"
	target, err := LoadTarget(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "7.0", target.ISAVersion)
	assert.Equal(t, 32, target.PointerBits)
	assert.True(t, target.Flags.FastMath)
}

func TestLoadTargetRejectsUnsupportedArchitecture(t *testing.T) {
	_, err := LoadTarget(strings.NewReader("arch_major: 1\narch_minor: 0\n"))
	require.Error(t, err)
	var unknown *UnknownArchitecture
	assert.True(t, errors.As(err, &unknown))
}

func TestTargetArch(t *testing.T) {
	target := Target{ArchMajor: 7, ArchMinor: 5}
	assert.Equal(t, "sm_75", target.Arch().String())
}
