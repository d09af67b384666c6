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
// Package xutil carries the small set of assertion helpers every lowering
// and emission package in ptxgen relies on. Adapted from falcon's
// utils.Assert/ShouldNotReachHere/Unimplement — panics here always mean an
// InternalInvariant (a backend bug), never a reportable user-facing error;
// those are returned as typed errors by the caller instead of panicking.
package xutil

import "fmt"

// Assert panics with a formatted message if cond is false. Reserved for
// invariants that, if violated, indicate a bug in ptxgen itself rather than
// a malformed input IR (those are reported as ptx.InvalidIR instead).
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// ShouldNotReachHere marks a switch arm that exhaustive callers must never
// hit; reaching it is an InternalInvariant.
func ShouldNotReachHere(format string, args ...interface{}) {
	panic(fmt.Sprintf("should not reach here: "+format, args...))
}

// Unimplement marks a deliberately unhandled case distinct from a bug —
// e.g. a capability-gated opcode path intentionally left for a later
// architecture target.
func Unimplement(what string) {
	panic(fmt.Sprintf("not implemented: %s", what))
}
