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
// Package perr holds the error taxonomy from spec §7, shared by every
// package that can detect one of these failures (isa, regs, lower, module)
// so they don't need to import the top-level ptx package (which imports
// all of them) just to report an error. The ptx package re-exports these
// under its own names for callers.
package perr

import "fmt"

// UnsupportedOperation: the opcode table has no entry for (op, type).
type UnsupportedOperation struct {
	Op   string
	Type string
}

func (e *UnsupportedOperation) Error() string {
	return fmt.Sprintf("unsupported operation: %s for type %s", e.Op, e.Type)
}

// UnsupportedOnArchitecture: an entry exists but the capability gate denies
// it for the selected architecture.
type UnsupportedOnArchitecture struct {
	Op   string
	Type string
	Arch string
}

func (e *UnsupportedOnArchitecture) Error() string {
	return fmt.Sprintf("operation %s for type %s is not supported on %s", e.Op, e.Type, e.Arch)
}

// InvalidIR: inputs violate a documented precondition (e.g. a predicate
// value where an int32 is expected).
type InvalidIR struct {
	Reason string
}

func (e *InvalidIR) Error() string { return fmt.Sprintf("invalid IR: %s", e.Reason) }

// UnknownArchitecture: the architecture is below the minimum supported or
// otherwise unmapped.
type UnknownArchitecture struct {
	Major, Minor int
}

func (e *UnknownArchitecture) Error() string {
	return fmt.Sprintf("unknown or unsupported architecture sm_%d%d", e.Major, e.Minor)
}

// InternalInvariant: a debug-time assertion failed; indicates a backend
// bug rather than a problem with the caller's input.
type InternalInvariant struct {
	Reason string
}

func (e *InternalInvariant) Error() string { return fmt.Sprintf("internal invariant violated: %s", e.Reason) }
