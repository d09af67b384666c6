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

import "github.com/ember-lang/ptxgen/ptx/perr"

// Error taxonomy (spec §7), re-exported under the public package so
// callers can `errors.As` against `ptx.UnsupportedOperation` etc. without
// importing ptx/perr directly. Each is a type alias, not a wrapper struct,
// so the identity the lower packages raise is exactly what callers see.
type (
	UnsupportedOperation      = perr.UnsupportedOperation
	UnsupportedOnArchitecture = perr.UnsupportedOnArchitecture
	InvalidIR                 = perr.InvalidIR
	UnknownArchitecture       = perr.UnknownArchitecture
	InternalInvariant         = perr.InternalInvariant
)
