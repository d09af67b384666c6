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
package lower

import (
	"fmt"
	"sync"
)

// StringPool interns (encoding, text) pairs to a stable symbol name (spec
// §3 "String-constant pool ... module-wide, additive only", §9 "Global
// constant interning: a shared map ... per-module in single-threaded mode,
// per-task-then-merged in concurrent mode"). Guarded by a mutex so callers
// compiling different methods concurrently (spec §5) can share one pool;
// single-threaded callers pay an uncontended lock.
type StringPool struct {
	mu      sync.Mutex
	symbols map[string]string // "encoding\x00text" -> symbol name
	order   []InternedString
	next    int
}

// InternedString is one entry of the pool, in first-seen order, ready for
// ptx/module to render the `.global .align 2 .b8 ...` declarations.
type InternedString struct {
	Symbol string
	Text   string
}

// NewStringPool returns an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{symbols: make(map[string]string)}
}

// Intern returns the stable symbol name for (encoding, text), creating one
// if this exact pair hasn't been seen (property 9: "two string constants
// with equal (encoding, bytes) share a symbol; unequal ones do not").
func (p *StringPool) Intern(encoding, text string) string {
	key := encoding + "\x00" + text
	p.mu.Lock()
	defer p.mu.Unlock()
	if sym, ok := p.symbols[key]; ok {
		return sym
	}
	sym := fmt.Sprintf("$str%d", p.next)
	p.next++
	p.symbols[key] = sym
	p.order = append(p.order, InternedString{Symbol: sym, Text: text})
	return sym
}

// Entries returns the interned strings in first-seen order.
func (p *StringPool) Entries() []InternedString {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]InternedString, len(p.order))
	copy(out, p.order)
	return out
}

// Merge folds another pool's entries into p, used when per-task pools
// (concurrent compilation, spec §5) are combined by the module assembler.
// Later duplicate (encoding, text) pairs keep p's earlier-assigned symbol.
func (p *StringPool) Merge(other *StringPool) map[string]string {
	remap := make(map[string]string)
	for _, e := range other.Entries() {
		// other's symbols were minted against its own counter; we only know
		// the text here, so re-intern against p and record the rename.
		newSym := p.Intern("utf8", e.Text)
		remap[e.Symbol] = newSym
	}
	return remap
}
